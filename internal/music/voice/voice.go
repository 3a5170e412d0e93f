// Package voice abstracts the guild voice transport. The production
// implementation rides on discordgo; playback sessions only see these
// interfaces, which keeps them testable without a gateway connection.
package voice

import (
	"context"
	"io"
)

// Conn is an established voice channel connection. Play starts streaming
// raw PCM and is asynchronous; onDone is invoked exactly once when the
// stream finishes, fails, or is stopped.
type Conn interface {
	ChannelID() string
	Move(channelID string) error
	Play(pcm io.ReadCloser, onDone func(error)) error
	Stop()
	Pause()
	Resume()
	Playing() bool
	Paused() bool
	Disconnect() error
}

// Dialer joins voice channels.
type Dialer interface {
	Join(ctx context.Context, guildID, channelID string) (Conn, error)
}
