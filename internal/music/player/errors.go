package player

import (
	"errors"
	"fmt"
)

var (
	// ErrNotPlaying rejects skip/stop when no stream is active.
	ErrNotPlaying = errors.New("no track is currently playing")
	// ErrInvalidState rejects pause/resume outside Playing/Paused.
	ErrInvalidState = errors.New("operation not allowed in current state")
	// ErrSessionClosed rejects commands on a disconnected session.
	ErrSessionClosed = errors.New("session is disconnected")
)

// VoiceConnectError wraps a failed voice channel join or move. The session
// stays idle; the caller gets direct feedback.
type VoiceConnectError struct {
	ChannelID string
	Err       error
}

func (e *VoiceConnectError) Error() string {
	return fmt.Sprintf("failed to connect to voice channel %s: %v", e.ChannelID, e.Err)
}

func (e *VoiceConnectError) Unwrap() error { return e.Err }
