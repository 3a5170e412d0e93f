// Package stream turns a song locator into a raw PCM stream that the voice
// layer can encode and send. Uploaded files and direct URLs go straight
// through ffmpeg; catalog locators are re-resolved to a fresh audio URL
// first, since stored stream URLs go stale.
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"

	ytclient "github.com/kkdai/youtube/v2"

	"groovebox/internal/music/sources"
	"groovebox/internal/music/sources/youtube"
)

const (
	channels   = 2
	sampleRate = 48000
)

// Opener opens PCM streams for songs. It satisfies the playback session's
// opener dependency.
type Opener struct {
	client *ytclient.Client
}

func NewOpener() *Opener {
	return &Opener{client: &ytclient.Client{}}
}

// Open returns the PCM reader for song, plus a cleanup that must be called
// once streaming is over (it kills the decoder process).
func (o *Opener) Open(ctx context.Context, song sources.Song) (io.ReadCloser, func(), error) {
	switch {
	case song.Kind == sources.KindUpload:
		return openFFmpeg(ctx, song.Locator, false)
	case youtube.ExtractVideoID(song.Locator) != "":
		return o.openCatalog(ctx, song)
	default:
		return openFFmpeg(ctx, song.Locator, true)
	}
}

// openCatalog resolves the current audio stream URL for a catalog song and
// pipes it through ffmpeg.
func (o *Opener) openCatalog(ctx context.Context, song sources.Song) (io.ReadCloser, func(), error) {
	video, err := o.client.GetVideoContext(ctx, song.Locator)
	if err != nil {
		return nil, nil, fmt.Errorf("video lookup failed: %w", err)
	}

	formats := video.Formats.WithAudioChannels()
	if len(formats) == 0 {
		return nil, nil, errors.New("no audio formats available")
	}

	streamURL, err := o.client.GetStreamURLContext(ctx, video, &formats[0])
	if err != nil {
		return nil, nil, fmt.Errorf("stream URL resolution failed: %w", err)
	}

	return openFFmpeg(ctx, streamURL, true)
}
