package stream

import (
	"context"
	"fmt"
	"io"
	"os/exec"
)

// openFFmpeg decodes input (a URL or local path) to signed 16-bit little
// endian PCM on stdout. The returned cleanup kills the process; callers run
// it when the stream is abandoned mid-track.
func openFFmpeg(ctx context.Context, input string, remote bool) (io.ReadCloser, func(), error) {
	args := []string{}
	if remote {
		args = append(args,
			"-reconnect", "1",
			"-reconnect_streamed", "1",
			"-reconnect_delay_max", "5",
		)
	}
	args = append(args,
		"-i", input,
		"-f", "s16le",
		"-ar", fmt.Sprintf("%d", sampleRate),
		"-ac", fmt.Sprintf("%d", channels),
		"-loglevel", "warning",
		"pipe:1",
	)

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)

	reader, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, fmt.Errorf("stdout pipe error: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, nil, fmt.Errorf("command start error: %w", err)
	}

	cleanup := func() {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
	}

	return reader, cleanup, nil
}
