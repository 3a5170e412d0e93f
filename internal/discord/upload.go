package discord

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
)

// maxUploadBytes caps attachment downloads. Discord itself limits uploads
// well below this on most guilds.
const maxUploadBytes = 100 << 20

// downloadAttachment stores an uploaded .mp3 under the temp dir with a
// unique name. The returned path is owned by the playback session that
// enqueues it, which deletes the file when it is done.
func (b *Bot) downloadAttachment(att *discordgo.MessageAttachment) (string, error) {
	if !strings.EqualFold(filepath.Ext(att.Filename), ".mp3") {
		return "", fmt.Errorf("only .mp3 uploads are supported")
	}

	req, err := http.NewRequestWithContext(b.ctx, http.MethodGet, att.URL, nil)
	if err != nil {
		return "", fmt.Errorf("bad attachment URL: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download attachment: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to download attachment: status %d", resp.StatusCode)
	}

	if err := os.MkdirAll(b.cfg.TempDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to prepare temp dir: %w", err)
	}
	path := filepath.Join(b.cfg.TempDir, uuid.NewString()+".mp3")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, io.LimitReader(resp.Body, maxUploadBytes)); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to store attachment: %w", err)
	}
	return path, nil
}
