package sources

import "fmt"

// Kind identifies where a song's audio comes from.
type Kind string

const (
	// KindCatalog is a single stream resolved from the catalog (search or direct URL).
	KindCatalog Kind = "catalog"
	// KindCatalogPlaylistItem is one entry of an expanded catalog playlist.
	KindCatalogPlaylistItem Kind = "catalog-playlist-item"
	// KindUpload is a user-uploaded file stored on local disk.
	KindUpload Kind = "upload"
)

// Origin carries display-only metadata about where a song was found,
// e.g. the Spotify track that was mapped to a catalog stream.
type Origin struct {
	Track  string
	Artist string
}

// Song describes a playable item. Songs are immutable once constructed;
// nothing mutates them after they enter a queue.
type Song struct {
	Title           string
	Locator         string // stream URL or local file path
	WebLocator      string // human-facing URL, empty for uploads
	DurationSeconds int    // 0 = unknown
	Kind            Kind
	Temporary       bool // the file behind Locator must be deleted after use
	Origin          *Origin
}

// DurationString renders the duration as MM:SS, or "Unknown" when absent.
func (s Song) DurationString() string {
	if s.DurationSeconds <= 0 {
		return "Unknown"
	}
	return fmt.Sprintf("%02d:%02d", s.DurationSeconds/60, s.DurationSeconds%60)
}
