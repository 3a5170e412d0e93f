// Package youtube resolves search terms, video URLs and playlist URLs into
// playable songs. Search goes through the public results page; metadata and
// playlist expansion use the kkdai youtube client.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"regexp"
	"strings"

	ytclient "github.com/kkdai/youtube/v2"

	"groovebox/internal/music/sources"
)

var (
	watchPattern = regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/)([a-zA-Z0-9_-]{11})`)
	listPattern  = regexp.MustCompile(`[?&]list=([a-zA-Z0-9_-]+)`)
)

type Source struct {
	resolver *Resolver
	client   *ytclient.Client
}

func New() *Source {
	return &Source{
		resolver: NewResolver(),
		client:   &ytclient.Client{},
	}
}

// Match reports whether input is a YouTube URL this source can handle.
func (s *Source) Match(input string) bool {
	return isYouTubeURL(input)
}

// MatchPlaylist reports whether input is a playlist URL.
func (s *Source) MatchPlaylist(input string) bool {
	return isYouTubeURL(input) && listPattern.MatchString(input) && strings.Contains(input, "playlist")
}

// ResolveOne turns a video URL or a free-text query into a single song.
// A query with no results is not an error; it yields (nil, nil).
func (s *Source) ResolveOne(ctx context.Context, input string) (*sources.Song, error) {
	input = strings.TrimSpace(input)

	watchURL := input
	if !isYouTubeURL(input) {
		found, err := s.resolver.SearchFirstVideoURL(ctx, input)
		if errors.Is(err, ErrNoVideoMatch) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("search failed: %w", err)
		}
		watchURL = found
	}

	id := ExtractVideoID(watchURL)
	if id == "" {
		return nil, fmt.Errorf("invalid video URL: %s", watchURL)
	}
	watchURL = CleanVideoURL(id)

	song := &sources.Song{
		Title:      input,
		Locator:    watchURL,
		WebLocator: watchURL,
		Kind:       sources.KindCatalog,
	}

	// Title and duration are cosmetic; a metadata failure must not block
	// playback, the stream layer re-resolves at play time anyway.
	video, err := s.client.GetVideoContext(ctx, watchURL)
	if err != nil {
		log.Printf("[YouTube] Metadata lookup failed for %s: %v", watchURL, err)
		return song, nil
	}
	song.Title = video.Title
	song.DurationSeconds = int(video.Duration.Seconds())
	return song, nil
}

// ResolvePlaylist expands a playlist URL into songs in original order,
// capped at limit entries.
func (s *Source) ResolvePlaylist(ctx context.Context, playlistURL string, limit int) ([]sources.Song, error) {
	playlist, err := s.client.GetPlaylistContext(ctx, playlistURL)
	if err != nil {
		return nil, fmt.Errorf("playlist lookup failed: %w", err)
	}

	entries := playlist.Videos
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	songs := make([]sources.Song, 0, len(entries))
	for _, entry := range entries {
		watchURL := CleanVideoURL(entry.ID)
		songs = append(songs, sources.Song{
			Title:           entry.Title,
			Locator:         watchURL,
			WebLocator:      watchURL,
			DurationSeconds: int(entry.Duration.Seconds()),
			Kind:            sources.KindCatalogPlaylistItem,
		})
	}
	return songs, nil
}

// ExtractVideoID pulls the 11-character video id out of a watch or youtu.be
// URL, returning "" when there is none.
func ExtractVideoID(input string) string {
	m := watchPattern.FindStringSubmatch(input)
	if len(m) > 1 {
		return m[1]
	}
	return ""
}

// CleanVideoURL builds a canonical watch URL for a video id, stripping list
// and timestamp clutter.
func CleanVideoURL(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}

func isYouTubeURL(input string) bool {
	u, err := url.Parse(input)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	host := strings.TrimPrefix(u.Hostname(), "www.")
	host = strings.TrimPrefix(host, "m.")
	return host == "youtube.com" || host == "youtu.be" || host == "music.youtube.com"
}
