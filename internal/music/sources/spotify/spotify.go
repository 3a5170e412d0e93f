// Package spotify is a minimal Web API client for track, playlist and album
// metadata. Spotify supplies no streamable audio; the resolution pipeline
// maps each track onto a catalog search instead.
package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"groovebox/pkg/retrylimit"
)

const (
	defaultAuthURL = "https://accounts.spotify.com/api/token"
	defaultAPIURL  = "https://api.spotify.com/v1"

	pageSize    = 50
	maxAttempts = 3
)

var urlPattern = regexp.MustCompile(`(?:https://open\.spotify\.com/(track|playlist|album)/|spotify:(track|playlist|album):)([a-zA-Z0-9]+)`)

// LinkKind is the flavor of a recognized Spotify link.
type LinkKind string

const (
	LinkTrack    LinkKind = "track"
	LinkPlaylist LinkKind = "playlist"
	LinkAlbum    LinkKind = "album"
)

// ParseURL recognizes open.spotify.com links and spotify: URIs.
func ParseURL(input string) (LinkKind, string, bool) {
	m := urlPattern.FindStringSubmatch(input)
	if m == nil {
		return "", "", false
	}
	kind := m[1]
	if kind == "" {
		kind = m[2]
	}
	return LinkKind(kind), m[3], true
}

// TrackMeta is the metadata the pipeline needs to synthesize a catalog
// search for one track.
type TrackMeta struct {
	Name            string
	Artist          string
	DurationSeconds int
	ExternalURL     string
}

// Client talks to the Spotify Web API using the client-credentials flow.
// A Client built without credentials is disabled and rejects all lookups.
type Client struct {
	clientID     string
	clientSecret string
	http         *http.Client
	lim          *retrylimit.AdaptiveLimiter

	// overridable in tests
	authURL string
	apiURL  string

	mu       sync.Mutex
	token    string
	tokenExp time.Time
}

func New(clientID, clientSecret string) *Client {
	return &Client{
		clientID:     clientID,
		clientSecret: clientSecret,
		http:         &http.Client{Timeout: 10 * time.Second},
		lim:          retrylimit.NewAdaptiveLimiter(5, 1, 20, 1, 0.5),
		authURL:      defaultAuthURL,
		apiURL:       defaultAPIURL,
	}
}

// Enabled reports whether credentials were configured.
func (c *Client) Enabled() bool {
	return c != nil && c.clientID != "" && c.clientSecret != ""
}

// Track fetches metadata for a single track id.
func (c *Client) Track(ctx context.Context, id string) (*TrackMeta, error) {
	var body trackObject
	if err := c.get(ctx, "/tracks/"+id, &body); err != nil {
		return nil, fmt.Errorf("track lookup failed: %w", err)
	}
	meta := body.toMeta()
	return &meta, nil
}

// PlaylistTracks pages through a playlist until it is exhausted or max
// tracks have been collected. Non-track items (podcast episodes, removed
// entries) are skipped.
func (c *Client) PlaylistTracks(ctx context.Context, id string, max int) ([]TrackMeta, error) {
	var out []TrackMeta
	offset := 0
	for {
		var page paging[playlistItem]
		path := fmt.Sprintf("/playlists/%s/tracks?limit=%d&offset=%d", id, pageSize, offset)
		if err := c.get(ctx, path, &page); err != nil {
			return nil, fmt.Errorf("playlist lookup failed: %w", err)
		}
		for _, item := range page.Items {
			if item.Track == nil || item.Track.Name == "" {
				continue
			}
			out = append(out, item.Track.toMeta())
			if len(out) >= max {
				return out, nil
			}
		}
		if page.Next == nil || len(page.Items) == 0 {
			return out, nil
		}
		offset += len(page.Items)
	}
}

// AlbumTracks pages through an album's tracks, capped at max.
func (c *Client) AlbumTracks(ctx context.Context, id string, max int) ([]TrackMeta, error) {
	var out []TrackMeta
	offset := 0
	for {
		var page paging[trackObject]
		path := fmt.Sprintf("/albums/%s/tracks?limit=%d&offset=%d", id, pageSize, offset)
		if err := c.get(ctx, path, &page); err != nil {
			return nil, fmt.Errorf("album lookup failed: %w", err)
		}
		for _, track := range page.Items {
			out = append(out, track.toMeta())
			if len(out) >= max {
				return out, nil
			}
		}
		if page.Next == nil || len(page.Items) == 0 {
			return out, nil
		}
		offset += len(page.Items)
	}
}

// get performs an authenticated GET against the API, with retries and
// adaptive pacing around rate-limit responses.
func (c *Client) get(ctx context.Context, path string, out any) error {
	if !c.Enabled() {
		return fmt.Errorf("spotify client is not configured")
	}
	return retrylimit.WithRetryMax(ctx, func() error {
		token, err := c.accessToken(ctx)
		if err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+path, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return &apiError{status: resp.StatusCode, body: strings.TrimSpace(string(body))}
		}
		return json.NewDecoder(resp.Body).Decode(out)
	}, c.lim, maxAttempts)
}

// accessToken returns the cached client-credentials token, refreshing it
// shortly before expiry.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExp) {
		return c.token, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.clientID, c.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &apiError{status: resp.StatusCode, body: "token request rejected"}
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}

	c.token = body.AccessToken
	c.tokenExp = time.Now().Add(time.Duration(body.ExpiresIn)*time.Second - time.Minute)
	return c.token, nil
}

type apiError struct {
	status int
	body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("spotify api status %d: %s", e.status, e.body)
}

func (e *apiError) StatusCode() int { return e.status }

// paging mirrors the Web API's offset-based page envelope.
type paging[T any] struct {
	Items []T     `json:"items"`
	Next  *string `json:"next"`
	Total int     `json:"total"`
}

type playlistItem struct {
	Track *trackObject `json:"track"`
}

type trackObject struct {
	Name       string `json:"name"`
	DurationMs int    `json:"duration_ms"`
	Artists    []struct {
		Name string `json:"name"`
	} `json:"artists"`
	ExternalURLs map[string]string `json:"external_urls"`
}

func (t trackObject) toMeta() TrackMeta {
	names := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		names = append(names, a.Name)
	}
	return TrackMeta{
		Name:            t.Name,
		Artist:          strings.Join(names, ", "),
		DurationSeconds: t.DurationMs / 1000,
		ExternalURL:     t.ExternalURLs["spotify"],
	}
}
