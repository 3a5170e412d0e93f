package spotify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roundTripFunc func(req *http.Request) *http.Response

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req), nil
}

func jsonResponse(body string) *http.Response {
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

func newTestClient(fn roundTripFunc) *Client {
	c := New("id", "secret")
	c.http = &http.Client{Transport: fn}
	c.authURL = "https://auth.test/token"
	c.apiURL = "https://api.test/v1"
	return c
}

func TestParseURL(t *testing.T) {
	tests := []struct {
		input string
		kind  LinkKind
		id    string
		ok    bool
	}{
		{"https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC", LinkTrack, "4uLU6hMCjMI75M1A2tKUQC", true},
		{"https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M?si=x", LinkPlaylist, "37i9dQZF1DXcBWIGoYBM5M", true},
		{"https://open.spotify.com/album/2up3OPMp9Tb4dAKM2erWXQ", LinkAlbum, "2up3OPMp9Tb4dAKM2erWXQ", true},
		{"spotify:track:4uLU6hMCjMI75M1A2tKUQC", LinkTrack, "4uLU6hMCjMI75M1A2tKUQC", true},
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "", "", false},
		{"plain text", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			kind, id, ok := ParseURL(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.kind, kind)
			assert.Equal(t, tt.id, id)
		})
	}
}

func TestTrackFetchesTokenOnce(t *testing.T) {
	tokenRequests := 0
	c := newTestClient(func(req *http.Request) *http.Response {
		switch {
		case strings.Contains(req.URL.Host, "auth.test"):
			tokenRequests++
			user, pass, ok := req.BasicAuth()
			assert.True(t, ok)
			assert.Equal(t, "id", user)
			assert.Equal(t, "secret", pass)
			return jsonResponse(`{"access_token":"tok","expires_in":3600}`)
		case strings.HasSuffix(req.URL.Path, "/tracks/abc"):
			assert.Equal(t, "Bearer tok", req.Header.Get("Authorization"))
			return jsonResponse(`{
				"name": "Song",
				"duration_ms": 184000,
				"artists": [{"name": "Artist A"}, {"name": "Artist B"}],
				"external_urls": {"spotify": "https://open.spotify.com/track/abc"}
			}`)
		}
		return &http.Response{StatusCode: http.StatusNotFound, Body: io.NopCloser(strings.NewReader(""))}
	})

	meta, err := c.Track(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, "Song", meta.Name)
	assert.Equal(t, "Artist A, Artist B", meta.Artist)
	assert.Equal(t, 184, meta.DurationSeconds)

	_, err = c.Track(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, 1, tokenRequests)
}

func TestPlaylistTracksPagesUntilCap(t *testing.T) {
	c := newTestClient(func(req *http.Request) *http.Response {
		if strings.Contains(req.URL.Host, "auth.test") {
			return jsonResponse(`{"access_token":"tok","expires_in":3600}`)
		}

		offset := req.URL.Query().Get("offset")
		items := make([]string, 0, pageSize)
		start := 0
		fmt.Sscanf(offset, "%d", &start)
		for i := 0; i < pageSize; i++ {
			items = append(items, fmt.Sprintf(
				`{"track":{"name":"t%03d","duration_ms":1000,"artists":[{"name":"a"}],"external_urls":{}}}`,
				start+i))
		}
		return jsonResponse(fmt.Sprintf(`{"items":[%s],"next":"more","total":500}`, strings.Join(items, ",")))
	})

	tracks, err := c.PlaylistTracks(context.Background(), "pl", 120)
	require.NoError(t, err)
	require.Len(t, tracks, 120)
	assert.Equal(t, "t000", tracks[0].Name)
	assert.Equal(t, "t119", tracks[119].Name)
}

func TestPlaylistTracksStopsWithoutNextPage(t *testing.T) {
	c := newTestClient(func(req *http.Request) *http.Response {
		if strings.Contains(req.URL.Host, "auth.test") {
			return jsonResponse(`{"access_token":"tok","expires_in":3600}`)
		}
		return jsonResponse(`{"items":[
			{"track":{"name":"only","duration_ms":1000,"artists":[{"name":"a"}],"external_urls":{}}},
			{"track":null}
		],"next":null,"total":2}`)
	})

	tracks, err := c.PlaylistTracks(context.Background(), "pl", 100)
	require.NoError(t, err)
	require.Len(t, tracks, 1)
	assert.Equal(t, "only", tracks[0].Name)
}

func TestDisabledClientRejectsLookups(t *testing.T) {
	c := New("", "")
	assert.False(t, c.Enabled())
	_, err := c.Track(context.Background(), "abc")
	assert.Error(t, err)
}
