package source_resolver

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"groovebox/internal/music/sources"
	"groovebox/internal/music/sources/spotify"
)

type fakeCatalog struct {
	resolved  []string
	playlists []string
	missAll   bool
	miss      map[string]bool
}

func (f *fakeCatalog) Match(input string) bool {
	return strings.Contains(input, "youtube.com") || strings.Contains(input, "youtu.be")
}

func (f *fakeCatalog) MatchPlaylist(input string) bool {
	return strings.Contains(input, "youtube.com/playlist")
}

func (f *fakeCatalog) ResolveOne(ctx context.Context, input string) (*sources.Song, error) {
	f.resolved = append(f.resolved, input)
	if f.missAll || f.miss[input] {
		return nil, nil
	}
	return &sources.Song{Title: "resolved:" + input, Locator: "https://yt/" + input, Kind: sources.KindCatalog}, nil
}

func (f *fakeCatalog) ResolvePlaylist(ctx context.Context, url string, limit int) ([]sources.Song, error) {
	f.playlists = append(f.playlists, url)
	out := make([]sources.Song, limit)
	for i := range out {
		out[i] = sources.Song{Title: "entry", Kind: sources.KindCatalogPlaylistItem}
	}
	return out, nil
}

type fakeMeta struct {
	enabled bool
	track   *spotify.TrackMeta
	tracks  []spotify.TrackMeta
	err     error
}

func (f *fakeMeta) Enabled() bool { return f.enabled }

func (f *fakeMeta) Track(ctx context.Context, id string) (*spotify.TrackMeta, error) {
	return f.track, f.err
}

func (f *fakeMeta) PlaylistTracks(ctx context.Context, id string, max int) ([]spotify.TrackMeta, error) {
	if len(f.tracks) > max {
		return f.tracks[:max], f.err
	}
	return f.tracks, f.err
}

func (f *fakeMeta) AlbumTracks(ctx context.Context, id string, max int) ([]spotify.TrackMeta, error) {
	return f.PlaylistTracks(ctx, id, max)
}

func TestResolveFreeTextSearches(t *testing.T) {
	cat := &fakeCatalog{}
	p := New(cat, nil)

	songs, err := p.Resolve(context.Background(), "  some song name ")
	require.NoError(t, err)
	require.Len(t, songs, 1)
	assert.Equal(t, []string{"some song name"}, cat.resolved)
}

func TestResolveSearchWithNoResults(t *testing.T) {
	cat := &fakeCatalog{missAll: true}
	p := New(cat, nil)

	_, err := p.Resolve(context.Background(), "nothing")
	assert.ErrorIs(t, err, ErrNoResults)
}

func TestResolveCatalogPlaylistIsCapped(t *testing.T) {
	cat := &fakeCatalog{}
	p := New(cat, nil)

	songs, err := p.Resolve(context.Background(), "https://www.youtube.com/playlist?list=PL123")
	require.NoError(t, err)
	assert.Len(t, songs, PlaylistLimit)
}

func TestResolveRejectsForeignURL(t *testing.T) {
	p := New(&fakeCatalog{}, nil)

	_, err := p.Resolve(context.Background(), "https://example.com/stream.mp3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported URL")
}

func TestResolveSpotifyTrackMapsToSearch(t *testing.T) {
	cat := &fakeCatalog{}
	meta := &fakeMeta{
		enabled: true,
		track:   &spotify.TrackMeta{Name: "Fly Me", Artist: "Frank", DurationSeconds: 150},
	}
	p := New(cat, meta)

	songs, err := p.Resolve(context.Background(), "https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC")
	require.NoError(t, err)
	require.Len(t, songs, 1)
	assert.Equal(t, []string{"Frank - Fly Me"}, cat.resolved)
	require.NotNil(t, songs[0].Origin)
	assert.Equal(t, "Frank", songs[0].Origin.Artist)
}

func TestResolveSpotifyPlaylistDropsMissesSilently(t *testing.T) {
	cat := &fakeCatalog{miss: map[string]bool{"b - two": true}}
	meta := &fakeMeta{
		enabled: true,
		tracks: []spotify.TrackMeta{
			{Name: "one", Artist: "a"},
			{Name: "two", Artist: "b"},
			{Name: "three", Artist: "c"},
		},
	}
	p := New(cat, meta)

	songs, err := p.Resolve(context.Background(), "https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M")
	require.NoError(t, err)
	require.Len(t, songs, 2)
	assert.Equal(t, "resolved:a - one", songs[0].Title)
	assert.Equal(t, "resolved:c - three", songs[1].Title)
}

func TestResolveSpotifyDisabled(t *testing.T) {
	p := New(&fakeCatalog{}, &fakeMeta{enabled: false})

	_, err := p.Resolve(context.Background(), "https://open.spotify.com/track/abc123")
	assert.ErrorIs(t, err, ErrSpotifyDisabled)
}

func TestResolveSpotifyErrorPropagates(t *testing.T) {
	boom := errors.New("api down")
	p := New(&fakeCatalog{}, &fakeMeta{enabled: true, err: boom})

	_, err := p.Resolve(context.Background(), "https://open.spotify.com/track/abc123")
	assert.ErrorIs(t, err, boom)
}

func TestWrapUpload(t *testing.T) {
	p := New(&fakeCatalog{}, nil)

	song := p.WrapUpload("/tmp/upload-1234.mp3", "")
	assert.Equal(t, "upload-1234", song.Title)
	assert.True(t, song.Temporary)
	assert.Equal(t, sources.KindUpload, song.Kind)

	named := p.WrapUpload("/tmp/upload-1234.mp3", "My Song")
	assert.Equal(t, "My Song", named.Title)
}
