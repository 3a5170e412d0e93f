// Package source_resolver classifies a raw play request and fans it out to
// the catalog and metadata resolvers, producing ready-to-queue songs.
package source_resolver

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"groovebox/internal/music/sources"
	"groovebox/internal/music/sources/spotify"
)

const (
	// PlaylistLimit caps catalog playlist expansion.
	PlaylistLimit = 50
	// ExternalPlaylistLimit caps Spotify playlist/album mapping.
	ExternalPlaylistLimit = 100
)

var (
	// ErrNoResults means the input resolved cleanly but matched nothing.
	ErrNoResults = errors.New("no results found")
	// ErrSpotifyDisabled is returned for Spotify links when no credentials
	// were configured.
	ErrSpotifyDisabled = errors.New("spotify support is not configured")
)

// Catalog resolves search terms and catalog URLs into playable songs.
type Catalog interface {
	Match(input string) bool
	MatchPlaylist(input string) bool
	ResolveOne(ctx context.Context, input string) (*sources.Song, error)
	ResolvePlaylist(ctx context.Context, url string, limit int) ([]sources.Song, error)
}

// Metadata looks up track metadata on the external catalog.
type Metadata interface {
	Enabled() bool
	Track(ctx context.Context, id string) (*spotify.TrackMeta, error)
	PlaylistTracks(ctx context.Context, id string, max int) ([]spotify.TrackMeta, error)
	AlbumTracks(ctx context.Context, id string, max int) ([]spotify.TrackMeta, error)
}

type Pipeline struct {
	catalog Catalog
	meta    Metadata
}

func New(catalog Catalog, meta Metadata) *Pipeline {
	return &Pipeline{catalog: catalog, meta: meta}
}

// Resolve turns a query or URL into zero or more songs. Classification:
// Spotify link, catalog playlist, catalog video URL, free-text search.
func (p *Pipeline) Resolve(ctx context.Context, input string) ([]sources.Song, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, ErrNoResults
	}

	if kind, id, ok := spotify.ParseURL(input); ok {
		return p.resolveSpotify(ctx, kind, id)
	}

	if p.catalog.MatchPlaylist(input) {
		songs, err := p.catalog.ResolvePlaylist(ctx, input, PlaylistLimit)
		if err != nil {
			return nil, err
		}
		if len(songs) == 0 {
			return nil, ErrNoResults
		}
		return songs, nil
	}

	if isURL(input) && !p.catalog.Match(input) {
		return nil, fmt.Errorf("unsupported URL: %s", input)
	}

	song, err := p.catalog.ResolveOne(ctx, input)
	if err != nil {
		return nil, err
	}
	if song == nil {
		return nil, ErrNoResults
	}
	return []sources.Song{*song}, nil
}

// WrapUpload builds the song for an already-stored uploaded file. The
// session that eventually plays or drops it owns deleting the file.
func (p *Pipeline) WrapUpload(path, title string) sources.Song {
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return sources.Song{
		Title:     title,
		Locator:   path,
		Kind:      sources.KindUpload,
		Temporary: true,
	}
}

func (p *Pipeline) resolveSpotify(ctx context.Context, kind spotify.LinkKind, id string) ([]sources.Song, error) {
	if p.meta == nil || !p.meta.Enabled() {
		return nil, ErrSpotifyDisabled
	}

	switch kind {
	case spotify.LinkTrack:
		track, err := p.meta.Track(ctx, id)
		if err != nil {
			return nil, err
		}
		song := p.mapTrack(ctx, *track)
		if song == nil {
			return nil, ErrNoResults
		}
		return []sources.Song{*song}, nil

	case spotify.LinkPlaylist, spotify.LinkAlbum:
		var tracks []spotify.TrackMeta
		var err error
		if kind == spotify.LinkPlaylist {
			tracks, err = p.meta.PlaylistTracks(ctx, id, ExternalPlaylistLimit)
		} else {
			tracks, err = p.meta.AlbumTracks(ctx, id, ExternalPlaylistLimit)
		}
		if err != nil {
			return nil, err
		}

		songs := make([]sources.Song, 0, len(tracks))
		for _, track := range tracks {
			if song := p.mapTrack(ctx, track); song != nil {
				songs = append(songs, *song)
			}
		}
		if len(songs) == 0 {
			return nil, ErrNoResults
		}
		return songs, nil
	}

	return nil, fmt.Errorf("unsupported spotify link kind: %s", kind)
}

// mapTrack searches the catalog for "<artist> - <title>". A miss drops the
// track silently; a whole playlist must not fail because one song has no
// catalog match.
func (p *Pipeline) mapTrack(ctx context.Context, track spotify.TrackMeta) *sources.Song {
	query := fmt.Sprintf("%s - %s", track.Artist, track.Name)
	song, err := p.catalog.ResolveOne(ctx, query)
	if err != nil || song == nil {
		log.Printf("[Resolver] No catalog match for %q: %v", query, err)
		return nil
	}
	mapped := *song
	mapped.Origin = &sources.Origin{Track: track.Name, Artist: track.Artist}
	if mapped.DurationSeconds == 0 {
		mapped.DurationSeconds = track.DurationSeconds
	}
	return &mapped
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
