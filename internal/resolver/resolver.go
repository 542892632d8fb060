// Package resolver maps a destination name to a remote album id, creating
// the album on first use and caching the answer for the rest of the run.
package resolver

import (
	"context"
	"fmt"
	"log/slog"

	"albumsync/internal/logging"
	"albumsync/internal/remote"
)

// DryRunID is returned for every destination during a dry run.
const DryRunID = "DRY_RUN_ID"

// MaxPageSize is the largest album page the service accepts.
const MaxPageSize = 50

// Albums is the slice of the remote client the resolver needs.
type Albums interface {
	ListAlbums(ctx context.Context, pageSize int, pageToken string) (remote.AlbumPage, error)
	CreateAlbum(ctx context.Context, title string) (remote.Album, error)
}

// Resolver finds or creates remote albums by exact title.
type Resolver struct {
	albums   Albums
	pageSize int
	logger   *slog.Logger
	cache    map[string]string
}

// New builds a Resolver. pageSize is clamped to [1, MaxPageSize].
func New(albums Albums, pageSize int, logger *slog.Logger) *Resolver {
	if pageSize <= 0 || pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return &Resolver{
		albums:   albums,
		pageSize: pageSize,
		logger:   logging.NewComponentLogger(logger, "resolver"),
		cache:    make(map[string]string),
	}
}

// Resolve returns the id of the album titled name, creating it when no album
// matches. Titles match byte-exact; the first match in listing order wins.
// A dry run returns DryRunID without contacting the service.
func (r *Resolver) Resolve(ctx context.Context, name string, dryRun bool) (string, error) {
	if dryRun {
		return DryRunID, nil
	}
	if id, ok := r.cache[name]; ok {
		return id, nil
	}

	id, err := r.find(ctx, name)
	if err != nil {
		return "", err
	}
	if id == "" {
		album, err := r.albums.CreateAlbum(ctx, name)
		if err != nil {
			return "", fmt.Errorf("create album %q: %w", name, err)
		}
		id = album.ID
		r.logger.Info("created remote album",
			logging.String(logging.FieldDestination, name),
			logging.String("album_id", id),
		)
	} else {
		r.logger.Debug("matched remote album",
			logging.String(logging.FieldDestination, name),
			logging.String("album_id", id),
		)
	}
	r.cache[name] = id
	return id, nil
}

// Forget drops a cached resolution so the next Resolve asks the service again.
func (r *Resolver) Forget(name string) {
	delete(r.cache, name)
}

func (r *Resolver) find(ctx context.Context, name string) (string, error) {
	pageToken := ""
	for {
		page, err := r.albums.ListAlbums(ctx, r.pageSize, pageToken)
		if err != nil {
			return "", fmt.Errorf("list albums: %w", err)
		}
		for _, album := range page.Albums {
			if album.Title == name {
				return album.ID, nil
			}
		}
		if page.NextPageToken == "" {
			return "", nil
		}
		pageToken = page.NextPageToken
	}
}
