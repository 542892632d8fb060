package library

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"albumsync/internal/fileutil"
	"albumsync/internal/logging"
	"albumsync/internal/services"
	"albumsync/internal/services/osxphotos"
)

type photosLibrary struct {
	client *osxphotos.Client
	logger *slog.Logger

	mu      sync.Mutex
	missing map[string]bool
}

func newPhotosLibrary(client *osxphotos.Client, logger *slog.Logger) *photosLibrary {
	return &photosLibrary{client: client, logger: logger, missing: make(map[string]bool)}
}

func (l *photosLibrary) Path() string {
	return l.client.Library()
}

func (l *photosLibrary) SharedCollections(ctx context.Context) ([]Collection, error) {
	albums, err := l.client.SharedAlbums(ctx)
	if err != nil {
		return nil, services.Wrap(services.ErrLibrary, "library", "shared albums", "", err)
	}
	collections := make([]Collection, 0, len(albums))
	for _, album := range albums {
		photos, err := l.client.AlbumPhotos(ctx, album)
		if err != nil {
			return nil, services.Wrap(services.ErrLibrary, "library", "album photos", album, err)
		}
		collection := Collection{Name: album, Items: make([]Item, 0, len(photos))}
		l.mu.Lock()
		for _, photo := range photos {
			if strings.TrimSpace(photo.UUID) == "" {
				continue
			}
			l.missing[photo.UUID] = photo.IsMissing
			collection.Items = append(collection.Items, Item{ID: photo.UUID, Filename: photo.DisplayName()})
		}
		l.mu.Unlock()
		collections = append(collections, collection)
	}
	l.logger.Debug("read shared albums", logging.Int("albums", len(collections)))
	return collections, nil
}

// Export skips items osxphotos already reported as missing so they go
// straight to recovery.
func (l *photosLibrary) Export(ctx context.Context, item Item, dir string) ([]string, error) {
	l.mu.Lock()
	missing := l.missing[item.ID]
	l.mu.Unlock()
	if missing {
		return nil, nil
	}
	result, err := l.client.Export(ctx, dir, osxphotos.ExportOptions{UUIDs: []string{item.ID}})
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "library", "export", item.ID, err)
	}
	if result.ExitCode != 0 {
		return nil, services.Wrap(services.ErrExternalTool, "library", "export",
			fmt.Sprintf("%s: exit status %d: %s", item.ID, result.ExitCode, strings.TrimSpace(result.Combined())), nil)
	}
	return exportedFiles(dir, item.ID)
}

// exportedFiles returns the non-empty "<id>.*" files in dir, removing any
// empty leftovers.
func exportedFiles(dir, id string) ([]string, error) {
	files, err := fileutil.FilesWithStem(dir, id)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "library", "export", "list exported files", err)
	}
	produced := files[:0]
	var empty []string
	for _, path := range files {
		if fileutil.NonEmptyFile(path) {
			produced = append(produced, path)
		} else {
			empty = append(empty, path)
		}
	}
	_ = fileutil.RemoveAll(empty...)
	if len(produced) == 0 {
		return nil, nil
	}
	return produced, nil
}
