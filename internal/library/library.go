package library

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"albumsync/internal/config"
	"albumsync/internal/logging"
	"albumsync/internal/services"
	"albumsync/internal/services/osxphotos"
)

// Item is a single media item owned by the library.
type Item struct {
	ID       string
	Filename string
}

// UploadName is the filename the remote copy of the item should carry. Exports
// are staged as <id>.<ext>, so the library's own name wins when it has one.
func (i Item) UploadName(exportPath string) string {
	if i.Filename != "" {
		return i.Filename
	}
	return filepath.Base(exportPath)
}

// Collection is a named shared collection and its items in library order.
// The name doubles as the remote destination title.
type Collection struct {
	Name  string
	Items []Item
}

// Library is the read-only port the sync engine uses.
type Library interface {
	// Path identifies the library on disk; "" means the system default.
	Path() string
	// SharedCollections returns every shared collection in library order.
	SharedCollections(ctx context.Context) ([]Collection, error)
	// Export copies the item's original bytes into dir and returns the
	// produced files. No files and a nil error means the bytes are not local.
	Export(ctx context.Context, item Item, dir string) ([]string, error)
}

// Option configures Open.
type Option func(*options)

type options struct {
	logger   *slog.Logger
	executor osxphotos.Executor
}

// WithLogger attaches a logger to the adapter.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithExecutor routes osxphotos invocations through exec (primarily for tests).
func WithExecutor(exec osxphotos.Executor) Option {
	return func(o *options) {
		o.executor = exec
	}
}

// Open builds the adapter selected by cfg. A non-empty override replaces the
// configured path. An explicit path that does not exist is a fatal library
// error.
func Open(cfg *config.Config, override string, opts ...Option) (Library, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "library", "open", "config required", nil)
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	logger := logging.NewComponentLogger(o.logger, "library")

	path := strings.TrimSpace(cfg.Library.Path)
	if override = strings.TrimSpace(override); override != "" {
		expanded, err := config.ExpandPath(override)
		if err != nil {
			return nil, services.Wrap(services.ErrLibrary, "library", "open", "expand path", err)
		}
		path = expanded
	}
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, services.Wrap(services.ErrLibrary, "library", "open", fmt.Sprintf("path does not exist: %s", path), nil)
			}
			return nil, services.Wrap(services.ErrLibrary, "library", "open", "stat path", err)
		}
	}

	switch cfg.Library.Kind {
	case config.LibraryKindDirectory:
		if path == "" {
			return nil, services.Wrap(services.ErrConfiguration, "library", "open", "directory library requires a path", nil)
		}
		return newDirectoryLibrary(path, logger)
	case config.LibraryKindPhotos, "":
		clientOpts := []osxphotos.Option{osxphotos.WithLibrary(path)}
		if o.executor != nil {
			clientOpts = append(clientOpts, osxphotos.WithExecutor(o.executor))
		}
		client, err := osxphotos.New(cfg.Library.Binary, clientOpts...)
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "library", "open", "osxphotos client", err)
		}
		return newPhotosLibrary(client, logger), nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, "library", "open", fmt.Sprintf("unknown library kind %q", cfg.Library.Kind), nil)
	}
}
