package library

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"albumsync/internal/fileutil"
	"albumsync/internal/logging"
	"albumsync/internal/services"
)

const icloudSuffix = ".icloud"

type directoryEntry struct {
	path        string
	placeholder bool
}

type directoryLibrary struct {
	root   string
	logger *slog.Logger

	mu      sync.Mutex
	entries map[string]directoryEntry
}

func newDirectoryLibrary(root string, logger *slog.Logger) (*directoryLibrary, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, services.Wrap(services.ErrLibrary, "library", "open", "stat root", err)
	}
	if !info.IsDir() {
		return nil, services.Wrap(services.ErrLibrary, "library", "open", fmt.Sprintf("%s is not a directory", root), nil)
	}
	return &directoryLibrary{root: root, logger: logger, entries: make(map[string]directoryEntry)}, nil
}

func (l *directoryLibrary) Path() string {
	return l.root
}

// ItemID derives the stable identifier of a file at rel (slash separated,
// relative to its collection folder).
func ItemID(collection, rel string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(collection+"/"+filepath.ToSlash(rel))).String()
}

func (l *directoryLibrary) SharedCollections(ctx context.Context) ([]Collection, error) {
	dirs, err := os.ReadDir(l.root)
	if err != nil {
		return nil, services.Wrap(services.ErrLibrary, "library", "read root", l.root, err)
	}
	var collections []Collection
	for _, dir := range dirs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !dir.IsDir() || strings.HasPrefix(dir.Name(), ".") {
			continue
		}
		collection, err := l.readCollection(dir.Name())
		if err != nil {
			return nil, err
		}
		collections = append(collections, collection)
	}
	l.logger.Debug("read collection folders", logging.Int("collections", len(collections)))
	return collections, nil
}

func (l *directoryLibrary) readCollection(name string) (Collection, error) {
	base := filepath.Join(l.root, name)
	found := make(map[string]directoryEntry)
	err := filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != base && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(base, path)
		if err != nil {
			return err
		}
		logical, placeholder := logicalName(rel)
		if logical == "" {
			return nil
		}
		if existing, ok := found[logical]; ok && !existing.placeholder {
			return nil
		}
		found[logical] = directoryEntry{path: path, placeholder: placeholder}
		return nil
	})
	if err != nil {
		return Collection{}, services.Wrap(services.ErrLibrary, "library", "read collection", name, err)
	}

	rels := make([]string, 0, len(found))
	for rel := range found {
		rels = append(rels, rel)
	}
	sort.Strings(rels)

	collection := Collection{Name: name, Items: make([]Item, 0, len(rels))}
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, rel := range rels {
		id := ItemID(name, rel)
		l.entries[id] = found[rel]
		collection.Items = append(collection.Items, Item{ID: id, Filename: filepath.Base(rel)})
	}
	return collection, nil
}

// logicalName maps an on-disk name to the file it stands for. iCloud
// placeholders ".IMG_1.jpg.icloud" stand for "IMG_1.jpg"; other hidden files
// are ignored.
func logicalName(rel string) (string, bool) {
	dir, file := filepath.Split(rel)
	if !strings.HasPrefix(file, ".") {
		return rel, false
	}
	if strings.HasSuffix(file, icloudSuffix) && len(file) > len(icloudSuffix)+1 {
		return filepath.Join(dir, strings.TrimSuffix(strings.TrimPrefix(file, "."), icloudSuffix)), true
	}
	return "", false
}

func (l *directoryLibrary) Export(ctx context.Context, item Item, dir string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	entry, ok := l.entries[item.ID]
	l.mu.Unlock()
	if !ok {
		return nil, services.Wrap(services.ErrNotFound, "library", "export", item.ID, nil)
	}
	if entry.placeholder || !fileutil.NonEmptyFile(entry.path) {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "library", "export", "create export dir", err)
	}
	target := filepath.Join(dir, item.ID+strings.ToLower(filepath.Ext(entry.path)))
	if err := fileutil.CopyFileVerified(entry.path, target); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "library", "export", item.ID, err)
	}
	return []string{target}, nil
}
