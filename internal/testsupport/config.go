package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"albumsync/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The remote endpoints point at an unroutable placeholder until overridden.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.TempDir = filepath.Join(base, "state", "tmp")
	cfgVal.Paths.LogDir = filepath.Join(base, "state", "logs")
	cfgVal.Ledger.Path = filepath.Join(base, "state", "ledger.db")
	cfgVal.Auth.TokenFile = filepath.Join(base, "state", "token.json")
	cfgVal.Auth.ClientSecretFile = filepath.Join(base, "client_secret.json")
	cfgVal.Auth.ClientID = "test-client"
	cfgVal.Auth.ClientSecret = "test-secret"
	cfgVal.Transfer.BackoffUnitMillis = 1

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithDirectoryLibrary switches the config to a directory library rooted at
// <base>/library and creates the root.
func WithDirectoryLibrary() ConfigOption {
	return func(b *configBuilder) {
		root := filepath.Join(b.baseDir, "library")
		if err := os.MkdirAll(root, 0o755); err != nil {
			b.t.Fatalf("mkdir library: %v", err)
		}
		b.cfg.Library.Kind = config.LibraryKindDirectory
		b.cfg.Library.Path = root
	}
}

// WithRemote points both remote endpoints at baseURL (typically an httptest server).
func WithRemote(baseURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Remote.BaseURL = baseURL
		b.cfg.Remote.UploadURL = baseURL + "/uploads"
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, osxphotos is stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"osxphotos"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}
		b.t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
