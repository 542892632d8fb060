package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"albumsync/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantState := filepath.Join(tempHome, ".local", "share", "albumsync")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, wantState)
	}
	if cfg.Ledger.Path != filepath.Join(wantState, "ledger.db") {
		t.Fatalf("unexpected ledger path: %q", cfg.Ledger.Path)
	}
	if cfg.Auth.TokenFile != filepath.Join(wantState, "token.json") {
		t.Fatalf("unexpected token file: %q", cfg.Auth.TokenFile)
	}
	if cfg.Library.Kind != config.LibraryKindPhotos {
		t.Fatalf("expected photos library by default, got %q", cfg.Library.Kind)
	}
	if cfg.Remote.PageSize != 50 {
		t.Fatalf("unexpected page size: %d", cfg.Remote.PageSize)
	}
	if cfg.Transfer.MaxAttempts != 5 {
		t.Fatalf("unexpected max attempts: %d", cfg.Transfer.MaxAttempts)
	}
	if cfg.Recovery.ChunkSize != 50 || cfg.Recovery.TimeoutSeconds != 300 {
		t.Fatalf("unexpected recovery defaults: %+v", cfg.Recovery)
	}
	if cfg.LockPath() != cfg.Ledger.Path+".lock" {
		t.Fatalf("unexpected lock path: %q", cfg.LockPath())
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.StateDir, cfg.Paths.TempDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "albumsync.toml")

	type payload struct {
		Paths struct {
			StateDir string `toml:"state_dir"`
		} `toml:"paths"`
		Library struct {
			Kind string `toml:"kind"`
			Path string `toml:"path"`
		} `toml:"library"`
		Remote struct {
			BaseURL  string `toml:"base_url"`
			PageSize int    `toml:"page_size"`
		} `toml:"remote"`
		Recovery struct {
			ChunkSize int `toml:"chunk_size"`
		} `toml:"recovery"`
	}
	custom := payload{}
	custom.Paths.StateDir = filepath.Join(tempDir, "state")
	custom.Library.Kind = "Directory"
	custom.Library.Path = filepath.Join(tempDir, "pictures")
	custom.Remote.BaseURL = "https://example.com/v1/"
	custom.Remote.PageSize = 500
	custom.Recovery.ChunkSize = 10
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Library.Kind != config.LibraryKindDirectory {
		t.Fatalf("expected kind to be normalized, got %q", cfg.Library.Kind)
	}
	if cfg.Remote.BaseURL != "https://example.com/v1" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Remote.BaseURL)
	}
	if cfg.Remote.UploadURL != config.Default().Remote.UploadURL {
		t.Fatalf("expected default upload url, got %q", cfg.Remote.UploadURL)
	}
	if cfg.Remote.PageSize != 50 {
		t.Fatalf("expected page size clamped to 50, got %d", cfg.Remote.PageSize)
	}
	if cfg.Recovery.ChunkSize != 10 {
		t.Fatalf("expected chunk size 10, got %d", cfg.Recovery.ChunkSize)
	}
	if cfg.Paths.TempDir != filepath.Join(tempDir, "state", "tmp") {
		t.Fatalf("expected temp dir under custom state dir, got %q", cfg.Paths.TempDir)
	}
}

func TestEnvFallbacksFillEmptyValues(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "missing.toml")
	t.Setenv("HOME", t.TempDir())
	t.Setenv("ALBUMSYNC_CLIENT_ID", " env-client ")
	t.Setenv("ALBUMSYNC_CLIENT_SECRET", "env-secret")
	t.Setenv("ALBUMSYNC_LIBRARY", "/Volumes/Photos/Library.photoslibrary")

	cfg, _, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected missing config file")
	}
	if cfg.Auth.ClientID != "env-client" {
		t.Errorf("expected client id from env, got %q", cfg.Auth.ClientID)
	}
	if cfg.Auth.ClientSecret != "env-secret" {
		t.Errorf("expected client secret from env, got %q", cfg.Auth.ClientSecret)
	}
	if cfg.Library.Path != "/Volumes/Photos/Library.photoslibrary" {
		t.Errorf("expected library path from env, got %q", cfg.Library.Path)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "client_secret_file") {
		t.Fatalf("sample config missing auth section: %s", contents)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if cfg.Recovery.ChunkSize != 50 {
		t.Fatalf("expected sample chunk size 50, got %d", cfg.Recovery.ChunkSize)
	}
}

func TestCreateSampleWithFillsPlaceholders(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	secret := filepath.Join(dir, "client secret.json")
	library := filepath.Join(dir, "Shared")
	opts := config.SampleOptions{
		ClientSecretFile: secret,
		LibraryKind:      config.LibraryKindDirectory,
		LibraryPath:      library,
	}
	if err := config.CreateSampleWith(path, opts); err != nil {
		t.Fatalf("CreateSampleWith failed: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}
	if cfg.Auth.ClientSecretFile != secret {
		t.Fatalf("unexpected client secret file %q", cfg.Auth.ClientSecretFile)
	}
	if cfg.Library.Kind != config.LibraryKindDirectory || cfg.Library.Path != library {
		t.Fatalf("unexpected library %+v", cfg.Library)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}

	cfg = config.Default()
	cfg.Library.Kind = config.LibraryKindDirectory
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for directory library without path")
	}

	cfg = config.Default()
	cfg.Library.Kind = "lightroom"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown library kind")
	}

	cfg = config.Default()
	cfg.Remote.BaseURL = "not a url"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for relative base url")
	}

	cfg = config.Default()
	cfg.Recovery.ChunkSize = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for zero chunk size")
	}

	cfg = config.Default()
	cfg.Transfer.MaxAttempts = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for zero attempts")
	}

	cfg = config.Default()
	cfg.Notifications.NtfyTopic = "albumsync"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for ntfy topic without scheme")
	}
}
