package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	StateDir string `toml:"state_dir"`
	TempDir  string `toml:"temp_dir"`
	LogDir   string `toml:"log_dir"`
}

// Ledger contains configuration for the sync ledger database.
type Ledger struct {
	// Path defaults to <state_dir>/ledger.db.
	Path string `toml:"path"`
}

// Library describes the local, authoritative media library.
type Library struct {
	// Kind selects the adapter: "photos" (osxphotos) or "directory".
	Kind string `toml:"kind"`
	// Path is the library location. Empty means the adapter default
	// (the system Photos library for "photos"); required for "directory".
	Path string `toml:"path"`
	// Binary is the osxphotos executable used by the photos adapter.
	Binary string `toml:"binary"`
}

// Remote contains the remote album service endpoints.
type Remote struct {
	BaseURL        string `toml:"base_url"`
	UploadURL      string `toml:"upload_url"`
	PageSize       int    `toml:"page_size"`
	RequestTimeout int    `toml:"request_timeout"`
}

// Auth contains OAuth client settings for the remote service.
type Auth struct {
	ClientSecretFile string `toml:"client_secret_file"`
	ClientID         string `toml:"client_id"`
	ClientSecret     string `toml:"client_secret"`
	// TokenFile defaults to <state_dir>/token.json.
	TokenFile string `toml:"token_file"`
}

// Transfer contains retry settings shared by the upload and commit phases.
type Transfer struct {
	MaxAttempts       int `toml:"max_attempts"`
	BackoffUnitMillis int `toml:"backoff_unit_ms"`
}

// Recovery contains settings for the external missing-item recovery tool.
type Recovery struct {
	Binary         string `toml:"binary"`
	ChunkSize      int    `toml:"chunk_size"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	Verbose        bool   `toml:"verbose"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	// NtfyTopic is the full topic URL; empty disables notifications.
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	RunSummary     bool   `toml:"run_summary"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for albumsync.
//
// Configuration sections by subsystem:
//   - Paths: state, temp, and log directories
//   - Ledger: sync ledger database location
//   - Library: local library adapter selection
//   - Remote: album service endpoints and paging
//   - Auth: OAuth client credentials and token cache
//   - Transfer: upload/commit retry budget
//   - Recovery: missing-item recovery tool settings
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Ledger        Ledger        `toml:"ledger"`
	Library       Library       `toml:"library"`
	Remote        Remote        `toml:"remote"`
	Auth          Auth          `toml:"auth"`
	Transfer      Transfer      `toml:"transfer"`
	Recovery      Recovery      `toml:"recovery"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/albumsync/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("albumsync.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state, temp, and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.TempDir, c.Paths.LogDir, filepath.Dir(c.Ledger.Path)} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LockPath returns the run lock file that guards the ledger against concurrent runs.
func (c *Config) LockPath() string {
	return c.Ledger.Path + ".lock"
}

// RequestTimeout returns the per-request timeout for remote calls.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Remote.RequestTimeout) * time.Second
}

// BackoffUnit returns the base time unit of the transfer backoff schedule.
func (c *Config) BackoffUnit() time.Duration {
	return time.Duration(c.Transfer.BackoffUnitMillis) * time.Millisecond
}

// NotifyTimeout returns the request timeout for notification delivery.
func (c *Config) NotifyTimeout() time.Duration {
	return time.Duration(c.Notifications.RequestTimeout) * time.Second
}

// RecoveryTimeout returns the per-chunk timeout for the recovery tool.
func (c *Config) RecoveryTimeout() time.Duration {
	return time.Duration(c.Recovery.TimeoutSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// SampleOptions fills in the sample configuration. Empty fields keep the
// sample's placeholder.
type SampleOptions struct {
	ClientSecretFile string
	LibraryKind      string
	LibraryPath      string
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	return CreateSampleWith(path, SampleOptions{})
}

// CreateSampleWith writes the sample configuration with opts applied.
func CreateSampleWith(path string, opts SampleOptions) error {
	contents, err := renderSample(opts)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

func renderSample(opts SampleOptions) (string, error) {
	replacements := []struct {
		line  string
		key   string
		value string
	}{
		{`client_secret_file = "~/.config/albumsync/client_secret.json"`, "client_secret_file", opts.ClientSecretFile},
		{`kind = "photos"`, "kind", opts.LibraryKind},
		{`# path = "~/Pictures/Photos Library.photoslibrary"`, "path", opts.LibraryPath},
	}
	contents := sampleConfig
	for _, r := range replacements {
		if strings.TrimSpace(r.value) == "" {
			continue
		}
		encoded, err := toml.Marshal(map[string]string{r.key: r.value})
		if err != nil {
			return "", fmt.Errorf("encode %s: %w", r.key, err)
		}
		contents = strings.Replace(contents, r.line, strings.TrimSpace(string(encoded)), 1)
	}
	return contents, nil
}
