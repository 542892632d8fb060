package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeLibrary(); err != nil {
		return err
	}
	c.normalizeRemote()
	if err := c.normalizeAuth(); err != nil {
		return err
	}
	c.normalizeTransfer()
	c.normalizeRecovery()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.TempDir) == "" {
		c.Paths.TempDir = filepath.Join(c.Paths.StateDir, "tmp")
	}
	if c.Paths.TempDir, err = expandPath(c.Paths.TempDir); err != nil {
		return fmt.Errorf("paths.temp_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.StateDir, "logs")
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Ledger.Path) == "" {
		c.Ledger.Path = filepath.Join(c.Paths.StateDir, defaultLedgerFile)
	}
	if c.Ledger.Path, err = expandPath(c.Ledger.Path); err != nil {
		return fmt.Errorf("ledger.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLibrary() error {
	c.Library.Kind = strings.ToLower(strings.TrimSpace(c.Library.Kind))
	if c.Library.Kind == "" {
		c.Library.Kind = defaultLibraryKind
	}
	if strings.TrimSpace(c.Library.Path) == "" {
		if value, ok := os.LookupEnv("ALBUMSYNC_LIBRARY"); ok {
			c.Library.Path = strings.TrimSpace(value)
		}
	}
	var err error
	if c.Library.Path, err = expandPath(strings.TrimSpace(c.Library.Path)); err != nil {
		return fmt.Errorf("library.path: %w", err)
	}
	c.Library.Binary = strings.TrimSpace(c.Library.Binary)
	if c.Library.Binary == "" {
		c.Library.Binary = defaultOsxphotosBinary
	}
	return nil
}

func (c *Config) normalizeRemote() {
	c.Remote.BaseURL = strings.TrimRight(strings.TrimSpace(c.Remote.BaseURL), "/")
	if c.Remote.BaseURL == "" {
		c.Remote.BaseURL = defaultRemoteBaseURL
	}
	c.Remote.UploadURL = strings.TrimSpace(c.Remote.UploadURL)
	if c.Remote.UploadURL == "" {
		c.Remote.UploadURL = c.Remote.BaseURL + "/uploads"
	}
	if c.Remote.PageSize <= 0 {
		c.Remote.PageSize = defaultAlbumPageSize
	}
	if c.Remote.PageSize > maxAlbumPageSize {
		c.Remote.PageSize = maxAlbumPageSize
	}
	if c.Remote.RequestTimeout <= 0 {
		c.Remote.RequestTimeout = defaultRequestTimeout
	}
}

func (c *Config) normalizeAuth() error {
	c.Auth.ClientID = strings.TrimSpace(c.Auth.ClientID)
	if c.Auth.ClientID == "" {
		if value, ok := os.LookupEnv("ALBUMSYNC_CLIENT_ID"); ok {
			c.Auth.ClientID = strings.TrimSpace(value)
		}
	}
	c.Auth.ClientSecret = strings.TrimSpace(c.Auth.ClientSecret)
	if c.Auth.ClientSecret == "" {
		if value, ok := os.LookupEnv("ALBUMSYNC_CLIENT_SECRET"); ok {
			c.Auth.ClientSecret = strings.TrimSpace(value)
		}
	}
	var err error
	if c.Auth.ClientSecretFile, err = expandPath(strings.TrimSpace(c.Auth.ClientSecretFile)); err != nil {
		return fmt.Errorf("auth.client_secret_file: %w", err)
	}
	if strings.TrimSpace(c.Auth.TokenFile) == "" {
		c.Auth.TokenFile = filepath.Join(c.Paths.StateDir, defaultTokenFile)
	}
	if c.Auth.TokenFile, err = expandPath(c.Auth.TokenFile); err != nil {
		return fmt.Errorf("auth.token_file: %w", err)
	}
	return nil
}

func (c *Config) normalizeTransfer() {
	if c.Transfer.MaxAttempts <= 0 {
		c.Transfer.MaxAttempts = defaultMaxAttempts
	}
	if c.Transfer.BackoffUnitMillis <= 0 {
		c.Transfer.BackoffUnitMillis = defaultBackoffUnitMillis
	}
}

func (c *Config) normalizeRecovery() {
	c.Recovery.Binary = strings.TrimSpace(c.Recovery.Binary)
	if c.Recovery.Binary == "" {
		c.Recovery.Binary = defaultOsxphotosBinary
	}
	if c.Recovery.ChunkSize <= 0 {
		c.Recovery.ChunkSize = defaultRecoveryChunkSize
	}
	if c.Recovery.TimeoutSeconds <= 0 {
		c.Recovery.TimeoutSeconds = defaultRecoveryTimeout
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
