package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateLibrary(); err != nil {
		return err
	}
	if err := c.validateRemote(); err != nil {
		return err
	}
	if err := c.validateTransfer(); err != nil {
		return err
	}
	if err := c.validateRecovery(); err != nil {
		return err
	}
	return c.validateNotifications()
}

func (c *Config) validateLibrary() error {
	switch c.Library.Kind {
	case LibraryKindPhotos:
		return nil
	case LibraryKindDirectory:
		if strings.TrimSpace(c.Library.Path) == "" {
			return errors.New("library.path must be set when library.kind is \"directory\"")
		}
		return nil
	default:
		return fmt.Errorf("library.kind: unsupported value %q (want %q or %q)", c.Library.Kind, LibraryKindPhotos, LibraryKindDirectory)
	}
}

func (c *Config) validateRemote() error {
	for key, value := range map[string]string{
		"remote.base_url":   c.Remote.BaseURL,
		"remote.upload_url": c.Remote.UploadURL,
	} {
		parsed, err := url.Parse(value)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("%s must be an absolute URL, got %q", key, value)
		}
	}
	return ensurePositiveMap(map[string]int{
		"remote.page_size":       c.Remote.PageSize,
		"remote.request_timeout": c.Remote.RequestTimeout,
	})
}

func (c *Config) validateTransfer() error {
	return ensurePositiveMap(map[string]int{
		"transfer.max_attempts":    c.Transfer.MaxAttempts,
		"transfer.backoff_unit_ms": c.Transfer.BackoffUnitMillis,
	})
}

func (c *Config) validateRecovery() error {
	if strings.TrimSpace(c.Recovery.Binary) == "" {
		return errors.New("recovery.binary must be set")
	}
	return ensurePositiveMap(map[string]int{
		"recovery.chunk_size":      c.Recovery.ChunkSize,
		"recovery.timeout_seconds": c.Recovery.TimeoutSeconds,
	})
}

func (c *Config) validateNotifications() error {
	if c.Notifications.NtfyTopic == "" {
		return nil
	}
	parsed, err := url.Parse(c.Notifications.NtfyTopic)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("notifications.ntfy_topic must be an absolute URL, got %q", c.Notifications.NtfyTopic)
	}
	return nil
}

// HasOAuthClient reports whether client credentials are available inline or via file.
func (c *Config) HasOAuthClient() bool {
	if c.Auth.ClientID != "" && c.Auth.ClientSecret != "" {
		return true
	}
	return strings.TrimSpace(c.Auth.ClientSecretFile) != ""
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
