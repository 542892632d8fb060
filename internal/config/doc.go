// Package config loads, normalizes, and validates albumsync configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// ALBUMSYNC_CLIENT_ID. The Config type centralizes every knob the sync engine
// and CLI need so the ledger, temp directories, remote endpoints, and recovery
// tool settings are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
