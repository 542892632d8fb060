package osxphotos

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// WithLibrary selects a Photos library other than the system library.
func WithLibrary(path string) Option {
	return func(c *Client) {
		c.library = strings.TrimSpace(path)
	}
}

// Client wraps osxphotos CLI interactions.
type Client struct {
	binary  string
	library string
	exec    Executor
}

// New constructs an osxphotos client.
func New(binary string, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("osxphotos binary required")
	}
	client := &Client{binary: binary, exec: commandExecutor{}}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Library returns the explicit library path, or "" for the system library.
func (c *Client) Library() string {
	return c.library
}

// Photo is the subset of osxphotos query output the sync engine uses.
type Photo struct {
	UUID             string   `json:"uuid"`
	Filename         string   `json:"filename"`
	OriginalFilename string   `json:"original_filename"`
	Albums           []string `json:"albums"`
	IsMissing        bool     `json:"ismissing"`
	Shared           bool     `json:"shared"`
}

// DisplayName prefers the original filename.
func (p Photo) DisplayName() string {
	if p.OriginalFilename != "" {
		return p.OriginalFilename
	}
	return p.Filename
}

// SharedAlbums returns the titles of the library's shared albums in the
// order osxphotos lists them.
func (c *Client) SharedAlbums(ctx context.Context) ([]string, error) {
	args := c.withLibrary([]string{"albums", "--json"})
	out, err := c.run(ctx, args)
	if err != nil {
		return nil, err
	}
	var payload map[string]json.RawMessage
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		return nil, fmt.Errorf("decode osxphotos albums: %w", err)
	}
	shared, ok := payload["shared albums"]
	if !ok {
		return []string{}, nil
	}
	names, err := objectKeys(shared)
	if err != nil {
		return nil, fmt.Errorf("decode osxphotos shared albums: %w", err)
	}
	return names, nil
}

// objectKeys returns the keys of a JSON object in document order.
func objectKeys(raw json.RawMessage) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if tok == nil {
		return []string{}, nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}
	keys := []string{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected object key, got %v", tok)
		}
		keys = append(keys, key)
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

// AlbumPhotos returns the shared photos in album in library order.
func (c *Client) AlbumPhotos(ctx context.Context, album string) ([]Photo, error) {
	args := c.withLibrary([]string{"query", "--album", album, "--shared", "--json"})
	out, err := c.run(ctx, args)
	if err != nil {
		return nil, err
	}
	trimmed := strings.TrimSpace(out)
	if trimmed == "" {
		return nil, nil
	}
	var photos []Photo
	if err := json.Unmarshal([]byte(trimmed), &photos); err != nil {
		return nil, fmt.Errorf("decode osxphotos query for %q: %w", album, err)
	}
	return photos, nil
}

// ExportOptions controls an export invocation.
type ExportOptions struct {
	UUIDs []string
	// DownloadMissing fetches originals that are only in iCloud.
	DownloadMissing bool
	// Retries is passed to --retry when positive.
	Retries int
	Verbose bool
	// OnLine receives every output line as it is produced.
	OnLine func(string)
}

// ExportArgs builds the argument list for exporting into dir. Files are named
// after the photo UUID so callers can find them with a "<uuid>.*" match.
func (c *Client) ExportArgs(dir string, opts ExportOptions) []string {
	args := []string{"export", dir}
	if opts.DownloadMissing {
		args = append(args, "--download-missing", "--use-photokit")
	}
	args = append(args, "--filename", "{uuid}")
	if opts.Retries > 0 {
		args = append(args, "--retry", strconv.Itoa(opts.Retries))
	}
	args = append(args, "--ignore-exportdb", "--no-exportdb")
	args = c.withLibrary(args)
	if opts.Verbose {
		args = append(args, "--verbose")
	}
	for _, id := range opts.UUIDs {
		args = append(args, "--uuid", id)
	}
	return args
}

// Export runs osxphotos export and returns the raw process result.
func (c *Client) Export(ctx context.Context, dir string, opts ExportOptions) (Result, error) {
	if len(opts.UUIDs) == 0 {
		return Result{}, errors.New("export requires at least one uuid")
	}
	return c.exec.Run(ctx, c.binary, c.ExportArgs(dir, opts), opts.OnLine)
}

func (c *Client) withLibrary(args []string) []string {
	if c.library == "" {
		return args
	}
	return append(args, "--library", c.library)
}

func (c *Client) run(ctx context.Context, args []string) (string, error) {
	result, err := c.exec.Run(ctx, c.binary, args, nil)
	if err != nil {
		return "", fmt.Errorf("%s %s: %w", c.binary, args[0], err)
	}
	if result.ExitCode != 0 {
		return "", fmt.Errorf("%s %s exited with status %d: %s", c.binary, args[0], result.ExitCode, strings.TrimSpace(result.Combined()))
	}
	return result.Stdout, nil
}
