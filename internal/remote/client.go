package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const (
	defaultBaseURL     = "https://photoslibrary.googleapis.com/v1"
	defaultHTTPTimeout = 120 * time.Second
	userAgent          = "albumsync"
)

// TokenSource supplies the bearer token attached to each request.
type TokenSource interface {
	Token(ctx context.Context) (*oauth2.Token, error)
}

// Config describes the remote client configuration.
type Config struct {
	BaseURL    string
	UploadURL  string
	Tokens     TokenSource
	HTTPClient *http.Client
}

// Client wraps the Library API.
type Client struct {
	baseURL   *url.URL
	uploadURL string
	tokens    TokenSource
	http      *http.Client
}

// New creates a Client from the supplied configuration.
func New(cfg Config) (*Client, error) {
	if cfg.Tokens == nil {
		return nil, errors.New("remote: token source is required")
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = defaultBaseURL
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("remote: parse base url: %w", err)
	}
	upload := strings.TrimSpace(cfg.UploadURL)
	if upload == "" {
		upload = base + "/uploads"
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &Client{
		baseURL:   baseURL,
		uploadURL: upload,
		tokens:    cfg.Tokens,
		http:      client,
	}, nil
}

func (c *Client) endpoint(path string) *url.URL {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(path, "/")
	u.RawPath = ""
	return &u
}

// newRequest builds an authorized request. A nil body sends no payload.
func (c *Client) newRequest(ctx context.Context, method, target string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("remote: build request: %w", err)
	}
	tok, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("remote: obtain access token: %w", err)
	}
	tok.SetAuthHeader(req)
	req.Header.Set("User-Agent", userAgent)
	return req, nil
}

// doJSON sends payload (if any) as JSON and decodes a 2xx response into out.
func (c *Client) doJSON(ctx context.Context, method string, target *url.URL, payload, out any) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("remote: encode request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}
	req, err := c.newRequest(ctx, method, target.String(), body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("remote: %s %s: %w", method, target.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return newAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("remote: decode %s response: %w", target.Path, err)
	}
	return nil
}
