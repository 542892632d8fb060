package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ErrEmptyUploadToken reports an upload that returned 2xx without a token.
var ErrEmptyUploadToken = errors.New("remote: upload returned empty token")

// ItemStatus is the per-item status of a batchCreate call.
type ItemStatus struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Succeeded reports whether the service confirmed the item was created. A
// result without a status message is not a confirmation.
func (s ItemStatus) Succeeded() bool {
	if s.Code != 0 {
		return false
	}
	switch s.Message {
	case "Success", "OK":
		return true
	default:
		return false
	}
}

// MediaItemResult is the outcome of committing one upload token.
type MediaItemResult struct {
	UploadToken string     `json:"uploadToken"`
	Status      ItemStatus `json:"status"`
	MediaItem   struct {
		ID       string `json:"id"`
		Filename string `json:"filename"`
	} `json:"mediaItem"`
}

// UploadBytes streams body to the upload endpoint and returns the upload token.
func (c *Client) UploadBytes(ctx context.Context, filename string, body io.Reader, size int64) (string, error) {
	req, err := c.newRequest(ctx, http.MethodPost, c.uploadURL, body)
	if err != nil {
		return "", err
	}
	if size >= 0 {
		req.ContentLength = size
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("X-Goog-Upload-Protocol", "raw")
	if filename != "" {
		req.Header.Set("X-Goog-Upload-File-Name", filename)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("remote: upload bytes: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return "", newAPIError(resp)
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return "", fmt.Errorf("remote: read upload token: %w", err)
	}
	token := strings.TrimSpace(string(raw))
	if token == "" {
		return "", ErrEmptyUploadToken
	}
	return token, nil
}

// BatchCreate commits a single upload token into albumID.
func (c *Client) BatchCreate(ctx context.Context, albumID, uploadToken, filename string) (MediaItemResult, error) {
	item := map[string]any{
		"simpleMediaItem": map[string]string{
			"uploadToken": uploadToken,
			"fileName":    filename,
		},
	}
	payload := map[string]any{
		"albumId":       albumID,
		"newMediaItems": []any{item},
	}
	var out struct {
		NewMediaItemResults []MediaItemResult `json:"newMediaItemResults"`
	}
	if err := c.doJSON(ctx, http.MethodPost, c.endpoint("mediaItems:batchCreate"), payload, &out); err != nil {
		return MediaItemResult{}, err
	}
	if len(out.NewMediaItemResults) == 0 {
		return MediaItemResult{}, errors.New("remote: batchCreate returned no results")
	}
	return out.NewMediaItemResults[0], nil
}
