package remote_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/oauth2"

	"albumsync/internal/remote"
	"albumsync/internal/services"
)

type staticTokens struct{ token string }

func (s staticTokens) Token(context.Context) (*oauth2.Token, error) {
	return &oauth2.Token{AccessToken: s.token, TokenType: "Bearer"}, nil
}

func newClient(t *testing.T, handler http.HandlerFunc) *remote.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := remote.New(remote.Config{BaseURL: server.URL + "/v1", Tokens: staticTokens{token: "tok-1"}})
	if err != nil {
		t.Fatalf("remote.New: %v", err)
	}
	return client
}

func TestListAlbumsSendsPagingParameters(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/v1/albums" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
			t.Fatalf("unexpected authorization header %q", got)
		}
		if r.URL.Query().Get("pageSize") != "50" || r.URL.Query().Get("pageToken") != "next-1" {
			t.Fatalf("unexpected query %q", r.URL.RawQuery)
		}
		_, _ = io.WriteString(w, `{"albums":[{"id":"a1","title":"Trip"}],"nextPageToken":"next-2"}`)
	})

	page, err := client.ListAlbums(context.Background(), 50, "next-1")
	if err != nil {
		t.Fatalf("ListAlbums: %v", err)
	}
	if len(page.Albums) != 1 || page.Albums[0].ID != "a1" || page.Albums[0].Title != "Trip" {
		t.Fatalf("unexpected albums %+v", page.Albums)
	}
	if page.NextPageToken != "next-2" {
		t.Fatalf("unexpected next token %q", page.NextPageToken)
	}
}

func TestCreateAlbumPostsTitle(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/albums" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body struct {
			Album struct {
				Title string `json:"title"`
			} `json:"album"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body.Album.Title != "Trip 2023" {
			t.Fatalf("unexpected title %q", body.Album.Title)
		}
		_, _ = io.WriteString(w, `{"id":"new-id","title":"Trip 2023"}`)
	})

	album, err := client.CreateAlbum(context.Background(), "Trip 2023")
	if err != nil {
		t.Fatalf("CreateAlbum: %v", err)
	}
	if album.ID != "new-id" {
		t.Fatalf("unexpected album %+v", album)
	}
}

func TestUploadBytesUsesRawProtocol(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/uploads" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Content-Type") != "application/octet-stream" {
			t.Fatalf("unexpected content type %q", r.Header.Get("Content-Type"))
		}
		if r.Header.Get("X-Goog-Upload-Protocol") != "raw" {
			t.Fatalf("missing raw protocol header")
		}
		if r.Header.Get("X-Goog-Upload-File-Name") != "IMG_1.jpg" {
			t.Fatalf("unexpected file name header %q", r.Header.Get("X-Goog-Upload-File-Name"))
		}
		data, _ := io.ReadAll(r.Body)
		if string(data) != "pixels" {
			t.Fatalf("unexpected body %q", data)
		}
		_, _ = io.WriteString(w, "upload-token-1\n")
	})

	token, err := client.UploadBytes(context.Background(), "IMG_1.jpg", strings.NewReader("pixels"), 6)
	if err != nil {
		t.Fatalf("UploadBytes: %v", err)
	}
	if token != "upload-token-1" {
		t.Fatalf("unexpected token %q", token)
	}
}

func TestUploadBytesRejectsEmptyToken(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	_, err := client.UploadBytes(context.Background(), "a.jpg", strings.NewReader("x"), 1)
	if !errors.Is(err, remote.ErrEmptyUploadToken) {
		t.Fatalf("expected ErrEmptyUploadToken, got %v", err)
	}
}

func TestBatchCreateReturnsItemStatus(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/mediaItems:batchCreate" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		var body struct {
			AlbumID       string `json:"albumId"`
			NewMediaItems []struct {
				SimpleMediaItem struct {
					UploadToken string `json:"uploadToken"`
				} `json:"simpleMediaItem"`
			} `json:"newMediaItems"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body.AlbumID != "album-1" || len(body.NewMediaItems) != 1 || body.NewMediaItems[0].SimpleMediaItem.UploadToken != "tok" {
			t.Fatalf("unexpected body %+v", body)
		}
		_, _ = io.WriteString(w, `{"newMediaItemResults":[{"uploadToken":"tok","status":{"message":"Success"},"mediaItem":{"id":"m1"}}]}`)
	})

	result, err := client.BatchCreate(context.Background(), "album-1", "tok", "a.jpg")
	if err != nil {
		t.Fatalf("BatchCreate: %v", err)
	}
	if !result.Status.Succeeded() || result.MediaItem.ID != "m1" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestItemStatusSucceeded(t *testing.T) {
	cases := []struct {
		status remote.ItemStatus
		want   bool
	}{
		{remote.ItemStatus{Code: 0, Message: "Success"}, true},
		{remote.ItemStatus{Code: 0, Message: "OK"}, true},
		{remote.ItemStatus{}, false},
		{remote.ItemStatus{Code: 3, Message: "Failed to add media item"}, false},
		{remote.ItemStatus{Code: 0, Message: "Partial"}, false},
	}
	for _, tc := range cases {
		if got := tc.status.Succeeded(); got != tc.want {
			t.Fatalf("Succeeded(%+v) = %v, want %v", tc.status, got, tc.want)
		}
	}
}

func TestInsufficientScopeMatchesServiceMarker(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `{"error":{"code":403,"message":"Request had insufficient authentication scopes.","status":"PERMISSION_DENIED","details":[{"reason":"ACCESS_TOKEN_SCOPE_INSUFFICIENT"}]}}`)
	})

	_, err := client.ListAlbums(context.Background(), 50, "")
	if !errors.Is(err, services.ErrInsufficientScope) {
		t.Fatalf("expected insufficient scope, got %v", err)
	}
	var apiErr *remote.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T", err)
	}
	if apiErr.Status != "PERMISSION_DENIED" || apiErr.Reason != "ACCESS_TOKEN_SCOPE_INSUFFICIENT" {
		t.Fatalf("unexpected parsed error %+v", apiErr)
	}
	if errors.Is(err, services.ErrTransient) {
		t.Fatal("403 must not be transient")
	}
}

func TestAPIErrorStatusClassification(t *testing.T) {
	client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	})

	_, err := client.CreateAlbum(context.Background(), "x")
	if remote.StatusCode(err) != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %v", err)
	}
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected 429 to be transient, got %v", err)
	}
	if errors.Is(err, services.ErrInsufficientScope) {
		t.Fatal("429 must not match insufficient scope")
	}
	if !strings.Contains(err.Error(), "slow down") {
		t.Fatalf("expected plain-text body in message, got %q", err.Error())
	}
	if remote.StatusCode(errors.New("other")) != 0 {
		t.Fatal("expected zero status for non-API error")
	}
}

func TestNewRequiresTokenSource(t *testing.T) {
	if _, err := remote.New(remote.Config{}); err == nil {
		t.Fatal("expected error without token source")
	}
}
