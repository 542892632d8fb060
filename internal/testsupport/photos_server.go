package testsupport

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"golang.org/x/oauth2"

	"albumsync/internal/remote"
)

// HookFunc lets a test inject a response. Returning true means the hook wrote
// the response and the default behaviour is skipped.
type HookFunc func(w http.ResponseWriter) bool

// PhotosServer is an in-memory stand-in for the Library API.
type PhotosServer struct {
	server *httptest.Server

	OnList   HookFunc
	OnCreate HookFunc
	OnUpload HookFunc
	OnCommit HookFunc

	mu       sync.Mutex
	albums   []remote.Album
	uploads  map[string]string
	items    map[string][]string
	requests int
	created  []string
}

// NewPhotosServer starts a server that is closed when the test ends.
func NewPhotosServer(t testing.TB) *PhotosServer {
	t.Helper()
	s := &PhotosServer{
		uploads: make(map[string]string),
		items:   make(map[string][]string),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/albums", s.handleList)
	mux.HandleFunc("POST /v1/albums", s.handleCreate)
	mux.HandleFunc("POST /v1/uploads", s.handleUpload)
	mux.HandleFunc("POST /v1/mediaItems:batchCreate", s.handleCommit)
	s.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests++
		s.mu.Unlock()
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(s.server.Close)
	return s
}

// BaseURL returns the API root to configure clients with.
func (s *PhotosServer) BaseURL() string {
	return s.server.URL + "/v1"
}

// Client returns a remote client pointed at the server.
func (s *PhotosServer) Client(t testing.TB) *remote.Client {
	t.Helper()
	client, err := remote.New(remote.Config{BaseURL: s.BaseURL(), Tokens: StaticTokens("test-token"), HTTPClient: s.server.Client()})
	if err != nil {
		t.Fatalf("remote.New: %v", err)
	}
	return client
}

// AddAlbum seeds an existing remote album.
func (s *PhotosServer) AddAlbum(id, title string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.albums = append(s.albums, remote.Album{ID: id, Title: title})
}

// ItemsIn returns the filenames committed into albumID, in commit order.
func (s *PhotosServer) ItemsIn(albumID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.items[albumID]...)
}

// CreatedAlbums returns the titles of albums created through the API.
func (s *PhotosServer) CreatedAlbums() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.created...)
}

// RequestCount returns the number of requests served.
func (s *PhotosServer) RequestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests
}

func (s *PhotosServer) handleList(w http.ResponseWriter, r *http.Request) {
	if s.OnList != nil && s.OnList(w) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	size, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))
	if size <= 0 {
		size = 20
	}
	start, _ := strconv.Atoi(r.URL.Query().Get("pageToken"))
	end := min(start+size, len(s.albums))
	page := remote.AlbumPage{Albums: append([]remote.Album{}, s.albums[min(start, end):end]...)}
	if end < len(s.albums) {
		page.NextPageToken = strconv.Itoa(end)
	}
	writeJSON(w, page)
}

func (s *PhotosServer) handleCreate(w http.ResponseWriter, r *http.Request) {
	if s.OnCreate != nil && s.OnCreate(w) {
		return
	}
	var body struct {
		Album struct {
			Title string `json:"title"`
		} `json:"album"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	album := remote.Album{ID: fmt.Sprintf("album-%d", len(s.albums)+1), Title: body.Album.Title}
	s.albums = append(s.albums, album)
	s.created = append(s.created, album.Title)
	writeJSON(w, album)
}

func (s *PhotosServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	if s.OnUpload != nil && s.OnUpload(w) {
		return
	}
	if _, err := io.Copy(io.Discard, r.Body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	token := fmt.Sprintf("upload-%d", len(s.uploads)+1)
	s.uploads[token] = r.Header.Get("X-Goog-Upload-File-Name")
	_, _ = io.WriteString(w, token)
}

func (s *PhotosServer) handleCommit(w http.ResponseWriter, r *http.Request) {
	if s.OnCommit != nil && s.OnCommit(w) {
		return
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
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	results := make([]map[string]any, 0, len(body.NewMediaItems))
	for _, item := range body.NewMediaItems {
		filename, ok := s.uploads[item.SimpleMediaItem.UploadToken]
		if !ok {
			results = append(results, map[string]any{
				"uploadToken": item.SimpleMediaItem.UploadToken,
				"status":      map[string]any{"code": 3, "message": "Invalid upload token"},
			})
			continue
		}
		s.items[body.AlbumID] = append(s.items[body.AlbumID], filename)
		results = append(results, map[string]any{
			"uploadToken": item.SimpleMediaItem.UploadToken,
			"status":      map[string]any{"message": "Success"},
			"mediaItem":   map[string]any{"id": fmt.Sprintf("media-%d", len(s.items[body.AlbumID])), "filename": filename},
		})
	}
	writeJSON(w, map[string]any{"newMediaItemResults": results})
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}

// StaticTokens returns a token source that always yields token.
func StaticTokens(token string) remote.TokenSource {
	return staticTokens(token)
}

type staticTokens string

func (s staticTokens) Token(context.Context) (*oauth2.Token, error) {
	return &oauth2.Token{AccessToken: string(s), TokenType: "Bearer"}, nil
}

// WriteError writes a Google-style error envelope with the given status.
func WriteError(w http.ResponseWriter, code int, status, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"code": code, "message": message, "status": status},
	})
}

// InsufficientScope is a hook that rejects the request the way the service
// does for a token missing a required scope.
func InsufficientScope(w http.ResponseWriter) bool {
	WriteError(w, http.StatusForbidden, "PERMISSION_DENIED", "Request had insufficient authentication scopes.")
	return true
}
