package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// State is the persisted credential state.
type State struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	Expiry       time.Time `json:"expiry"`
	Scopes       []string  `json:"scopes"`
}

// Empty reports whether the state holds no token at all.
func (s State) Empty() bool {
	return s.AccessToken == "" && s.RefreshToken == ""
}

func (s State) oauthToken() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		TokenType:    s.TokenType,
		Expiry:       s.Expiry,
	}
}

func stateFromToken(tok *oauth2.Token, scopes []string) State {
	return State{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		Expiry:       tok.Expiry,
		Scopes:       append([]string(nil), scopes...),
	}
}

// TokenStore abstracts persistence for credential state.
type TokenStore interface {
	Load() (State, error)
	Save(State) error
	Clear() error
}

// FileTokenStore writes credential state to a JSON file on disk.
type FileTokenStore struct {
	path string
}

// NewFileTokenStore builds a FileTokenStore rooted at the provided path.
func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{path: path}
}

// Path returns the backing file location.
func (s *FileTokenStore) Path() string {
	return s.path
}

// Load reads credential state from disk. A missing file resolves to an empty state.
func (s *FileTokenStore) Load() (State, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return State{}, nil
		}
		return State{}, fmt.Errorf("read token state: %w", err)
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return State{}, fmt.Errorf("decode token state: %w", err)
	}
	return state, nil
}

// Save persists credential state to disk with restricted permissions.
func (s *FileTokenStore) Save(state State) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("ensure token directory: %w", err)
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode token state: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write token state: %w", err)
	}
	return nil
}

// Clear removes the token file. A missing file is not an error.
func (s *FileTokenStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove token state: %w", err)
	}
	return nil
}

// MemoryTokenStore keeps credential state in memory.
type MemoryTokenStore struct {
	mu    sync.Mutex
	state State
}

func (s *MemoryTokenStore) Load() (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, nil
}

func (s *MemoryTokenStore) Save(state State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	return nil
}

func (s *MemoryTokenStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = State{}
	return nil
}
