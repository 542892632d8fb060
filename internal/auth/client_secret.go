package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"

	"albumsync/internal/config"
	"albumsync/internal/services"
)

// Required scopes. The order is stable so persisted scope lists compare cleanly.
var Scopes = []string{
	"https://www.googleapis.com/auth/photoslibrary.appendonly",
	"https://www.googleapis.com/auth/photoslibrary.readonly.appcreateddata",
	"https://www.googleapis.com/auth/photoslibrary.edit.appcreateddata",
}

type clientSecretFile struct {
	Installed *clientSecretEntry `json:"installed"`
	Web       *clientSecretEntry `json:"web"`
}

type clientSecretEntry struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	AuthURI      string `json:"auth_uri"`
	TokenURI     string `json:"token_uri"`
}

// OAuthConfig builds the oauth2 client configuration. Explicit client_id and
// client_secret win over the downloaded client secret file.
func OAuthConfig(cfg *config.Config) (*oauth2.Config, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	oc := &oauth2.Config{
		ClientID:     strings.TrimSpace(cfg.Auth.ClientID),
		ClientSecret: strings.TrimSpace(cfg.Auth.ClientSecret),
		Endpoint:     endpoints.Google,
		Scopes:       append([]string(nil), Scopes...),
	}
	if oc.ClientID != "" && oc.ClientSecret != "" {
		return oc, nil
	}

	path := strings.TrimSpace(cfg.Auth.ClientSecretFile)
	if path == "" {
		return nil, services.Wrap(services.ErrConfiguration, "auth", "client secret", "no OAuth client configured; set auth.client_secret_file or auth.client_id/client_secret", nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "auth", "client secret", fmt.Sprintf("read %s", path), err)
	}
	var file clientSecretFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "auth", "client secret", fmt.Sprintf("decode %s", path), err)
	}
	entry := file.Installed
	if entry == nil {
		entry = file.Web
	}
	if entry == nil || entry.ClientID == "" {
		return nil, services.Wrap(services.ErrConfiguration, "auth", "client secret", fmt.Sprintf("%s has no installed or web client", path), nil)
	}
	oc.ClientID = entry.ClientID
	oc.ClientSecret = entry.ClientSecret
	if entry.AuthURI != "" {
		oc.Endpoint.AuthURL = entry.AuthURI
	}
	if entry.TokenURI != "" {
		oc.Endpoint.TokenURL = entry.TokenURI
	}
	return oc, nil
}

// scopesCover reports whether granted contains every scope in required.
func scopesCover(granted, required []string) bool {
	have := make(map[string]struct{}, len(granted))
	for _, s := range granted {
		have[s] = struct{}{}
	}
	for _, s := range required {
		if _, ok := have[s]; !ok {
			return false
		}
	}
	return true
}

// grantedScopes reads the scope list the authorization server returned with tok,
// falling back to the requested scopes when the server omitted it.
func grantedScopes(tok *oauth2.Token, requested []string) []string {
	if raw, ok := tok.Extra("scope").(string); ok && strings.TrimSpace(raw) != "" {
		return strings.Fields(raw)
	}
	return append([]string(nil), requested...)
}
