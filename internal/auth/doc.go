// Package auth provides OAuth2 credentials for the remote album service.
//
// Provider caches a token in a TokenStore, refreshes it through an oauth2
// TokenSource when it expires, and falls back to an interactive consent flow
// when no usable token exists. A cached token granted for a different scope
// set is discarded, and Reauthenticate forces a fresh consent after the
// service rejects a token for insufficient scopes.
package auth
