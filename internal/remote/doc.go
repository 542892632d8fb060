// Package remote is a small client for the Google Photos Library REST API.
//
// It covers the four calls the sync engine needs: paging albums, creating an
// album, uploading raw bytes for an upload token, and committing that token
// into an album with mediaItems:batchCreate. Non-2xx responses are returned as
// *APIError so callers can classify them by status code; a 403 that reports
// insufficient authentication scopes also matches
// services.ErrInsufficientScope.
package remote
