package remote

import (
	"context"
	"errors"
	"net/http"
	"strconv"
)

// Album is a remote album.
type Album struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	ProductURL  string `json:"productUrl,omitempty"`
	IsWriteable bool   `json:"isWriteable,omitempty"`
	// MediaItemsCount is serialized by the API as a decimal string.
	MediaItemsCount string `json:"mediaItemsCount,omitempty"`
}

// AlbumPage is one page of ListAlbums results. NextPageToken is empty on the last page.
type AlbumPage struct {
	Albums        []Album `json:"albums"`
	NextPageToken string  `json:"nextPageToken"`
}

// ListAlbums returns one page of the albums visible to the application.
func (c *Client) ListAlbums(ctx context.Context, pageSize int, pageToken string) (AlbumPage, error) {
	endpoint := c.endpoint("albums")
	params := endpoint.Query()
	if pageSize > 0 {
		params.Set("pageSize", strconv.Itoa(pageSize))
	}
	if pageToken != "" {
		params.Set("pageToken", pageToken)
	}
	endpoint.RawQuery = params.Encode()

	var page AlbumPage
	if err := c.doJSON(ctx, http.MethodGet, endpoint, nil, &page); err != nil {
		return AlbumPage{}, err
	}
	return page, nil
}

// CreateAlbum creates an album with the given title and returns it.
func (c *Client) CreateAlbum(ctx context.Context, title string) (Album, error) {
	payload := map[string]any{"album": map[string]string{"title": title}}
	var album Album
	if err := c.doJSON(ctx, http.MethodPost, c.endpoint("albums"), payload, &album); err != nil {
		return Album{}, err
	}
	if album.ID == "" {
		return Album{}, errors.New("remote: create album response missing id")
	}
	return album, nil
}
