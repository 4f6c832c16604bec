// Package itunes provides a client for the iTunes Search API.
package itunes

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://itunes.apple.com"
	userAgent      = "musictaggerz/0.1 (https://github.com/MattiVenturelli/musictaggerz)"
	searchLimit    = 5
)

// Client is an iTunes Search API client. No API key is required.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// New creates a new iTunes client.
func New() *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL: defaultBaseURL,
	}
}

// Album is one album result from the search API.
type Album struct {
	ArtistName     string `json:"artistName"`
	CollectionName string `json:"collectionName"`
	ArtworkURL100  string `json:"artworkUrl100"`
	CollectionID   int64  `json:"collectionId"`
	ReleaseDate    string `json:"releaseDate"`
	TrackCount     int    `json:"trackCount"`
	Country        string `json:"country"`
}

type searchResponse struct {
	ResultCount int     `json:"resultCount"`
	Results     []Album `json:"results"`
}

// SearchAlbums searches the iTunes catalog for albums matching artist and
// album name.
func (c *Client) SearchAlbums(ctx context.Context, artist, album string) ([]Album, error) {
	params := url.Values{}
	params.Set("term", strings.TrimSpace(artist+" "+album))
	params.Set("entity", "album")
	params.Set("limit", fmt.Sprintf("%d", searchLimit))

	reqURL := fmt.Sprintf("%s/search?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %s", resp.Status)
	}

	var result searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return result.Results, nil
}

// ArtworkURL returns the full-resolution artwork URL for the album. iTunes
// always reports a 100x100 thumbnail; larger renditions exist at predictable
// URLs.
func (a Album) ArtworkURL() string {
	return strings.Replace(a.ArtworkURL100, "100x100bb", "1400x1400bb", 1)
}

// ThumbnailURL returns a medium-resolution artwork URL for the album.
func (a Album) ThumbnailURL() string {
	return strings.Replace(a.ArtworkURL100, "100x100bb", "250x250bb", 1)
}
