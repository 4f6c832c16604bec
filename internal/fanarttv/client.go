// Package fanarttv provides a client for the fanart.tv music API.
package fanarttv

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const (
	defaultBaseURL = "https://webservice.fanart.tv/v3"
	userAgent      = "musictaggerz/0.1 (https://github.com/MattiVenturelli/musictaggerz)"
)

// Client is a fanart.tv API client. All endpoints require an API key.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// New creates a new fanart.tv client with the given API key.
func New(apiKey string) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL: defaultBaseURL,
		apiKey:  apiKey,
	}
}

// Image is one artwork entry.
type Image struct {
	ID    string `json:"id"`
	URL   string `json:"url"`
	Likes string `json:"likes"`
}

type albumImages struct {
	AlbumCover []Image `json:"albumcover"`
	CDArt      []Image `json:"cdart"`
}

type albumResponse struct {
	Name   string                 `json:"name"`
	MBID   string                 `json:"mbid_id"`
	Albums map[string]albumImages `json:"albums"`
}

// AlbumCovers fetches the album cover images for a MusicBrainz release group.
// Returns nil when fanart.tv has no data for the release group (404) or when
// no API key is configured.
func (c *Client) AlbumCovers(ctx context.Context, releaseGroupMBID string) ([]Image, error) {
	if c.apiKey == "" || releaseGroupMBID == "" {
		return nil, nil
	}

	params := url.Values{}
	params.Set("api_key", c.apiKey)
	reqURL := fmt.Sprintf("%s/music/albums/%s?%s", c.baseURL, releaseGroupMBID, params.Encode())

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

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %s", resp.Status)
	}

	var result albumResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	var covers []Image
	for _, album := range result.Albums {
		covers = append(covers, album.AlbumCover...)
	}
	return covers, nil
}
