package musicbrainz

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const coverArtBaseURL = "https://coverartarchive.org"

// CoverArtImage describes one image in a Cover Art Archive index.
type CoverArtImage struct {
	ID         json.Number       `json:"id"`
	Image      string            `json:"image"`
	Front      bool              `json:"front"`
	Back       bool              `json:"back"`
	Approved   bool              `json:"approved"`
	Thumbnails map[string]string `json:"thumbnails"`
}

// CoverArtInfo is the Cover Art Archive index for a release.
type CoverArtInfo struct {
	Images []CoverArtImage `json:"images"`
}

// GetCoverArtInfo fetches the Cover Art Archive image index for a release.
// Returns nil when the release has no cover art (404).
func (c *Client) GetCoverArtInfo(ctx context.Context, releaseMBID string) (*CoverArtInfo, error) {
	reqURL := fmt.Sprintf("%s/release/%s", coverArtBaseURL, releaseMBID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.doRequestWithRetry(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	var info CoverArtInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &info, nil
}

// GetFrontCover fetches the front cover image bytes for a release.
// Returns nil, nil when the release has no front cover (404).
func (c *Client) GetFrontCover(ctx context.Context, releaseMBID string) ([]byte, error) {
	reqURL := fmt.Sprintf("%s/release/%s/front", coverArtBaseURL, releaseMBID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.doRequestWithRetry(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return data, nil
}
