// Package acoustid fingerprints audio files with Chromaprint and matches
// them against the AcoustID database.
package acoustid

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://api.acoustid.org/v2"
	userAgent      = "musictaggerz/0.1 (https://github.com/MattiVenturelli/musictaggerz)"

	// AcoustID allows 3 requests per second.
	requestInterval = 350 * time.Millisecond
)

// Client is an AcoustID web service client.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	apiKey     string
}

// NewClient creates an AcoustID client with the given application API key.
func NewClient(apiKey string) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Every(requestInterval), 1),
		baseURL: defaultBaseURL,
		apiKey:  apiKey,
	}
}

// Result is one recording matched by a fingerprint lookup.
type Result struct {
	RecordingID string
	Score       float64
	Title       string
	Artist      string
	ReleaseIDs  []string
}

type lookupResponse struct {
	Status string `json:"status"`
	Error  *struct {
		Message string `json:"message"`
	} `json:"error"`
	Results []struct {
		ID         string  `json:"id"`
		Score      float64 `json:"score"`
		Recordings []struct {
			ID      string `json:"id"`
			Title   string `json:"title"`
			Artists []struct {
				Name       string `json:"name"`
				JoinPhrase string `json:"joinphrase"`
			} `json:"artists"`
			Releases []struct {
				ID string `json:"id"`
			} `json:"releases"`
		} `json:"recordings"`
	} `json:"results"`
}

// Lookup matches a fingerprint against the AcoustID database and returns the
// recordings it resolves to, with the MusicBrainz releases each recording
// appears on.
func (c *Client) Lookup(ctx context.Context, fingerprint string, duration time.Duration) ([]Result, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("client", c.apiKey)
	form.Set("meta", "recordings releases")
	form.Set("duration", fmt.Sprintf("%.0f", duration.Seconds()))
	form.Set("fingerprint", fingerprint)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/lookup",
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %s", resp.Status)
	}

	var parsed lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if parsed.Status != "ok" {
		msg := "unknown error"
		if parsed.Error != nil {
			msg = parsed.Error.Message
		}
		return nil, fmt.Errorf("acoustid: %s", msg)
	}

	var results []Result
	for _, r := range parsed.Results {
		for _, rec := range r.Recordings {
			if rec.ID == "" {
				continue
			}
			var artist strings.Builder
			for i, a := range rec.Artists {
				if i > 0 {
					artist.WriteString(rec.Artists[i-1].JoinPhrase)
				}
				artist.WriteString(a.Name)
			}
			releaseIDs := make([]string, 0, len(rec.Releases))
			for _, rel := range rec.Releases {
				if rel.ID != "" {
					releaseIDs = append(releaseIDs, rel.ID)
				}
			}
			results = append(results, Result{
				RecordingID: rec.ID,
				Score:       r.Score,
				Title:       rec.Title,
				Artist:      artist.String(),
				ReleaseIDs:  releaseIDs,
			})
		}
	}
	return results, nil
}
