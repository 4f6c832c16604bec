package musicbrainz

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://musicbrainz.org/ws/2"
	userAgent      = "musictaggerz/0.1 (https://github.com/MattiVenturelli/musictaggerz)"

	// MusicBrainz allows 1 request per second; 1.1s keeps us safely under.
	requestInterval = 1100 * time.Millisecond

	// Retry configuration
	maxRetries   = 3
	initialDelay = 2 * time.Second
	maxDelay     = 30 * time.Second

	searchLimit = 15
)

// Client provides access to the MusicBrainz API.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
}

// NewClient creates a new MusicBrainz API client.
func NewClient() *Client {
	return NewClientWithHTTP(&http.Client{Timeout: 30 * time.Second})
}

// NewClientWithHTTP creates a client using the given HTTP client.
func NewClientWithHTTP(httpClient *http.Client) *Client {
	return &Client{
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Every(requestInterval), 1),
		baseURL:    defaultBaseURL,
	}
}

// SearchReleases searches for releases matching artist and album text.
// Empty artist or album narrows the query to the remaining field.
func (c *Client) SearchReleases(ctx context.Context, artist, album string) ([]Release, error) {
	var clauses []string
	if artist != "" {
		clauses = append(clauses, fmt.Sprintf(`artist:"%s"`, escapeLucene(artist)))
	}
	if album != "" {
		clauses = append(clauses, fmt.Sprintf(`release:"%s"`, escapeLucene(album)))
	}
	if len(clauses) == 0 {
		return nil, fmt.Errorf("empty search query")
	}

	params := url.Values{}
	params.Set("query", strings.Join(clauses, " AND "))
	params.Set("fmt", "json")
	params.Set("limit", fmt.Sprintf("%d", searchLimit))

	var result searchResponse
	if err := c.getJSON(ctx, fmt.Sprintf("%s/release?%s", c.baseURL, params.Encode()), &result); err != nil {
		return nil, fmt.Errorf("search releases: %w", err)
	}

	return convertReleases(result.Releases), nil
}

// GetRelease fetches full release details: per-disc tracks, artist credits,
// label info, release group and aggregated genres.
func (c *Client) GetRelease(ctx context.Context, mbid string) (*ReleaseDetails, error) {
	params := url.Values{}
	params.Set("fmt", "json")
	params.Set("inc", "recordings+artist-credits+labels+release-groups+genres+tags")

	var result releaseDetailsResponse
	if err := c.getJSON(ctx, fmt.Sprintf("%s/release/%s?%s", c.baseURL, mbid, params.Encode()), &result); err != nil {
		return nil, fmt.Errorf("get release %s: %w", mbid, err)
	}

	return convertReleaseDetails(result), nil
}

// GetReleaseGroup fetches a release group, mainly for its first release date.
func (c *Client) GetReleaseGroup(ctx context.Context, mbid string) (*ReleaseGroup, error) {
	params := url.Values{}
	params.Set("fmt", "json")
	params.Set("inc", "genres")

	var result releaseGroupResult
	if err := c.getJSON(ctx, fmt.Sprintf("%s/release-group/%s?%s", c.baseURL, mbid, params.Encode()), &result); err != nil {
		return nil, fmt.Errorf("get release group %s: %w", mbid, err)
	}

	rg := &ReleaseGroup{
		ID:             result.ID,
		Title:          result.Title,
		PrimaryType:    result.PrimaryType,
		SecondaryTypes: result.SecondaryTypes,
		FirstRelease:   result.FirstRelease,
		Artist:         extractArtist(result.ArtistCredit),
	}
	for _, g := range result.Genres {
		rg.Genres = append(rg.Genres, g.Name)
	}
	return rg, nil
}

// getJSON performs a rate-limited GET with retry and decodes the JSON body.
func (c *Client) getJSON(ctx context.Context, reqURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.doRequestWithRetry(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("API status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// doRequestWithRetry executes an HTTP request with exponential backoff retry.
// Retries on 5xx errors and network errors; every attempt waits on the limiter.
func (c *Client) doRequestWithRetry(req *http.Request) (*http.Response, error) {
	var lastErr error
	delay := initialDelay

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(delay):
			case <-req.Context().Done():
				return nil, req.Context().Err()
			}
			delay = min(delay*2, maxDelay)
		}

		if err := c.limiter.Wait(req.Context()); err != nil {
			return nil, err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		// Success or client error (4xx) - don't retry
		if resp.StatusCode < 500 {
			return resp, nil
		}

		// Server error (5xx) - retry
		resp.Body.Close()
		lastErr = fmt.Errorf("server returned status %d", resp.StatusCode)
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", maxRetries+1, lastErr)
}

// luceneSpecials are the characters with meaning in Lucene query syntax.
const luceneSpecials = `+-&|!(){}[]^"~*?:\/`

// escapeLucene backslash-escapes Lucene query syntax characters.
func escapeLucene(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if strings.ContainsRune(luceneSpecials, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// convertReleases converts raw search results to Release stubs.
func convertReleases(results []releaseResult) []Release {
	releases := make([]Release, 0, len(results))

	for i := range results {
		r := &results[i]
		release := Release{
			ID:      r.ID,
			Title:   r.Title,
			Artist:  extractArtist(r.ArtistCredit),
			Date:    r.Date,
			Country: r.Country,
			Score:   r.Score,
			Barcode: r.Barcode,
		}

		if r.ReleaseGroup != nil {
			release.ReleaseType = r.ReleaseGroup.PrimaryType
			release.ReleaseGroupID = r.ReleaseGroup.ID
		}

		for _, m := range r.Media {
			release.TrackCount += m.TrackCount
			release.DiscCount++
			if release.Media == "" {
				release.Media = m.Format
			}
		}

		for _, li := range r.LabelInfo {
			if li.Label != nil && li.Label.Name != "" {
				release.Label = li.Label.Name
				release.CatalogNumber = li.CatalogNumber
				break
			}
		}

		releases = append(releases, release)
	}

	return releases
}

// convertReleaseDetails converts a raw release details response.
func convertReleaseDetails(r releaseDetailsResponse) *ReleaseDetails {
	details := &ReleaseDetails{
		Release: Release{
			ID:      r.ID,
			Title:   r.Title,
			Artist:  extractArtist(r.ArtistCredit),
			Date:    r.Date,
			Country: r.Country,
			Status:  r.Status,
			Barcode: r.Barcode,
		},
	}

	if len(r.ArtistCredit) > 0 {
		details.ArtistID = r.ArtistCredit[0].Artist.ID
		details.ArtistSortName = r.ArtistCredit[0].Artist.SortName
	}

	if r.ReleaseGroup != nil {
		details.ReleaseType = r.ReleaseGroup.PrimaryType
		details.ReleaseGroupID = r.ReleaseGroup.ID
		details.OriginalYear = yearOf(r.ReleaseGroup.FirstRelease)
		details.OriginalDate = r.ReleaseGroup.FirstRelease
	}

	if r.TextRepresentation != nil {
		details.Script = r.TextRepresentation.Script
	}

	for _, li := range r.LabelInfo {
		if li.Label != nil && li.Label.Name != "" {
			details.Label = li.Label.Name
			details.CatalogNumber = li.CatalogNumber
			break
		}
	}

	for discIdx, m := range r.Media {
		details.TrackCount += m.TrackCount
		details.DiscCount++
		if details.Media == "" {
			details.Media = m.Format
		}
		discNumber := m.Position
		if discNumber == 0 {
			discNumber = discIdx + 1
		}
		for _, t := range m.Tracks {
			track := Track{
				Position:   t.Position,
				Title:      t.Title,
				Length:     t.Length,
				DiscNumber: discNumber,
				TrackID:    t.ID,
				Artist:     extractArtist(t.ArtistCredit),
			}
			if t.Recording != nil {
				track.RecordingID = t.Recording.ID
				if track.Title == "" {
					track.Title = t.Recording.Title
				}
				if track.Length == 0 {
					track.Length = t.Recording.Length
				}
				if len(t.Recording.ISRCs) > 0 {
					track.ISRC = t.Recording.ISRCs[0]
				}
			}
			details.Tracks = append(details.Tracks, track)
		}
	}

	details.Genres = aggregateGenres(r)
	return details
}

// extractArtist joins artist credits with their join phrases.
func extractArtist(credits []artistCredit) string {
	if len(credits) == 0 {
		return ""
	}

	parts := make([]string, 0, len(credits))
	for _, c := range credits {
		name := c.Name
		if name == "" {
			name = c.Artist.Name
		}
		parts = append(parts, name+c.JoinPhrase)
	}
	return strings.TrimSpace(strings.Join(parts, ""))
}

// yearOf returns the numeric year of a YYYY or YYYY-MM-DD date, 0 if absent.
func yearOf(date string) int {
	if len(date) < 4 {
		return 0
	}
	var year int
	if _, err := fmt.Sscanf(date[:4], "%d", &year); err != nil {
		return 0
	}
	return year
}
