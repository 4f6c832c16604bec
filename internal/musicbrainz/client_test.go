//nolint:bodyclose // Test file uses http.NoBody which doesn't require closing
package musicbrainz

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/synctest"
	"time"

	"golang.org/x/time/rate"
)

func newTestClient(transport http.RoundTripper) *Client {
	return &Client{
		httpClient: &http.Client{Transport: transport},
		limiter:    rate.NewLimiter(rate.Every(requestInterval), 1),
		baseURL:    defaultBaseURL,
	}
}

// mockTransport is a mock http.RoundTripper for testing.
type mockTransport struct {
	responses []*http.Response
	errors    []error
	callCount int
}

func (m *mockTransport) RoundTrip(*http.Request) (*http.Response, error) {
	idx := m.callCount
	m.callCount++

	if idx < len(m.errors) && m.errors[idx] != nil {
		return nil, m.errors[idx]
	}
	if idx < len(m.responses) {
		return m.responses[idx], nil
	}
	return nil, errors.New("no more responses configured")
}

func newMockResponse(statusCode int) *http.Response {
	return &http.Response{
		StatusCode: statusCode,
		Body:       http.NoBody,
	}
}

func TestClient_RateLimit_SpacesRequests(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		mock := &mockTransport{
			responses: []*http.Response{
				newMockResponse(http.StatusOK),
				newMockResponse(http.StatusOK),
				newMockResponse(http.StatusOK),
			},
		}
		c := newTestClient(mock)

		start := time.Now()
		for range 3 {
			req, _ := http.NewRequest(http.MethodGet, "http://example.com", http.NoBody)
			resp, err := c.doRequestWithRetry(req)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			resp.Body.Close()
		}
		elapsed := time.Since(start)

		// First request is instant, then two waits of ~1.1s each
		if elapsed < 2*requestInterval {
			t.Errorf("3 requests took %v, expected at least %v", elapsed, 2*requestInterval)
		}
	})
}

func TestClient_DoRequestWithRetry_Success(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		mock := &mockTransport{
			responses: []*http.Response{newMockResponse(http.StatusOK)},
		}
		c := newTestClient(mock)

		req, _ := http.NewRequest(http.MethodGet, "http://example.com", http.NoBody)
		resp, err := c.doRequestWithRetry(req)

		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("StatusCode = %d, want %d", resp.StatusCode, http.StatusOK)
		}
		if mock.callCount != 1 {
			t.Errorf("callCount = %d, want 1", mock.callCount)
		}
	})
}

func TestClient_DoRequestWithRetry_RetriesOn500(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		mock := &mockTransport{
			responses: []*http.Response{
				newMockResponse(http.StatusInternalServerError),
				newMockResponse(http.StatusInternalServerError),
				newMockResponse(http.StatusOK), // Success on 3rd attempt
			},
		}
		c := newTestClient(mock)

		start := time.Now()
		req, _ := http.NewRequest(http.MethodGet, "http://example.com", http.NoBody)
		resp, err := c.doRequestWithRetry(req)
		elapsed := time.Since(start)

		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("StatusCode = %d, want %d", resp.StatusCode, http.StatusOK)
		}
		if mock.callCount != 3 {
			t.Errorf("callCount = %d, want 3", mock.callCount)
		}

		// Should have waited: 2s (first retry) + 4s (second retry) = 6s minimum
		if elapsed < 6*time.Second {
			t.Errorf("elapsed = %v, expected at least 6s for backoff", elapsed)
		}
	})
}

func TestClient_DoRequestWithRetry_ExhaustsRetries(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		mock := &mockTransport{
			responses: []*http.Response{
				newMockResponse(http.StatusInternalServerError),
				newMockResponse(http.StatusInternalServerError),
				newMockResponse(http.StatusInternalServerError),
				newMockResponse(http.StatusInternalServerError), // All 4 attempts fail
			},
		}
		c := newTestClient(mock)

		req, _ := http.NewRequest(http.MethodGet, "http://example.com", http.NoBody)
		resp, err := c.doRequestWithRetry(req)

		if err == nil {
			t.Fatal("expected error after exhausting retries")
		}
		if resp != nil {
			t.Error("expected nil response after exhausting retries")
		}
		if mock.callCount != 4 {
			t.Errorf("callCount = %d, want 4 (initial + 3 retries)", mock.callCount)
		}
	})
}

func TestClient_DoRequestWithRetry_NoRetryOn4xx(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		mock := &mockTransport{
			responses: []*http.Response{newMockResponse(http.StatusNotFound)},
		}
		c := newTestClient(mock)

		req, _ := http.NewRequest(http.MethodGet, "http://example.com", http.NoBody)
		resp, err := c.doRequestWithRetry(req)

		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("StatusCode = %d, want %d", resp.StatusCode, http.StatusNotFound)
		}
		if mock.callCount != 1 {
			t.Errorf("callCount = %d, want 1 (no retry on 4xx)", mock.callCount)
		}
	})
}

func TestClient_DoRequestWithRetry_RetriesOnNetworkError(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		mock := &mockTransport{
			errors: []error{
				errors.New("connection refused"),
				errors.New("timeout"),
				nil, // Success on 3rd
			},
			responses: []*http.Response{
				nil,
				nil,
				newMockResponse(http.StatusOK),
			},
		}
		c := newTestClient(mock)

		req, _ := http.NewRequest(http.MethodGet, "http://example.com", http.NoBody)
		resp, err := c.doRequestWithRetry(req)

		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("StatusCode = %d, want %d", resp.StatusCode, http.StatusOK)
		}
		if mock.callCount != 3 {
			t.Errorf("callCount = %d, want 3", mock.callCount)
		}
	})
}

func TestClient_DoRequestWithRetry_ContextCancel(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		mock := &mockTransport{
			responses: []*http.Response{
				newMockResponse(http.StatusInternalServerError),
			},
		}
		c := newTestClient(mock)

		ctx, cancel := context.WithCancel(context.Background())
		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, "http://example.com", http.NoBody)

		go func() {
			time.Sleep(500 * time.Millisecond)
			cancel()
		}()

		_, err := c.doRequestWithRetry(req)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	})
}

func TestEscapeLucene(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Pink Floyd", "Pink Floyd"},
		{`AC/DC`, `AC\/DC`},
		{`"Heroes"`, `\"Heroes\"`},
		{`Sunn O)))`, `Sunn O\)\)\)`},
		{`R+B: hits`, `R\+B\: hits`},
	}

	for _, tt := range tests {
		if got := escapeLucene(tt.in); got != tt.want {
			t.Errorf("escapeLucene(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSearchReleases_ParsesResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query().Get("query")
		if query != `artist:"The Band" AND release:"Big Pink"` {
			t.Errorf("query = %q", query)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"releases": [{
				"id": "rel-1",
				"title": "Big Pink",
				"score": 100,
				"date": "1968-07-01",
				"country": "US",
				"barcode": "123",
				"artist-credit": [{"name": "The Band", "artist": {"id": "a1", "name": "The Band"}}],
				"release-group": {"id": "rg-1", "primary-type": "Album"},
				"media": [{"format": "CD", "track-count": 11}],
				"label-info": [{"catalog-number": "ST-2955", "label": {"name": "Capitol"}}]
			}]
		}`))
	}))
	defer server.Close()

	c := NewClient()
	c.baseURL = server.URL

	releases, err := c.SearchReleases(context.Background(), "The Band", "Big Pink")
	if err != nil {
		t.Fatalf("SearchReleases: %v", err)
	}
	if len(releases) != 1 {
		t.Fatalf("len(releases) = %d, want 1", len(releases))
	}

	r := releases[0]
	if r.ID != "rel-1" || r.Title != "Big Pink" || r.Artist != "The Band" {
		t.Errorf("unexpected release: %+v", r)
	}
	if r.TrackCount != 11 || r.DiscCount != 1 || r.Media != "CD" {
		t.Errorf("media fields: count=%d discs=%d media=%q", r.TrackCount, r.DiscCount, r.Media)
	}
	if r.Label != "Capitol" || r.CatalogNumber != "ST-2955" || r.Barcode != "123" {
		t.Errorf("label fields: %+v", r)
	}
	if r.ReleaseGroupID != "rg-1" || r.ReleaseType != "Album" {
		t.Errorf("release group fields: %+v", r)
	}
	if r.Year() != 1968 {
		t.Errorf("Year() = %d, want 1968", r.Year())
	}
}

func TestGetRelease_ParsesTracksAndGenres(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if inc := r.URL.Query().Get("inc"); inc != "recordings+artist-credits+labels+release-groups+genres+tags" {
			t.Errorf("inc = %q", inc)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "rel-1",
			"title": "Double Album",
			"date": "1990-05-01",
			"country": "GB",
			"status": "Official",
			"barcode": "456",
			"artist-credit": [
				{"name": "Artist A", "artist": {"id": "a1", "name": "Artist A", "sort-name": "A, Artist"}, "joinphrase": " feat. "},
				{"name": "Artist B", "artist": {"id": "a2", "name": "Artist B"}}
			],
			"release-group": {"id": "rg-1", "primary-type": "Album", "first-release-date": "1985-01-01"},
			"text-representation": {"script": "Latn"},
			"label-info": [{"catalog-number": "CAT-9", "label": {"name": "Label X"}}],
			"media": [
				{"position": 1, "format": "CD", "track-count": 2, "tracks": [
					{"id": "t1", "position": 1, "title": "One", "length": 200000,
					 "recording": {"id": "rec1", "title": "One", "isrcs": ["ISRC1"]}},
					{"id": "t2", "position": 2, "title": "", "length": 0,
					 "recording": {"id": "rec2", "title": "Two", "length": 180000}}
				]},
				{"position": 2, "format": "CD", "track-count": 1, "tracks": [
					{"id": "t3", "position": 1, "title": "Three", "length": 100000,
					 "recording": {"id": "rec3", "title": "Three"}}
				]}
			],
			"genres": [{"name": "Rock", "count": 5}],
			"tags": [{"name": "seen live", "count": 10}]
		}`))
	}))
	defer server.Close()

	c := NewClient()
	c.baseURL = server.URL

	details, err := c.GetRelease(context.Background(), "rel-1")
	if err != nil {
		t.Fatalf("GetRelease: %v", err)
	}

	if details.Artist != "Artist A feat. Artist B" {
		t.Errorf("Artist = %q", details.Artist)
	}
	if details.ArtistSortName != "A, Artist" {
		t.Errorf("ArtistSortName = %q", details.ArtistSortName)
	}
	if details.OriginalYear != 1985 {
		t.Errorf("OriginalYear = %d, want 1985", details.OriginalYear)
	}
	if details.Script != "Latn" || details.Label != "Label X" || details.CatalogNumber != "CAT-9" {
		t.Errorf("release fields: %+v", details.Release)
	}
	if details.TrackCount != 3 || details.DiscCount != 2 {
		t.Errorf("counts: tracks=%d discs=%d", details.TrackCount, details.DiscCount)
	}

	if len(details.Tracks) != 3 {
		t.Fatalf("len(Tracks) = %d, want 3", len(details.Tracks))
	}
	// Recording fills title/length when the track lacks them
	second := details.TrackAt(1, 2)
	if second == nil || second.Title != "Two" || second.Length != 180000 {
		t.Errorf("track (1,2) = %+v", second)
	}
	third := details.TrackAt(2, 1)
	if third == nil || third.RecordingID != "rec3" {
		t.Errorf("track (2,1) = %+v", third)
	}
	if details.Tracks[0].ISRC != "ISRC1" {
		t.Errorf("ISRC = %q", details.Tracks[0].ISRC)
	}

	// Official genre wins; unrecognized folksonomy tag is ignored
	if len(details.Genres) != 1 || details.Genres[0] != "Rock" {
		t.Errorf("Genres = %v", details.Genres)
	}
}

func TestGetReleaseGroup_ParsesFirstRelease(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "rg-1",
			"title": "Classic",
			"primary-type": "Album",
			"first-release-date": "1972-06-16",
			"artist-credit": [{"name": "Solo", "artist": {"name": "Solo"}}],
			"genres": [{"name": "glam rock", "count": 3}]
		}`))
	}))
	defer server.Close()

	c := NewClient()
	c.baseURL = server.URL

	rg, err := c.GetReleaseGroup(context.Background(), "rg-1")
	if err != nil {
		t.Fatalf("GetReleaseGroup: %v", err)
	}
	if rg.FirstRelease != "1972-06-16" || rg.Artist != "Solo" {
		t.Errorf("rg = %+v", rg)
	}
	if len(rg.Genres) != 1 || rg.Genres[0] != "glam rock" {
		t.Errorf("Genres = %v", rg.Genres)
	}
}

func TestAggregateGenres_TagFallback(t *testing.T) {
	resp := releaseDetailsResponse{
		Tags: []folksonomyTag{
			{Name: "seen live", Count: 12},
			{Name: "Shoegaze", Count: 4},
		},
		ReleaseGroup: &releaseGroup{
			Tags: []folksonomyTag{
				{Name: "dream pop", Count: 7},
				{Name: "favorites", Count: 3},
			},
		},
	}

	genres := aggregateGenres(resp)
	if len(genres) != 2 {
		t.Fatalf("genres = %v, want 2 entries", genres)
	}
	if genres[0] != "dream pop" || genres[1] != "shoegaze" {
		t.Errorf("genres = %v", genres)
	}
}

func TestAggregateGenres_OfficialBeatsTags(t *testing.T) {
	resp := releaseDetailsResponse{
		Genres: []genre{{Name: "Jazz", Count: 1}},
		Tags:   []folksonomyTag{{Name: "rock", Count: 50}},
	}

	genres := aggregateGenres(resp)
	if len(genres) != 1 || genres[0] != "Jazz" {
		t.Errorf("genres = %v, want [Jazz]", genres)
	}
}
