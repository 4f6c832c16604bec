package itunes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	server := httptest.NewServer(handler)
	c := New()
	c.baseURL = server.URL
	return c, server
}

func TestSearchAlbums(t *testing.T) {
	c, server := testClient(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("path = %q", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("term") != "Daft Punk Discovery" || q.Get("entity") != "album" || q.Get("limit") != "5" {
			t.Errorf("query = %v", q)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"resultCount": 1,
			"results": [{
				"artistName": "Daft Punk",
				"collectionName": "Discovery",
				"artworkUrl100": "https://example.com/img/100x100bb.jpg",
				"trackCount": 14,
				"country": "USA"
			}]
		}`))
	})
	defer server.Close()

	albums, err := c.SearchAlbums(context.Background(), "Daft Punk", "Discovery")
	if err != nil {
		t.Fatalf("SearchAlbums: %v", err)
	}
	if len(albums) != 1 {
		t.Fatalf("got %d albums, want 1", len(albums))
	}
	if albums[0].CollectionName != "Discovery" || albums[0].TrackCount != 14 {
		t.Errorf("album = %+v", albums[0])
	}
}

func TestSearchAlbums_Empty(t *testing.T) {
	c, server := testClient(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"resultCount": 0, "results": []}`))
	})
	defer server.Close()

	albums, err := c.SearchAlbums(context.Background(), "Nobody", "Nothing")
	if err != nil {
		t.Fatalf("SearchAlbums: %v", err)
	}
	if len(albums) != 0 {
		t.Errorf("got %d albums, want 0", len(albums))
	}
}

func TestArtworkURLRewrite(t *testing.T) {
	a := Album{ArtworkURL100: "https://example.com/img/100x100bb.jpg"}
	if got := a.ArtworkURL(); got != "https://example.com/img/1400x1400bb.jpg" {
		t.Errorf("ArtworkURL = %q", got)
	}
	if got := a.ThumbnailURL(); got != "https://example.com/img/250x250bb.jpg" {
		t.Errorf("ThumbnailURL = %q", got)
	}
}
