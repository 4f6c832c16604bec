package lrclib

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	server := httptest.NewServer(handler)
	c := New()
	c.baseURL = server.URL
	return c, server
}

func TestGet_ExactMatch(t *testing.T) {
	c, server := testClient(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/get" {
			t.Errorf("path = %q", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("artist_name") != "Artist" || q.Get("track_name") != "Song" {
			t.Errorf("query = %v", q)
		}
		if q.Get("album_name") != "Album" || q.Get("duration") != "215" {
			t.Errorf("query = %v", q)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": 1, "trackName": "Song", "artistName": "Artist",
			"plainLyrics": "la la la", "syncedLyrics": "[00:01.00] la la la"
		}`))
	})
	defer server.Close()

	result, err := c.Get(context.Background(), "Artist", "Song", "Album", 215*time.Second)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !result.HasPlainLyrics() || !result.HasSyncedLyrics() {
		t.Errorf("result = %+v", result)
	}
}

func TestGet_NotFound(t *testing.T) {
	c, server := testClient(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	defer server.Close()

	_, err := c.Get(context.Background(), "Artist", "Song", "", 0)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestFetch_FallsBackToSearch(t *testing.T) {
	c, server := testClient(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/get":
			w.WriteHeader(http.StatusNotFound)
		case "/search":
			if q := r.URL.Query().Get("q"); q != "Artist Song" {
				t.Errorf("q = %q", q)
			}
			_, _ = w.Write([]byte(`[
				{"id": 1, "instrumental": false},
				{"id": 2, "plainLyrics": "found via search"}
			]`))
		}
	})
	defer server.Close()

	result, err := c.Fetch(context.Background(), "Artist", "Song", "", 0)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if result.ID != 2 || result.PlainLyrics != "found via search" {
		t.Errorf("result = %+v", result)
	}
}

func TestFetch_NothingUsable(t *testing.T) {
	c, server := testClient(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/get":
			w.WriteHeader(http.StatusNotFound)
		case "/search":
			_, _ = w.Write([]byte(`[]`))
		}
	})
	defer server.Close()

	_, err := c.Fetch(context.Background(), "Artist", "Song", "", 0)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestFetch_EmptyInputs(t *testing.T) {
	c := New()
	if _, err := c.Fetch(context.Background(), "", "Song", "", 0); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if _, err := c.Fetch(context.Background(), "Artist", "", "", 0); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
