package artwork

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MattiVenturelli/musictaggerz/internal/fanarttv"
	"github.com/MattiVenturelli/musictaggerz/internal/itunes"
	"github.com/MattiVenturelli/musictaggerz/internal/store"
)

// caaByRelease serves a different cover per release MBID.
type caaByRelease struct {
	covers map[string][]byte
}

func (f *caaByRelease) GetFrontCover(_ context.Context, mbid string) ([]byte, error) {
	data, ok := f.covers[mbid]
	if !ok {
		return nil, errors.New("no cover")
	}
	return data, nil
}

func TestDiscover_EnumeratesAllSources(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write(encodeJPEG(t, 1000, 1000))
	}))
	defer server.Close()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "folder.png"), encodePNG(t, 600, 600), 0o644))

	sel, settings := testSelector(t)
	require.NoError(t, settings.Set(store.SettingFanartTVAPIKey, "key"))
	sel.caa = &caaByRelease{covers: map[string][]byte{
		"rel-1": encodeJPEG(t, 900, 900),
		"rel-2": encodeJPEG(t, 500, 500),
	}}
	sel.itunes = &fakeITunes{albums: []itunes.Album{
		{ArtistName: "Pink Floyd", CollectionName: "The Wall", ArtworkURL100: server.URL + "/100x100bb.jpg"},
	}}
	sel.newFanart = func(string) fanartClient {
		return &fakeFanart{covers: []fanarttv.Image{{URL: server.URL + "/fanart.jpg"}}}
	}

	images := sel.Discover(context.Background(), Request{
		FolderPath:     dir,
		Artist:         "Pink Floyd",
		Album:          "The Wall",
		ReleaseID:      "rel-1",
		ReleaseGroupID: "rg-1",
	}, []string{"rel-1", "rel-2", "rel-missing"})

	labels := make(map[string]int)
	for _, img := range images {
		labels[img.Label]++
		assert.NotEmpty(t, img.Data)
	}
	assert.Equal(t, 1, labels["filesystem"])
	assert.Equal(t, 1, labels["coverart"])
	assert.Equal(t, 1, labels["itunes"])
	assert.Equal(t, 1, labels["fanarttv"])
	// rel-1 is the matched release, rel-missing has no cover: one candidate
	assert.Equal(t, 1, labels["candidate"])

	for _, img := range images {
		if img.Label == "candidate" {
			assert.Equal(t, "rel-2", img.ReleaseID)
			assert.Equal(t, "candidate", img.Source)
			assert.Equal(t, 500, img.Width)
		}
	}
}

func TestDiscover_SkipsFailedSources(t *testing.T) {
	sel, _ := testSelector(t)
	sel.caa = &caaByRelease{}

	images := sel.Discover(context.Background(), Request{
		FolderPath: t.TempDir(),
		Artist:     "Artist",
		Album:      "Album",
		ReleaseID:  "rel-1",
	}, nil)
	assert.Empty(t, images)
}
