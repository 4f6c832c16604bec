package artwork

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/MattiVenturelli/musictaggerz/internal/fanarttv"
	"github.com/MattiVenturelli/musictaggerz/internal/itunes"
	"github.com/MattiVenturelli/musictaggerz/internal/logger"
	"github.com/MattiVenturelli/musictaggerz/internal/match"
	"github.com/MattiVenturelli/musictaggerz/internal/store"
	"github.com/MattiVenturelli/musictaggerz/internal/tags"
)

// iTunes results below this artist+album similarity are ignored.
const itunesMinSimilarity = 0.3

// Candidate is one cover art image found for an album.
type Candidate struct {
	Data   []byte
	MIME   string
	Width  int
	Height int
	Source string
}

// Request identifies the album to find artwork for.
type Request struct {
	FolderPath     string
	Artist         string
	Album          string
	ReleaseID      string // MusicBrainz release, for the Cover Art Archive
	ReleaseGroupID string // MusicBrainz release group, for fanart.tv
}

type caaClient interface {
	GetFrontCover(ctx context.Context, releaseMBID string) ([]byte, error)
}

type itunesClient interface {
	SearchAlbums(ctx context.Context, artist, album string) ([]itunes.Album, error)
}

type fanartClient interface {
	AlbumCovers(ctx context.Context, releaseGroupMBID string) ([]fanarttv.Image, error)
}

// Selector tries artwork sources in the configured order and picks the first
// image that satisfies the minimum size.
type Selector struct {
	settings   *store.Settings
	caa        caaClient
	itunes     itunesClient
	httpClient *http.Client

	// newFanart builds a fanart.tv client for the current API key. The key
	// is a runtime setting so the client cannot be built once up front.
	newFanart func(apiKey string) fanartClient
}

// NewSelector creates a Selector. caa is the Cover Art Archive surface of
// the MusicBrainz client.
func NewSelector(settings *store.Settings, caa caaClient) *Selector {
	return &Selector{
		settings:   settings,
		caa:        caa,
		itunes:     itunes.New(),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		newFanart: func(apiKey string) fanartClient {
			return fanarttv.New(apiKey)
		},
	}
}

// Find tries each configured artwork source in order. The first candidate
// whose smaller side reaches artwork_min_size wins; when no source delivers
// one, the largest image seen wins. Oversized winners are downscaled.
// Returns nil when no source has any artwork.
func (s *Selector) Find(ctx context.Context, req Request) (*Candidate, error) {
	minSize := s.settings.Int(store.SettingArtworkMinSize, 500)
	maxSize := s.settings.Int(store.SettingArtworkMaxSize, 1400)
	sources := s.settings.StringSlice(store.SettingArtworkSources,
		[]string{"filesystem", "itunes", "fanarttv", "coverart"})

	var fallback *Candidate
	for _, source := range sources {
		logger.Debugf(ctx, "trying artwork source: %s", source)
		candidate := s.fromSource(ctx, source, req)
		if candidate == nil {
			continue
		}
		if min(candidate.Width, candidate.Height) >= minSize {
			logger.Infof(ctx, "artwork found from %s: %dx%d, %s",
				source, candidate.Width, candidate.Height, humanize.Bytes(uint64(len(candidate.Data))))
			return s.finish(candidate, maxSize)
		}
		if fallback == nil || smallerSide(candidate) > smallerSide(fallback) {
			fallback = candidate
		}
	}

	if fallback != nil {
		logger.Infof(ctx, "no artwork met minimum size %d, using largest from %s: %dx%d",
			minSize, fallback.Source, fallback.Width, fallback.Height)
		return s.finish(fallback, maxSize)
	}
	logger.Warnf(ctx, "no artwork found for %q - %q", req.Artist, req.Album)
	return nil, nil
}

func (s *Selector) fromSource(ctx context.Context, source string, req Request) *Candidate {
	var (
		data []byte
		mime string
		err  error
	)
	switch source {
	case "filesystem":
		data, mime, err = tags.FindFolderArt(req.FolderPath)
	case "itunes":
		data, mime, err = s.fromITunes(ctx, req)
	case "fanarttv":
		data, mime, err = s.fromFanart(ctx, req)
	case "coverart":
		data, mime, err = s.fromCoverArtArchive(ctx, req)
	default:
		logger.Warnf(ctx, "unknown artwork source %q", source)
		return nil
	}
	if err != nil {
		logger.Warnf(ctx, "artwork source %s: %v", source, err)
		return nil
	}
	if len(data) == 0 {
		return nil
	}

	w, h := imageSize(data)
	if mime == "" {
		mime = "image/jpeg"
		if isPNG(data) {
			mime = "image/png"
		}
	}
	return &Candidate{Data: data, MIME: mime, Width: w, Height: h, Source: source}
}

// fromITunes searches the iTunes catalog and downloads artwork from the best
// result whose artist and album resemble the request.
func (s *Selector) fromITunes(ctx context.Context, req Request) ([]byte, string, error) {
	if req.Artist == "" && req.Album == "" {
		return nil, "", nil
	}
	albums, err := s.itunes.SearchAlbums(ctx, req.Artist, req.Album)
	if err != nil {
		return nil, "", err
	}

	type scored struct {
		album itunes.Album
		score float64
	}
	candidates := make([]scored, 0, len(albums))
	for _, a := range albums {
		score := match.Similarity(req.Artist, a.ArtistName)*0.5 + match.Similarity(req.Album, a.CollectionName)*0.5
		candidates = append(candidates, scored{album: a, score: score})
	}
	sort.SliceStable(candidates, func(a, b int) bool {
		return candidates[a].score > candidates[b].score
	})

	for _, c := range candidates {
		if c.score < itunesMinSimilarity {
			logger.Debugf(ctx, "itunes: skipping %q - %q (similarity %.2f)",
				c.album.ArtistName, c.album.CollectionName, c.score)
			continue
		}
		url := c.album.ArtworkURL()
		if url == "" {
			continue
		}
		data, err := s.downloadImage(ctx, url)
		if err != nil {
			logger.Debugf(ctx, "itunes: download %s: %v", url, err)
			continue
		}
		if data != nil {
			return data, "image/jpeg", nil
		}
	}
	return nil, "", nil
}

func (s *Selector) fromFanart(ctx context.Context, req Request) ([]byte, string, error) {
	apiKey := s.settings.String(store.SettingFanartTVAPIKey, "")
	if apiKey == "" || req.ReleaseGroupID == "" {
		return nil, "", nil
	}
	covers, err := s.newFanart(apiKey).AlbumCovers(ctx, req.ReleaseGroupID)
	if err != nil {
		return nil, "", err
	}
	for _, cover := range covers {
		if cover.URL == "" {
			continue
		}
		data, err := s.downloadImage(ctx, cover.URL)
		if err != nil {
			logger.Debugf(ctx, "fanarttv: download %s: %v", cover.URL, err)
			continue
		}
		if data != nil {
			return data, "image/jpeg", nil
		}
	}
	return nil, "", nil
}

func (s *Selector) fromCoverArtArchive(ctx context.Context, req Request) ([]byte, string, error) {
	if req.ReleaseID == "" {
		return nil, "", nil
	}
	data, err := s.caa.GetFrontCover(ctx, req.ReleaseID)
	if err != nil {
		return nil, "", err
	}
	return data, "", nil
}

// downloadImage fetches an image URL, rejecting responses that are clearly
// not images. Returns nil data for non-image responses.
func (s *Selector) downloadImage(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %s", resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(contentType, "image") && !isPNG(data) && !isJPEG(data) {
		return nil, nil
	}
	return data, nil
}

func isJPEG(data []byte) bool {
	return len(data) >= 2 && data[0] == 0xff && data[1] == 0xd8
}

// finish downscales the winning candidate when it exceeds the maximum size.
func (s *Selector) finish(c *Candidate, maxSize int) (*Candidate, error) {
	data, mime, err := downscale(c.Data, maxSize)
	if err != nil {
		return nil, err
	}
	c.Data = data
	c.MIME = mime
	c.Width, c.Height = imageSize(data)
	return c, nil
}

// SaveToFolder writes the artwork next to the album's audio files as
// albumart.jpg or albumart.png.
func SaveToFolder(ctx context.Context, folderPath string, c *Candidate) (string, error) {
	ext := ".jpg"
	if c.MIME == "image/png" {
		ext = ".png"
	}
	path := filepath.Join(folderPath, "albumart"+ext)
	if err := os.WriteFile(path, c.Data, 0o644); err != nil {
		return "", fmt.Errorf("save artwork: %w", err)
	}
	logger.Infof(ctx, "saved artwork: %s (%dx%d, %s)", path, c.Width, c.Height, humanize.Bytes(uint64(len(c.Data))))
	return path, nil
}

func smallerSide(c *Candidate) int {
	return min(c.Width, c.Height)
}
