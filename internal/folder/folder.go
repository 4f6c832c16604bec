// Package folder reads album folders from disk: per-file tags, aggregated
// album metadata, disc subfolder handling and folder classification.
package folder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/MattiVenturelli/musictaggerz/internal/logger"
	"github.com/MattiVenturelli/musictaggerz/internal/store"
	"github.com/MattiVenturelli/musictaggerz/internal/tags"
)

// Info describes one album folder: its audio files in filename order and the
// album-level fields derived from them.
type Info struct {
	Path   string
	Files  []*tags.FileInfo
	Artist string
	Album  string
	Year   int

	DiscNumber int // from folder name or file tags, 0 when unknown
	TotalDiscs int

	TotalDuration time.Duration

	// MBReleaseID is set when every file carries the same non-empty
	// MusicBrainz release ID.
	MBReleaseID string
}

// TrackCount returns the number of audio files in the folder.
func (i *Info) TrackCount() int {
	return len(i.Files)
}

// Reader reads and classifies album folders. Disc subfolder patterns come
// from runtime settings and are recompiled when settings change.
type Reader struct {
	settings *store.Settings
	patterns *patternCache
}

// NewReader returns a Reader backed by the given settings.
func NewReader(settings *store.Settings) *Reader {
	return &Reader{
		settings: settings,
		patterns: newPatternCache(settings),
	}
}

// ReadFolder reads every audio file directly inside path and aggregates
// album-level fields. Files that cannot be read are skipped with a warning.
func (r *Reader) ReadFolder(path string) (*Info, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("read folder %s: %w", path, err)
	}

	info := &Info{Path: path}
	for _, entry := range entries {
		if entry.IsDir() || !tags.IsMusicFile(entry.Name()) {
			continue
		}
		filePath := filepath.Join(path, entry.Name())
		file, err := tags.ReadWithAudio(filePath)
		if err != nil {
			logger.Warnf(context.Background(), "skipping unreadable file %s: %v", filePath, err)
			continue
		}
		info.Files = append(info.Files, file)
	}

	sort.Slice(info.Files, func(a, b int) bool {
		return filepath.Base(info.Files[a].Path) < filepath.Base(info.Files[b].Path)
	})

	r.aggregate(info)
	return info, nil
}

// ReadAlbum reads a folder as a single album. Flat folders behave like
// ReadFolder; multi-disc parents merge every disc subfolder, overriding
// file disc numbers with the folder-derived ones.
func (r *Reader) ReadAlbum(path string) (*Info, error) {
	kind, err := r.Classify(path)
	if err != nil {
		return nil, err
	}
	if kind != KindMultiDisc {
		return r.ReadFolder(path)
	}

	discs, err := r.DiscFolders(path)
	if err != nil {
		return nil, err
	}

	info := &Info{Path: path}
	for _, disc := range discs {
		discInfo, err := r.ReadFolder(disc.Path)
		if err != nil {
			return nil, err
		}
		for _, file := range discInfo.Files {
			file.DiscNumber = disc.Number
			info.Files = append(info.Files, file)
		}
	}

	sort.Slice(info.Files, func(a, b int) bool {
		fa, fb := info.Files[a], info.Files[b]
		if fa.DiscNumber != fb.DiscNumber {
			return fa.DiscNumber < fb.DiscNumber
		}
		return filepath.Base(fa.Path) < filepath.Base(fb.Path)
	})

	r.aggregate(info)
	info.TotalDiscs = len(discs)
	info.DiscNumber = 0
	return info, nil
}

// aggregate fills album-level fields from the file list.
func (r *Reader) aggregate(info *Info) {
	artists := make([]string, 0, len(info.Files))
	albums := make([]string, 0, len(info.Files))
	years := make([]int, 0, len(info.Files))
	discs := make([]int, 0, len(info.Files))

	releaseID := ""
	releaseAgreed := true

	for _, file := range info.Files {
		artist := file.AlbumArtist
		if artist == "" {
			artist = file.Artist
		}
		artists = append(artists, artist)
		albums = append(albums, file.Album)
		years = append(years, file.Year())
		discs = append(discs, file.DiscNumber)
		info.TotalDuration += file.Duration
		if file.TotalDiscs > info.TotalDiscs {
			info.TotalDiscs = file.TotalDiscs
		}

		switch {
		case file.MBReleaseID == "":
			releaseAgreed = false
		case releaseID == "":
			releaseID = file.MBReleaseID
		case releaseID != file.MBReleaseID:
			releaseAgreed = false
		}
	}

	info.Artist = pluralityString(artists)
	info.Album = pluralityString(albums)
	info.Year = pluralityInt(years)
	info.DiscNumber = pluralityInt(discs)
	if releaseAgreed && releaseID != "" {
		info.MBReleaseID = releaseID
	}
}

// pluralityString returns the most common non-empty value, first seen wins ties.
func pluralityString(values []string) string {
	counts := make(map[string]int)
	best, bestCount := "", 0
	for _, v := range values {
		if v == "" {
			continue
		}
		counts[v]++
		if counts[v] > bestCount {
			best, bestCount = v, counts[v]
		}
	}
	return best
}

// pluralityInt returns the most common non-zero value, first seen wins ties.
func pluralityInt(values []int) int {
	counts := make(map[int]int)
	best, bestCount := 0, 0
	for _, v := range values {
		if v == 0 {
			continue
		}
		counts[v]++
		if counts[v] > bestCount {
			best, bestCount = v, counts[v]
		}
	}
	return best
}
