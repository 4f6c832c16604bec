package folder

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/MattiVenturelli/musictaggerz/internal/tags"
)

// Kind classifies what a folder holds.
type Kind int

const (
	// KindEmpty has no audio directly or in recognized subfolders.
	KindEmpty Kind = iota
	// KindAlbum holds audio files directly.
	KindAlbum
	// KindMultiDisc holds disc subfolders (CD1, Disc 2, ...) with audio.
	KindMultiDisc
	// KindArtistDir holds no audio itself but has album subfolders.
	KindArtistDir
)

func (k Kind) String() string {
	switch k {
	case KindAlbum:
		return "album"
	case KindMultiDisc:
		return "multi-disc"
	case KindArtistDir:
		return "artist"
	default:
		return "empty"
	}
}

// DiscFolder is a disc subfolder of a multi-disc album.
type DiscFolder struct {
	Path   string
	Number int
}

// Classify inspects a folder's direct contents and decides whether it is a
// flat album, a multi-disc parent, an artist directory or empty. Hidden
// entries are ignored.
func (r *Reader) Classify(path string) (Kind, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return KindEmpty, fmt.Errorf("classify %s: %w", path, err)
	}

	hasAudio := false
	hasDiscDirs := false
	hasAudioSubdirs := false

	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		if !entry.IsDir() {
			if tags.IsMusicFile(name) {
				hasAudio = true
			}
			continue
		}
		subPath := filepath.Join(path, name)
		if _, ok := r.DiscNumberFromName(name); ok {
			if containsAudio(subPath) {
				hasDiscDirs = true
			}
			continue
		}
		if containsAudio(subPath) {
			hasAudioSubdirs = true
		}
	}

	switch {
	case hasDiscDirs:
		return KindMultiDisc, nil
	case hasAudio:
		return KindAlbum, nil
	case hasAudioSubdirs:
		return KindArtistDir, nil
	default:
		return KindEmpty, nil
	}
}

// DiscFolders returns the disc subfolders of a multi-disc parent that contain
// audio, ordered by disc number.
func (r *Reader) DiscFolders(path string) ([]DiscFolder, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("list disc folders %s: %w", path, err)
	}

	var discs []DiscFolder
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		number, ok := r.DiscNumberFromName(entry.Name())
		if !ok {
			continue
		}
		subPath := filepath.Join(path, entry.Name())
		if !containsAudio(subPath) {
			continue
		}
		discs = append(discs, DiscFolder{Path: subPath, Number: number})
	}

	sort.Slice(discs, func(a, b int) bool { return discs[a].Number < discs[b].Number })
	return discs, nil
}

// containsAudio reports whether a folder holds at least one audio file directly.
func containsAudio(path string) bool {
	entries, err := os.ReadDir(path)
	if err != nil {
		return false
	}
	for _, entry := range entries {
		if !entry.IsDir() && tags.IsMusicFile(entry.Name()) {
			return true
		}
	}
	return false
}
