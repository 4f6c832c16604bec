package tags

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"
)

// Filename stems recognized as album cover art, in preference order.
var coverArtKeywords = []string{"cover", "front", "folder", "albumart", "album", "artwork"}

// Image extensions considered for folder art.
var coverArtExtensions = []string{".jpg", ".jpeg", ".png", ".webp"}

// ExtractCoverArt reads cover art for an audio file.
// It first tries to extract embedded art from the file metadata.
// If no embedded art is found, it looks for cover images in the same
// directory (cover.jpg, folder.png, albumart.webp, etc.).
// Returns the image data and MIME type, or nil if no art is found.
func ExtractCoverArt(path string) (data []byte, mimeType string, err error) {
	// Try embedded art first
	data, mimeType, err = EmbeddedCoverArt(path)
	if err != nil {
		return nil, "", err
	}
	if data != nil {
		return data, mimeType, nil
	}

	// Fall back to folder images
	return FindFolderArt(filepath.Dir(path))
}

// EmbeddedCoverArt reads embedded cover art from an audio file's metadata.
func EmbeddedCoverArt(path string) (data []byte, mimeType string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return nil, "", err
	}

	pic := m.Picture()
	if pic == nil {
		return nil, "", nil
	}

	return pic.Data, pic.MIMEType, nil
}

// HasEmbeddedArt reports whether the file carries an embedded cover.
func HasEmbeddedArt(path string) bool {
	data, _, err := EmbeddedCoverArt(path)
	return err == nil && len(data) > 0
}

// FindFolderArt looks for cover art files in the given directory.
// Filenames are matched case-insensitively by stem keyword and extension.
func FindFolderArt(dir string) (data []byte, mimeType string, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, "", nil
	}

	// Preference order is keyword order, then directory order
	for _, keyword := range coverArtKeywords {
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			name := strings.ToLower(entry.Name())
			ext := filepath.Ext(name)
			if !isCoverExtension(ext) {
				continue
			}
			if strings.TrimSuffix(name, ext) != keyword {
				continue
			}

			data, readErr := os.ReadFile(filepath.Join(dir, entry.Name()))
			if readErr != nil {
				continue
			}
			return data, coverMIMEForExt(ext), nil
		}
	}

	return nil, "", nil
}

func isCoverExtension(ext string) bool {
	for _, e := range coverArtExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

func coverMIMEForExt(ext string) string {
	switch ext {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}
