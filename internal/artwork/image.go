// Package artwork finds, selects and sizes album cover art from the
// filesystem and online sources.
package artwork

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"github.com/nfnt/resize"
)

var (
	pngMagic  = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	jpegMagic = []byte{0xff, 0xd8}
)

// imageSize returns the pixel dimensions of a JPEG or PNG from its header
// bytes, falling back to a full header decode for other formats. Returns
// (0, 0) when the dimensions cannot be determined.
func imageSize(data []byte) (width, height int) {
	switch {
	case bytes.HasPrefix(data, pngMagic):
		if len(data) < 24 {
			return 0, 0
		}
		// IHDR width and height at bytes 16-24, big endian
		return int(binary.BigEndian.Uint32(data[16:20])), int(binary.BigEndian.Uint32(data[20:24]))

	case bytes.HasPrefix(data, jpegMagic):
		// Scan segment markers for a start-of-frame
		i := 2
		for i < len(data)-9 {
			if data[i] != 0xff {
				i++
				continue
			}
			marker := data[i+1]
			if marker == 0xc0 || marker == 0xc1 || marker == 0xc2 {
				h := int(binary.BigEndian.Uint16(data[i+5 : i+7]))
				w := int(binary.BigEndian.Uint16(data[i+7 : i+9]))
				return w, h
			}
			length := int(binary.BigEndian.Uint16(data[i+2 : i+4]))
			i += 2 + length
		}
		return 0, 0

	default:
		cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return 0, 0
		}
		return cfg.Width, cfg.Height
	}
}

// isPNG reports whether the data is a PNG image.
func isPNG(data []byte) bool {
	return bytes.HasPrefix(data, pngMagic)
}

// downscale resizes an image so its longest side is at most maxSize pixels
// and re-encodes it as JPEG. Images already within bounds are returned
// unchanged.
func downscale(data []byte, maxSize int) ([]byte, string, error) {
	w, h := imageSize(data)
	if w == 0 || h == 0 || (w <= maxSize && h <= maxSize) {
		mime := "image/jpeg"
		if isPNG(data) {
			mime = "image/png"
		}
		return data, mime, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}

	var resized image.Image
	if w >= h {
		resized = resize.Resize(uint(maxSize), 0, img, resize.Lanczos3)
	} else {
		resized = resize.Resize(0, uint(maxSize), img, resize.Lanczos3)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: 90}); err != nil {
		return nil, "", fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), "image/jpeg", nil
}
