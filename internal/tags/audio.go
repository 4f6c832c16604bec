package tags

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	goflac "github.com/go-flac/go-flac"
	"go.senan.xyz/taglib"
)

// ReadAudioInfo reads audio stream properties (duration, format, sample rate,
// bitrate). FLAC files are parsed directly from the STREAMINFO block, which
// also yields bit depth; everything else goes through TagLib.
func ReadAudioInfo(path string) (*AudioInfo, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !IsMusicFile(path) {
		return nil, fmt.Errorf("unsupported format: %s", ext)
	}

	if ext == ExtFLAC {
		if info, err := readFLACStreamInfo(path); err == nil {
			return info, nil
		}
		// Corrupt or ID3-prefixed FLAC, let TagLib try
	}

	props, err := taglib.ReadProperties(path)
	if err != nil {
		return nil, fmt.Errorf("read properties: %w", err)
	}

	return &AudioInfo{
		Duration:   props.Length,
		Format:     formatForExt(ext),
		SampleRate: int(props.SampleRate),
		Bitrate:    int(props.Bitrate),
		BitDepth:   16,
	}, nil
}

func formatForExt(ext string) string {
	switch ext {
	case ExtMP3:
		return "MP3"
	case ExtFLAC:
		return "FLAC"
	case ExtOPUS:
		return "OPUS"
	case ExtOGG, ExtOGA:
		return "VORBIS"
	case ExtM4A, ExtMP4:
		return "M4A"
	}
	return strings.ToUpper(strings.TrimPrefix(ext, "."))
}

// readFLACStreamInfo extracts audio info from FLAC streaminfo metadata.
func readFLACStreamInfo(path string) (*AudioInfo, error) {
	flacFile, err := goflac.ParseFile(path)
	if err != nil {
		return nil, err
	}

	// Find StreamInfo block
	for _, meta := range flacFile.Meta {
		if meta.Type != goflac.StreamInfo || len(meta.Data) < 18 {
			continue
		}
		// Parse StreamInfo block
		// Bytes 10-13: sample rate (20 bits), channels (3 bits), bits per sample (5 bits)
		// Bytes 14-17: total samples (36 bits, but only lower 32 bits typically used)
		data := meta.Data

		// Sample rate is in bits 0-19 of bytes 10-12
		sampleRate := int(data[10])<<12 | int(data[11])<<4 | int(data[12])>>4
		// Bits per sample is in bits 4-8 of bytes 12-13 (add 1 to get actual value)
		bitsPerSample := (int(data[12])&0x01)<<4 | int(data[13])>>4 + 1

		// Total samples is in bytes 14-17 (plus 4 bits from byte 13)
		totalSamples := int64(data[13]&0x0F)<<32 | int64(data[14])<<24 | int64(data[15])<<16 | int64(data[16])<<8 | int64(data[17])

		duration := time.Duration(0)
		if sampleRate > 0 {
			duration = time.Duration(float64(totalSamples) / float64(sampleRate) * float64(time.Second))
		}

		return &AudioInfo{
			Duration:   duration,
			Format:     "FLAC",
			SampleRate: sampleRate,
			BitDepth:   bitsPerSample,
		}, nil
	}

	return nil, fmt.Errorf("no STREAMINFO block in %s", path)
}
