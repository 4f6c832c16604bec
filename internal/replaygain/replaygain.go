// Package replaygain computes ReplayGain 2.0 values by measuring EBU R128
// loudness with ffmpeg.
package replaygain

import (
	"context"
	"fmt"
	"math"
	"os/exec"
	"regexp"
	"strconv"

	"github.com/MattiVenturelli/musictaggerz/internal/logger"
)

// FfmpegPath is the ffmpeg binary used for loudness analysis. Overridden at
// startup from the ffmpeg_path config value.
var FfmpegPath = "ffmpeg"

// DefaultReferenceLoudness is the ReplayGain 2.0 reference level in LUFS,
// used when the replaygain_reference_loudness setting is absent.
const DefaultReferenceLoudness = -18.0

// r128Reference is the EBU R128 reference used by Opus players. R128 gain
// values carry the offset between the two references.
const r128Reference = -23.0

var (
	integratedRe = regexp.MustCompile(`I:\s+([-\d.]+)\s+LUFS`)
	truePeakRe   = regexp.MustCompile(`True peak:\s*\n\s*Peak:\s+([-\d.]+)\s+dBFS`)
	peakRe       = regexp.MustCompile(`Peak:\s+([-\d.]+)\s+dBFS`)
)

// TrackLoudness holds the loudness measurement of a single file and its
// formatted ReplayGain tag values.
type TrackLoudness struct {
	Path               string
	IntegratedLoudness float64 // LUFS
	TruePeakDB         float64 // dBFS

	Gain     string // e.g. "+3.04 dB"
	Peak     string // linear, e.g. "0.988553"
	R128Gain string // Q7.8 integer for Opus players
}

// AlbumGain holds album-level ReplayGain values plus per-track measurements
// keyed by file path.
type AlbumGain struct {
	Gain     string
	Peak     string
	R128Gain string
	Tracks   map[string]*TrackLoudness
}

// FormatGain renders a gain in the tag format, e.g. "-1.50 dB".
func FormatGain(gainDB float64) string {
	return fmt.Sprintf("%+.2f dB", gainDB)
}

// FormatPeak renders a linear peak in the tag format, e.g. "0.988553".
func FormatPeak(peakLinear float64) string {
	return fmt.Sprintf("%.6f", peakLinear)
}

// FormatR128 renders a gain as the Q7.8 fixed-point integer used by
// R128_TRACK_GAIN and R128_ALBUM_GAIN tags.
func FormatR128(gainDB float64) string {
	return strconv.Itoa(int(math.Round(gainDB * 256)))
}

// r128Gain shifts a ReplayGain value to the -23 LUFS R128 reference.
func r128Gain(gainDB, reference float64) string {
	return FormatR128(gainDB + (reference - r128Reference))
}

// AnalyzeTrack measures one file with ffmpeg's ebur128 filter. reference is
// the target loudness in LUFS, normally DefaultReferenceLoudness.
func AnalyzeTrack(ctx context.Context, path string, reference float64) (*TrackLoudness, error) {
	cmd := exec.CommandContext(ctx, FfmpegPath,
		"-i", path,
		"-af", "ebur128=peak=true",
		"-f", "null", "-")

	// ffmpeg prints the loudness summary on stderr and exits 0
	out, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg %s: %w", path, err)
	}
	return parseLoudness(path, string(out), reference)
}

func parseLoudness(path, output string, reference float64) (*TrackLoudness, error) {
	im := integratedRe.FindStringSubmatch(output)
	if im == nil {
		return nil, fmt.Errorf("no integrated loudness in ffmpeg output for %s", path)
	}
	integrated, err := strconv.ParseFloat(im[1], 64)
	if err != nil {
		return nil, fmt.Errorf("parse integrated loudness: %w", err)
	}

	pm := truePeakRe.FindStringSubmatch(output)
	if pm == nil {
		pm = peakRe.FindStringSubmatch(output)
	}
	if pm == nil {
		return nil, fmt.Errorf("no true peak in ffmpeg output for %s", path)
	}
	truePeak, err := strconv.ParseFloat(pm[1], 64)
	if err != nil {
		return nil, fmt.Errorf("parse true peak: %w", err)
	}

	gainDB := reference - integrated
	return &TrackLoudness{
		Path:               path,
		IntegratedLoudness: integrated,
		TruePeakDB:         truePeak,
		Gain:               FormatGain(gainDB),
		Peak:               FormatPeak(math.Pow(10, truePeak/20)),
		R128Gain:           r128Gain(gainDB, reference),
	}, nil
}

// AnalyzeAlbum measures every file and derives album gain from the
// energy-based mean loudness, album peak from the loudest track. Files that
// fail to analyze are skipped; returns nil when none succeed.
func AnalyzeAlbum(ctx context.Context, paths []string, reference float64) *AlbumGain {
	tracks := make(map[string]*TrackLoudness, len(paths))
	for _, path := range paths {
		tl, err := AnalyzeTrack(ctx, path, reference)
		if err != nil {
			logger.Warnf(ctx, "replaygain analysis failed: %v", err)
			continue
		}
		tracks[path] = tl
	}
	if len(tracks) == 0 {
		return nil
	}

	var energySum, maxPeak float64
	for _, tl := range tracks {
		energySum += math.Pow(10, tl.IntegratedLoudness/10)
		maxPeak = math.Max(maxPeak, math.Pow(10, tl.TruePeakDB/20))
	}
	meanLoudness := -70.0
	if mean := energySum / float64(len(tracks)); mean > 0 {
		meanLoudness = 10 * math.Log10(mean)
	}

	albumGainDB := reference - meanLoudness
	return &AlbumGain{
		Gain:     FormatGain(albumGainDB),
		Peak:     FormatPeak(maxPeak),
		R128Gain: r128Gain(albumGainDB, reference),
		Tracks:   tracks,
	}
}
