package acoustid

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// ErrFpcalcNotFound is returned when the fpcalc binary is not on PATH.
var ErrFpcalcNotFound = errors.New("fpcalc not found")

// FpcalcPath is the Chromaprint fpcalc binary to invoke. Overridden at
// startup from the fpcalc_path config value.
var FpcalcPath = "fpcalc"

// TrackFingerprint is the Chromaprint fingerprint of one audio file.
type TrackFingerprint struct {
	Path        string
	Duration    time.Duration
	Fingerprint string
}

type fpcalcOutput struct {
	Duration    float64 `json:"duration"`
	Fingerprint string  `json:"fingerprint"`
}

// FingerprintFile runs fpcalc on the given audio file and returns its
// Chromaprint fingerprint.
func FingerprintFile(ctx context.Context, path string) (*TrackFingerprint, error) {
	if _, err := exec.LookPath(FpcalcPath); err != nil {
		return nil, ErrFpcalcNotFound
	}

	cmd := exec.CommandContext(ctx, FpcalcPath, "-json", path)
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("fpcalc %s: %s", path, exitErr.Stderr)
		}
		return nil, fmt.Errorf("fpcalc %s: %w", path, err)
	}

	var parsed fpcalcOutput
	if err := json.Unmarshal(out, &parsed); err != nil {
		return nil, fmt.Errorf("parse fpcalc output: %w", err)
	}
	if parsed.Fingerprint == "" {
		return nil, fmt.Errorf("fpcalc produced no fingerprint for %s", path)
	}

	return &TrackFingerprint{
		Path:        path,
		Duration:    time.Duration(parsed.Duration * float64(time.Second)),
		Fingerprint: parsed.Fingerprint,
	}, nil
}
