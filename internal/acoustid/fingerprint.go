package acoustid

import (
	"context"
	"sort"
	"time"

	"github.com/MattiVenturelli/musictaggerz/internal/logger"
	"github.com/MattiVenturelli/musictaggerz/internal/tags"
)

const (
	// Tracks shorter than this produce unreliable fingerprints.
	minTrackDuration = 30 * time.Second

	maxFingerprintTracks = 5
	maxReleaseCandidates = 10
)

// Match aggregates fingerprint lookups for one MusicBrainz release: how many
// of the fingerprinted tracks resolved to it and with what confidence.
type Match struct {
	ReleaseID     string
	MatchedTracks int
	TotalTracks   int
	AvgScore      float64
	RecordingIDs  []string
}

// Fingerprinter identifies albums by acoustic fingerprint.
type Fingerprinter struct {
	client *Client
}

// NewFingerprinter creates a Fingerprinter using the given AcoustID client.
func NewFingerprinter(client *Client) *Fingerprinter {
	return &Fingerprinter{client: client}
}

// IdentifyAlbum fingerprints a sample of the album's tracks, looks each one
// up on AcoustID and aggregates the results into ranked release candidates.
// Fingerprinting is best effort: a missing fpcalc binary, lookup failures or
// short tracks reduce the result, never fail the call.
func (f *Fingerprinter) IdentifyAlbum(ctx context.Context, files []*tags.FileInfo) []Match {
	if f.client == nil || f.client.apiKey == "" {
		logger.Debugf(ctx, "no AcoustID API key configured, skipping fingerprint identification")
		return nil
	}

	selected := selectTracks(files, maxFingerprintTracks)
	if len(selected) == 0 {
		logger.Warnf(ctx, "no tracks eligible for fingerprinting")
		return nil
	}

	var fingerprints []*TrackFingerprint
	for _, file := range selected {
		fp, err := FingerprintFile(ctx, file.Path)
		if err != nil {
			if err == ErrFpcalcNotFound {
				logger.Warnf(ctx, "fpcalc not installed, skipping fingerprint identification")
				return nil
			}
			logger.Warnf(ctx, "fingerprint failed for %s: %v", file.Path, err)
			continue
		}
		fingerprints = append(fingerprints, fp)
	}
	if len(fingerprints) == 0 {
		logger.Warnf(ctx, "all fingerprint attempts failed")
		return nil
	}

	logger.Infof(ctx, "fingerprinted %d/%d tracks, looking up on AcoustID", len(fingerprints), len(selected))

	lookups := make([][]Result, 0, len(fingerprints))
	for _, fp := range fingerprints {
		results, err := f.client.Lookup(ctx, fp.Fingerprint, fp.Duration)
		if err != nil {
			logger.Warnf(ctx, "acoustid lookup failed for %s: %v", fp.Path, err)
			continue
		}
		lookups = append(lookups, results)
	}

	return aggregateReleases(lookups)
}

// selectTracks picks up to max tracks spread evenly across the album,
// skipping tracks too short to fingerprint reliably.
func selectTracks(files []*tags.FileInfo, max int) []*tags.FileInfo {
	var eligible []*tags.FileInfo
	for _, f := range files {
		if f.Duration >= minTrackDuration {
			eligible = append(eligible, f)
		}
	}
	if len(eligible) <= max {
		return eligible
	}

	step := float64(len(eligible)) / float64(max)
	selected := make([]*tags.FileInfo, 0, max)
	for j := 0; j < max; j++ {
		selected = append(selected, eligible[int(float64(j)*step)])
	}
	return selected
}

// aggregateReleases groups lookup results by release. Each fingerprinted
// track votes at most once per release regardless of how many of its
// recordings list that release.
func aggregateReleases(lookups [][]Result) []Match {
	type tally struct {
		scores     []float64
		recordings map[string]struct{}
	}
	releases := make(map[string]*tally)

	for _, results := range lookups {
		seen := make(map[string]struct{})
		for _, r := range results {
			for _, releaseID := range r.ReleaseIDs {
				if _, dup := seen[releaseID]; dup {
					continue
				}
				seen[releaseID] = struct{}{}

				t := releases[releaseID]
				if t == nil {
					t = &tally{recordings: make(map[string]struct{})}
					releases[releaseID] = t
				}
				t.scores = append(t.scores, r.Score)
				t.recordings[r.RecordingID] = struct{}{}
			}
		}
	}

	matches := make([]Match, 0, len(releases))
	for releaseID, t := range releases {
		var sum float64
		for _, s := range t.scores {
			sum += s
		}
		recordingIDs := make([]string, 0, len(t.recordings))
		for id := range t.recordings {
			recordingIDs = append(recordingIDs, id)
		}
		sort.Strings(recordingIDs)
		matches = append(matches, Match{
			ReleaseID:     releaseID,
			MatchedTracks: len(t.scores),
			TotalTracks:   len(lookups),
			AvgScore:      sum / float64(len(t.scores)),
			RecordingIDs:  recordingIDs,
		})
	}

	sort.Slice(matches, func(a, b int) bool {
		if matches[a].MatchedTracks != matches[b].MatchedTracks {
			return matches[a].MatchedTracks > matches[b].MatchedTracks
		}
		if matches[a].AvgScore != matches[b].AvgScore {
			return matches[a].AvgScore > matches[b].AvgScore
		}
		return matches[a].ReleaseID < matches[b].ReleaseID
	})
	if len(matches) > maxReleaseCandidates {
		matches = matches[:maxReleaseCandidates]
	}
	return matches
}
