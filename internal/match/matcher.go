package match

import (
	"context"
	"fmt"
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/MattiVenturelli/musictaggerz/internal/acoustid"
	"github.com/MattiVenturelli/musictaggerz/internal/folder"
	"github.com/MattiVenturelli/musictaggerz/internal/logger"
	"github.com/MattiVenturelli/musictaggerz/internal/musicbrainz"
	"github.com/MattiVenturelli/musictaggerz/internal/store"
)

// Decision is what the matcher recommends doing with an album.
type Decision string

const (
	DecisionAutoTag     Decision = "auto_tag"
	DecisionNeedsReview Decision = "needs_review"
	DecisionNoMatch     Decision = "no_match"
)

const (
	// Full release details are only fetched for the best pre-scored stubs.
	detailsFetchLimit = 5

	detailsCacheSize = 256
)

// releaseSearcher is the MusicBrainz surface the matcher needs.
type releaseSearcher interface {
	SearchReleases(ctx context.Context, artist, album string) ([]musicbrainz.Release, error)
	GetRelease(ctx context.Context, mbid string) (*musicbrainz.ReleaseDetails, error)
}

// Matcher finds and scores MusicBrainz candidates for local album folders.
type Matcher struct {
	mb       releaseSearcher
	settings *store.Settings
	details  *lru.Cache[string, *musicbrainz.ReleaseDetails]
}

// New creates a Matcher. Release details are cached across match runs since
// retries and multi-disc albums often resolve the same releases.
func New(mb releaseSearcher, settings *store.Settings) *Matcher {
	cache, _ := lru.New[string, *musicbrainz.ReleaseDetails](detailsCacheSize)
	return &Matcher{mb: mb, settings: settings, details: cache}
}

// Options modify a single match run.
type Options struct {
	// ReleaseID forces the given MusicBrainz release, skipping search and
	// scoring entirely.
	ReleaseID string

	// UserInitiated marks jobs started explicitly by the user. These keep
	// their auto_tag decision even in manual tagging mode.
	UserInitiated bool

	// Fingerprints are aggregated AcoustID matches for the album, used both
	// to seed candidates when text search fails and as a scoring bonus.
	Fingerprints []acoustid.Match
}

// Result is the outcome of a match run.
type Result struct {
	Candidates []*Score
	Decision   Decision
}

// Best returns the top candidate, nil when there is none.
func (r *Result) Best() *Score {
	if len(r.Candidates) == 0 {
		return nil
	}
	return r.Candidates[0]
}

// Match searches MusicBrainz for the local album and returns scored
// candidates with a tagging decision.
func (m *Matcher) Match(ctx context.Context, local *folder.Info, opts Options) (*Result, error) {
	if opts.ReleaseID != "" {
		return m.matchForced(ctx, opts.ReleaseID)
	}
	if local.Artist == "" && local.Album == "" {
		logger.Warnf(ctx, "no artist/album metadata for %s, skipping match", local.Path)
		return &Result{Decision: DecisionNoMatch}, nil
	}

	pool, err := m.collectCandidates(ctx, local)
	if err != nil {
		return nil, err
	}

	fpByRelease := make(map[string]*acoustid.Match, len(opts.Fingerprints))
	for i := range opts.Fingerprints {
		fpByRelease[opts.Fingerprints[i].ReleaseID] = &opts.Fingerprints[i]
	}

	// When text search comes up empty the fingerprints become the primary
	// signal: resolve their releases directly.
	if len(pool) == 0 && len(opts.Fingerprints) > 0 {
		logger.Infof(ctx, "no text search results for %s, seeding candidates from fingerprints", local.Path)
		pool = m.candidatesFromFingerprints(ctx, opts.Fingerprints)
	}
	if len(pool) == 0 {
		logger.Warnf(ctx, "no MusicBrainz results for %q - %q", local.Artist, local.Album)
		return &Result{Decision: DecisionNoMatch}, nil
	}

	p := prefs{
		media:     m.settings.StringSlice(store.SettingPreferredMedia, nil),
		countries: m.settings.StringSlice(store.SettingPreferredCountries, nil),
	}

	// Phase one: score the search stubs without fetching anything.
	localCount := local.TrackCount()
	preScored := make([]*Score, 0, len(pool))
	for _, release := range pool {
		if localCount > 0 && release.TrackCount > 2*localCount {
			logger.Debugf(ctx, "skipping %s: track count %d vs local %d", release.ID, release.TrackCount, localCount)
			continue
		}
		preScored = append(preScored, preScore(local, release, p))
	}
	sort.SliceStable(preScored, func(a, b int) bool {
		return preScored[a].Total > preScored[b].Total
	})

	// Phase two: fetch details for the best stubs and complete their scores.
	candidates := make([]*Score, 0, detailsFetchLimit)
	for _, s := range preScored {
		if len(candidates) == detailsFetchLimit {
			break
		}
		details, err := m.releaseDetails(ctx, s.Release.ID)
		if err != nil {
			logger.Warnf(ctx, "fetching release %s: %v", s.Release.ID, err)
			continue
		}
		finishScore(s, local, details, fpByRelease[s.Release.ID])
		candidates = append(candidates, s)
	}

	sort.SliceStable(candidates, func(a, b int) bool {
		return candidates[a].Total > candidates[b].Total
	})

	result := &Result{Candidates: candidates}
	if best := result.Best(); best != nil {
		result.Decision = m.decide(best.Total, opts.UserInitiated)
	} else {
		result.Decision = DecisionNoMatch
	}
	return result, nil
}

// matchForced builds a score-100 result for an explicitly chosen release.
func (m *Matcher) matchForced(ctx context.Context, releaseID string) (*Result, error) {
	details, err := m.releaseDetails(ctx, releaseID)
	if err != nil {
		return nil, fmt.Errorf("fetch forced release %s: %w", releaseID, err)
	}
	s := &Score{
		Release: details.Release,
		Details: details,
		Total:   100,
		Reasons: []string{"Release chosen explicitly"},
	}
	return &Result{Candidates: []*Score{s}, Decision: DecisionAutoTag}, nil
}

// collectCandidates tries the search variants from most to least specific and
// returns the results of the first variant that finds anything. Every search
// burns at least a second of rate limit, so later variants only run when the
// earlier ones came up empty.
func (m *Matcher) collectCandidates(ctx context.Context, local *folder.Info) ([]musicbrainz.Release, error) {
	for _, v := range searchVariants(local.Artist, local.Album) {
		releases, err := m.mb.SearchReleases(ctx, v.Artist, v.Album)
		if err != nil {
			return nil, fmt.Errorf("search releases: %w", err)
		}
		if len(releases) > 0 {
			return releases, nil
		}
		logger.Debugf(ctx, "no results for %q - %q, trying next variant", v.Artist, v.Album)
	}
	return nil, nil
}

// candidatesFromFingerprints resolves fingerprint release IDs into search
// stubs via the details endpoint.
func (m *Matcher) candidatesFromFingerprints(ctx context.Context, fps []acoustid.Match) []musicbrainz.Release {
	var pool []musicbrainz.Release
	for _, fp := range fps {
		if len(pool) == detailsFetchLimit {
			break
		}
		details, err := m.releaseDetails(ctx, fp.ReleaseID)
		if err != nil {
			logger.Debugf(ctx, "fetching fingerprint release %s: %v", fp.ReleaseID, err)
			continue
		}
		pool = append(pool, details.Release)
	}
	return pool
}

func (m *Matcher) releaseDetails(ctx context.Context, mbid string) (*musicbrainz.ReleaseDetails, error) {
	if details, ok := m.details.Get(mbid); ok {
		return details, nil
	}
	details, err := m.mb.GetRelease(ctx, mbid)
	if err != nil {
		return nil, err
	}
	m.details.Add(mbid, details)
	return details, nil
}

// decide maps a confidence score to a tagging decision using the configured
// thresholds. Manual tagging mode downgrades auto_tag to needs_review unless
// the job was started by the user.
func (m *Matcher) decide(score float64, userInitiated bool) Decision {
	autoThreshold := m.settings.Float(store.SettingConfidenceAutoThreshold, 85)
	reviewThreshold := m.settings.Float(store.SettingConfidenceReviewThreshold, 50)

	switch {
	case score >= autoThreshold:
		if m.settings.String(store.SettingTaggingMode, store.TaggingModeAuto) == store.TaggingModeManual && !userInitiated {
			return DecisionNeedsReview
		}
		return DecisionAutoTag
	case score >= reviewThreshold:
		return DecisionNeedsReview
	default:
		return DecisionNoMatch
	}
}
