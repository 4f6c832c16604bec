package match

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/MattiVenturelli/musictaggerz/internal/acoustid"
	"github.com/MattiVenturelli/musictaggerz/internal/folder"
	"github.com/MattiVenturelli/musictaggerz/internal/musicbrainz"
	"github.com/MattiVenturelli/musictaggerz/internal/tags"
)

// Score is a scored MusicBrainz release candidate. Component fields hold the
// points each criterion contributed; Reasons holds human-readable lines for
// the review UI and activity log.
type Score struct {
	Release musicbrainz.Release
	Details *musicbrainz.ReleaseDetails

	Total       float64
	Artist      float64
	Album       float64
	TrackCount  float64
	Duration    float64
	Media       float64
	Country     float64
	Year        float64
	Fingerprint float64
	Penalty     float64

	Reasons []string
}

// prefs are the scoring preferences snapshot taken once per match run.
type prefs struct {
	media     []string
	countries []string
}

func (s *Score) add(points float64, reason string) {
	s.Reasons = append(s.Reasons, reason)
	s.Total += points
}

// preScore scores a search stub on everything that does not require full
// release details: artist, album, track count, media, country and year.
func preScore(local *folder.Info, release musicbrainz.Release, p prefs) *Score {
	s := &Score{Release: release}

	s.Artist = scoreArtist(s, local, release)
	s.Album = scoreAlbum(s, local, release)
	s.TrackCount = scoreTrackCount(s, local, release)
	s.Media = scoreMedia(s, release, p)
	s.Country = scoreCountry(s, release, p)
	s.Year = scoreYear(s, local.Year, release.Year())

	return s
}

// finishScore completes a pre-scored candidate with full release details:
// per-track durations, the release-group original year, the fingerprint
// bonus and penalties.
func finishScore(s *Score, local *folder.Info, details *musicbrainz.ReleaseDetails, fp *acoustid.Match) {
	s.Details = details
	s.Release = details.Release

	s.Duration = scoreDurations(s, local, details)

	// Re-score year against the release group's first release date. A 1985
	// album reissued in 2010 should still match a local year of 1985.
	if details.OriginalYear != 0 && details.OriginalYear != details.Year() {
		s.Total -= s.Year
		s.Year = scoreYear(s, local.Year, details.OriginalYear)
	}

	if fp != nil {
		s.Fingerprint = scoreFingerprint(s, fp)
	}

	s.Penalty = scorePenalties(s, local, details)
	s.Total -= s.Penalty

	s.Total = math.Max(0, math.Min(100, s.Total))
}

func scoreArtist(s *Score, local *folder.Info, release musicbrainz.Release) float64 {
	sim := Similarity(local.Artist, release.Artist)
	pts := sim * 15
	s.add(pts, fmt.Sprintf("Artist similarity: %.0f%% (%.1f/15)", sim*100, pts))
	return pts
}

func scoreAlbum(s *Score, local *folder.Info, release musicbrainz.Release) float64 {
	sim := Similarity(local.Album, release.Title)
	if cleaned := cleanAlbumName(local.Album); cleaned != local.Album {
		sim = math.Max(sim, Similarity(cleaned, release.Title))
	}
	pts := sim * 15
	s.add(pts, fmt.Sprintf("Album similarity: %.0f%% (%.1f/15)", sim*100, pts))
	return pts
}

func scoreTrackCount(s *Score, local *folder.Info, release musicbrainz.Release) float64 {
	localCount := local.TrackCount()
	if localCount == 0 || release.TrackCount == 0 {
		s.add(0, "Track count unknown")
		return 0
	}

	diff := abs(localCount - release.TrackCount)
	var pts float64
	switch {
	case diff == 0:
		pts = 20
	case diff == 1:
		pts = 15
	case diff == 2:
		pts = 10
	case diff <= 4:
		pts = 5
	}
	s.add(pts, fmt.Sprintf("Track count: local=%d vs MB=%d (%.0f/20)", localCount, release.TrackCount, pts))
	return pts
}

// scoreDurations compares per-track durations in position order and scores
// the average relative deviation.
func scoreDurations(s *Score, local *folder.Info, details *musicbrainz.ReleaseDetails) float64 {
	localTracks := make([]*tags.FileInfo, 0, len(local.Files))
	for _, f := range local.Files {
		if f.Duration > 0 {
			localTracks = append(localTracks, f)
		}
	}
	sort.SliceStable(localTracks, func(a, b int) bool {
		da, db := discOrOne(localTracks[a].DiscNumber), discOrOne(localTracks[b].DiscNumber)
		if da != db {
			return da < db
		}
		return localTracks[a].TrackNumber < localTracks[b].TrackNumber
	})

	mbTracks := make([]musicbrainz.Track, len(details.Tracks))
	copy(mbTracks, details.Tracks)
	sort.SliceStable(mbTracks, func(a, b int) bool {
		if mbTracks[a].DiscNumber != mbTracks[b].DiscNumber {
			return mbTracks[a].DiscNumber < mbTracks[b].DiscNumber
		}
		return mbTracks[a].Position < mbTracks[b].Position
	})

	pairs := min(len(localTracks), len(mbTracks))
	if pairs == 0 {
		s.add(0, "No duration data available")
		return 0
	}

	var totalDeviation float64
	matched := 0
	for i := 0; i < pairs; i++ {
		localDur := localTracks[i].Duration.Seconds()
		mbDur := time.Duration(mbTracks[i].Length) * time.Millisecond
		if localDur > 0 && mbDur > 0 {
			totalDeviation += math.Abs(localDur-mbDur.Seconds()) / mbDur.Seconds()
			matched++
		}
	}
	if matched == 0 {
		s.add(0, "No duration comparisons possible")
		return 0
	}

	avg := totalDeviation / float64(matched)
	var pts float64
	switch {
	case avg <= 0.02:
		pts = 20
	case avg <= 0.05:
		pts = 16
	case avg <= 0.10:
		pts = 10
	case avg <= 0.20:
		pts = 5
	}
	s.add(pts, fmt.Sprintf("Avg duration deviation: %.1f%% over %d tracks (%.0f/20)", avg*100, matched, pts))
	return pts
}

func scoreMedia(s *Score, release musicbrainz.Release, p prefs) float64 {
	if release.Media == "" {
		s.add(5, "Media format unknown, neutral score")
		return 5
	}
	for i, m := range p.media {
		if m == release.Media {
			pts := math.Max(10-float64(i)*2, 6)
			s.add(pts, fmt.Sprintf("Preferred media: %s (%.0f/10)", release.Media, pts))
			return pts
		}
	}
	s.add(2, fmt.Sprintf("Non-preferred media: %s (2/10)", release.Media))
	return 2
}

func scoreCountry(s *Score, release musicbrainz.Release, p prefs) float64 {
	if release.Country == "" {
		s.add(5, "Country unknown, neutral score")
		return 5
	}
	for i, c := range p.countries {
		if c == release.Country {
			pts := math.Max(10-float64(i)*1.5, 5)
			s.add(pts, fmt.Sprintf("Preferred country: %s (%.0f/10)", release.Country, pts))
			return pts
		}
	}
	s.add(2, fmt.Sprintf("Non-preferred country: %s (2/10)", release.Country))
	return 2
}

func scoreYear(s *Score, localYear, mbYear int) float64 {
	if localYear == 0 || mbYear == 0 {
		s.add(5, "Year unknown, neutral score")
		return 5
	}
	diff := abs(localYear - mbYear)
	var pts float64
	switch {
	case diff == 0:
		pts = 10
	case diff <= 1:
		pts = 8
	case diff <= 3:
		pts = 5
	default:
		pts = 2
	}
	s.add(pts, fmt.Sprintf("Year: local=%d vs MB=%d (%.0f/10)", localYear, mbYear, pts))
	return pts
}

// scoreFingerprint converts an aggregated AcoustID match into bonus points:
// up to 10 for the share of fingerprinted tracks matching this release, up
// to 5 for the average confidence.
func scoreFingerprint(s *Score, fp *acoustid.Match) float64 {
	if fp.MatchedTracks == 0 || fp.TotalTracks == 0 {
		return 0
	}
	ratio := float64(fp.MatchedTracks) / float64(fp.TotalTracks)
	pts := math.Min(15, ratio*10+fp.AvgScore*5)
	s.add(pts, fmt.Sprintf("Fingerprint: %d/%d tracks, avg score %.2f (%.1f/15)",
		fp.MatchedTracks, fp.TotalTracks, fp.AvgScore, pts))
	return pts
}

func scorePenalties(s *Score, local *folder.Info, details *musicbrainz.ReleaseDetails) float64 {
	var penalty float64

	discs := make(map[int]struct{})
	for _, f := range local.Files {
		discs[discOrOne(f.DiscNumber)] = struct{}{}
	}

	if len(discs) <= 1 && details.TrackCount > local.TrackCount()+5 {
		penalty += 15
		s.Reasons = append(s.Reasons, fmt.Sprintf(
			"Multi-disc penalty: MB has %d tracks vs local %d (-15)", details.TrackCount, local.TrackCount()))
	}
	if len(discs) > 1 && details.DiscCount <= 1 {
		penalty += 10
		s.Reasons = append(s.Reasons, fmt.Sprintf(
			"Single-disc penalty: local has %d discs (-10)", len(discs)))
	}
	return penalty
}

func discOrOne(n int) int {
	if n == 0 {
		return 1
	}
	return n
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
