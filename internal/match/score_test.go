package match

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/MattiVenturelli/musictaggerz/internal/acoustid"
	"github.com/MattiVenturelli/musictaggerz/internal/folder"
	"github.com/MattiVenturelli/musictaggerz/internal/musicbrainz"
	"github.com/MattiVenturelli/musictaggerz/internal/tags"
)

var testPrefs = prefs{
	media:     []string{"Digital Media", "CD"},
	countries: []string{"US", "GB", "DE", "IT"},
}

func localAlbum(trackCount int, trackLen time.Duration) *folder.Info {
	info := &folder.Info{
		Artist: "Pink Floyd",
		Album:  "The Wall",
		Year:   1979,
	}
	for i := 0; i < trackCount; i++ {
		info.Files = append(info.Files, &tags.FileInfo{
			Tag:       tags.Tag{TrackNumber: i + 1},
			AudioInfo: tags.AudioInfo{Duration: trackLen},
		})
	}
	return info
}

func mbRelease(trackCount int) musicbrainz.Release {
	return musicbrainz.Release{
		ID:         "rel-1",
		Title:      "The Wall",
		Artist:     "Pink Floyd",
		Date:       "1979-11-30",
		Country:    "GB",
		Media:      "CD",
		TrackCount: trackCount,
		DiscCount:  1,
	}
}

func mbDetails(trackCount int, trackLenMs int) *musicbrainz.ReleaseDetails {
	d := &musicbrainz.ReleaseDetails{Release: mbRelease(trackCount)}
	for i := 0; i < trackCount; i++ {
		d.Tracks = append(d.Tracks, musicbrainz.Track{
			Position:   i + 1,
			DiscNumber: 1,
			Length:     trackLenMs,
		})
	}
	return d
}

func TestPreScore_PerfectStub(t *testing.T) {
	local := localAlbum(12, 3*time.Minute)
	s := preScore(local, mbRelease(12), testPrefs)

	assert.Equal(t, 15.0, s.Artist)
	assert.Equal(t, 15.0, s.Album)
	assert.Equal(t, 20.0, s.TrackCount)
	assert.Equal(t, 8.0, s.Media)  // CD is second preference
	assert.Equal(t, 8.5, s.Country) // GB is second preference
	assert.Equal(t, 10.0, s.Year)
	assert.Equal(t, 76.5, s.Total)
}

func TestFinishScore_PerfectMatch(t *testing.T) {
	local := localAlbum(12, 3*time.Minute)
	s := preScore(local, mbRelease(12), testPrefs)
	finishScore(s, local, mbDetails(12, 180000), nil)

	assert.Equal(t, 20.0, s.Duration)
	assert.Equal(t, 96.5, s.Total)
}

func TestFinishScore_FingerprintBonusAndClamp(t *testing.T) {
	local := localAlbum(12, 3*time.Minute)
	s := preScore(local, mbRelease(12), testPrefs)
	fp := &acoustid.Match{ReleaseID: "rel-1", MatchedTracks: 5, TotalTracks: 5, AvgScore: 1.0}
	finishScore(s, local, mbDetails(12, 180000), fp)

	assert.Equal(t, 15.0, s.Fingerprint)
	assert.Equal(t, 100.0, s.Total, "score is clamped to 100")
}

func TestFinishScore_OriginalYearPreferred(t *testing.T) {
	local := localAlbum(12, 3*time.Minute)
	release := mbRelease(12)
	release.Date = "2011-09-26" // remaster reissue
	s := preScore(local, release, testPrefs)
	assert.Equal(t, 2.0, s.Year)

	details := mbDetails(12, 180000)
	details.Release.Date = "2011-09-26"
	details.OriginalYear = 1979
	finishScore(s, local, details, nil)

	assert.Equal(t, 10.0, s.Year)
}

func TestTrackCountScoring(t *testing.T) {
	tests := []struct {
		mbCount int
		want    float64
	}{
		{12, 20}, {13, 15}, {10, 10}, {16, 5}, {20, 0},
	}
	local := localAlbum(12, 3*time.Minute)
	for _, tt := range tests {
		s := &Score{}
		got := scoreTrackCount(s, local, mbRelease(tt.mbCount))
		assert.Equal(t, tt.want, got, "mb track count %d", tt.mbCount)
	}
}

func TestDurationScoring(t *testing.T) {
	tests := []struct {
		name     string
		localLen time.Duration
		mbLenMs  int
		want     float64
	}{
		{"exact", 180 * time.Second, 180000, 20},
		{"within 5%", 180 * time.Second, 187000, 16},
		{"within 10%", 180 * time.Second, 195000, 10},
		{"within 20%", 180 * time.Second, 210000, 5},
		{"way off", 180 * time.Second, 300000, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			local := localAlbum(10, tt.localLen)
			s := &Score{}
			got := scoreDurations(s, local, mbDetails(10, tt.mbLenMs))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDurationScoring_NoData(t *testing.T) {
	local := localAlbum(10, 0)
	s := &Score{}
	assert.Equal(t, 0.0, scoreDurations(s, local, mbDetails(10, 180000)))
}

func TestMediaAndCountryScoring(t *testing.T) {
	s := &Score{}
	assert.Equal(t, 10.0, scoreMedia(s, musicbrainz.Release{Media: "Digital Media"}, testPrefs))
	assert.Equal(t, 8.0, scoreMedia(s, musicbrainz.Release{Media: "CD"}, testPrefs))
	assert.Equal(t, 5.0, scoreMedia(s, musicbrainz.Release{}, testPrefs))
	assert.Equal(t, 2.0, scoreMedia(s, musicbrainz.Release{Media: "Cassette"}, testPrefs))

	assert.Equal(t, 10.0, scoreCountry(s, musicbrainz.Release{Country: "US"}, testPrefs))
	assert.Equal(t, 8.5, scoreCountry(s, musicbrainz.Release{Country: "GB"}, testPrefs))
	assert.Equal(t, 7.0, scoreCountry(s, musicbrainz.Release{Country: "DE"}, testPrefs))
	assert.Equal(t, 5.5, scoreCountry(s, musicbrainz.Release{Country: "IT"}, testPrefs))
	assert.Equal(t, 5.0, scoreCountry(s, musicbrainz.Release{}, testPrefs))
	assert.Equal(t, 2.0, scoreCountry(s, musicbrainz.Release{Country: "JP"}, testPrefs))
}

func TestPenalty_SingleDiscLocalVsBigRelease(t *testing.T) {
	local := localAlbum(10, 3*time.Minute)
	s := preScore(local, mbRelease(26), testPrefs)
	finishScore(s, local, mbDetails(26, 180000), nil)
	assert.Equal(t, 15.0, s.Penalty)
}

func TestPenalty_MultiDiscLocalVsSingleDisc(t *testing.T) {
	local := localAlbum(10, 3*time.Minute)
	for i, f := range local.Files {
		if i >= 5 {
			f.DiscNumber = 2
		} else {
			f.DiscNumber = 1
		}
	}
	s := preScore(local, mbRelease(10), testPrefs)
	finishScore(s, local, mbDetails(10, 180000), nil)
	assert.Equal(t, 10.0, s.Penalty)
}

func TestFingerprintScore_Capped(t *testing.T) {
	s := &Score{}
	got := scoreFingerprint(s, &acoustid.Match{MatchedTracks: 5, TotalTracks: 5, AvgScore: 1.0})
	assert.Equal(t, 15.0, got)

	s = &Score{}
	got = scoreFingerprint(s, &acoustid.Match{MatchedTracks: 3, TotalTracks: 5, AvgScore: 0.9})
	assert.InDelta(t, 10.5, got, 0.001)
}
