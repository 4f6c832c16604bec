// Package pipeline runs the full tagging workflow for one album: read the
// folder, fingerprint, match against MusicBrainz, then write tags, artwork,
// lyrics and ReplayGain back into the files.
package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/MattiVenturelli/musictaggerz/internal/acoustid"
	"github.com/MattiVenturelli/musictaggerz/internal/artwork"
	dbutil "github.com/MattiVenturelli/musictaggerz/internal/db"
	"github.com/MattiVenturelli/musictaggerz/internal/errmsg"
	"github.com/MattiVenturelli/musictaggerz/internal/events"
	"github.com/MattiVenturelli/musictaggerz/internal/folder"
	"github.com/MattiVenturelli/musictaggerz/internal/logger"
	"github.com/MattiVenturelli/musictaggerz/internal/lrclib"
	"github.com/MattiVenturelli/musictaggerz/internal/match"
	"github.com/MattiVenturelli/musictaggerz/internal/musicbrainz"
	"github.com/MattiVenturelli/musictaggerz/internal/replaygain"
	"github.com/MattiVenturelli/musictaggerz/internal/store"
	"github.com/MattiVenturelli/musictaggerz/internal/tags"
)

// Outcome is the result of a tagging run, used by the queue to decide
// whether to retry.
type Outcome string

const (
	OutcomeTagged      Outcome = "tagged"
	OutcomeNeedsReview Outcome = "needs_review"
	OutcomeSkipped     Outcome = "skipped"
	OutcomeFailed      Outcome = "failed"
)

// Options modify a single tagging run.
type Options struct {
	// ReleaseID forces a specific MusicBrainz release, bypassing matching.
	ReleaseID string

	// UserInitiated marks runs started explicitly by the user.
	UserInitiated bool
}

type albumMatcher interface {
	Match(ctx context.Context, local *folder.Info, opts match.Options) (*match.Result, error)
}

type fingerprinter interface {
	IdentifyAlbum(ctx context.Context, files []*tags.FileInfo) []acoustid.Match
}

type artworkFinder interface {
	Find(ctx context.Context, req artwork.Request) (*artwork.Candidate, error)
}

type lyricsFetcher interface {
	Fetch(ctx context.Context, artist, title, album string, duration time.Duration) (*lrclib.LyricsResult, error)
}

type backupCreator interface {
	Create(ctx context.Context, albumID int64, action string, trackIDs []int64) (string, error)
}

// Pipeline orchestrates tagging runs. All external effects go through small
// interfaces or swappable functions so runs can be tested without network,
// ffmpeg or fpcalc.
type Pipeline struct {
	store   *store.Store
	reader  *folder.Reader
	matcher albumMatcher
	fp      fingerprinter
	artwork artworkFinder
	backups backupCreator
	lyrics  lyricsFetcher
	bus     *events.Bus

	writeTags   func(path string, t *tags.Tag) error
	saveArtwork func(ctx context.Context, folderPath string, c *artwork.Candidate) (string, error)
	analyzeGain func(ctx context.Context, paths []string, reference float64) *replaygain.AlbumGain
}

// New creates a Pipeline. fp, artwork, backups, lyrics and bus may be nil;
// the corresponding steps are then skipped.
func New(st *store.Store, reader *folder.Reader, matcher albumMatcher, fp fingerprinter,
	art artworkFinder, backups backupCreator, lyrics lyricsFetcher, bus *events.Bus) *Pipeline {
	return &Pipeline{
		store:       st,
		reader:      reader,
		matcher:     matcher,
		fp:          fp,
		artwork:     art,
		backups:     backups,
		lyrics:      lyrics,
		bus:         bus,
		writeTags:   tags.Write,
		saveArtwork: artwork.SaveToFolder,
		analyzeGain: replaygain.AnalyzeAlbum,
	}
}

// TagAlbum runs the tagging workflow for one album. Errors mark the album
// failed with a truncated message; the returned Outcome tells the queue
// whether a retry makes sense.
func (p *Pipeline) TagAlbum(ctx context.Context, albumID int64, opts Options) (Outcome, error) {
	album, err := p.store.AlbumByID(albumID)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("load album %d: %w", albumID, err)
	}
	logger.Infof(ctx, "processing album %d: %s - %s", albumID, album.Artist, album.Title)

	p.setStatus(ctx, albumID, store.StatusTagging, "")

	outcome, err := p.run(ctx, album, opts)
	if err != nil {
		logger.Errorf(ctx, "tagging album %d: %v", albumID, err)
		p.setStatus(ctx, albumID, store.StatusFailed, err.Error())
		p.notify("error", errmsg.FormatWith(errmsg.OpTagAlbum,
			fmt.Sprintf("%s - %s", album.Artist, album.Title), err))
		return OutcomeFailed, err
	}
	return outcome, nil
}

func (p *Pipeline) run(ctx context.Context, album *store.Album, opts Options) (Outcome, error) {
	info, err := p.reader.ReadAlbum(album.Path)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("read album folder: %w", err)
	}
	if info.TrackCount() == 0 {
		return OutcomeFailed, errors.New("could not read audio files")
	}

	p.progress(album.ID, "matching", "searching MusicBrainz")
	result, err := p.matcher.Match(ctx, info, match.Options{
		ReleaseID:     opts.ReleaseID,
		UserInitiated: opts.UserInitiated,
	})
	if err != nil {
		return OutcomeFailed, fmt.Errorf("match: %w", err)
	}

	// Fingerprinting is slow (fpcalc per file plus AcoustID lookups), so it
	// only runs when the text match was not good enough on its own.
	if opts.ReleaseID == "" && p.shouldFingerprint(result) {
		p.progress(album.ID, "fingerprinting", "identifying tracks")
		if fps := p.fp.IdentifyAlbum(ctx, info.Files); len(fps) > 0 {
			p.progress(album.ID, "matching", "rescoring with fingerprints")
			result, err = p.matcher.Match(ctx, info, match.Options{
				UserInitiated: opts.UserInitiated,
				Fingerprints:  fps,
			})
			if err != nil {
				return OutcomeFailed, fmt.Errorf("match with fingerprints: %w", err)
			}
		}
	}

	best := result.Best()
	if len(result.Candidates) > 0 {
		p.storeCandidates(ctx, album.ID, result.Candidates, best)
	}

	switch result.Decision {
	case match.DecisionNoMatch:
		p.setStatus(ctx, album.ID, store.StatusFailed, "No MusicBrainz matches found")
		p.logActivity(ctx, album.ID, store.ActionMatchFailed, "No results")
		return OutcomeFailed, nil

	case match.DecisionNeedsReview:
		if err := p.store.UpdateAlbumMatch(album.ID, store.StatusNeedsReview, best.Total, "", ""); err != nil {
			return OutcomeFailed, fmt.Errorf("update album: %w", err)
		}
		p.logActivity(ctx, album.ID, store.ActionNeedsReview,
			fmt.Sprintf("Best: %s (%.0f%%)", best.Release.Title, best.Total))
		p.publishAlbum(album.ID, store.StatusNeedsReview, best.Total)
		logger.Infof(ctx, "album %d queued for review (best %.1f)", album.ID, best.Total)
		return OutcomeNeedsReview, nil
	}

	details := best.Details
	if details == nil {
		return OutcomeFailed, fmt.Errorf("no release details for %s", best.Release.ID)
	}

	// Files already carrying the chosen release have nothing to gain from
	// another write, unless the user asked for one.
	if opts.ReleaseID == "" && !opts.UserInitiated && info.MBReleaseID == details.ID {
		p.setStatus(ctx, album.ID, store.StatusSkipped, "")
		p.logActivity(ctx, album.ID, store.ActionSkipped,
			fmt.Sprintf("Already tagged with release %s", details.ID))
		return OutcomeSkipped, nil
	}

	if err := p.tagRelease(ctx, album, info, best, opts); err != nil {
		return OutcomeFailed, err
	}
	return OutcomeTagged, nil
}

// shouldFingerprint decides whether acoustic fingerprints are worth the time:
// only when enabled, and only when text search found nothing or its best
// candidate scores below the auto-tag threshold.
func (p *Pipeline) shouldFingerprint(result *match.Result) bool {
	if p.fp == nil || !p.store.Settings().Bool(store.SettingFingerprintEnabled, false) {
		return false
	}
	best := result.Best()
	if best == nil {
		return true
	}
	return best.Total < p.store.Settings().Float(store.SettingConfidenceAutoThreshold, 85)
}

// tagRelease writes the chosen release into every file of the album.
func (p *Pipeline) tagRelease(ctx context.Context, album *store.Album, info *folder.Info, best *match.Score, opts Options) error {
	details := best.Details
	settings := p.store.Settings()

	if p.backups != nil && settings.Bool(store.SettingBackupEnabled, true) {
		p.progress(album.ID, "backup", "snapshotting current tags")
		if _, err := p.backups.Create(ctx, album.ID, store.BackupActionTag, nil); err != nil {
			logger.Warnf(ctx, "backup before tagging album %d: %v", album.ID, err)
		}
	}

	var cover *artwork.Candidate
	var coverPath string
	if p.artwork != nil {
		p.progress(album.ID, "artwork", "searching cover art")
		var err error
		cover, err = p.artwork.Find(ctx, artwork.Request{
			FolderPath:     info.Path,
			Artist:         details.Artist,
			Album:          details.Title,
			ReleaseID:      details.ID,
			ReleaseGroupID: details.ReleaseGroupID,
		})
		if err != nil {
			logger.Warnf(ctx, "artwork for album %d: %v", album.ID, err)
		}
		if cover != nil {
			if coverPath, err = p.saveArtwork(ctx, info.Path, cover); err != nil {
				logger.Warnf(ctx, "saving artwork for album %d: %v", album.ID, err)
			}
		}
	}

	var gain *replaygain.AlbumGain
	if settings.Bool(store.SettingReplayGainEnabled, false) &&
		(settings.Bool(store.SettingReplayGainAutoCalculate, false) || opts.UserInitiated) {
		p.progress(album.ID, "replaygain", "measuring loudness")
		paths := make([]string, 0, len(info.Files))
		for _, file := range info.Files {
			paths = append(paths, file.Path)
		}
		reference := settings.Float(store.SettingReplayGainReferenceLoudness, replaygain.DefaultReferenceLoudness)
		gain = p.analyzeGain(ctx, paths, reference)
	}

	lyricsEnabled := settings.Bool(store.SettingLyricsEnabled, true) &&
		(settings.Bool(store.SettingLyricsAutoFetch, true) || opts.UserInitiated)
	genre := strings.Join(details.Genres, "; ")

	// Per-disc track totals: a "5/11" track number on disc 1 of a 5+6 release
	// would be wrong, players expect "5/5".
	discTotals := make(map[int]int, details.DiscCount)
	for i := range details.Tracks {
		discTotals[details.Tracks[i].DiscNumber]++
	}

	// When the folder looks single-disc but the release is not, the local
	// track numbers are untrustworthy (they may reflect a previous tagging):
	// assign MB tracks in file order instead and write everything as disc 1.
	flatAssign := info.TotalDiscs <= 1 && details.DiscCount > 1

	written := 0
	discCounters := make(map[int]int)
	for i, file := range info.Files {
		p.progress(album.ID, "writing", fmt.Sprintf("track %d/%d", i+1, len(info.Files)))

		disc := file.DiscNumber
		if disc == 0 {
			disc = 1
		}
		discCounters[disc]++
		pos := file.TrackNumber
		if pos == 0 {
			// No track number in the file: fall back to filename order
			// within the disc.
			pos = discCounters[disc]
		}

		var mbTrack *musicbrainz.Track
		trackTotal := details.TrackCount
		discTotal := details.DiscCount
		if flatAssign {
			disc = 1
			discTotal = 1
			if i < len(details.Tracks) {
				mbTrack = &details.Tracks[i]
				pos = i + 1
			}
		} else {
			if mbTrack = details.TrackAt(disc, pos); mbTrack == nil && i < len(details.Tracks) {
				mbTrack = &details.Tracks[i]
			}
			if details.DiscCount > 1 {
				trackTotal = discTotals[disc]
			}
		}

		t := p.buildTrackTag(details, mbTrack, disc, pos, trackTotal, discTotal, genre)
		if lyricsEnabled && p.lyrics != nil {
			p.fetchLyrics(ctx, t, file.Duration)
		}
		if gain != nil {
			applyGain(t, gain, file.Path)
		}
		if cover != nil {
			t.CoverArt = cover.Data
			t.CoverMIME = cover.MIME
		}

		if err := p.writeTags(file.Path, t); err != nil {
			logger.Errorf(ctx, "writing tags to %s: %v", file.Path, err)
			p.markTrackFailed(ctx, file.Path, err)
			continue
		}
		p.updateTrackRow(ctx, file.Path, t)
		written++
	}
	logger.Infof(ctx, "tags written to %d/%d tracks of album %d", written, len(info.Files), album.ID)
	if written == 0 {
		return errors.New("Failed to write tags")
	}

	year := details.OriginalYear
	if year == 0 {
		year = details.Year()
	}
	totalDiscs := details.DiscCount
	if totalDiscs == 0 {
		totalDiscs = info.TotalDiscs
	}
	if err := p.store.UpdateAlbumMatch(album.ID, store.StatusTagged, best.Total, details.ID, details.ReleaseGroupID); err != nil {
		return fmt.Errorf("update album: %w", err)
	}
	if err := p.store.UpdateAlbumInfo(album.ID, details.Artist, details.Title, year, len(info.Files), totalDiscs); err != nil {
		return fmt.Errorf("update album info: %w", err)
	}
	if coverPath != "" {
		if err := p.store.UpdateAlbumCoverPath(album.ID, coverPath); err != nil {
			logger.Warnf(ctx, "saving cover path for album %d: %v", album.ID, err)
		}
	}
	p.logActivity(ctx, album.ID, store.ActionTagged, fmt.Sprintf("%s - %s", details.Artist, details.Title))
	p.publishAlbum(album.ID, store.StatusTagged, best.Total)
	p.notify("info", fmt.Sprintf("Tagged: %s - %s", details.Artist, details.Title))
	logger.Infof(ctx, "album %d tagged: %s - %s (%.1f)", album.ID, details.Artist, details.Title, best.Total)
	return nil
}

// buildTrackTag assembles the tag for one track from the release details.
// Merge write semantics keep whatever the release does not provide.
func (p *Pipeline) buildTrackTag(details *musicbrainz.ReleaseDetails, mbTrack *musicbrainz.Track,
	disc, pos, trackTotal, discTotal int, genre string) *tags.Tag {
	t := &tags.Tag{
		Artist:         details.Artist,
		AlbumArtist:    details.Artist,
		Album:          details.Title,
		Genre:          genre,
		TrackNumber:    pos,
		TotalTracks:    trackTotal,
		DiscNumber:     disc,
		TotalDiscs:     discTotal,
		Date:           details.Date,
		OriginalDate:   details.OriginalDate,
		ArtistSortName: details.ArtistSortName,
		Label:          details.Label,
		CatalogNumber:  details.CatalogNumber,
		Barcode:        details.Barcode,
		Media:          details.Media,
		ReleaseStatus:  details.Status,
		ReleaseType:    details.ReleaseType,
		Script:         details.Script,
		Country:        details.Country,

		MBArtistID:       details.ArtistID,
		MBReleaseID:      details.ID,
		MBReleaseGroupID: details.ReleaseGroupID,
	}

	if mbTrack != nil {
		t.Title = mbTrack.Title
		if mbTrack.Artist != "" {
			t.Artist = mbTrack.Artist
		}
		t.MBRecordingID = mbTrack.RecordingID
		t.MBTrackID = mbTrack.TrackID
		t.ISRC = mbTrack.ISRC
	}
	return t
}

// fetchLyrics fills the lyrics fields, best effort per track.
func (p *Pipeline) fetchLyrics(ctx context.Context, t *tags.Tag, duration time.Duration) {
	if t.Title == "" {
		return
	}
	result, err := p.lyrics.Fetch(ctx, t.Artist, t.Title, t.Album, duration)
	if err != nil {
		if !errors.Is(err, lrclib.ErrNotFound) {
			logger.Debugf(ctx, "lyrics for %q: %v", t.Title, err)
		}
		return
	}
	t.Lyrics = result.PlainLyrics
	t.SyncedLyrics = result.SyncedLyrics
}

func applyGain(t *tags.Tag, gain *replaygain.AlbumGain, path string) {
	t.AlbumGain = gain.Gain
	t.AlbumPeak = gain.Peak
	t.R128AlbumGain = gain.R128Gain
	if tl, ok := gain.Tracks[path]; ok {
		t.TrackGain = tl.Gain
		t.TrackPeak = tl.Peak
		t.R128TrackGain = tl.R128Gain
	}
}

// updateTrackRow refreshes the cached track columns, marks the track tagged
// and bumps the mtime so the next scan does not flag the file as modified.
func (p *Pipeline) updateTrackRow(ctx context.Context, path string, t *tags.Tag) {
	track, err := p.store.TrackByPath(path)
	if err != nil {
		logger.Warnf(ctx, "track row for %s: %v", path, err)
		return
	}
	err = dbutil.WithTx(p.store.DB(), func(tx *sql.Tx) error {
		if err := p.store.UpdateTrackMetadata(tx, track.ID, t.Title, t.Artist,
			t.TrackNumber, t.DiscNumber, len(t.CoverArt) > 0); err != nil {
			return err
		}
		if err := p.store.UpdateTrackStatus(tx, track.ID, store.TrackStatusTagged, ""); err != nil {
			return err
		}
		if fi, err := os.Stat(path); err == nil {
			return p.store.UpdateTrackMtime(tx, track.ID, fi.ModTime().Unix())
		}
		return nil
	})
	if err != nil {
		logger.Warnf(ctx, "updating track row for %s: %v", path, err)
	}
}

// markTrackFailed records a per-track write failure so the UI can show which
// files the tagging run could not touch.
func (p *Pipeline) markTrackFailed(ctx context.Context, path string, writeErr error) {
	track, err := p.store.TrackByPath(path)
	if err != nil {
		logger.Warnf(ctx, "track row for %s: %v", path, err)
		return
	}
	err = dbutil.WithTx(p.store.DB(), func(tx *sql.Tx) error {
		return p.store.UpdateTrackStatus(tx, track.ID, store.TrackStatusFailed, writeErr.Error())
	})
	if err != nil {
		logger.Warnf(ctx, "marking track %s failed: %v", path, err)
	}
}

// storeCandidates persists the scored candidates for review.
func (p *Pipeline) storeCandidates(ctx context.Context, albumID int64, scores []*match.Score, best *match.Score) {
	candidates := make([]store.MatchCandidate, 0, len(scores))
	for _, s := range scores {
		r := s.Release
		candidates = append(candidates, store.MatchCandidate{
			AlbumID:          albumID,
			MBReleaseID:      r.ID,
			MBReleaseGroupID: r.ReleaseGroupID,
			Artist:           r.Artist,
			Title:            r.Title,
			Year:             r.Year(),
			Country:          r.Country,
			Media:            r.Media,
			Label:            r.Label,
			CatalogNumber:    r.CatalogNumber,
			Barcode:          r.Barcode,
			TrackCount:       r.TrackCount,
			Score:            s.Total,
			IsSelected:       s == best,
		})
	}
	if err := p.store.ReplaceCandidates(albumID, candidates); err != nil {
		logger.Warnf(ctx, "storing candidates for album %d: %v", albumID, err)
	}
}

func (p *Pipeline) setStatus(ctx context.Context, albumID int64, status, message string) {
	if err := p.store.UpdateAlbumStatus(albumID, status, message); err != nil {
		logger.Warnf(ctx, "updating album %d status: %v", albumID, err)
	}
	p.publishAlbum(albumID, status, 0)
}

func (p *Pipeline) logActivity(ctx context.Context, albumID int64, action, detail string) {
	if err := p.store.LogActivity(albumID, action, detail); err != nil {
		logger.Warnf(ctx, "logging activity for album %d: %v", albumID, err)
	}
}

func (p *Pipeline) publishAlbum(albumID int64, status string, score float64) {
	if p.bus != nil {
		p.bus.PublishAlbum(events.AlbumUpdate{AlbumID: albumID, Status: status, Score: score})
	}
}

func (p *Pipeline) progress(albumID int64, phase, message string) {
	if p.bus != nil {
		p.bus.PublishProgress(events.Progress{AlbumID: albumID, Phase: phase, Message: message})
	}
}

func (p *Pipeline) notify(level, message string) {
	if p.bus != nil {
		p.bus.PublishNotification(level, message)
	}
}
