// Package scanner walks the music directory, registers album folders in the
// store and keeps existing rows in sync with the files on disk.
package scanner

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	dbutil "github.com/MattiVenturelli/musictaggerz/internal/db"
	"github.com/MattiVenturelli/musictaggerz/internal/events"
	"github.com/MattiVenturelli/musictaggerz/internal/folder"
	"github.com/MattiVenturelli/musictaggerz/internal/logger"
	"github.com/MattiVenturelli/musictaggerz/internal/store"
	"github.com/MattiVenturelli/musictaggerz/internal/tags"
)

// scanWorkers bounds parallel folder reads.
const scanWorkers = 8

// Scanner discovers and refreshes album folders under the music directory.
type Scanner struct {
	store    *store.Store
	reader   *folder.Reader
	musicDir string
	bus      *events.Bus

	// Enqueue is called with the album ID of every new or changed album so
	// the caller can queue it for tagging. May be nil.
	Enqueue func(albumID int64)
}

// New creates a Scanner rooted at musicDir. bus may be nil.
func New(st *store.Store, reader *folder.Reader, musicDir string, bus *events.Bus) *Scanner {
	return &Scanner{store: st, reader: reader, musicDir: musicDir, bus: bus}
}

// ScanAll walks the music directory and registers every album folder it
// finds: flat albums, multi-disc parents, and albums one level down inside
// artist directories. Returns the IDs of all albums seen.
func (s *Scanner) ScanAll(ctx context.Context) ([]int64, error) {
	logger.Infof(ctx, "scanning %s", s.musicDir)
	s.publishScan("started", 0, 0)

	paths, err := s.albumFolders(ctx, s.musicDir)
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	var albumIDs []int64
	done := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(scanWorkers)
	for _, path := range paths {
		g.Go(func() error {
			id, isNew, changed, err := s.processAlbum(gctx, path, false)
			if err != nil {
				logger.Warnf(gctx, "scanning %s: %v", path, err)
				return nil
			}
			mu.Lock()
			if id != 0 {
				albumIDs = append(albumIDs, id)
			}
			done++
			s.publishScan("scanning", done, len(paths))
			mu.Unlock()
			if id != 0 && (isNew || changed) && s.Enqueue != nil {
				s.Enqueue(id)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return albumIDs, err
	}

	s.publishScan("finished", len(paths), len(paths))
	logger.Infof(ctx, "scan complete: %d albums", len(albumIDs))
	return albumIDs, nil
}

// ScanFolder scans one folder. A disc subfolder resolves to its parent.
// force drops the existing rows and reimports from scratch.
func (s *Scanner) ScanFolder(ctx context.Context, path string, force bool) (int64, error) {
	if _, ok := s.reader.DiscNumberFromName(filepath.Base(path)); ok {
		parent := filepath.Dir(path)
		if kind, err := s.reader.Classify(parent); err == nil && kind == folder.KindMultiDisc {
			path = parent
		}
	}

	id, isNew, changed, err := s.processAlbum(ctx, path, force)
	if err != nil {
		return 0, err
	}
	if id != 0 && (isNew || changed) && s.Enqueue != nil {
		s.Enqueue(id)
	}
	return id, nil
}

// albumFolders collects the album folders to process: top-level albums and
// multi-disc parents, plus one level of recursion into artist directories.
func (s *Scanner) albumFolders(ctx context.Context, root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read music dir %s: %w", root, err)
	}

	var paths []string
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		path := filepath.Join(root, entry.Name())
		kind, err := s.reader.Classify(path)
		if err != nil {
			logger.Warnf(ctx, "classifying %s: %v", path, err)
			continue
		}
		switch kind {
		case folder.KindAlbum, folder.KindMultiDisc:
			paths = append(paths, path)
		case folder.KindArtistDir:
			subs, err := os.ReadDir(path)
			if err != nil {
				continue
			}
			for _, sub := range subs {
				if !sub.IsDir() || strings.HasPrefix(sub.Name(), ".") {
					continue
				}
				subPath := filepath.Join(path, sub.Name())
				subKind, err := s.reader.Classify(subPath)
				if err != nil {
					continue
				}
				if subKind == folder.KindAlbum || subKind == folder.KindMultiDisc {
					paths = append(paths, subPath)
				}
			}
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// processAlbum registers or refreshes one album folder.
func (s *Scanner) processAlbum(ctx context.Context, path string, force bool) (id int64, isNew, changed bool, err error) {
	existing, err := s.store.AlbumByPath(path)
	switch {
	case err == nil && !force:
		changed, err = s.incrementalUpdate(ctx, existing)
		return existing.ID, false, changed, err
	case err == nil && force:
		logger.Infof(ctx, "force rescan: %s", path)
		if err := s.store.DeleteAlbum(existing.ID); err != nil {
			return 0, false, false, fmt.Errorf("delete album: %w", err)
		}
	case !errors.Is(err, store.ErrNotFound):
		return 0, false, false, err
	}

	kind, err := s.reader.Classify(path)
	if err != nil {
		return 0, false, false, err
	}
	if kind != folder.KindAlbum && kind != folder.KindMultiDisc {
		return 0, false, false, nil
	}

	// A folder that grew disc subfolders may have been registered per disc.
	if kind == folder.KindMultiDisc {
		if err := s.store.DeleteAlbumsUnderPath(path); err != nil {
			logger.Warnf(ctx, "removing per-disc rows under %s: %v", path, err)
		}
	}

	info, err := s.reader.ReadAlbum(path)
	if err != nil {
		return 0, false, false, err
	}
	if info.TrackCount() == 0 {
		return 0, false, false, nil
	}

	id, err = s.insertAlbum(info)
	if err != nil {
		return 0, false, false, fmt.Errorf("insert album %s: %w", path, err)
	}

	detail := fmt.Sprintf("%d tracks", info.TrackCount())
	if info.TotalDiscs > 1 {
		detail = fmt.Sprintf("%d tracks, %d discs", info.TrackCount(), info.TotalDiscs)
	}
	if err := s.store.LogActivity(id, store.ActionScanned, detail); err != nil {
		logger.Warnf(ctx, "logging scan for album %d: %v", id, err)
	}
	logger.Infof(ctx, "new album: %s - %s (%s)", info.Artist, info.Album, detail)
	return id, true, false, nil
}

func (s *Scanner) insertAlbum(info *folder.Info) (int64, error) {
	albumID, err := s.store.InsertAlbum(&store.Album{
		Path:       info.Path,
		Artist:     info.Artist,
		Title:      info.Album,
		Year:       info.Year,
		DiscNumber: info.DiscNumber,
		TotalDiscs: info.TotalDiscs,
		TrackCount: info.TrackCount(),
		Status:     store.StatusPending,
	})
	if err != nil {
		return 0, err
	}

	err = dbutil.WithTx(s.store.DB(), func(tx *sql.Tx) error {
		for _, file := range info.Files {
			if _, err := s.store.InsertTrack(tx, trackRow(albumID, file)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return albumID, nil
}

// incrementalUpdate diffs the folder against the stored tracks: new files
// are added, missing ones removed, and files with a newer mtime re-read.
// Any change resets the album to pending.
func (s *Scanner) incrementalUpdate(ctx context.Context, album *store.Album) (bool, error) {
	info, err := s.reader.ReadAlbum(album.Path)
	if err != nil {
		return false, err
	}
	if info.TrackCount() == 0 {
		return false, nil
	}

	dbTracks, err := s.store.TracksByAlbum(album.ID)
	if err != nil {
		return false, err
	}
	byPath := make(map[string]*store.Track, len(dbTracks))
	for i := range dbTracks {
		byPath[dbTracks[i].Path] = &dbTracks[i]
	}
	onDisk := make(map[string]*tags.FileInfo, len(info.Files))
	for _, file := range info.Files {
		onDisk[file.Path] = file
	}

	var added, modified []*tags.FileInfo
	for _, file := range info.Files {
		existing, ok := byPath[file.Path]
		if !ok {
			added = append(added, file)
			continue
		}
		if mtime := fileMtime(file.Path); mtime > existing.Mtime {
			modified = append(modified, file)
		}
	}
	var removed []*store.Track
	for i := range dbTracks {
		if _, ok := onDisk[dbTracks[i].Path]; !ok {
			removed = append(removed, &dbTracks[i])
		}
	}

	if len(added) == 0 && len(removed) == 0 && len(modified) == 0 {
		return false, nil
	}

	err = dbutil.WithTx(s.store.DB(), func(tx *sql.Tx) error {
		for _, file := range added {
			if _, err := s.store.InsertTrack(tx, trackRow(album.ID, file)); err != nil {
				return err
			}
		}
		for _, track := range removed {
			if err := s.store.DeleteTrack(tx, track.ID); err != nil {
				return err
			}
		}
		for _, file := range modified {
			track := byPath[file.Path]
			if err := s.store.UpdateTrackMetadata(tx, track.ID, file.Title, file.Artist,
				file.TrackNumber, file.DiscNumber, tags.HasEmbeddedArt(file.Path)); err != nil {
				return err
			}
			if err := s.store.UpdateTrackMtime(tx, track.ID, fileMtime(file.Path)); err != nil {
				return err
			}
		}
		// The album goes back to pending below, so stale per-track write
		// outcomes go with it.
		return s.store.ResetTrackStatuses(tx, album.ID)
	})
	if err != nil {
		return false, err
	}

	if err := s.store.UpdateAlbumInfo(album.ID, info.Artist, info.Album, info.Year,
		info.TrackCount(), info.TotalDiscs); err != nil {
		return false, err
	}
	if err := s.store.UpdateAlbumStatus(album.ID, store.StatusPending, ""); err != nil {
		return false, err
	}

	var changes []string
	if len(added) > 0 {
		changes = append(changes, fmt.Sprintf("+%d tracks", len(added)))
	}
	if len(removed) > 0 {
		changes = append(changes, fmt.Sprintf("-%d tracks", len(removed)))
	}
	if len(modified) > 0 {
		changes = append(changes, fmt.Sprintf("~%d tracks", len(modified)))
	}
	detail := strings.Join(changes, ", ")
	if err := s.store.LogActivity(album.ID, store.ActionIncrementalUpdate, detail); err != nil {
		logger.Warnf(ctx, "logging update for album %d: %v", album.ID, err)
	}
	logger.Infof(ctx, "incremental update for %s - %s: %s", album.Artist, album.Title, detail)
	return true, nil
}

func trackRow(albumID int64, file *tags.FileInfo) *store.Track {
	return &store.Track{
		AlbumID:     albumID,
		Path:        file.Path,
		Filename:    filepath.Base(file.Path),
		Mtime:       fileMtime(file.Path),
		Title:       file.Title,
		Artist:      file.Artist,
		TrackNumber: file.TrackNumber,
		DiscNumber:  file.DiscNumber,
		Duration:    file.Duration.Seconds(),
		Format:      file.Format,
		Bitrate:     file.Bitrate,
		SampleRate:  file.SampleRate,
		HasArtwork:  tags.HasEmbeddedArt(file.Path),
	}
}

func fileMtime(path string) int64 {
	fi, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return fi.ModTime().Unix()
}

func (s *Scanner) publishScan(phase string, current, total int) {
	if s.bus != nil {
		s.bus.PublishScan(events.ScanUpdate{Phase: phase, Current: current, Total: total})
	}
}
