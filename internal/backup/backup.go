// Package backup snapshots file tags before every write so any tagging run
// can be rolled back.
package backup

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	dbutil "github.com/MattiVenturelli/musictaggerz/internal/db"
	"github.com/MattiVenturelli/musictaggerz/internal/logger"
	"github.com/MattiVenturelli/musictaggerz/internal/store"
	"github.com/MattiVenturelli/musictaggerz/internal/tags"
)

// Manager creates, restores and prunes tag backups. Snapshot metadata lives
// in the database; cover images are stored on disk under dir, one shared
// cover per backup.
type Manager struct {
	store *store.Store
	dir   string
}

// New creates a Manager storing cover files under dir.
func New(st *store.Store, dir string) *Manager {
	return &Manager{store: st, dir: dir}
}

// Create snapshots the current tags of the album's tracks and returns the
// backup ID. action records the mutation the backup protects (tag, restore).
// A non-empty trackIDs limits the snapshot to those tracks. Returns an empty
// ID when no readable tracks are covered.
func (m *Manager) Create(ctx context.Context, albumID int64, action string, trackIDs []int64) (string, error) {
	tracks, err := m.store.TracksByAlbum(albumID)
	if err != nil {
		return "", fmt.Errorf("load tracks: %w", err)
	}
	if len(trackIDs) > 0 {
		wanted := make(map[int64]bool, len(trackIDs))
		for _, id := range trackIDs {
			wanted[id] = true
		}
		kept := tracks[:0]
		for _, track := range tracks {
			if wanted[track.ID] {
				kept = append(kept, track)
			}
		}
		tracks = kept
	}
	if len(tracks) == 0 {
		return "", nil
	}

	backup := &store.TagBackup{
		ID:      uuid.NewString(),
		AlbumID: albumID,
		Action:  action,
	}

	var snapshots []store.TrackTagSnapshot
	for _, track := range tracks {
		if _, err := os.Stat(track.Path); err != nil {
			logger.Warnf(ctx, "backup: skipping missing file %s", track.Path)
			continue
		}
		t, err := tags.Read(track.Path)
		if err != nil {
			logger.Warnf(ctx, "backup: reading tags from %s: %v", track.Path, err)
			continue
		}

		// All tracks of an album share one cover, save it once.
		if backup.CoverFilename == "" {
			if data, mime, err := tags.EmbeddedCoverArt(track.Path); err == nil && len(data) > 0 {
				name, err := m.saveCover(ctx, backup.ID, data, mime)
				if err != nil {
					logger.Warnf(ctx, "backup: saving cover for album %d: %v", albumID, err)
				} else {
					backup.CoverFilename = name
				}
			}
		}

		tagsJSON, err := json.Marshal(t)
		if err != nil {
			return "", fmt.Errorf("marshal tags: %w", err)
		}
		snapshots = append(snapshots, store.TrackTagSnapshot{
			BackupID:  backup.ID,
			TrackPath: track.Path,
			TagsJSON:  string(tagsJSON),
		})
	}
	if len(snapshots) == 0 {
		return "", nil
	}

	if err := m.store.InsertBackup(backup, snapshots); err != nil {
		return "", fmt.Errorf("insert backup: %w", err)
	}
	if err := m.prune(ctx, albumID); err != nil {
		logger.Warnf(ctx, "backup: pruning album %d: %v", albumID, err)
	}

	logger.Infof(ctx, "backup %s created for album %d (%d tracks)", backup.ID, albumID, len(snapshots))
	return backup.ID, nil
}

// Restore writes the snapshotted tags back into the files and refreshes the
// cached track columns. Missing files are skipped. Returns how many tracks
// were restored out of how many snapshots exist.
func (m *Manager) Restore(ctx context.Context, backupID string) (restored, total int, err error) {
	backup, err := m.store.BackupByID(backupID)
	if err != nil {
		return 0, 0, err
	}
	snapshots, err := m.store.SnapshotsByBackup(backupID)
	if err != nil {
		return 0, 0, err
	}

	var cover []byte
	var coverMIME string
	if backup.CoverFilename != "" {
		path := filepath.Join(m.dir, backup.ID, backup.CoverFilename)
		if data, err := os.ReadFile(path); err != nil {
			logger.Warnf(ctx, "restore: reading backup cover %s: %v", path, err)
		} else {
			cover = data
			coverMIME = mimeForExt(filepath.Ext(backup.CoverFilename))
		}
	}

	// Snapshot the current state first so the restore itself can be rolled
	// back. The backup being restored is already fully loaded, so it does not
	// matter if pruning evicts it here.
	if _, err := m.Create(ctx, backup.AlbumID, store.BackupActionPreRestore, nil); err != nil {
		return 0, 0, fmt.Errorf("pre-restore backup: %w", err)
	}

	for _, snap := range snapshots {
		if _, err := os.Stat(snap.TrackPath); err != nil {
			logger.Warnf(ctx, "restore: file not found %s", snap.TrackPath)
			continue
		}

		var t tags.Tag
		if err := json.Unmarshal([]byte(snap.TagsJSON), &t); err != nil {
			logger.Warnf(ctx, "restore: corrupt snapshot for %s: %v", snap.TrackPath, err)
			continue
		}
		t.CoverArt = cover
		t.CoverMIME = coverMIME

		if err := tags.Write(snap.TrackPath, &t); err != nil {
			logger.Warnf(ctx, "restore: writing %s: %v", snap.TrackPath, err)
			continue
		}
		if err := m.updateTrackRow(snap.TrackPath, &t, len(cover) > 0); err != nil {
			logger.Warnf(ctx, "restore: updating track row for %s: %v", snap.TrackPath, err)
		}
		restored++
	}

	if err := m.store.LogActivity(backup.AlbumID, store.ActionBackupRestored,
		fmt.Sprintf("restored %d/%d tracks from backup %s", restored, len(snapshots), backupID)); err != nil {
		logger.Warnf(ctx, "restore: logging activity: %v", err)
	}
	logger.Infof(ctx, "backup %s restored: %d/%d tracks", backupID, restored, len(snapshots))
	return restored, len(snapshots), nil
}

// List returns the album's backups, oldest first.
func (m *Manager) List(albumID int64) ([]store.TagBackup, error) {
	return m.store.BackupsByAlbum(albumID)
}

// Delete removes a backup and its cover directory.
func (m *Manager) Delete(backupID string) error {
	if err := os.RemoveAll(filepath.Join(m.dir, backupID)); err != nil {
		return fmt.Errorf("remove backup dir: %w", err)
	}
	return m.store.DeleteBackup(backupID)
}

// prune removes the oldest backups beyond backup_max_per_album.
func (m *Manager) prune(ctx context.Context, albumID int64) error {
	maxPerAlbum := m.store.Settings().Int(store.SettingBackupMaxPerAlbum, 3)
	backups, err := m.store.BackupsByAlbum(albumID)
	if err != nil {
		return err
	}
	if len(backups) <= maxPerAlbum {
		return nil
	}

	excess := backups[:len(backups)-maxPerAlbum]
	for _, b := range excess {
		if err := m.Delete(b.ID); err != nil {
			return err
		}
	}
	logger.Debugf(ctx, "pruned %d old backups for album %d", len(excess), albumID)
	return nil
}

func (m *Manager) saveCover(ctx context.Context, backupID string, data []byte, mime string) (string, error) {
	dir := filepath.Join(m.dir, backupID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	name := "cover.jpg"
	if mime == "image/png" {
		name = "cover.png"
	}
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return "", err
	}
	logger.Debugf(ctx, "backup %s: saved cover %s (%s)", backupID, name, humanize.Bytes(uint64(len(data))))
	return name, nil
}

// updateTrackRow refreshes the cached track columns after a restore.
func (m *Manager) updateTrackRow(path string, t *tags.Tag, hasArtwork bool) error {
	track, err := m.store.TrackByPath(path)
	if err != nil {
		return err
	}
	return dbutil.WithTx(m.store.DB(), func(tx *sql.Tx) error {
		return m.store.UpdateTrackMetadata(tx, track.ID, t.Title, t.Artist, t.TrackNumber, t.DiscNumber, hasArtwork)
	})
}

func mimeForExt(ext string) string {
	if ext == ".png" {
		return "image/png"
	}
	return "image/jpeg"
}
