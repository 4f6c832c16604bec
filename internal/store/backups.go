package store

import (
	"database/sql"
	"errors"
	"time"

	dbutil "github.com/MattiVenturelli/musictaggerz/internal/db"
)

// InsertBackup stores a backup header and its per-track snapshots atomically.
func (s *Store) InsertBackup(b *TagBackup, snapshots []TrackTagSnapshot) error {
	return dbutil.WithTx(s.db, func(tx *sql.Tx) error {
		action := b.Action
		if action == "" {
			action = BackupActionTag
		}
		_, err := tx.Exec(`
			INSERT INTO tag_backups (id, album_id, action, cover_filename, created_at) VALUES (?, ?, ?, ?, ?)
		`, b.ID, b.AlbumID, action, dbutil.NullableString(b.CoverFilename), time.Now().Unix())
		if err != nil {
			return err
		}
		for i := range snapshots {
			_, err := tx.Exec(`
				INSERT INTO track_tag_snapshots (backup_id, track_path, tags_json) VALUES (?, ?, ?)
			`, b.ID, snapshots[i].TrackPath, snapshots[i].TagsJSON)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// BackupByID returns a backup header, or ErrNotFound.
func (s *Store) BackupByID(id string) (*TagBackup, error) {
	var b TagBackup
	var cover sql.NullString
	var createdAt int64
	err := s.db.QueryRow(`
		SELECT id, album_id, action, cover_filename, created_at FROM tag_backups WHERE id = ?
	`, id).Scan(&b.ID, &b.AlbumID, &b.Action, &cover, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	b.CoverFilename = dbutil.NullStringValue(cover)
	b.CreatedAt = time.Unix(createdAt, 0)
	return &b, nil
}

// BackupsByAlbum returns backups for an album, oldest first.
func (s *Store) BackupsByAlbum(albumID int64) ([]TagBackup, error) {
	rows, err := s.db.Query(`
		SELECT id, album_id, action, cover_filename, created_at
		FROM tag_backups
		WHERE album_id = ?
		ORDER BY created_at, id
	`, albumID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var backups []TagBackup
	for rows.Next() {
		var b TagBackup
		var cover sql.NullString
		var createdAt int64
		if err := rows.Scan(&b.ID, &b.AlbumID, &b.Action, &cover, &createdAt); err != nil {
			return nil, err
		}
		b.CoverFilename = dbutil.NullStringValue(cover)
		b.CreatedAt = time.Unix(createdAt, 0)
		backups = append(backups, b)
	}
	return backups, rows.Err()
}

// SnapshotsByBackup returns the per-track snapshots of a backup.
func (s *Store) SnapshotsByBackup(backupID string) ([]TrackTagSnapshot, error) {
	rows, err := s.db.Query(`
		SELECT id, backup_id, track_path, tags_json
		FROM track_tag_snapshots
		WHERE backup_id = ?
		ORDER BY track_path
	`, backupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snapshots []TrackTagSnapshot
	for rows.Next() {
		var snap TrackTagSnapshot
		if err := rows.Scan(&snap.ID, &snap.BackupID, &snap.TrackPath, &snap.TagsJSON); err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots, rows.Err()
}

// DeleteBackup removes a backup row; snapshots cascade.
func (s *Store) DeleteBackup(id string) error {
	_, err := s.db.Exec(`DELETE FROM tag_backups WHERE id = ?`, id)
	return err
}
