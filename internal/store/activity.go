package store

import (
	"database/sql"
	"time"

	dbutil "github.com/MattiVenturelli/musictaggerz/internal/db"
)

// LogActivity appends an activity log entry. albumID may be 0 for global events.
func (s *Store) LogActivity(albumID int64, action, detail string) error {
	_, err := s.db.Exec(`
		INSERT INTO activity_log (album_id, action, detail, created_at) VALUES (?, ?, ?, ?)
	`, dbutil.NullableInt64(albumID), action, dbutil.NullableString(detail), time.Now().Unix())
	return err
}

// RecentActivity returns the latest limit entries, newest first.
func (s *Store) RecentActivity(limit int) ([]ActivityEntry, error) {
	rows, err := s.db.Query(`
		SELECT id, album_id, action, detail, created_at
		FROM activity_log
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []ActivityEntry
	for rows.Next() {
		var e ActivityEntry
		var albumID sql.NullInt64
		var detail sql.NullString
		var createdAt int64
		if err := rows.Scan(&e.ID, &albumID, &e.Action, &detail, &createdAt); err != nil {
			return nil, err
		}
		e.AlbumID = dbutil.NullInt64Value(albumID)
		e.Detail = dbutil.NullStringValue(detail)
		e.CreatedAt = time.Unix(createdAt, 0)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
