package store

import (
	"database/sql"
	"errors"
	"time"

	dbutil "github.com/MattiVenturelli/musictaggerz/internal/db"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("store: not found")

const albumColumns = `id, path, artist, title, year, disc_number, total_discs, track_count,
	status, match_score, mb_release_id, mb_release_group_id, cover_path, error_message,
	retry_count, user_initiated, created_at, updated_at`

func scanAlbum(row interface{ Scan(...any) error }) (*Album, error) {
	var a Album
	var year, discNum, totalDiscs sql.NullInt64
	var score sql.NullFloat64
	var releaseID, groupID, coverPath, errMsg sql.NullString
	var userInitiated int
	var createdAt, updatedAt int64

	err := row.Scan(&a.ID, &a.Path, &a.Artist, &a.Title, &year, &discNum, &totalDiscs,
		&a.TrackCount, &a.Status, &score, &releaseID, &groupID, &coverPath, &errMsg,
		&a.RetryCount, &userInitiated, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	a.Year = int(dbutil.NullInt64Value(year))
	a.DiscNumber = int(dbutil.NullInt64Value(discNum))
	a.TotalDiscs = int(dbutil.NullInt64Value(totalDiscs))
	a.MatchScore = dbutil.NullFloat64Value(score)
	a.MBReleaseID = dbutil.NullStringValue(releaseID)
	a.MBReleaseGroupID = dbutil.NullStringValue(groupID)
	a.CoverPath = dbutil.NullStringValue(coverPath)
	a.ErrorMessage = dbutil.NullStringValue(errMsg)
	a.UserInitiated = userInitiated != 0
	a.CreatedAt = time.Unix(createdAt, 0)
	a.UpdatedAt = time.Unix(updatedAt, 0)
	return &a, nil
}

// InsertAlbum inserts a new album row and returns its ID.
func (s *Store) InsertAlbum(a *Album) (int64, error) {
	now := time.Now().Unix()
	res, err := s.db.Exec(`
		INSERT INTO albums (path, artist, title, year, disc_number, total_discs, track_count,
			status, user_initiated, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.Path, a.Artist, a.Title, dbutil.NullableInt64(int64(a.Year)),
		dbutil.NullableInt64(int64(a.DiscNumber)), dbutil.NullableInt64(int64(a.TotalDiscs)),
		a.TrackCount, statusOrPending(a.Status), boolToInt(a.UserInitiated), now, now)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// AlbumByID returns an album by its ID.
func (s *Store) AlbumByID(id int64) (*Album, error) {
	a, err := scanAlbum(s.db.QueryRow(`SELECT `+albumColumns+` FROM albums WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

// AlbumByPath returns an album by its folder path.
func (s *Store) AlbumByPath(path string) (*Album, error) {
	a, err := scanAlbum(s.db.QueryRow(`SELECT `+albumColumns+` FROM albums WHERE path = ?`, path))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return a, err
}

// Albums returns all albums ordered by path.
func (s *Store) Albums() ([]Album, error) {
	rows, err := s.db.Query(`SELECT ` + albumColumns + ` FROM albums ORDER BY path COLLATE NOCASE`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var albums []Album
	for rows.Next() {
		a, err := scanAlbum(rows)
		if err != nil {
			return nil, err
		}
		albums = append(albums, *a)
	}
	return albums, rows.Err()
}

// AlbumsByStatus returns albums with the given status.
func (s *Store) AlbumsByStatus(status string) ([]Album, error) {
	rows, err := s.db.Query(`SELECT `+albumColumns+` FROM albums WHERE status = ? ORDER BY updated_at`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var albums []Album
	for rows.Next() {
		a, err := scanAlbum(rows)
		if err != nil {
			return nil, err
		}
		albums = append(albums, *a)
	}
	return albums, rows.Err()
}

// UpdateAlbumStatus sets status and error message.
func (s *Store) UpdateAlbumStatus(id int64, status, errorMessage string) error {
	_, err := s.db.Exec(`
		UPDATE albums SET status = ?, error_message = ?, updated_at = ? WHERE id = ?
	`, status, dbutil.NullableString(truncateError(errorMessage)), time.Now().Unix(), id)
	return err
}

// UpdateAlbumMatch records the chosen release and score.
func (s *Store) UpdateAlbumMatch(id int64, status string, score float64, releaseID, releaseGroupID string) error {
	_, err := s.db.Exec(`
		UPDATE albums SET status = ?, match_score = ?, mb_release_id = ?, mb_release_group_id = ?,
			error_message = NULL, updated_at = ?
		WHERE id = ?
	`, status, score, dbutil.NullableString(releaseID), dbutil.NullableString(releaseGroupID),
		time.Now().Unix(), id)
	return err
}

// UpdateAlbumInfo refreshes the album header fields after a rescan or retag.
func (s *Store) UpdateAlbumInfo(id int64, artist, title string, year, trackCount, totalDiscs int) error {
	_, err := s.db.Exec(`
		UPDATE albums SET artist = ?, title = ?, year = ?, track_count = ?, total_discs = ?, updated_at = ?
		WHERE id = ?
	`, artist, title, dbutil.NullableInt64(int64(year)), trackCount,
		dbutil.NullableInt64(int64(totalDiscs)), time.Now().Unix(), id)
	return err
}

// UpdateAlbumCoverPath records where the album cover was saved.
func (s *Store) UpdateAlbumCoverPath(id int64, coverPath string) error {
	_, err := s.db.Exec(`UPDATE albums SET cover_path = ?, updated_at = ? WHERE id = ?`,
		dbutil.NullableString(coverPath), time.Now().Unix(), id)
	return err
}

// UpdateAlbumRetryCount persists the retry counter for queue retries.
func (s *Store) UpdateAlbumRetryCount(id int64, retryCount int) error {
	_, err := s.db.Exec(`UPDATE albums SET retry_count = ?, updated_at = ? WHERE id = ?`,
		retryCount, time.Now().Unix(), id)
	return err
}

// DeleteAlbum removes an album and, via cascade, its tracks and candidates.
func (s *Store) DeleteAlbum(id int64) error {
	_, err := s.db.Exec(`DELETE FROM albums WHERE id = ?`, id)
	return err
}

// DeleteAlbumsUnderPath removes album rows whose path is inside dir.
// Used when a flat album folder becomes a multi-disc parent.
func (s *Store) DeleteAlbumsUnderPath(dir string) error {
	_, err := s.db.Exec(`DELETE FROM albums WHERE path LIKE ? || '/%'`, dir)
	return err
}

// AlbumPaths returns the set of known album folder paths.
func (s *Store) AlbumPaths() (map[string]bool, error) {
	rows, err := s.db.Query(`SELECT path FROM albums`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	paths := make(map[string]bool)
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths[p] = true
	}
	return paths, rows.Err()
}

func statusOrPending(status string) string {
	if status == "" {
		return StatusPending
	}
	return status
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// truncateError caps stored error messages at 500 characters.
func truncateError(msg string) string {
	const maxLen = 500
	if len(msg) > maxLen {
		return msg[:maxLen]
	}
	return msg
}
