package store

import (
	"database/sql"
	"time"

	dbutil "github.com/MattiVenturelli/musictaggerz/internal/db"
)

const trackColumns = `id, album_id, path, filename, mtime, title, artist, track_number,
	disc_number, duration, format, bitrate, sample_rate, has_artwork, status, error_message, created_at`

func scanTrack(row interface{ Scan(...any) error }) (*Track, error) {
	var t Track
	var trackNum, discNum, bitrate, sampleRate sql.NullInt64
	var duration sql.NullFloat64
	var errMsg sql.NullString
	var hasArtwork int
	var createdAt int64

	err := row.Scan(&t.ID, &t.AlbumID, &t.Path, &t.Filename, &t.Mtime, &t.Title, &t.Artist,
		&trackNum, &discNum, &duration, &t.Format, &bitrate, &sampleRate, &hasArtwork,
		&t.Status, &errMsg, &createdAt)
	if err != nil {
		return nil, err
	}
	t.TrackNumber = int(dbutil.NullInt64Value(trackNum))
	t.DiscNumber = int(dbutil.NullInt64Value(discNum))
	t.Duration = dbutil.NullFloat64Value(duration)
	t.Bitrate = int(dbutil.NullInt64Value(bitrate))
	t.SampleRate = int(dbutil.NullInt64Value(sampleRate))
	t.HasArtwork = hasArtwork != 0
	t.ErrorMessage = dbutil.NullStringValue(errMsg)
	t.CreatedAt = time.Unix(createdAt, 0)
	return &t, nil
}

// InsertTrack inserts a track row within tx and returns its ID.
func (s *Store) InsertTrack(tx *sql.Tx, t *Track) (int64, error) {
	res, err := tx.Exec(`
		INSERT INTO tracks (album_id, path, filename, mtime, title, artist, track_number,
			disc_number, duration, format, bitrate, sample_rate, has_artwork, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.AlbumID, t.Path, t.Filename, t.Mtime, t.Title, t.Artist,
		dbutil.NullableInt64(int64(t.TrackNumber)), dbutil.NullableInt64(int64(t.DiscNumber)),
		t.Duration, t.Format, dbutil.NullableInt64(int64(t.Bitrate)),
		dbutil.NullableInt64(int64(t.SampleRate)), boolToInt(t.HasArtwork),
		statusOrPending(t.Status), time.Now().Unix())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// TracksByAlbum returns all tracks for an album ordered by disc then track number.
func (s *Store) TracksByAlbum(albumID int64) ([]Track, error) {
	rows, err := s.db.Query(`
		SELECT `+trackColumns+` FROM tracks
		WHERE album_id = ?
		ORDER BY disc_number, track_number, filename COLLATE NOCASE
	`, albumID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tracks []Track
	for rows.Next() {
		t, err := scanTrack(rows)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, *t)
	}
	return tracks, rows.Err()
}

// UpdateTrackMetadata refreshes the cached tag columns after a write or restore.
func (s *Store) UpdateTrackMetadata(tx *sql.Tx, id int64, title, artist string, trackNumber, discNumber int, hasArtwork bool) error {
	_, err := tx.Exec(`
		UPDATE tracks SET title = ?, artist = ?, track_number = ?, disc_number = ?, has_artwork = ?
		WHERE id = ?
	`, title, artist, dbutil.NullableInt64(int64(trackNumber)),
		dbutil.NullableInt64(int64(discNumber)), boolToInt(hasArtwork), id)
	return err
}

// UpdateTrackStatus records the outcome of a tag write for one track.
func (s *Store) UpdateTrackStatus(tx *sql.Tx, id int64, status, errorMessage string) error {
	_, err := tx.Exec(`
		UPDATE tracks SET status = ?, error_message = ? WHERE id = ?
	`, status, dbutil.NullableString(truncateError(errorMessage)), id)
	return err
}

// ResetTrackStatuses sets every track of an album back to pending, clearing
// write errors. Used when a rescan resets the album itself.
func (s *Store) ResetTrackStatuses(tx *sql.Tx, albumID int64) error {
	_, err := tx.Exec(`
		UPDATE tracks SET status = ?, error_message = NULL WHERE album_id = ?
	`, TrackStatusPending, albumID)
	return err
}

// UpdateTrackMtime records the file modification time seen at scan.
func (s *Store) UpdateTrackMtime(tx *sql.Tx, id, mtime int64) error {
	_, err := tx.Exec(`UPDATE tracks SET mtime = ? WHERE id = ?`, mtime, id)
	return err
}

// DeleteTrack removes a track row within tx.
func (s *Store) DeleteTrack(tx *sql.Tx, id int64) error {
	_, err := tx.Exec(`DELETE FROM tracks WHERE id = ?`, id)
	return err
}

// TrackByPath returns a track by its file path, or ErrNotFound.
func (s *Store) TrackByPath(path string) (*Track, error) {
	t, err := scanTrack(s.db.QueryRow(`SELECT `+trackColumns+` FROM tracks WHERE path = ?`, path))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return t, err
}
