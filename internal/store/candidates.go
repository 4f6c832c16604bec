package store

import (
	"database/sql"
	"time"

	dbutil "github.com/MattiVenturelli/musictaggerz/internal/db"
)

// ReplaceCandidates removes existing candidates for an album and stores the new set.
func (s *Store) ReplaceCandidates(albumID int64, candidates []MatchCandidate) error {
	return dbutil.WithTx(s.db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM match_candidates WHERE album_id = ?`, albumID); err != nil {
			return err
		}
		now := time.Now().Unix()
		for i := range candidates {
			c := &candidates[i]
			_, err := tx.Exec(`
				INSERT INTO match_candidates (album_id, mb_release_id, mb_release_group_id,
					artist, title, year, country, media, label, catalog_number, barcode,
					track_count, score, is_selected, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			`, albumID, c.MBReleaseID, dbutil.NullableString(c.MBReleaseGroupID),
				c.Artist, c.Title, dbutil.NullableInt64(int64(c.Year)),
				dbutil.NullableString(c.Country), dbutil.NullableString(c.Media),
				dbutil.NullableString(c.Label), dbutil.NullableString(c.CatalogNumber),
				dbutil.NullableString(c.Barcode), c.TrackCount, c.Score,
				boolToInt(c.IsSelected), now)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// CandidatesByAlbum returns stored candidates ordered by score descending.
func (s *Store) CandidatesByAlbum(albumID int64) ([]MatchCandidate, error) {
	rows, err := s.db.Query(`
		SELECT id, album_id, mb_release_id, mb_release_group_id, artist, title, year,
			country, media, label, catalog_number, barcode, track_count, score, is_selected, created_at
		FROM match_candidates
		WHERE album_id = ?
		ORDER BY score DESC, id
	`, albumID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var candidates []MatchCandidate
	for rows.Next() {
		var c MatchCandidate
		var groupID, country, media, label, catalog, barcode sql.NullString
		var year sql.NullInt64
		var isSelected int
		var createdAt int64

		if err := rows.Scan(&c.ID, &c.AlbumID, &c.MBReleaseID, &groupID, &c.Artist, &c.Title,
			&year, &country, &media, &label, &catalog, &barcode, &c.TrackCount, &c.Score,
			&isSelected, &createdAt); err != nil {
			return nil, err
		}
		c.MBReleaseGroupID = dbutil.NullStringValue(groupID)
		c.Country = dbutil.NullStringValue(country)
		c.Media = dbutil.NullStringValue(media)
		c.Label = dbutil.NullStringValue(label)
		c.CatalogNumber = dbutil.NullStringValue(catalog)
		c.Barcode = dbutil.NullStringValue(barcode)
		c.Year = int(dbutil.NullInt64Value(year))
		c.IsSelected = isSelected != 0
		c.CreatedAt = time.Unix(createdAt, 0)
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

// SelectCandidate marks one candidate as selected and clears the others.
func (s *Store) SelectCandidate(albumID int64, releaseID string) error {
	return dbutil.WithTx(s.db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`UPDATE match_candidates SET is_selected = 0 WHERE album_id = ?`, albumID); err != nil {
			return err
		}
		_, err := tx.Exec(`
			UPDATE match_candidates SET is_selected = 1 WHERE album_id = ? AND mb_release_id = ?
		`, albumID, releaseID)
		return err
	})
}
