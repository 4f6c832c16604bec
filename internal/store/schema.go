package store

import (
	"database/sql"
)

const currentSchemaVersion = 4

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		);

		CREATE TABLE IF NOT EXISTS albums (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			path TEXT NOT NULL UNIQUE,
			artist TEXT NOT NULL DEFAULT '',
			title TEXT NOT NULL DEFAULT '',
			year INTEGER,
			disc_number INTEGER,
			total_discs INTEGER,
			track_count INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'pending',
			match_score REAL,
			mb_release_id TEXT,
			mb_release_group_id TEXT,
			cover_path TEXT,
			error_message TEXT,
			retry_count INTEGER NOT NULL DEFAULT 0,
			user_initiated INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_albums_status ON albums(status);

		CREATE TABLE IF NOT EXISTS tracks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			album_id INTEGER NOT NULL REFERENCES albums(id) ON DELETE CASCADE,
			path TEXT NOT NULL UNIQUE,
			filename TEXT NOT NULL,
			mtime INTEGER NOT NULL DEFAULT 0,
			title TEXT NOT NULL DEFAULT '',
			artist TEXT NOT NULL DEFAULT '',
			track_number INTEGER,
			disc_number INTEGER,
			duration REAL,
			format TEXT NOT NULL DEFAULT '',
			bitrate INTEGER,
			sample_rate INTEGER,
			has_artwork INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'pending',
			error_message TEXT,
			created_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_tracks_album ON tracks(album_id);

		CREATE TABLE IF NOT EXISTS match_candidates (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			album_id INTEGER NOT NULL REFERENCES albums(id) ON DELETE CASCADE,
			mb_release_id TEXT NOT NULL,
			mb_release_group_id TEXT,
			artist TEXT NOT NULL DEFAULT '',
			title TEXT NOT NULL DEFAULT '',
			year INTEGER,
			country TEXT,
			media TEXT,
			label TEXT,
			catalog_number TEXT,
			barcode TEXT,
			track_count INTEGER NOT NULL DEFAULT 0,
			score REAL NOT NULL DEFAULT 0,
			is_selected INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_candidates_album ON match_candidates(album_id, score DESC);

		CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS activity_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			album_id INTEGER REFERENCES albums(id) ON DELETE SET NULL,
			action TEXT NOT NULL,
			detail TEXT,
			created_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_activity_created ON activity_log(created_at DESC);

		CREATE TABLE IF NOT EXISTS tag_backups (
			id TEXT PRIMARY KEY,
			album_id INTEGER NOT NULL REFERENCES albums(id) ON DELETE CASCADE,
			action TEXT NOT NULL DEFAULT 'tag',
			cover_filename TEXT,
			created_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_backups_album ON tag_backups(album_id, created_at);

		CREATE TABLE IF NOT EXISTS track_tag_snapshots (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			backup_id TEXT NOT NULL REFERENCES tag_backups(id) ON DELETE CASCADE,
			track_path TEXT NOT NULL,
			tags_json TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_snapshots_backup ON track_tag_snapshots(backup_id);
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		INSERT OR IGNORE INTO schema_version (version) VALUES (?)
	`, currentSchemaVersion)
	if err != nil {
		return err
	}

	// Migration: add mtime column if missing
	_, _ = db.Exec(`ALTER TABLE tracks ADD COLUMN mtime INTEGER NOT NULL DEFAULT 0`)

	// Migration: add user_initiated column if missing
	_, _ = db.Exec(`ALTER TABLE albums ADD COLUMN user_initiated INTEGER NOT NULL DEFAULT 0`)

	// Migration: per-track write outcome and the saved album cover
	_, _ = db.Exec(`ALTER TABLE tracks ADD COLUMN status TEXT NOT NULL DEFAULT 'pending'`)
	_, _ = db.Exec(`ALTER TABLE tracks ADD COLUMN error_message TEXT`)
	_, _ = db.Exec(`ALTER TABLE albums ADD COLUMN cover_path TEXT`)

	// Migration: record what mutation a backup protects
	_, _ = db.Exec(`ALTER TABLE tag_backups ADD COLUMN action TEXT NOT NULL DEFAULT 'tag'`)

	return nil
}
