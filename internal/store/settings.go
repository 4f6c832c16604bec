package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"
)

// Settings keys. Values are JSON-encoded in the settings table.
const (
	SettingConfidenceAutoThreshold     = "confidence_auto_threshold"
	SettingConfidenceReviewThreshold   = "confidence_review_threshold"
	SettingArtworkMinSize              = "artwork_min_size"
	SettingArtworkMaxSize              = "artwork_max_size"
	SettingArtworkSources              = "artwork_sources"
	SettingPreferredCountries          = "preferred_countries"
	SettingPreferredMedia              = "preferred_media"
	SettingDiscFolderPatterns          = "disc_subfolder_patterns"
	SettingBackupEnabled               = "backup_enabled"
	SettingBackupMaxPerAlbum           = "backup_max_per_album"
	SettingFanartTVAPIKey              = "fanarttv_api_key"
	SettingAcoustIDAPIKey              = "acoustid_api_key"
	SettingFingerprintEnabled          = "fingerprint_enabled"
	SettingTaggingMode                 = "tagging_mode"
	SettingLyricsEnabled               = "lyrics_enabled"
	SettingLyricsAutoFetch             = "lyrics_auto_fetch"
	SettingReplayGainEnabled           = "replaygain_enabled"
	SettingReplayGainAutoCalculate     = "replaygain_auto_calculate"
	SettingReplayGainReferenceLoudness = "replaygain_reference_loudness"
	SettingWatchStabilizationDelay     = "watch_stabilization_delay"
)

// Tagging modes.
const (
	TaggingModeAuto   = "auto"
	TaggingModeManual = "manual"
)

// DefaultDiscFolderPatterns match disc subfolders like "CD1", "Disc 2" or "CD A".
var DefaultDiscFolderPatterns = []string{
	`(?i)^cd\s*(\d+)$`,
	`(?i)^disc\s*(\d+)$`,
	`(?i)^disk\s*(\d+)$`,
	`(?i)^cd\s*([a-z])$`,
}

// Settings reads and writes runtime settings. Every change bumps an in-memory
// version counter so derived caches know when to rebuild.
type Settings struct {
	db      *sql.DB
	version atomic.Int64
}

func newSettings(db *sql.DB) *Settings {
	s := &Settings{db: db}
	s.version.Store(1)
	return s
}

// Version returns the current settings version. It increases on every Set.
func (s *Settings) Version() int64 {
	return s.version.Load()
}

func (s *Settings) seedDefaults() error {
	defaults := map[string]any{
		SettingConfidenceAutoThreshold:     85.0,
		SettingConfidenceReviewThreshold:   50.0,
		SettingArtworkMinSize:              500,
		SettingArtworkMaxSize:              1400,
		SettingArtworkSources:              []string{"filesystem", "itunes", "fanarttv", "coverart"},
		SettingPreferredCountries:          []string{"US", "GB", "DE", "IT"},
		SettingPreferredMedia:              []string{"Digital Media", "CD"},
		SettingDiscFolderPatterns:          DefaultDiscFolderPatterns,
		SettingBackupEnabled:               true,
		SettingBackupMaxPerAlbum:           3,
		SettingFanartTVAPIKey:              "",
		SettingAcoustIDAPIKey:              "",
		SettingFingerprintEnabled:          false,
		SettingTaggingMode:                 TaggingModeAuto,
		SettingLyricsEnabled:               true,
		SettingLyricsAutoFetch:             true,
		SettingReplayGainEnabled:           false,
		SettingReplayGainAutoCalculate:     false,
		SettingReplayGainReferenceLoudness: -18.0,
		SettingWatchStabilizationDelay:     30,
	}

	now := time.Now().Unix()
	for key, value := range defaults {
		data, err := json.Marshal(value)
		if err != nil {
			return err
		}
		_, err = s.db.Exec(`
			INSERT OR IGNORE INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		`, key, string(data), now)
		if err != nil {
			return err
		}
	}
	return nil
}

// Set stores a JSON-encoded value for key and bumps the version counter.
func (s *Settings) Set(key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode setting %s: %w", key, err)
	}
	_, err = s.db.Exec(`
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, string(data), time.Now().Unix())
	if err != nil {
		return err
	}
	s.version.Add(1)
	return nil
}

func (s *Settings) raw(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return value, err
}

// String returns a string setting, or fallback when missing or malformed.
func (s *Settings) String(key, fallback string) string {
	raw, err := s.raw(key)
	if err != nil {
		return fallback
	}
	var v string
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return fallback
	}
	return v
}

// Float returns a float setting, or fallback when missing or malformed.
func (s *Settings) Float(key string, fallback float64) float64 {
	raw, err := s.raw(key)
	if err != nil {
		return fallback
	}
	var v float64
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return fallback
	}
	return v
}

// Int returns an int setting, or fallback when missing or malformed.
func (s *Settings) Int(key string, fallback int) int {
	raw, err := s.raw(key)
	if err != nil {
		return fallback
	}
	var v int
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return fallback
	}
	return v
}

// Bool returns a bool setting, or fallback when missing or malformed.
func (s *Settings) Bool(key string, fallback bool) bool {
	raw, err := s.raw(key)
	if err != nil {
		return fallback
	}
	var v bool
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return fallback
	}
	return v
}

// StringSlice returns a string list setting, or fallback when missing or malformed.
func (s *Settings) StringSlice(key string, fallback []string) []string {
	raw, err := s.raw(key)
	if err != nil {
		return fallback
	}
	var v []string
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return fallback
	}
	return v
}

// All returns every setting as raw JSON values keyed by name.
func (s *Settings) All() (map[string]string, error) {
	rows, err := s.db.Query(`SELECT key, value FROM settings ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		out[key] = value
	}
	return out, rows.Err()
}
