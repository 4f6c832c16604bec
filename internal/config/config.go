package config

import (
	"os"
	"path/filepath"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds bootstrap settings loaded before the database is available.
// Everything tunable at runtime lives in the settings table instead.
type Config struct {
	MusicDir     string `koanf:"music_dir"`     // root of the watched music library
	DatabasePath string `koanf:"database_path"` // SQLite database file
	BackupDir    string `koanf:"backup_dir"`    // root for tag backup covers
	LogLevel     string `koanf:"log_level"`     // debug, info, warn, error

	FpcalcPath string `koanf:"fpcalc_path"` // chromaprint fpcalc binary (default: "fpcalc" from PATH)
	FfmpegPath string `koanf:"ffmpeg_path"` // ffmpeg binary for ReplayGain analysis
}

func Load() (*Config, error) {
	k := koanf.New(".")

	// Try config files in order of priority (last wins)
	configPaths := getConfigPaths()

	for _, path := range configPaths {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, err
			}
		}
	}

	cfg := &Config{
		MusicDir:     "/music",
		DatabasePath: "/data/musictaggerz.db",
		BackupDir:    "/data/backups",
		LogLevel:     "info",
		FpcalcPath:   "fpcalc",
		FfmpegPath:   "ffmpeg",
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	cfg.MusicDir = expandPath(cfg.MusicDir)
	cfg.DatabasePath = expandPath(cfg.DatabasePath)
	cfg.BackupDir = expandPath(cfg.BackupDir)

	return cfg, nil
}

func getConfigPaths() []string {
	paths := []string{}

	// 1. ~/.config/musictaggerz/config.toml
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "musictaggerz", "config.toml"))
	}

	// 2. ./config.toml (pwd, highest priority)
	paths = append(paths, "config.toml")

	return paths
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
