// musictaggerz watches a music directory, identifies album folders against
// MusicBrainz and writes tags, artwork, lyrics and ReplayGain back into the
// files. State lives in SQLite; all mutating work is serialized through a
// single-worker queue.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap/zapcore"

	"github.com/MattiVenturelli/musictaggerz/internal/acoustid"
	"github.com/MattiVenturelli/musictaggerz/internal/artwork"
	"github.com/MattiVenturelli/musictaggerz/internal/backup"
	"github.com/MattiVenturelli/musictaggerz/internal/config"
	"github.com/MattiVenturelli/musictaggerz/internal/events"
	"github.com/MattiVenturelli/musictaggerz/internal/folder"
	"github.com/MattiVenturelli/musictaggerz/internal/logger"
	"github.com/MattiVenturelli/musictaggerz/internal/lrclib"
	"github.com/MattiVenturelli/musictaggerz/internal/match"
	"github.com/MattiVenturelli/musictaggerz/internal/musicbrainz"
	"github.com/MattiVenturelli/musictaggerz/internal/pipeline"
	"github.com/MattiVenturelli/musictaggerz/internal/queue"
	"github.com/MattiVenturelli/musictaggerz/internal/replaygain"
	"github.com/MattiVenturelli/musictaggerz/internal/scanner"
	"github.com/MattiVenturelli/musictaggerz/internal/store"
	"github.com/MattiVenturelli/musictaggerz/internal/watcher"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "musictaggerz: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	level, ok := logger.ParseLogLevel(cfg.LogLevel)
	if !ok {
		level = zapcore.InfoLevel
	}
	if err := logger.Init(level); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := os.Stat(cfg.MusicDir); err != nil {
		return fmt.Errorf("music dir %s: %w", cfg.MusicDir, err)
	}
	if err := os.MkdirAll(cfg.BackupDir, 0o755); err != nil {
		return fmt.Errorf("create backup dir: %w", err)
	}

	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()
	logger.Infof(ctx, "store open at %s", cfg.DatabasePath)

	acoustid.FpcalcPath = cfg.FpcalcPath
	replaygain.FfmpegPath = cfg.FfmpegPath

	bus := events.NewBus()
	defer bus.Close()

	reader := folder.NewReader(st.Settings())
	mb := musicbrainz.NewClient()
	matcher := match.New(mb, st.Settings())
	fp := acoustid.NewFingerprinter(
		acoustid.NewClient(st.Settings().String(store.SettingAcoustIDAPIKey, "")))
	art := artwork.NewSelector(st.Settings(), mb)
	backups := backup.New(st, cfg.BackupDir)

	pipe := pipeline.New(st, reader, matcher, fp, art, backups, lrclib.New(), bus)
	scan := scanner.New(st, reader, cfg.MusicDir, bus)
	q := queue.New(st, pipe, scan)
	scan.Enqueue = func(albumID int64) { q.EnqueueAlbum(albumID, "", false) }

	w := watcher.New(st, reader, cfg.MusicDir, q.EnqueueFolder)

	q.Start(ctx)
	defer q.Stop()

	if _, err := scan.ScanAll(ctx); err != nil {
		logger.Errorf(ctx, "initial scan: %v", err)
	}

	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer w.Stop()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	s := <-sig
	logger.Infof(ctx, "received %s, shutting down", s)
	cancel()
	return nil
}
