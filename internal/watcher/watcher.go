// Package watcher polls the music directory for new, changed and removed
// album folders. Polling is used instead of inotify because filesystem
// events do not propagate reliably across bind mounts.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/MattiVenturelli/musictaggerz/internal/folder"
	"github.com/MattiVenturelli/musictaggerz/internal/logger"
	"github.com/MattiVenturelli/musictaggerz/internal/store"
	"github.com/MattiVenturelli/musictaggerz/internal/tags"
)

const pollInterval = 60 * time.Second

// pendingChange is a candidate change awaiting stabilization: the observed
// file count (-1 for removal) and how many polls it has survived unchanged.
type pendingChange struct {
	count int
	polls int
}

// Watcher detects album folder changes under the music directory and hands
// the affected paths to a callback, typically the queue's EnqueueFolder.
// Changes must hold steady for the configured stabilization delay before
// they fire, so half-copied albums are not picked up mid-transfer.
type Watcher struct {
	store    *store.Store
	reader   *folder.Reader
	musicDir string
	interval time.Duration
	enqueue  func(path string)

	mu      sync.Mutex
	known   map[string]bool
	counts  map[string]int
	pending map[string]pendingChange

	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a Watcher. enqueue receives every stable new or changed path.
func New(st *store.Store, reader *folder.Reader, musicDir string, enqueue func(path string)) *Watcher {
	return &Watcher{
		store:    st,
		reader:   reader,
		musicDir: musicDir,
		interval: pollInterval,
		enqueue:  enqueue,
		known:    make(map[string]bool),
		counts:   make(map[string]int),
		pending:  make(map[string]pendingChange),
	}
}

// Start seeds the known-folder set from the store and begins polling.
func (w *Watcher) Start(ctx context.Context) error {
	paths, err := w.store.AlbumPaths()
	if err != nil {
		return err
	}
	w.mu.Lock()
	for path := range paths {
		w.known[path] = true
		w.counts[path] = w.countAudioFiles(path)
	}
	w.mu.Unlock()
	logger.Infof(ctx, "watcher: %d known folders, polling every %s", len(paths), w.interval)

	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	go w.loop(ctx)
	return nil
}

// Stop ends the polling loop and waits for it to exit.
func (w *Watcher) Stop() {
	if w.cancel == nil {
		return
	}
	w.cancel()
	<-w.done
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

// poll runs one scan cycle: known folders are checked for count changes and
// removal, then the directory tree is searched for unknown album folders.
func (w *Watcher) poll(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.checkKnown(ctx)
	w.discoverNew(ctx)
}

func (w *Watcher) checkKnown(ctx context.Context) {
	for path := range w.known {
		if _, err := os.Stat(path); err != nil {
			w.handleRemoved(ctx, path)
			continue
		}
		count := w.countAudioFiles(path)
		if count == w.counts[path] {
			delete(w.pending, path)
			continue
		}
		if w.stillStabilizing(path, count) {
			continue
		}
		logger.Infof(ctx, "watcher: %s changed (%d -> %d audio files)", path, w.counts[path], count)
		w.counts[path] = count
		delete(w.pending, path)
		w.enqueue(path)
	}
}

// stillStabilizing tracks a candidate change and reports whether it has not
// yet survived unchanged for the stabilization delay. A different count
// restarts the wait.
func (w *Watcher) stillStabilizing(path string, count int) bool {
	p, ok := w.pending[path]
	if !ok || p.count != count {
		w.pending[path] = pendingChange{count: count}
		return true
	}
	p.polls++
	if p.polls < w.stablePolls() {
		w.pending[path] = p
		return true
	}
	return false
}

// stablePolls converts the watch_stabilization_delay setting into how many
// consecutive polls a change must survive unchanged before it fires.
func (w *Watcher) stablePolls() int {
	delay := time.Duration(w.store.Settings().Int(store.SettingWatchStabilizationDelay, 30)) * time.Second
	polls := int((delay + w.interval - 1) / w.interval)
	if polls < 1 {
		polls = 1
	}
	return polls
}

// handleRemoved drops the album rows of a folder that disappeared. Removal
// is debounced like changes: the folder must stay gone for the delay.
func (w *Watcher) handleRemoved(ctx context.Context, path string) {
	if w.stillStabilizing(path, -1) {
		return
	}
	logger.Infof(ctx, "watcher: folder removed: %s", path)
	delete(w.known, path)
	delete(w.counts, path)
	delete(w.pending, path)

	album, err := w.store.AlbumByPath(path)
	if err != nil {
		return
	}
	if err := w.store.DeleteAlbum(album.ID); err != nil {
		logger.Warnf(ctx, "watcher: deleting album %d: %v", album.ID, err)
	}
}

func (w *Watcher) discoverNew(ctx context.Context) {
	entries, err := os.ReadDir(w.musicDir)
	if err != nil {
		logger.Warnf(ctx, "watcher: reading %s: %v", w.musicDir, err)
		return
	}

	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		path := filepath.Join(w.musicDir, entry.Name())
		kind, err := w.reader.Classify(path)
		if err != nil {
			continue
		}
		switch kind {
		case folder.KindAlbum, folder.KindMultiDisc:
			w.considerNew(ctx, path)
		case folder.KindArtistDir:
			subs, err := os.ReadDir(path)
			if err != nil {
				continue
			}
			for _, sub := range subs {
				if !sub.IsDir() || strings.HasPrefix(sub.Name(), ".") {
					continue
				}
				subPath := filepath.Join(path, sub.Name())
				subKind, err := w.reader.Classify(subPath)
				if err != nil {
					continue
				}
				if subKind == folder.KindAlbum || subKind == folder.KindMultiDisc {
					w.considerNew(ctx, subPath)
				}
			}
		}
	}
}

// considerNew registers an unknown album folder once its file count has
// held steady for the stabilization delay.
func (w *Watcher) considerNew(ctx context.Context, path string) {
	if w.known[path] {
		return
	}
	count := w.countAudioFiles(path)
	if count == 0 {
		return
	}
	if w.stillStabilizing(path, count) {
		return
	}
	logger.Infof(ctx, "watcher: new album folder: %s (%d audio files)", path, count)
	w.known[path] = true
	w.counts[path] = count
	delete(w.pending, path)
	w.enqueue(path)
}

// countAudioFiles counts audio files directly in the folder and in its disc
// subfolders.
func (w *Watcher) countAudioFiles(path string) int {
	dirs := []string{path}
	if discs, err := w.reader.DiscFolders(path); err == nil {
		for _, disc := range discs {
			dirs = append(dirs, disc.Path)
		}
	}

	count := 0
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if !entry.IsDir() && tags.IsMusicFile(entry.Name()) {
				count++
			}
		}
	}
	return count
}
