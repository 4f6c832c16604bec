// Package queue serializes tagging work through a single worker so only one
// album is ever being fingerprinted, matched and written at a time.
package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/MattiVenturelli/musictaggerz/internal/logger"
	"github.com/MattiVenturelli/musictaggerz/internal/pipeline"
	"github.com/MattiVenturelli/musictaggerz/internal/store"
)

const (
	queueCapacity  = 256
	dequeueTimeout = 2 * time.Second

	// maxRetries caps tagging attempts per album, including the first one.
	maxRetries = 3
)

// Item is one unit of queued work: either a folder to scan or an album to
// tag. A folder item scans the path; new or changed albums are then queued
// for tagging through the scanner's Enqueue hook.
type Item struct {
	FolderPath    string
	AlbumID       int64
	ReleaseID     string
	UserInitiated bool

	retryCount int
}

type tagger interface {
	TagAlbum(ctx context.Context, albumID int64, opts pipeline.Options) (pipeline.Outcome, error)
}

type folderScanner interface {
	ScanFolder(ctx context.Context, path string, force bool) (int64, error)
}

// Queue is the FIFO work queue with its single worker.
type Queue struct {
	store   *store.Store
	tagger  tagger
	scanner folderScanner

	items chan Item
	stop  chan struct{}
	done  chan struct{}

	mu      sync.Mutex
	current *Item
}

// New creates a Queue. The worker does not run until Start.
func New(st *store.Store, tag tagger, scan folderScanner) *Queue {
	return &Queue{
		store:   st,
		tagger:  tag,
		scanner: scan,
		items:   make(chan Item, queueCapacity),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start launches the worker goroutine.
func (q *Queue) Start(ctx context.Context) {
	go q.worker(ctx)
	logger.Infof(ctx, "queue worker started")
}

// Stop signals the worker and waits for the current item to finish.
func (q *Queue) Stop() {
	close(q.stop)
	<-q.done
}

// EnqueueFolder queues a folder for scanning. Drops the item when the queue
// is full.
func (q *Queue) EnqueueFolder(path string) {
	q.push(Item{FolderPath: path})
}

// EnqueueAlbum queues an album for tagging.
func (q *Queue) EnqueueAlbum(albumID int64, releaseID string, userInitiated bool) {
	q.push(Item{AlbumID: albumID, ReleaseID: releaseID, UserInitiated: userInitiated})
}

func (q *Queue) push(item Item) {
	select {
	case q.items <- item:
		logger.Debugf(context.Background(), "queued %s (depth %d)", itemLabel(item), len(q.items))
	default:
		logger.Warnf(context.Background(), "queue full, dropping %s", itemLabel(item))
	}
}

// Depth returns the number of queued items, not counting the current one.
func (q *Queue) Depth() int {
	return len(q.items)
}

// Current returns a copy of the item being processed, nil when idle.
func (q *Queue) Current() *Item {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.current == nil {
		return nil
	}
	item := *q.current
	return &item
}

func (q *Queue) worker(ctx context.Context) {
	defer close(q.done)
	for {
		select {
		case <-q.stop:
			return
		case <-ctx.Done():
			return
		case item := <-q.items:
			q.process(ctx, item)
		case <-time.After(dequeueTimeout):
			// Periodic wakeup so shutdown is never missed
		}
	}
}

func (q *Queue) process(ctx context.Context, item Item) {
	q.mu.Lock()
	q.current = &item
	q.mu.Unlock()
	defer func() {
		q.mu.Lock()
		q.current = nil
		q.mu.Unlock()
	}()

	if item.FolderPath != "" && item.AlbumID == 0 {
		logger.Infof(ctx, "processing folder: %s", item.FolderPath)
		if _, err := q.scanner.ScanFolder(ctx, item.FolderPath, false); err != nil {
			logger.Warnf(ctx, "scanning %s: %v", item.FolderPath, err)
		}
		return
	}
	if item.AlbumID == 0 {
		return
	}

	logger.Infof(ctx, "processing album %d (attempt %d/%d)", item.AlbumID, item.retryCount+1, maxRetries)
	outcome, err := q.tagger.TagAlbum(ctx, item.AlbumID, pipeline.Options{
		ReleaseID:     item.ReleaseID,
		UserInitiated: item.UserInitiated,
	})
	if err != nil {
		logger.Errorf(ctx, "tagging album %d: %v", item.AlbumID, err)
	}
	if outcome == pipeline.OutcomeFailed {
		q.retry(ctx, item)
	}
}

// retry re-queues a failed album until maxRetries is reached. The counter is
// persisted so it survives restarts. Review and skip outcomes never land
// here; retrying them would change nothing.
func (q *Queue) retry(ctx context.Context, item Item) {
	if item.retryCount >= maxRetries-1 {
		logger.Warnf(ctx, "max retries reached for album %d", item.AlbumID)
		return
	}
	item.retryCount++
	if err := q.store.UpdateAlbumRetryCount(item.AlbumID, item.retryCount); err != nil {
		logger.Warnf(ctx, "persisting retry count for album %d: %v", item.AlbumID, err)
	}
	q.push(item)
	logger.Infof(ctx, "re-queued album %d (retry %d/%d)", item.AlbumID, item.retryCount, maxRetries)
}

func itemLabel(item Item) string {
	if item.FolderPath != "" {
		return "folder " + item.FolderPath
	}
	return fmt.Sprintf("album %d", item.AlbumID)
}
