// Package events provides a broadcast bus for service-wide notifications.
// Subscribers get buffered channels; slow subscribers lose events rather
// than blocking publishers.
package events

import (
	"sync"

	"github.com/google/uuid"
)

const eventBufferSize = 16

// AlbumUpdate is emitted whenever an album's status or score changes.
type AlbumUpdate struct {
	AlbumID int64
	Status  string
	Score   float64
}

// Progress is emitted during a tagging run as it moves through phases.
type Progress struct {
	AlbumID int64
	Phase   string // e.g. "fingerprinting", "matching", "writing"
	Message string
}

// ScanUpdate is emitted while the scanner walks the library.
type ScanUpdate struct {
	Phase   string // "started", "scanning", "finished"
	Current int
	Total   int
}

// Notification is a user-facing message.
type Notification struct {
	Level   string // "info", "warning", "error"
	Message string
}

// Subscription provides event channels for one subscriber.
type Subscription struct {
	AlbumUpdates  <-chan AlbumUpdate
	Progress      <-chan Progress
	ScanUpdates   <-chan ScanUpdate
	Notifications <-chan Notification
	Done          <-chan struct{}

	id string

	// Internal write channels
	albumCh  chan AlbumUpdate
	progCh   chan Progress
	scanCh   chan ScanUpdate
	notifyCh chan Notification
	doneCh   chan struct{}
}

func newSubscription() *Subscription {
	s := &Subscription{
		id:       uuid.NewString(),
		albumCh:  make(chan AlbumUpdate, eventBufferSize),
		progCh:   make(chan Progress, eventBufferSize),
		scanCh:   make(chan ScanUpdate, eventBufferSize),
		notifyCh: make(chan Notification, eventBufferSize),
		doneCh:   make(chan struct{}),
	}
	s.AlbumUpdates = s.albumCh
	s.Progress = s.progCh
	s.ScanUpdates = s.scanCh
	s.Notifications = s.notifyCh
	s.Done = s.doneCh
	return s
}

// close signals the subscriber to stop by closing doneCh.
func (s *Subscription) close() {
	close(s.doneCh)
}

func (s *Subscription) sendAlbum(e AlbumUpdate) {
	select {
	case s.albumCh <- e:
	default:
		// Drop if buffer full
	}
}

func (s *Subscription) sendProgress(e Progress) {
	select {
	case s.progCh <- e:
	default:
	}
}

func (s *Subscription) sendScan(e ScanUpdate) {
	select {
	case s.scanCh <- e:
	default:
	}
}

func (s *Subscription) sendNotification(e Notification) {
	select {
	case s.notifyCh <- e:
	default:
	}
}

// Bus broadcasts events to all current subscribers.
type Bus struct {
	mu     sync.Mutex
	subs   map[string]*Subscription
	closed bool
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[string]*Subscription)}
}

// Subscribe creates a new event subscription.
func (b *Bus) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	sub := newSubscription()
	if b.closed {
		sub.close()
		return sub
	}
	b.subs[sub.id] = sub
	return sub
}

// Unsubscribe removes a subscription and closes its Done channel.
func (b *Bus) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[sub.id]; !ok {
		return
	}
	delete(b.subs, sub.id)
	sub.close()
}

// Close shuts down the bus and every subscription.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, sub := range b.subs {
		sub.close()
	}
	b.subs = nil
}

// PublishAlbum broadcasts an album status change.
func (b *Bus) PublishAlbum(e AlbumUpdate) {
	b.each(func(s *Subscription) { s.sendAlbum(e) })
}

// PublishProgress broadcasts tagging progress.
func (b *Bus) PublishProgress(e Progress) {
	b.each(func(s *Subscription) { s.sendProgress(e) })
}

// PublishScan broadcasts scanner progress.
func (b *Bus) PublishScan(e ScanUpdate) {
	b.each(func(s *Subscription) { s.sendScan(e) })
}

// PublishNotification broadcasts a user-facing message.
func (b *Bus) PublishNotification(level, message string) {
	b.each(func(s *Subscription) { s.sendNotification(Notification{Level: level, Message: message}) })
}

func (b *Bus) each(send func(*Subscription)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subs {
		send(sub)
	}
}
