package events

import (
	"testing"
)

func TestSubscribe_ReceivesPublished(t *testing.T) {
	bus := NewBus()
	defer bus.Close()
	sub := bus.Subscribe()

	bus.PublishAlbum(AlbumUpdate{AlbumID: 3, Status: "tagged", Score: 92.5})
	bus.PublishProgress(Progress{AlbumID: 3, Phase: "writing", Message: "track 1/10"})
	bus.PublishScan(ScanUpdate{Phase: "scanning", Current: 4, Total: 20})
	bus.PublishNotification("info", "hello")

	a := <-sub.AlbumUpdates
	if a.AlbumID != 3 || a.Status != "tagged" {
		t.Errorf("AlbumUpdate = %+v, want album 3 tagged", a)
	}

	p := <-sub.Progress
	if p.Phase != "writing" {
		t.Errorf("Progress.Phase = %q, want writing", p.Phase)
	}

	s := <-sub.ScanUpdates
	if s.Current != 4 || s.Total != 20 {
		t.Errorf("ScanUpdate = %+v, want 4/20", s)
	}

	n := <-sub.Notifications
	if n.Level != "info" || n.Message != "hello" {
		t.Errorf("Notification = %+v", n)
	}
}

func TestUnsubscribe_SignalsDone(t *testing.T) {
	bus := NewBus()
	defer bus.Close()
	sub := bus.Subscribe()

	bus.Unsubscribe(sub)
	<-sub.Done

	// Publishing after unsubscribe must not reach the old channels.
	bus.PublishNotification("info", "late")
	select {
	case <-sub.Notifications:
		t.Error("received event after unsubscribe")
	default:
	}
}

func TestClose_SignalsAllSubscribers(t *testing.T) {
	bus := NewBus()
	a := bus.Subscribe()
	b := bus.Subscribe()

	bus.Close()
	<-a.Done
	<-b.Done

	// Subscribing after close yields an already-done subscription.
	c := bus.Subscribe()
	<-c.Done
}

func TestPublish_NonBlocking_DropsWhenFull(t *testing.T) {
	bus := NewBus()
	defer bus.Close()
	sub := bus.Subscribe()

	for range eventBufferSize + 5 {
		bus.PublishNotification("info", "x")
	}

	count := 0
	for {
		select {
		case <-sub.Notifications:
			count++
		default:
			if count != eventBufferSize {
				t.Errorf("received %d events, want %d (buffer size)", count, eventBufferSize)
			}
			return
		}
	}
}
