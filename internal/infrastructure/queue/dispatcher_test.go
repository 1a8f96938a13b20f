package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/finaidhub/hub/internal/core/domain"
)

type recordingService struct {
	mu     sync.Mutex
	events []domain.AuthEvent
	block  chan struct{}
	err    error
}

func (s *recordingService) Process(ctx context.Context, e domain.AuthEvent) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return s.err
}

func (s *recordingService) snapshot() []domain.AuthEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.AuthEvent(nil), s.events...)
}

func TestDispatcher_PreservesPerIdentityOrder(t *testing.T) {
	svc := &recordingService{}
	d := NewDispatcher(4, svc, zerolog.Nop())
	d.Start(context.Background())

	for i := 0; i < 50; i++ {
		d.Publish(domain.AuthEvent{Type: domain.EventLoginSucceeded, UserID: "u1", Detail: string(rune('A' + i%26))})
		d.Publish(domain.AuthEvent{Type: domain.EventLoginFailed, UserID: "u2"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}

	events := svc.snapshot()
	if len(events) != 100 {
		t.Fatalf("expected 100 events drained, got %d", len(events))
	}

	i := 0
	for _, e := range events {
		if e.UserID != "u1" {
			continue
		}
		if want := string(rune('A' + i%26)); e.Detail != want {
			t.Fatalf("event %d for u1 out of order: got %q want %q", i, e.Detail, want)
		}
		i++
	}
}

func TestDispatcher_PublishNeverBlocks(t *testing.T) {
	svc := &recordingService{block: make(chan struct{})}
	d := newDispatcher(1, 2, svc, zerolog.Nop())
	d.Start(context.Background())

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			d.Publish(domain.AuthEvent{Type: domain.EventLogout, UserID: "u1"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Publish blocked on a full queue")
	}

	close(svc.block)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}

	// One in flight plus a buffer of two; the rest were dropped.
	if n := len(svc.snapshot()); n > 3 || n == 0 {
		t.Fatalf("expected between 1 and 3 processed events, got %d", n)
	}
}

func TestDispatcher_PublishAfterStopIsDropped(t *testing.T) {
	svc := &recordingService{}
	d := NewDispatcher(2, svc, zerolog.Nop())
	d.Start(context.Background())

	if err := d.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	d.Publish(domain.AuthEvent{Type: domain.EventLogout, UserID: "u1"})

	// A second Stop is a no-op.
	if err := d.Stop(context.Background()); err != nil {
		t.Fatalf("second stop: %v", err)
	}
	if n := len(svc.snapshot()); n != 0 {
		t.Fatalf("expected no events after stop, got %d", n)
	}
}

func TestDispatcher_ProcessErrorKeepsWorkerAlive(t *testing.T) {
	svc := &recordingService{err: errors.New("sink down")}
	d := NewDispatcher(1, svc, zerolog.Nop())
	d.Start(context.Background())

	d.Publish(domain.AuthEvent{Type: domain.EventLoginFailed, Username: "ghost"})
	d.Publish(domain.AuthEvent{Type: domain.EventLoginFailed, Username: "ghost"})

	if err := d.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if n := len(svc.snapshot()); n != 2 {
		t.Fatalf("expected both events processed, got %d", n)
	}
}

func TestShardIndex_Deterministic(t *testing.T) {
	d := NewDispatcher(8, &recordingService{}, zerolog.Nop())
	for _, key := range []string{"u1", "u2", "admin", ""} {
		a, b := d.shardIndex(key), d.shardIndex(key)
		if a != b || a < 0 || a >= 8 {
			t.Fatalf("shard for %q not stable or out of range: %d %d", key, a, b)
		}
	}
}
