package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/okian/podium/internal/domain/dedupe"
)

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	job := NewJob("gg-2025", "winner")
	if job.ID == "" || job.EnqueuedAt.IsZero() {
		t.Fatalf("expected job id and timestamp, got %+v", job)
	}
	if !q.Enqueue(ctx, job) {
		t.Error("expected enqueue to succeed")
	}
	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	got := <-q.Dequeue(ctx)
	if got.EventID != "gg-2025" || got.ID != job.ID {
		t.Errorf("expected %s, got %+v", job.ID, got)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if !q.Enqueue(ctx, NewJob(fmt.Sprintf("event-%d", i), "winner")) {
			t.Error("expected enqueue to succeed")
		}
	}
	if q.Enqueue(ctx, NewJob("event-3", "winner")) {
		t.Error("expected enqueue to fail when full")
	}
	if l := q.Len(ctx); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
}

func TestInMemoryQueue_CoalescesPendingEvents(t *testing.T) {
	d := dedupe.NewInMemoryDeduper()
	q := NewInMemoryQueue(WithCapacity(10), WithDeduper(d))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if !q.Enqueue(ctx, NewJob("gg-2025", "winner")) {
			t.Fatal("expected coalesced enqueue to report success")
		}
	}
	if l := q.Len(ctx); l != 1 {
		t.Fatalf("expected one pending job, got %d", l)
	}

	<-q.Dequeue(ctx)
	if d.Pending("gg-2025") {
		t.Error("expected pending mark to be cleared on dequeue")
	}
	if !q.Enqueue(ctx, NewJob("gg-2025", "winner")) {
		t.Error("expected a new trigger to be queued after dequeue")
	}
	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected one queued job, got %d", l)
	}
}

func TestInMemoryQueue_BackpressureReleasesMark(t *testing.T) {
	d := dedupe.NewInMemoryDeduper()
	q := NewInMemoryQueue(WithCapacity(1), WithDeduper(d))
	ctx := context.Background()

	q.Enqueue(ctx, NewJob("a", "winner"))
	if err := q.Submit(ctx, NewJob("b", "winner")); !errors.Is(err, ErrFull) {
		t.Fatalf("expected ErrFull, got %v", err)
	}
	if d.Pending("b") {
		t.Error("refused job must not stay pending")
	}
}

func TestInMemoryQueue_ConcurrentAccess(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(100))
	ctx := context.Background()
	producers, perProducer := 10, 50

	var wg sync.WaitGroup
	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < perProducer; j++ {
				for !q.Enqueue(ctx, NewJob(fmt.Sprintf("event-%d-%d", id, j), "winner")) {
					time.Sleep(time.Millisecond)
				}
			}
		}(i)
	}

	received := 0
	jobs := q.Dequeue(ctx)
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	timeout := time.After(5 * time.Second)
	for received < producers*perProducer {
		select {
		case <-jobs:
			received++
		case <-timeout:
			t.Fatalf("timed out after %d jobs", received)
		}
	}
	<-done
}

func TestInMemoryQueue_GracefulShutdown(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(10))
	ctx := context.Background()
	q.Enqueue(ctx, NewJob("gg-2025", "winner"))

	if err := q.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to be closed")
	}
	if err := q.Submit(ctx, NewJob("oscars", "winner")); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed after close, got %v", err)
	}
	if err := q.Close(); err != nil {
		t.Errorf("expected second close to be a no-op, got %v", err)
	}

	jobs := q.Dequeue(ctx)
	if j, ok := <-jobs; !ok || j.EventID != "gg-2025" {
		t.Errorf("expected buffered job to drain, got %+v %v", j, ok)
	}
	if _, ok := <-jobs; ok {
		t.Error("expected channel to close after draining")
	}
}
