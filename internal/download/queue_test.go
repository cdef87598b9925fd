package download

import (
	"context"
	"testing"
	"time"
)

func TestQueueFIFOWithinPriority(t *testing.T) {
	q := NewQueue()
	for id := int64(1); id <= 3; id++ {
		if !q.Enqueue(id, 0) {
			t.Fatalf("enqueue %d failed", id)
		}
	}
	for want := int64(1); want <= 3; want++ {
		got, ok := q.Dequeue(context.Background())
		if !ok || got != want {
			t.Fatalf("dequeue = (%d, %v), want (%d, true)", got, ok, want)
		}
	}
}

func TestQueuePriorityWins(t *testing.T) {
	q := NewQueue()
	q.Enqueue(1, 0)
	q.Enqueue(2, 5)
	got, ok := q.Dequeue(context.Background())
	if !ok || got != 2 {
		t.Fatalf("dequeue = (%d, %v), want high priority 2", got, ok)
	}
}

func TestQueueRejectsDuplicateMembers(t *testing.T) {
	q := NewQueue()
	if !q.Enqueue(7, 0) {
		t.Fatalf("first enqueue failed")
	}
	if q.Enqueue(7, 0) {
		t.Fatalf("duplicate enqueue must be rejected")
	}
	if _, ok := q.Dequeue(context.Background()); !ok {
		t.Fatalf("dequeue failed")
	}
	// Still a member while the job is in flight.
	if q.Enqueue(7, 0) {
		t.Fatalf("enqueue during in-flight job must be rejected")
	}
	q.Resolve(7)
	if !q.Enqueue(7, 0) {
		t.Fatalf("enqueue after resolve must succeed")
	}
}

func TestQueueRequeueAfterNeedsMembership(t *testing.T) {
	q := NewQueue()
	if q.RequeueAfter(9, 0, time.Millisecond) {
		t.Fatalf("requeue of non-member must be rejected")
	}
	q.Enqueue(9, 0)
	if _, ok := q.Dequeue(context.Background()); !ok {
		t.Fatalf("dequeue failed")
	}
	if !q.RequeueAfter(9, 0, 10*time.Millisecond) {
		t.Fatalf("requeue of in-flight member must succeed")
	}
}

func TestQueueRetryTierYieldsToScheduledWork(t *testing.T) {
	q := NewQueue()
	q.Enqueue(1, 0)
	if _, ok := q.Dequeue(context.Background()); !ok {
		t.Fatalf("dequeue failed")
	}
	if !q.RequeueAfter(1, -1, time.Millisecond) {
		t.Fatalf("requeue failed")
	}
	// Let the retry become visible, then add fresh scheduled work. The retry
	// has the older sequence number but sits in a lower priority tier.
	time.Sleep(20 * time.Millisecond)
	q.Enqueue(2, 0)

	got, ok := q.Dequeue(context.Background())
	if !ok || got != 2 {
		t.Fatalf("dequeue = (%d, %v), want scheduled entry 2 ahead of the retry", got, ok)
	}
	got, ok = q.Dequeue(context.Background())
	if !ok || got != 1 {
		t.Fatalf("dequeue = (%d, %v), want retry entry 1", got, ok)
	}
}

func TestQueueDelayedEntryInvisibleUntilReady(t *testing.T) {
	q := NewQueue()
	q.Enqueue(1, 0)
	if _, ok := q.Dequeue(context.Background()); !ok {
		t.Fatalf("dequeue failed")
	}
	q.RequeueAfter(1, 0, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if id, ok := q.Dequeue(ctx); ok {
		t.Fatalf("delayed entry %d visible too early", id)
	}

	start := time.Now()
	id, ok := q.Dequeue(context.Background())
	if !ok || id != 1 {
		t.Fatalf("dequeue after delay = (%d, %v)", id, ok)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("delayed dequeue took too long: %v", elapsed)
	}
}

func TestQueueCloseUnblocksConsumers(t *testing.T) {
	q := NewQueue()
	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, ok := q.Dequeue(context.Background()); ok {
			t.Errorf("dequeue on closed queue must report not ok")
		}
	}()
	time.Sleep(10 * time.Millisecond)
	q.Close()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("consumer still blocked after close")
	}
}

func TestQueueResolveDropsPendingEntries(t *testing.T) {
	q := NewQueue()
	q.Enqueue(4, 0)
	q.Resolve(4)
	if q.Len() != 0 {
		t.Fatalf("len = %d after resolve, want 0", q.Len())
	}
	if q.Contains(4) {
		t.Fatalf("resolved candidate still a member")
	}
}
