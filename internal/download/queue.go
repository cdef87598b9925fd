package download

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	candidateID int64
	priority    int
	seq         int64
	readyAt     time.Time
}

// Queue orders candidate ids for the worker pool.
//
// Ordering is priority first (higher wins), then insertion order. Entries may
// carry a readiness time for delayed retries; an entry is invisible to
// Dequeue until its time arrives. A candidate id stays a member from Enqueue
// until Resolve, covering the whole queued and downloading span, which is
// what guarantees a single outstanding job per candidate.
type Queue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	entries []entry
	members map[int64]struct{}
	seq     int64
	closed  bool
	now     func() time.Time
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	q := &Queue{
		members: make(map[int64]struct{}),
		now:     time.Now,
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Enqueue adds a candidate with the given priority. It reports false when
// the candidate already has an outstanding entry or the queue is closed.
func (q *Queue) Enqueue(candidateID int64, priority int) bool {
	return q.enqueue(candidateID, priority, 0, false)
}

// RequeueAfter schedules another attempt for a candidate that is already a
// member (its worker just failed retryably). The entry becomes visible after
// the delay. It reports false when the candidate is not a member.
func (q *Queue) RequeueAfter(candidateID int64, priority int, delay time.Duration) bool {
	return q.enqueue(candidateID, priority, delay, true)
}

func (q *Queue) enqueue(candidateID int64, priority int, delay time.Duration, requireMember bool) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	_, member := q.members[candidateID]
	if requireMember != member {
		return false
	}
	q.members[candidateID] = struct{}{}
	q.seq++
	e := entry{candidateID: candidateID, priority: priority, seq: q.seq}
	if delay > 0 {
		e.readyAt = q.now().Add(delay)
		// Wake any waiter when the entry becomes ready.
		time.AfterFunc(delay, q.cond.Broadcast)
	}
	q.entries = append(q.entries, e)
	q.cond.Broadcast()
	return true
}

// Dequeue blocks until a ready entry is available, the context is done, or
// the queue is closed. The dequeued candidate remains a member until Resolve.
func (q *Queue) Dequeue(ctx context.Context) (int64, bool) {
	if ctx == nil {
		ctx = context.Background()
	}
	stop := context.AfterFunc(ctx, q.cond.Broadcast)
	defer stop()

	q.mu.Lock()
	defer q.mu.Unlock()
	for {
		if ctx.Err() != nil {
			return 0, false
		}
		if idx, ok := q.bestReadyLocked(); ok {
			id := q.entries[idx].candidateID
			q.entries = append(q.entries[:idx], q.entries[idx+1:]...)
			return id, true
		}
		if q.closed {
			return 0, false
		}
		q.waitLocked()
	}
}

// waitLocked waits for a broadcast, arming a wakeup timer when the only
// pending entries are delayed.
func (q *Queue) waitLocked() {
	if next, ok := q.earliestReadyAtLocked(); ok {
		if wait := next.Sub(q.now()); wait > 0 {
			timer := time.AfterFunc(wait, q.cond.Broadcast)
			defer timer.Stop()
		}
	}
	q.cond.Wait()
}

func (q *Queue) bestReadyLocked() (int, bool) {
	now := q.now()
	best := -1
	for i, e := range q.entries {
		if !e.readyAt.IsZero() && e.readyAt.After(now) {
			continue
		}
		if best == -1 {
			best = i
			continue
		}
		b := q.entries[best]
		if e.priority > b.priority || (e.priority == b.priority && e.seq < b.seq) {
			best = i
		}
	}
	return best, best >= 0
}

func (q *Queue) earliestReadyAtLocked() (time.Time, bool) {
	var earliest time.Time
	for _, e := range q.entries {
		if e.readyAt.IsZero() {
			continue
		}
		if earliest.IsZero() || e.readyAt.Before(earliest) {
			earliest = e.readyAt
		}
	}
	return earliest, !earliest.IsZero()
}

// Contains reports whether a candidate has an outstanding entry or job.
func (q *Queue) Contains(candidateID int64) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.members[candidateID]
	return ok
}

// Resolve releases a candidate's membership after its job reached a durable
// outcome (organized, failed, or abandoned). Any still-pending entries for
// the id are dropped.
func (q *Queue) Resolve(candidateID int64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.members, candidateID)
	filtered := q.entries[:0]
	for _, e := range q.entries {
		if e.candidateID != candidateID {
			filtered = append(filtered, e)
		}
	}
	q.entries = filtered
}

// Len returns the number of entries currently visible or delayed.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Close wakes all blocked consumers; subsequent Dequeue calls drain nothing.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cond.Broadcast()
}
