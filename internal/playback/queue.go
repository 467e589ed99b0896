package playback

import (
	"iter"
	"math/rand/v2"
	"sync"
)

// Queue is a bounded FIFO of play requests. It is safe for concurrent use;
// every operation is atomic with respect to the others.
type Queue struct {
	mu    sync.Mutex
	items []PlayRequest
	limit int
}

// NewQueue returns a queue holding at most limit requests. A non-positive
// limit means unbounded.
func NewQueue(limit int) *Queue {
	return &Queue{limit: limit}
}

// Enqueue appends a request and returns its 1-based queue position.
func (q *Queue) Enqueue(req PlayRequest) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.limit > 0 && len(q.items) >= q.limit {
		return 0, ErrQueueFull
	}
	q.items = append(q.items, req)
	return len(q.items), nil
}

// DequeueNext removes and returns the front request.
func (q *Queue) DequeueNext() (PlayRequest, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return PlayRequest{}, ErrQueueEmpty
	}
	req := q.items[0]
	q.items = q.items[1:]
	return req, nil
}

// Remove deletes every request matching the predicate and returns how many
// were removed. Relative order of the remaining requests is preserved.
func (q *Queue) Remove(match func(PlayRequest) bool) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	kept := q.items[:0]
	for _, req := range q.items {
		if !match(req) {
			kept = append(kept, req)
		}
	}
	removed := len(q.items) - len(kept)
	q.items = kept
	return removed
}

// RemoveAt deletes the request at the 1-based position and returns it.
func (q *Queue) RemoveAt(pos int) (PlayRequest, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if pos < 1 || pos > len(q.items) {
		return PlayRequest{}, ErrBadPosition
	}
	req := q.items[pos-1]
	q.items = append(q.items[:pos-1], q.items[pos:]...)
	return req, nil
}

// Move relocates the request at 1-based position from to position to,
// shifting the requests in between.
func (q *Queue) Move(from, to int) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if from < 1 || from > len(q.items) || to < 1 || to > len(q.items) {
		return ErrBadPosition
	}
	req := q.items[from-1]
	q.items = append(q.items[:from-1], q.items[from:]...)
	rest := q.items[to-1:]
	q.items = append(q.items[:to-1], append([]PlayRequest{req}, rest...)...)
	return nil
}

// Shuffle randomizes the order of the queued requests.
func (q *Queue) Shuffle() {
	q.mu.Lock()
	defer q.mu.Unlock()
	rand.Shuffle(len(q.items), func(i, j int) {
		q.items[i], q.items[j] = q.items[j], q.items[i]
	})
}

// Clear empties the queue and returns how many requests were dropped.
func (q *Queue) Clear() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.items)
	q.items = nil
	return n
}

// Len returns the number of queued requests.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Snapshot copies the current queue contents in order.
func (q *Queue) Snapshot() []PlayRequest {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]PlayRequest, len(q.items))
	copy(out, q.items)
	return out
}

// All iterates over a snapshot of the queue in order. The iterator is
// restartable and never observes mutations made after the call.
func (q *Queue) All() iter.Seq2[int, PlayRequest] {
	snapshot := q.Snapshot()
	return func(yield func(int, PlayRequest) bool) {
		for i, req := range snapshot {
			if !yield(i+1, req) {
				return
			}
		}
	}
}
