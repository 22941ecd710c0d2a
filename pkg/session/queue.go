package session

import "sync"

// Queue is a bounded FIFO of datagrams. Push never blocks, a full queue
// drops its oldest entry.
type Queue struct {
	mu      sync.Mutex
	items   [][]byte
	head    int
	n       int
	closed  bool
	ready   chan struct{}
	dropped uint64
}

func NewQueue(capacity int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{
		items: make([][]byte, capacity),
		ready: make(chan struct{}, 1),
	}
}

// Push appends b and reports whether an older entry had to be dropped.
// Pushing to a closed queue is a no-op.
func (q *Queue) Push(b []byte) (dropped bool) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	if q.n == len(q.items) {
		q.items[q.head] = nil
		q.head = (q.head + 1) % len(q.items)
		q.n--
		q.dropped++
		dropped = true
	}
	q.items[(q.head+q.n)%len(q.items)] = b
	q.n++
	q.mu.Unlock()
	q.signal()
	return dropped
}

// Pop removes the oldest entry
func (q *Queue) Pop() ([]byte, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.n == 0 {
		return nil, false
	}
	b := q.items[q.head]
	q.items[q.head] = nil
	q.head = (q.head + 1) % len(q.items)
	q.n--
	return b, true
}

// Ready is signaled after Push and Close
func (q *Queue) Ready() <-chan struct{} {
	return q.ready
}

func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.signal()
}

// Done reports whether the queue is closed and drained
func (q *Queue) Done() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed && q.n == 0
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.n
}

func (q *Queue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

func (q *Queue) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}
