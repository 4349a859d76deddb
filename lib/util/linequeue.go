package util

import (
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
)

var (
	// ErrQueueClosed is returned by Push after Close or Stop
	ErrQueueClosed = errors.New("queue closed")
	// ErrQueueFull is returned by Push if the number of undelivered lines reached the limit
	ErrQueueFull = errors.New("queue full")
)

// lineNode represents a single line in the queue
type lineNode struct {
	value string
	next  atomic.Pointer[lineNode]
}

// LineQueue is a bounded lock-free multi-producer single-consumer queue of
// outbound lines. Producers never block: a push either succeeds immediately or
// fails with ErrQueueFull / ErrQueueClosed. A single consumer reads the lines
// from the Recv() channel.
//
// The queue is a linked list with a sentinel head. Producers append at the tail
// with CAS, the internal consumer goroutine moves the head forward and hands
// the values to the output channel.
type LineQueue struct {
	head atomic.Pointer[lineNode]
	tail atomic.Pointer[lineNode]
	out  chan string

	wake     chan struct{} // capacity 1, coalesces wake-ups of the consumer
	stop     chan struct{}
	stopOnce sync.Once
	closed   atomic.Bool

	pending atomic.Int64 // pushed but not yet delivered
	limit   int64
}

// NewLineQueue creates a new queue. limit bounds the number of undelivered
// lines (0 = unbounded).
func NewLineQueue(limit int) *LineQueue {
	sentinel := &lineNode{}

	q := &LineQueue{
		out:   make(chan string),
		wake:  make(chan struct{}, 1),
		stop:  make(chan struct{}),
		limit: int64(limit),
	}
	q.head.Store(sentinel)
	q.tail.Store(sentinel)

	go q.consume()

	return q
}

// Push appends a line to the queue without blocking.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (q *LineQueue) Push(line string) error {
	if q.closed.Load() {
		return ErrQueueClosed
	}

	if n := q.pending.Add(1); q.limit > 0 && n > q.limit {
		q.pending.Add(-1)
		return ErrQueueFull
	}

	newNode := &lineNode{value: line}
	var backoff uint8 = 0

	for {
		tailNode := q.tail.Load()
		next := tailNode.next.Load()
		if next == nil {
			if tailNode.next.CompareAndSwap(nil, newNode) {
				// may fail if another producer already helped, tail moves on eventually
				q.tail.CompareAndSwap(tailNode, newNode)
				q.notify()
				return nil
			}
		} else {
			// help a producer that appended but did not move the tail yet
			q.tail.CompareAndSwap(tailNode, next)
		}

		// spin a little under low contention, then yield
		if backoff < 10 {
			backoff++
			for i := 0; i < 1<<backoff; i++ {
				runtime.Gosched()
			}
		}
		runtime.Gosched()
	}
}

func (q *LineQueue) notify() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// consume moves lines from the linked list to the output channel
func (q *LineQueue) consume() {
	defer close(q.out)

	for {
		head := q.head.Load()
		next := head.next.Load()

		if next == nil {
			if q.closed.Load() {
				// a push may have completed right before Close
				if head.next.Load() == nil {
					return
				}
				continue
			}
			select {
			case <-q.wake:
			case <-q.stop:
				return
			}
			continue
		}

		line := next.value
		q.head.Store(next)
		next.value = ""

		select {
		case q.out <- line:
			q.pending.Add(-1)
		case <-q.stop:
			return
		}
	}
}

// Recv returns the channel the consumer reads from. It is closed once the
// queue is closed and drained, or stopped.
func (q *LineQueue) Recv() <-chan string {
	return q.out
}

// Close prevents further pushes. Lines already queued are still delivered.
// Lines pushed concurrently with Close may be dropped.
func (q *LineQueue) Close() {
	q.closed.Store(true)
	q.notify()
}

// Stop closes the queue and discards all undelivered lines. Use it when the
// consumer has gone away.
func (q *LineQueue) Stop() {
	q.closed.Store(true)
	q.stopOnce.Do(func() { close(q.stop) })
}

// IsClosed returns true if the queue is closed.
func (q *LineQueue) IsClosed() bool {
	return q.closed.Load()
}

// Len returns the number of lines pushed but not yet delivered.
func (q *LineQueue) Len() int {
	return int(q.pending.Load())
}
