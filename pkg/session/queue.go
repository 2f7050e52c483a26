package session

import (
	"sync"

	"github.com/grvsrs/groundstation/pkg/messages"
)

// Queue is the unbounded FIFO of backend responses awaiting delivery to one
// satellite session. The router enqueues, the session's drain loop dequeues;
// both sides touch it from different goroutines, so it carries its own lock.
type Queue struct {
	mu    sync.Mutex
	items []messages.Response
}

func NewQueue() *Queue {
	return &Queue{}
}

// Enqueue appends a response. Never blocks, never drops.
func (q *Queue) Enqueue(msg messages.Response) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, msg)
}

// TryDequeue pops the oldest response without blocking.
func (q *Queue) TryDequeue() (messages.Response, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return messages.Response{}, false
	}
	msg := q.items[0]
	q.items = q.items[1:]
	return msg, true
}

// Len reports the number of queued responses.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
