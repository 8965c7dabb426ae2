package app

import (
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/corey/dashgate/internal/ports"
)

// auditQueueSize is how many records may wait for the writer before new ones are dropped.
const auditQueueSize = 1024

// auditQueue implements ports.AccessSink. Request goroutines enqueue without
// blocking; a single writer goroutine appends to the store. A nil queue is a no-op.
type auditQueue struct {
	store ports.AccessStore
	log   zerolog.Logger

	mu      sync.RWMutex // guards closed against sends on a closed channel
	ch      chan ports.AccessRecord
	closed  bool
	started bool
	done    chan struct{}
	dropped atomic.Int64
}

func newAuditQueue(store ports.AccessStore, log zerolog.Logger, size int) *auditQueue {
	return &auditQueue{
		store: store,
		log:   log,
		ch:    make(chan ports.AccessRecord, size),
		done:  make(chan struct{}),
	}
}

// Record enqueues rec, dropping it if the queue is full or closed.
func (q *auditQueue) Record(rec ports.AccessRecord) {
	if q == nil {
		return
	}
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.dropped.Add(1)
		return
	}
	select {
	case q.ch <- rec:
	default:
		q.dropped.Add(1)
	}
}

func (q *auditQueue) droppedCount() int64 {
	if q == nil {
		return 0
	}
	return q.dropped.Load()
}

func (q *auditQueue) start() {
	if q == nil {
		return
	}
	q.mu.Lock()
	q.started = true
	q.mu.Unlock()

	go func() {
		defer close(q.done)
		for rec := range q.ch {
			if err := q.store.Append(rec); err != nil {
				q.log.Warn().Err(err).Msg("audit append")
			}
		}
	}()
}

// stop closes the queue, waits for the writer to drain it and returns the
// number of dropped records. Safe to call more than once.
func (q *auditQueue) stop() int64 {
	if q == nil {
		return 0
	}
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
	started := q.started
	q.mu.Unlock()

	if started {
		<-q.done
	}
	return q.dropped.Load()
}
