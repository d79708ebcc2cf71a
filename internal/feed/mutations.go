package feed

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"challz/internal/events"
	"challz/internal/models"
)

// ===============================
// MUTATIONS
// ===============================

// StatMutation is one optimistic counter bump awaiting server
// reconciliation. The ID correlates queue submissions with the
// success/failure events published after reconciliation.
type StatMutation struct {
	ID      string
	MediaID string
	Stat    models.Stat
}

// incrementer is the slice of the media service the queue needs.
type incrementer interface {
	IncrementStat(ctx context.Context, mediaID string, stat models.Stat) error
}

// ===============================
// MUTATION QUEUE
// ===============================

// Queue reconciles optimistic stat mutations against the server on a
// background worker. The UI applies its local increment synchronously and
// submits here; the outcome arrives as a MutationSucceeded or
// MutationFailed event on the bus. Local counters are never rolled back on
// failure.
type Queue struct {
	media  incrementer
	bus    *events.Bus
	logger *zap.Logger

	ch   chan StatMutation
	wg   sync.WaitGroup
	mu   sync.Mutex
	done bool

	// reconcileTimeout bounds each server round-trip.
	reconcileTimeout time.Duration
}

// NewQueue creates a mutation queue and starts its worker.
func NewQueue(media incrementer, bus *events.Bus, logger *zap.Logger, buffer int) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	if buffer <= 0 {
		buffer = 64
	}

	q := &Queue{
		media:            media,
		bus:              bus,
		logger:           logger,
		ch:               make(chan StatMutation, buffer),
		reconcileTimeout: 10 * time.Second,
	}

	q.wg.Add(1)
	go q.worker()

	return q
}

// Submit enqueues a mutation for reconciliation and returns its ID. After
// Close, or when the buffer is full, the mutation is dropped and "" is
// returned; the local optimistic state already reflects it either way.
func (q *Queue) Submit(mediaID string, stat models.Stat) string {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.done {
		return ""
	}

	m := StatMutation{
		ID:      uuid.NewString(),
		MediaID: mediaID,
		Stat:    stat,
	}

	select {
	case q.ch <- m:
		return m.ID
	default:
		q.logger.Warn("mutation queue full, dropping",
			zap.String("media_id", mediaID),
			zap.String("stat", string(stat)))
		return ""
	}
}

// Close stops accepting mutations and waits for the worker to drain the
// queue, or for ctx to expire. Safe to call more than once.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if q.done {
		q.mu.Unlock()
		return nil
	}
	q.done = true
	close(q.ch)
	q.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) worker() {
	defer q.wg.Done()

	for m := range q.ch {
		q.reconcile(m)
	}
}

func (q *Queue) reconcile(m StatMutation) {
	ctx, cancel := context.WithTimeout(context.Background(), q.reconcileTimeout)
	defer cancel()

	err := q.media.IncrementStat(ctx, m.MediaID, m.Stat)

	if q.bus == nil {
		return
	}

	if err != nil {
		q.bus.Publish(events.Event{
			Type:       events.MutationFailed,
			MediaID:    m.MediaID,
			Stat:       m.Stat,
			MutationID: m.ID,
			Err:        err,
		})
		return
	}

	q.bus.Publish(events.Event{
		Type:       events.MutationSucceeded,
		MediaID:    m.MediaID,
		Stat:       m.Stat,
		MutationID: m.ID,
	})
}
