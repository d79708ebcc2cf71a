package events

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"challz/internal/models"
)

// ===============================
// EVENT TYPES
// ===============================

// EventType identifies a domain event
type EventType string

const (
	MediaLiked        EventType = "media.liked"
	MediaViewed       EventType = "media.viewed"
	CommentPosted     EventType = "comment.posted"
	MediaUploaded     EventType = "media.uploaded"
	MutationSucceeded EventType = "mutation.succeeded"
	MutationFailed    EventType = "mutation.failed"
	UserSignedIn      EventType = "user.signed_in"
	UserSignedOut     EventType = "user.signed_out"
)

// Event is a single domain occurrence published on the bus
type Event struct {
	Type       EventType
	MediaID    string
	Stat       models.Stat
	MutationID string
	UserID     string
	Err        error
	OccurredAt time.Time
}

// Handler processes a published event. Handlers run synchronously on the
// publisher's goroutine and must not block.
type Handler func(Event)

// ===============================
// EVENT BUS
// ===============================

// Bus is a minimal in-process publish/subscribe hub. The mutation queue
// publishes reconciliation outcomes on it so the UI can surface failures
// without the feed holding a reference to the queue.
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	logger   *zap.Logger
}

// NewBus creates a new event bus
func NewBus(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{
		handlers: make(map[EventType][]Handler),
		logger:   logger,
	}
}

// Subscribe registers a handler for an event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	if handler == nil {
		return
	}
	b.mu.Lock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
	b.mu.Unlock()
}

// Publish delivers an event to every subscribed handler. A panicking
// handler is logged and skipped; it never takes down the publisher.
func (b *Bus) Publish(event Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type]))
	copy(handlers, b.handlers[event.Type])
	b.mu.RUnlock()

	for _, handler := range handlers {
		b.safeInvoke(handler, event)
	}
}

func (b *Bus) safeInvoke(handler Handler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				zap.String("event", string(event.Type)),
				zap.Any("panic", r))
		}
	}()
	handler(event)
}
