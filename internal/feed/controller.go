package feed

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"challz/internal/events"
	"challz/internal/models"
)

// ===============================
// STATE
// ===============================

// State names the feed's lifecycle phase
type State string

const (
	// StateLoading covers the initial trending fetch.
	StateLoading State = "loading"
	// StateReady means the sequence is browsable, possibly empty.
	StateReady State = "ready"
)

// Gesture is the outcome of resolving a pointer interaction
type Gesture int

const (
	GestureNone Gesture = iota
	GestureAdvance
	GestureRetreat
)

// ===============================
// DEPENDENCIES
// ===============================

// MediaService is the slice of the media service the controller needs.
type MediaService interface {
	GetTrending(ctx context.Context, orderBy string, limit int) []models.MediaItem
	GetComments(ctx context.Context, mediaID string) ([]models.Comment, error)
	PostComment(ctx context.Context, mediaID string, req *models.CreateCommentRequest) (*models.Comment, error)
	IncrementStat(ctx context.Context, mediaID string, stat models.Stat) error
}

// SessionService gates mutations on an authenticated user.
type SessionService interface {
	RequireUser() (*models.User, error)
}

// ===============================
// CONTROLLER CONFIGURATION
// ===============================

// ControllerConfig holds feed controller configuration
type ControllerConfig struct {
	OrderBy string
	Limit   int
	// SwipeThreshold is the minimum vertical travel, in logical pixels,
	// separating a swipe from a tap.
	SwipeThreshold float64
}

// DefaultControllerConfig returns default feed controller configuration
func DefaultControllerConfig() *ControllerConfig {
	return &ControllerConfig{
		OrderBy:        "views",
		Limit:          10,
		SwipeThreshold: 50,
	}
}

// ===============================
// CONTROLLER
// ===============================

// Controller holds the client's view of the feed: the ordered sequence,
// the cursor, the per-item comment list, and the optimistic counters being
// reconciled in the background.
//
// Likes are optimistic: the local counter moves first and is never rolled
// back if reconciliation fails. Comments are pessimistic: nothing changes
// locally until the server accepts the comment.
type Controller struct {
	media   MediaService
	session SessionService
	queue   *Queue
	bus     *events.Bus
	logger  *zap.Logger
	config  *ControllerConfig

	mu       sync.Mutex
	state    State
	cursor   *Cursor
	comments []models.Comment
	// commentsFor is the media ID the comments slice belongs to.
	commentsFor string
}

// NewController creates a feed controller in the loading state.
func NewController(media MediaService, session SessionService, queue *Queue, bus *events.Bus, logger *zap.Logger, cfg *ControllerConfig) *Controller {
	if cfg == nil {
		cfg = DefaultControllerConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Controller{
		media:   media,
		session: session,
		queue:   queue,
		bus:     bus,
		logger:  logger,
		config:  cfg,
		state:   StateLoading,
		cursor:  NewCursor(nil),
	}
}

// ===============================
// LOADING & NAVIGATION
// ===============================

// Load fetches the trending batch and moves to Ready. A failed or empty
// fetch still reaches Ready with an empty sequence; the user sees "no
// content", never an error. Presenting the first item counts a view.
func (c *Controller) Load(ctx context.Context) {
	items := c.media.GetTrending(ctx, c.config.OrderBy, c.config.Limit)

	c.mu.Lock()
	c.cursor.Replace(items)
	c.comments = nil
	c.commentsFor = ""
	c.state = StateReady
	c.mu.Unlock()

	c.logger.Info("feed loaded", zap.Int("items", len(items)))
	c.countView()
}

// State returns the current lifecycle phase.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Current returns the item under the cursor, or (nil, false) on an empty
// feed.
func (c *Controller) Current() (*models.MediaItem, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cursor.Current()
}

// Position returns the cursor index and sequence length.
func (c *Controller) Position() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cursor.Index(), c.cursor.Len()
}

// Advance moves to the next item, wrapping past the end. Presenting the
// new item counts a view.
func (c *Controller) Advance() {
	c.mu.Lock()
	c.cursor.Advance()
	c.invalidateCommentsLocked()
	c.mu.Unlock()
	c.countView()
}

// Retreat moves to the previous item, wrapping before the start.
// Presenting the new item counts a view.
func (c *Controller) Retreat() {
	c.mu.Lock()
	c.cursor.Retreat()
	c.invalidateCommentsLocked()
	c.mu.Unlock()
	c.countView()
}

// invalidateCommentsLocked drops the comment list when the cursor leaves
// the item it was loaded for.
func (c *Controller) invalidateCommentsLocked() {
	current, ok := c.cursor.Current()
	if !ok || current.ID != c.commentsFor {
		c.comments = nil
		c.commentsFor = ""
	}
}

// countView submits a best-effort views increment for the presented item
// and applies the local bump.
func (c *Controller) countView() {
	c.mu.Lock()
	current, ok := c.cursor.Current()
	if !ok {
		c.mu.Unlock()
		return
	}
	current.ApplyIncrement(models.StatViews)
	mediaID := current.ID
	c.mu.Unlock()

	if c.queue != nil {
		c.queue.Submit(mediaID, models.StatViews)
	}
	if c.bus != nil {
		c.bus.Publish(events.Event{Type: events.MediaViewed, MediaID: mediaID})
	}
}

// ===============================
// GESTURES
// ===============================

// ResolveSwipe maps a completed vertical pointer movement to a navigation
// gesture. deltaY is end minus start: negative means the finger moved up
// (next item), positive means down (previous item). Movement under the
// threshold is a tap, which also advances. Horizontal motion is the
// caller's concern and never reaches here.
func (c *Controller) ResolveSwipe(deltaY float64) Gesture {
	threshold := c.config.SwipeThreshold

	switch {
	case deltaY <= -threshold:
		return GestureAdvance
	case deltaY >= threshold:
		return GestureRetreat
	default:
		// A tap advances, same as swiping up.
		return GestureAdvance
	}
}

// ApplyGesture executes a resolved gesture.
func (c *Controller) ApplyGesture(g Gesture) {
	switch g {
	case GestureAdvance:
		c.Advance()
	case GestureRetreat:
		c.Retreat()
	}
}

// ===============================
// LIKE (OPTIMISTIC)
// ===============================

// Like applies an optimistic like to the current item. With no session
// user it returns ErrLoginRequired and mutates nothing. Otherwise the
// local counter moves by exactly one synchronously and a reconciling
// increment is queued; the eventual network outcome never moves the
// counter again, in either direction.
func (c *Controller) Like(ctx context.Context) error {
	user, err := c.session.RequireUser()
	if err != nil {
		return err
	}

	c.mu.Lock()
	current, ok := c.cursor.Current()
	if !ok {
		c.mu.Unlock()
		return nil
	}
	current.ApplyIncrement(models.StatLikes)
	mediaID := current.ID
	c.mu.Unlock()

	if c.queue != nil {
		c.queue.Submit(mediaID, models.StatLikes)
	}
	if c.bus != nil {
		c.bus.Publish(events.Event{
			Type:    events.MediaLiked,
			MediaID: mediaID,
			UserID:  user.ID,
		})
	}

	return nil
}

// ===============================
// COMMENTS (PESSIMISTIC)
// ===============================

// LoadComments fetches the comment list for the current item.
func (c *Controller) LoadComments(ctx context.Context) ([]models.Comment, error) {
	c.mu.Lock()
	current, ok := c.cursor.Current()
	if !ok {
		c.mu.Unlock()
		return nil, nil
	}
	mediaID := current.ID
	c.mu.Unlock()

	comments, err := c.media.GetComments(ctx, mediaID)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.comments = comments
	c.commentsFor = mediaID
	c.mu.Unlock()

	return comments, nil
}

// Comments returns the loaded comment list for the current item.
func (c *Controller) Comments() []models.Comment {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Comment, len(c.comments))
	copy(out, c.comments)
	return out
}

// Comment submits a comment on the current item. Requires a session user;
// whitespace-only text is a silent no-op. Pessimistic: the comment is
// prepended and the counter bumped only after the server accepts it, and
// any failure leaves local state untouched.
func (c *Controller) Comment(ctx context.Context, text string) (*models.Comment, error) {
	user, err := c.session.RequireUser()
	if err != nil {
		return nil, err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	c.mu.Lock()
	current, ok := c.cursor.Current()
	if !ok {
		c.mu.Unlock()
		return nil, nil
	}
	mediaID := current.ID
	c.mu.Unlock()

	req := &models.CreateCommentRequest{
		UserID:       user.ID,
		Username:     user.Username,
		UserPhotoURL: user.UserPhotoURL,
		Text:         text,
		CreatedAt:    time.Now(),
	}

	comment, err := c.media.PostComment(ctx, mediaID, req)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	// The cursor may have moved while the request was in flight; the local
	// updates go to the originating item wherever it now sits.
	items := c.cursor.Items()
	for i := range items {
		if items[i].ID == mediaID {
			items[i].ApplyIncrement(models.StatComments)
			break
		}
	}
	if c.commentsFor == mediaID {
		c.comments = append([]models.Comment{*comment}, c.comments...)
	}
	c.mu.Unlock()

	return comment, nil
}
