package feed

import "challz/internal/models"

// Cursor is a circular position over an ordered media sequence. Advancing
// past the last item wraps to the first and retreating before the first
// wraps to the last, so a finite batch browses like an endless feed.
//
// Cursor is not goroutine-safe; the controller serializes access.
type Cursor struct {
	items []models.MediaItem
	index int
}

// NewCursor creates a cursor positioned at the first item.
func NewCursor(items []models.MediaItem) *Cursor {
	return &Cursor{items: items}
}

// Len returns the number of items in the sequence.
func (c *Cursor) Len() int {
	return len(c.items)
}

// Index returns the current position. Zero on an empty sequence.
func (c *Cursor) Index() int {
	return c.index
}

// Current returns the item under the cursor. On an empty sequence it
// returns (nil, false); it never panics.
func (c *Cursor) Current() (*models.MediaItem, bool) {
	if len(c.items) == 0 {
		return nil, false
	}
	return &c.items[c.index], true
}

// Advance moves forward one position, wrapping from the last item to the
// first. A no-op on an empty sequence.
func (c *Cursor) Advance() {
	if len(c.items) == 0 {
		return
	}
	c.index = (c.index + 1) % len(c.items)
}

// Retreat moves backward one position, wrapping from the first item to the
// last. A no-op on an empty sequence.
func (c *Cursor) Retreat() {
	if len(c.items) == 0 {
		return
	}
	c.index = (c.index - 1 + len(c.items)) % len(c.items)
}

// Replace swaps in a new sequence and resets the position to the start.
func (c *Cursor) Replace(items []models.MediaItem) {
	c.items = items
	c.index = 0
}

// Items returns the underlying sequence. Callers must not mutate it
// outside the controller's lock.
func (c *Cursor) Items() []models.MediaItem {
	return c.items
}
