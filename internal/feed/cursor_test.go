package feed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"challz/internal/models"
)

func testItems(ids ...string) []models.MediaItem {
	items := make([]models.MediaItem, len(ids))
	for i, id := range ids {
		items[i] = models.MediaItem{ID: id, Title: "item " + id}
	}
	return items
}

func TestCursorEmptySequence(t *testing.T) {
	c := NewCursor(nil)

	item, ok := c.Current()
	assert.Nil(t, item)
	assert.False(t, ok)

	// Navigation on an empty sequence must not panic or move.
	c.Advance()
	c.Retreat()
	assert.Equal(t, 0, c.Index())
	assert.Equal(t, 0, c.Len())
}

func TestCursorAdvanceWrapsToStart(t *testing.T) {
	c := NewCursor(testItems("a", "b", "c"))

	c.Advance()
	c.Advance()
	item, ok := c.Current()
	require.True(t, ok)
	assert.Equal(t, "c", item.ID)

	c.Advance()
	item, ok = c.Current()
	require.True(t, ok)
	assert.Equal(t, "a", item.ID)
}

func TestCursorRetreatWrapsToEnd(t *testing.T) {
	c := NewCursor(testItems("a", "b", "c"))

	c.Retreat()
	item, ok := c.Current()
	require.True(t, ok)
	assert.Equal(t, "c", item.ID)
}

func TestCursorFullCycleReturnsToStart(t *testing.T) {
	items := testItems("a", "b", "c", "d")
	c := NewCursor(items)

	for range items {
		c.Advance()
	}

	assert.Equal(t, 0, c.Index())
}

func TestCursorAdvanceRetreatAreInverse(t *testing.T) {
	tests := []struct {
		name  string
		size  int
		moves int
	}{
		{name: "single item", size: 1, moves: 1},
		{name: "pair", size: 2, moves: 3},
		{name: "batch", size: 7, moves: 11},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids := make([]string, tt.size)
			for i := range ids {
				ids[i] = string(rune('a' + i))
			}
			c := NewCursor(testItems(ids...))

			for i := 0; i < tt.moves; i++ {
				c.Advance()
			}
			before := c.Index()

			c.Advance()
			c.Retreat()
			assert.Equal(t, before, c.Index())

			c.Retreat()
			c.Advance()
			assert.Equal(t, before, c.Index())
		})
	}
}

func TestCursorSingleItemStaysPut(t *testing.T) {
	c := NewCursor(testItems("only"))

	c.Advance()
	item, ok := c.Current()
	require.True(t, ok)
	assert.Equal(t, "only", item.ID)

	c.Retreat()
	item, ok = c.Current()
	require.True(t, ok)
	assert.Equal(t, "only", item.ID)
}

func TestCursorReplaceResetsPosition(t *testing.T) {
	c := NewCursor(testItems("a", "b", "c"))
	c.Advance()
	require.Equal(t, 1, c.Index())

	c.Replace(testItems("x", "y"))
	assert.Equal(t, 0, c.Index())
	assert.Equal(t, 2, c.Len())

	item, ok := c.Current()
	require.True(t, ok)
	assert.Equal(t, "x", item.ID)
}

func TestCursorCurrentSharesBackingArray(t *testing.T) {
	c := NewCursor(testItems("a", "b"))

	item, ok := c.Current()
	require.True(t, ok)
	item.Likes = 42

	// Leaving and returning must show the mutation.
	c.Advance()
	c.Advance()
	item, ok = c.Current()
	require.True(t, ok)
	assert.Equal(t, int64(42), item.Likes)
}
