package media_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"challz/internal/api"
	"challz/internal/apitest"
	"challz/internal/cache"
	"challz/internal/media"
	"challz/internal/models"
)

func newTestService(t *testing.T, token string, withCache bool) (*media.Service, *apitest.Server) {
	t.Helper()

	server := apitest.New()
	t.Cleanup(server.Close)

	clientCfg := api.DefaultClientConfig()
	clientCfg.BaseURL = server.URL

	tokens := api.NewMemoryTokenStore()
	if token != "" {
		require.NoError(t, tokens.Save(token))
	}
	client := api.NewClient(clientCfg, tokens, nil)

	var store cache.Cache
	if withCache {
		var err error
		store, err = cache.New(cache.DefaultConfig(), nil)
		require.NoError(t, err)
		t.Cleanup(func() { store.Close() })
	}

	cfg := media.DefaultServiceConfig()
	cfg.RetryBase = time.Millisecond

	return media.NewService(client, nil, store, nil, nil, cfg), server
}

func seedThree(server *apitest.Server) {
	server.SeedMedia(
		models.MediaItem{ID: "m1", Title: "first", Views: 100, Likes: 5, CreatedAt: time.Now().Add(-3 * time.Hour)},
		models.MediaItem{ID: "m2", Title: "second", Views: 50, Likes: 20, CreatedAt: time.Now().Add(-1 * time.Hour)},
		models.MediaItem{ID: "m3", Title: "third", Views: 10, Likes: 1, CreatedAt: time.Now().Add(-2 * time.Hour)},
	)
}

// ===============================
// BATCH READS
// ===============================

func TestGetTrendingOrdersByViews(t *testing.T) {
	svc, server := newTestService(t, "", false)
	seedThree(server)

	items := svc.GetTrending(context.Background(), "views", 10)
	require.Len(t, items, 3)
	assert.Equal(t, "m1", items[0].ID)
}

func TestGetTrendingOrdersByLikes(t *testing.T) {
	svc, server := newTestService(t, "", false)
	seedThree(server)

	items := svc.GetTrending(context.Background(), "likes", 10)
	require.Len(t, items, 3)
	assert.Equal(t, "m2", items[0].ID)
}

func TestGetTrendingDegradesToEmpty(t *testing.T) {
	svc, server := newTestService(t, "", false)
	seedThree(server)
	server.FailTrending = true

	items := svc.GetTrending(context.Background(), "views", 10)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestGetTrendingServesFromCache(t *testing.T) {
	svc, server := newTestService(t, "", true)
	seedThree(server)

	first := svc.GetTrending(context.Background(), "views", 10)
	require.Len(t, first, 3)

	// With the backend failing, the cached batch still serves.
	server.FailTrending = true
	second := svc.GetTrending(context.Background(), "views", 10)
	assert.Equal(t, first, second)
}

func TestGetRecentOrdersByCreation(t *testing.T) {
	svc, server := newTestService(t, "", false)
	seedThree(server)

	items := svc.GetRecent(context.Background(), 2)
	require.Len(t, items, 2)
	assert.Equal(t, "m2", items[0].ID)
	assert.Equal(t, "m3", items[1].ID)
}

func TestGetUserMediaFiltersOwner(t *testing.T) {
	svc, server := newTestService(t, "", false)
	server.SeedMedia(
		models.MediaItem{ID: "m1", UserID: "alice"},
		models.MediaItem{ID: "m2", UserID: "bob"},
		models.MediaItem{ID: "m3", UserID: "alice"},
	)

	items := svc.GetUserMedia(context.Background(), "alice")
	require.Len(t, items, 2)

	empty := svc.GetUserMedia(context.Background(), "")
	assert.Empty(t, empty)
}

// ===============================
// SINGLE ITEM
// ===============================

func TestGetByIDFillsLegacyURL(t *testing.T) {
	svc, server := newTestService(t, "", false)
	server.SeedMedia(models.MediaItem{ID: "m1", URL: "https://cdn/legacy.mp4"})

	item, err := svc.GetByID(context.Background(), "m1")
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, "https://cdn/legacy.mp4", item.MediaURL)
}

func TestGetByIDMissingIsNilNil(t *testing.T) {
	svc, _ := newTestService(t, "", false)

	item, err := svc.GetByID(context.Background(), "missing")
	assert.NoError(t, err)
	assert.Nil(t, item)
}

// ===============================
// COMMENTS
// ===============================

func TestPostCommentRequiresAuth(t *testing.T) {
	svc, server := newTestService(t, "", false)
	server.SeedMedia(models.MediaItem{ID: "m1"})

	req := &models.CreateCommentRequest{UserID: "u1", Username: "tester", Text: "hi"}
	_, err := svc.PostComment(context.Background(), "m1", req)
	require.Error(t, err)
	assert.True(t, api.IsUnauthorized(err))
}

func TestPostCommentRoundTrip(t *testing.T) {
	svc, server := newTestService(t, "tok-1", false)
	server.SeedUser("tok-1", models.User{ID: "u1", Username: "tester"})
	server.SeedMedia(models.MediaItem{ID: "m1"})

	req := &models.CreateCommentRequest{UserID: "u1", Username: "tester", Text: "nice video"}
	comment, err := svc.PostComment(context.Background(), "m1", req)
	require.NoError(t, err)
	assert.Equal(t, "nice video", comment.Text)

	comments, err := svc.GetComments(context.Background(), "m1")
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "nice video", comments[0].Text)
}

func TestPostCommentValidatesPayload(t *testing.T) {
	svc, _ := newTestService(t, "tok-1", false)

	req := &models.CreateCommentRequest{Username: "tester", Text: ""} // missing user id and text
	_, err := svc.PostComment(context.Background(), "m1", req)
	require.Error(t, err)
	assert.True(t, api.IsErrorType(err, "VALIDATION_ERROR"))
}

// ===============================
// INCREMENTS
// ===============================

func TestIncrementStatAppliesServerSide(t *testing.T) {
	svc, server := newTestService(t, "", false)
	server.SeedMedia(models.MediaItem{ID: "m1", Likes: 5})

	require.NoError(t, svc.IncrementStat(context.Background(), "m1", models.StatLikes))

	items := server.Media()
	assert.Equal(t, int64(6), items[0].Likes)
}

func TestIncrementStatRetriesTransientFailures(t *testing.T) {
	svc, server := newTestService(t, "", false)
	server.SeedMedia(models.MediaItem{ID: "m1", Views: 0})
	server.IncrementFailures = 2

	require.NoError(t, svc.IncrementStat(context.Background(), "m1", models.StatViews))

	assert.Equal(t, 3, server.IncrementCalls)
	assert.Equal(t, int64(1), server.Media()[0].Views)
}

func TestIncrementStatDoesNotRetryNotFound(t *testing.T) {
	svc, server := newTestService(t, "", false)

	err := svc.IncrementStat(context.Background(), "missing", models.StatViews)
	require.Error(t, err)
	assert.Equal(t, 1, server.IncrementCalls)
}

func TestIncrementStatRejectsInvalidStat(t *testing.T) {
	svc, server := newTestService(t, "", false)

	err := svc.IncrementStat(context.Background(), "m1", models.Stat("shares"))
	require.Error(t, err)
	assert.Equal(t, 0, server.IncrementCalls)
}
