package media

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"challz/internal/api"
	"challz/internal/cache"
	"challz/internal/events"
	"challz/internal/models"
	"challz/internal/validation"
)

// ===============================
// SERVICE CONFIGURATION
// ===============================

// ServiceConfig holds media service configuration
type ServiceConfig struct {
	// DefaultLimit is used when callers pass limit <= 0.
	DefaultLimit int
	// DefaultOrderBy is used when callers pass an unrecognized metric.
	DefaultOrderBy string
	CacheTTL       time.Duration
	// MaxRetries bounds increment retry attempts after the first try.
	MaxRetries uint64
	RetryBase  time.Duration
}

// DefaultServiceConfig returns default media service configuration
func DefaultServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		DefaultLimit:   10,
		DefaultOrderBy: "views",
		CacheTTL:       time.Minute,
		MaxRetries:     3,
		RetryBase:      500 * time.Millisecond,
	}
}

// ===============================
// SERVICE
// ===============================

// Service provides typed, failure-tolerant access to the media endpoints.
// Batch reads degrade to empty slices so the feed always renders; explicit
// user actions (comment, direct fetch) propagate errors for display.
type Service struct {
	client   *api.Client
	uploader Uploader
	cache    cache.Cache
	bus      *events.Bus
	logger   *zap.Logger
	config   *ServiceConfig
}

// NewService creates a new media service
func NewService(client *api.Client, uploader Uploader, c cache.Cache, bus *events.Bus, logger *zap.Logger, cfg *ServiceConfig) *Service {
	if cfg == nil {
		cfg = DefaultServiceConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		client:   client,
		uploader: uploader,
		cache:    c,
		bus:      bus,
		logger:   logger,
		config:   cfg,
	}
}

// ===============================
// BATCH READS
// ===============================

// GetTrending fetches the ranked media batch ordered by the given counter.
// Any failure degrades to an empty slice; the feed never sees an error here.
func (s *Service) GetTrending(ctx context.Context, orderBy string, limit int) []models.MediaItem {
	switch orderBy {
	case "views", "likes", "comments":
	default:
		orderBy = s.config.DefaultOrderBy
	}
	if limit <= 0 {
		limit = s.config.DefaultLimit
	}

	endpoint := fmt.Sprintf("/media/trending?orderBy=%s&limit=%d", url.QueryEscape(orderBy), limit)
	return s.fetchBatch(ctx, endpoint, fmt.Sprintf("media:trending:%s:%d", orderBy, limit))
}

// GetRecent fetches the newest media batch. Failures degrade to empty.
func (s *Service) GetRecent(ctx context.Context, limit int) []models.MediaItem {
	if limit <= 0 {
		limit = s.config.DefaultLimit
	}

	endpoint := fmt.Sprintf("/media/recent?limit=%d", limit)
	return s.fetchBatch(ctx, endpoint, fmt.Sprintf("media:recent:%d", limit))
}

// GetUserMedia fetches one user's media. Failures degrade to empty.
func (s *Service) GetUserMedia(ctx context.Context, userID string) []models.MediaItem {
	if userID == "" {
		return []models.MediaItem{}
	}

	endpoint := "/media/user/" + url.PathEscape(userID)
	return s.fetchBatch(ctx, endpoint, "media:user:"+userID)
}

// fetchBatch runs a cached list fetch with the degrade-to-empty contract.
func (s *Service) fetchBatch(ctx context.Context, endpoint, cacheKey string) []models.MediaItem {
	if items, ok := s.cachedBatch(ctx, cacheKey); ok {
		return items
	}

	var items []models.MediaItem
	if err := s.client.Get(ctx, endpoint, false, &items); err != nil {
		s.logger.Warn("media batch fetch failed, serving empty",
			zap.String("endpoint", endpoint),
			zap.Error(err))
		return []models.MediaItem{}
	}

	if items == nil {
		items = []models.MediaItem{}
	}
	for i := range items {
		normalize(&items[i])
	}

	s.storeBatch(ctx, cacheKey, items)
	return items
}

func (s *Service) cachedBatch(ctx context.Context, key string) ([]models.MediaItem, bool) {
	if s.cache == nil {
		return nil, false
	}

	data, ok := s.cache.Get(ctx, key)
	if !ok {
		return nil, false
	}

	var items []models.MediaItem
	if err := json.Unmarshal(data, &items); err != nil {
		_ = s.cache.Delete(ctx, key)
		return nil, false
	}
	return items, true
}

func (s *Service) storeBatch(ctx context.Context, key string, items []models.MediaItem) {
	if s.cache == nil {
		return
	}

	data, err := json.Marshal(items)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, data, s.config.CacheTTL); err != nil {
		s.logger.Warn("media batch cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// ===============================
// SINGLE ITEM
// ===============================

// GetByID fetches a single media item. A missing item is (nil, nil); every
// other failure is returned for display.
func (s *Service) GetByID(ctx context.Context, mediaID string) (*models.MediaItem, error) {
	if mediaID == "" {
		return nil, api.NewValidationError("media id is required", nil)
	}

	var item models.MediaItem
	err := s.client.Get(ctx, "/media/"+url.PathEscape(mediaID), false, &item)
	if err != nil {
		if api.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	normalize(&item)
	return &item, nil
}

// normalize backfills MediaURL from the legacy URL field.
func normalize(item *models.MediaItem) {
	if item.MediaURL == "" {
		item.MediaURL = item.URL
	}
}

// ===============================
// COMMENTS
// ===============================

// GetComments lists the comments on a media item, newest first as served.
func (s *Service) GetComments(ctx context.Context, mediaID string) ([]models.Comment, error) {
	if mediaID == "" {
		return nil, api.NewValidationError("media id is required", nil)
	}

	var comments []models.Comment
	if err := s.client.Get(ctx, "/media/"+url.PathEscape(mediaID)+"/comments", false, &comments); err != nil {
		return nil, err
	}

	if comments == nil {
		comments = []models.Comment{}
	}
	return comments, nil
}

// PostComment submits a comment and returns the server's stored version.
// Requires an authenticated session.
func (s *Service) PostComment(ctx context.Context, mediaID string, req *models.CreateCommentRequest) (*models.Comment, error) {
	if mediaID == "" {
		return nil, api.NewValidationError("media id is required", nil)
	}
	if err := validation.ValidateStruct(req); err != nil {
		return nil, api.NewValidationError(err.Error(), err)
	}

	var comment models.Comment
	if err := s.client.Post(ctx, "/media/"+url.PathEscape(mediaID)+"/comments", req, true, &comment); err != nil {
		return nil, err
	}

	if s.bus != nil {
		s.bus.Publish(events.Event{
			Type:    events.CommentPosted,
			MediaID: mediaID,
			UserID:  req.UserID,
		})
	}

	return &comment, nil
}

// ===============================
// STAT INCREMENTS
// ===============================

type incrementRequest struct {
	Stat models.Stat `json:"stat"`
}

// IncrementStat bumps a named counter server-side. Best-effort: transient
// failures are retried with capped exponential backoff, terminal failure is
// logged and returned but callers are expected to ignore it.
func (s *Service) IncrementStat(ctx context.Context, mediaID string, stat models.Stat) error {
	if mediaID == "" || !stat.Valid() {
		return api.NewValidationError(fmt.Sprintf("invalid increment target %q/%q", mediaID, stat), nil)
	}

	endpoint := "/media/" + url.PathEscape(mediaID) + "/increment"

	operation := func() error {
		err := s.client.Post(ctx, endpoint, incrementRequest{Stat: stat}, false, nil)
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(
			backoff.WithInitialInterval(s.config.RetryBase),
		), s.config.MaxRetries),
		ctx,
	)

	if err := backoff.Retry(operation, policy); err != nil {
		s.logger.Warn("stat increment failed",
			zap.String("media_id", mediaID),
			zap.String("stat", string(stat)),
			zap.Error(err))
		return err
	}

	// Counters changed server-side; cached batches are stale now.
	if s.cache != nil {
		_ = s.cache.DeletePrefix(ctx, "media:")
	}

	return nil
}

// retryable reports whether an increment failure is worth another attempt.
// Client-side rejections and 4xx responses are not.
func retryable(err error) bool {
	apiErr, ok := api.AsAPIError(err)
	if !ok {
		return true
	}
	if apiErr.Type == "TRANSPORT_ERROR" {
		return true
	}
	return apiErr.StatusCode >= http.StatusInternalServerError
}

// ===============================
// UPLOAD
// ===============================

// UploadMediaRequest bundles the file and its metadata for a full upload.
type UploadMediaRequest struct {
	Upload   UploadRequest
	Metadata models.MediaMetadata
	Username string
	// UserPhotoURL is denormalized onto the registered item.
	UserPhotoURL string
}

// Upload runs the two-phase upload: the binary goes to the CDN first, then
// the resulting URL and metadata are registered with the backend. Phase-two
// failure is logged but not returned; the file is already stored and the
// CDN URL is the caller's receipt.
func (s *Service) Upload(ctx context.Context, req *UploadMediaRequest) (string, error) {
	if s.uploader == nil {
		return "", api.NewValidationError("uploads are not configured", nil)
	}
	if err := validation.ValidateStruct(&req.Metadata); err != nil {
		return "", api.NewValidationError(err.Error(), err)
	}

	req.Upload.Kind = models.ParseMediaKind(req.Metadata.Type)

	result, err := s.uploader.Upload(ctx, &req.Upload)
	if err != nil {
		return "", err
	}

	register := models.RegisterMediaRequest{
		URL:           result.URL,
		ThumbnailURL:  result.ThumbnailURL,
		UserID:        req.Upload.UserID,
		Username:      req.Username,
		UserPhotoURL:  req.UserPhotoURL,
		MediaMetadata: req.Metadata,
	}

	if err := s.client.Post(ctx, "/media/register", register, true, nil); err != nil {
		s.logger.Error("media registration failed, file remains on CDN",
			zap.String("url", result.URL),
			zap.String("user_id", req.Upload.UserID),
			zap.Error(err))
	} else if s.cache != nil {
		_ = s.cache.DeletePrefix(ctx, "media:")
	}

	if s.bus != nil {
		s.bus.Publish(events.Event{
			Type:    events.MediaUploaded,
			UserID:  req.Upload.UserID,
			MediaID: result.PublicID,
		})
	}

	return result.URL, nil
}
