package media

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"go.uber.org/zap"

	"challz/internal/config"
	"challz/internal/models"
)

// ===============================
// UPLOADER CONFIGURATION
// ===============================

// UploaderConfig holds upload validation and destination settings
type UploaderConfig struct {
	MaxVideoSize  int64
	MaxImageSize  int64
	MaxAudioSize  int64
	AllowedVideo  []string
	AllowedImage  []string
	AllowedAudio  []string
	UploadTimeout time.Duration
	RootFolder    string
	UploadPreset  string
}

// DefaultUploaderConfig returns default uploader configuration
func DefaultUploaderConfig() *UploaderConfig {
	return &UploaderConfig{
		MaxVideoSize: 100 * 1024 * 1024, // 100MB
		MaxImageSize: 10 * 1024 * 1024,  // 10MB
		MaxAudioSize: 25 * 1024 * 1024,  // 25MB
		AllowedVideo: []string{
			"video/mp4", "video/quicktime", "video/webm",
		},
		AllowedImage: []string{
			"image/jpeg", "image/jpg", "image/png",
			"image/gif", "image/webp",
		},
		AllowedAudio: []string{
			"audio/mpeg", "audio/mp4", "audio/wav", "audio/webm",
		},
		UploadTimeout: 2 * time.Minute,
		RootFolder:    "challz",
	}
}

// UploaderConfigFromApp derives uploader configuration from the application config
func UploaderConfigFromApp(cfg *config.Config) *UploaderConfig {
	c := DefaultUploaderConfig()
	if cfg.Cloudinary.MaxFileSize > 0 {
		c.MaxVideoSize = cfg.Cloudinary.MaxFileSize
	}
	if cfg.Cloudinary.RootFolder != "" {
		c.RootFolder = cfg.Cloudinary.RootFolder
	}
	c.UploadPreset = cfg.Cloudinary.UploadPreset
	if cfg.API.UploadTimeout > 0 {
		c.UploadTimeout = cfg.API.UploadTimeout
	}
	return c
}

// ===============================
// UPLOADER
// ===============================

// UploadRequest describes a single file going to the CDN
type UploadRequest struct {
	File        io.Reader
	Filename    string
	Size        int64
	ContentType string
	UserID      string
	Kind        models.MediaKind
}

// UploadResult is the CDN's answer for a stored file
type UploadResult struct {
	URL          string
	ThumbnailURL string
	PublicID     string
	Bytes        int64
	Format       string
}

// Uploader pushes media binaries to Cloudinary. It is phase one of the
// two-phase upload; registration with the backend is the media service's
// concern.
type Uploader interface {
	Upload(ctx context.Context, req *UploadRequest) (*UploadResult, error)
}

type cloudinaryUploader struct {
	cld    *cloudinary.Cloudinary
	config *UploaderConfig
	logger *zap.Logger
}

// NewCloudinaryUploader creates an uploader backed by a Cloudinary account
func NewCloudinaryUploader(cloudName, apiKey, apiSecret string, cfg *UploaderConfig, logger *zap.Logger) (Uploader, error) {
	if cfg == nil {
		cfg = DefaultUploaderConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("cloudinary init: %w", err)
	}

	return &cloudinaryUploader{
		cld:    cld,
		config: cfg,
		logger: logger,
	}, nil
}

// Upload validates the file and pushes it to Cloudinary under a per-user,
// per-kind folder.
func (u *cloudinaryUploader) Upload(ctx context.Context, req *UploadRequest) (*UploadResult, error) {
	if err := u.validate(req); err != nil {
		return nil, err
	}

	uploadCtx, cancel := context.WithTimeout(ctx, u.config.UploadTimeout)
	defer cancel()

	params := uploader.UploadParams{
		Folder:         u.folderFor(req),
		ResourceType:   resourceTypeFor(req.Kind),
		UseFilename:    boolPtr(false),
		UniqueFilename: boolPtr(true),
		UploadPreset:   u.config.UploadPreset,
		Tags:           []string{"challz", "user_upload"},
	}

	result, err := u.cld.Upload.Upload(uploadCtx, req.File, params)
	if err != nil {
		u.logger.Error("cloudinary upload failed",
			zap.String("user_id", req.UserID),
			zap.String("filename", req.Filename),
			zap.Error(err))
		return nil, fmt.Errorf("cloudinary upload: %w", err)
	}

	u.logger.Info("media uploaded to CDN",
		zap.String("user_id", req.UserID),
		zap.String("public_id", result.PublicID),
		zap.Int64("bytes", int64(result.Bytes)))

	return &UploadResult{
		URL:          result.SecureURL,
		ThumbnailURL: thumbnailFor(result.SecureURL, req.Kind),
		PublicID:     result.PublicID,
		Bytes:        int64(result.Bytes),
		Format:       result.Format,
	}, nil
}

// ===============================
// VALIDATION
// ===============================

func (u *cloudinaryUploader) validate(req *UploadRequest) error {
	if req == nil || req.File == nil {
		return fmt.Errorf("upload request has no file")
	}
	if req.UserID == "" {
		return fmt.Errorf("upload requires a user id")
	}

	maxSize, allowed := u.limitsFor(req.Kind)
	if maxSize > 0 && req.Size > maxSize {
		return fmt.Errorf("%s too large (max %d bytes)", req.Kind, maxSize)
	}

	if req.ContentType != "" && !contains(allowed, req.ContentType) {
		return fmt.Errorf("unsupported %s content type: %s", req.Kind, req.ContentType)
	}

	return nil
}

func (u *cloudinaryUploader) limitsFor(kind models.MediaKind) (int64, []string) {
	switch kind {
	case models.MediaKindImage:
		return u.config.MaxImageSize, u.config.AllowedImage
	case models.MediaKindAudio:
		return u.config.MaxAudioSize, u.config.AllowedAudio
	default:
		return u.config.MaxVideoSize, u.config.AllowedVideo
	}
}

// ===============================
// HELPERS
// ===============================

// folderFor builds the destination folder: <root>/<userID>/<kind>
func (u *cloudinaryUploader) folderFor(req *UploadRequest) string {
	return fmt.Sprintf("%s/%s/%s", u.config.RootFolder, req.UserID, req.Kind)
}

func resourceTypeFor(kind models.MediaKind) string {
	switch kind {
	case models.MediaKindImage:
		return "image"
	case models.MediaKindAudio:
		// Cloudinary stores audio under the video resource type.
		return "video"
	default:
		return "video"
	}
}

// thumbnailFor derives a poster-frame URL for videos. Images are their own
// thumbnail; audio has none.
func thumbnailFor(secureURL string, kind models.MediaKind) string {
	switch kind {
	case models.MediaKindImage:
		return secureURL
	case models.MediaKindVideo:
		if idx := strings.LastIndex(secureURL, "."); idx > 0 {
			return secureURL[:idx] + ".jpg"
		}
		return ""
	default:
		return ""
	}
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}

func boolPtr(b bool) *bool {
	return &b
}
