package media

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"challz/internal/models"
)

func newTestUploader(t *testing.T) *cloudinaryUploader {
	t.Helper()

	u, err := NewCloudinaryUploader("demo", "key", "secret", nil, nil)
	require.NoError(t, err)
	return u.(*cloudinaryUploader)
}

func TestUploaderValidate(t *testing.T) {
	u := newTestUploader(t)

	tests := []struct {
		name    string
		req     *UploadRequest
		wantErr string
	}{
		{
			name:    "nil file",
			req:     &UploadRequest{UserID: "u1"},
			wantErr: "no file",
		},
		{
			name: "missing user",
			req: &UploadRequest{
				File: strings.NewReader("data"),
			},
			wantErr: "user id",
		},
		{
			name: "video too large",
			req: &UploadRequest{
				File:        strings.NewReader("data"),
				UserID:      "u1",
				Kind:        models.MediaKindVideo,
				Size:        u.config.MaxVideoSize + 1,
				ContentType: "video/mp4",
			},
			wantErr: "too large",
		},
		{
			name: "wrong content type for image",
			req: &UploadRequest{
				File:        strings.NewReader("data"),
				UserID:      "u1",
				Kind:        models.MediaKindImage,
				Size:        100,
				ContentType: "application/pdf",
			},
			wantErr: "unsupported",
		},
		{
			name: "valid video",
			req: &UploadRequest{
				File:        strings.NewReader("data"),
				UserID:      "u1",
				Kind:        models.MediaKindVideo,
				Size:        100,
				ContentType: "video/mp4",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := u.validate(tt.req)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestUploaderFolderLayout(t *testing.T) {
	u := newTestUploader(t)

	folder := u.folderFor(&UploadRequest{UserID: "user-42", Kind: models.MediaKindVideo})
	assert.Equal(t, "challz/user-42/video", folder)
}

func TestThumbnailDerivation(t *testing.T) {
	videoURL := "https://res.cloudinary.com/demo/video/upload/v1/challz/u1/video/clip.mp4"

	assert.Equal(t,
		"https://res.cloudinary.com/demo/video/upload/v1/challz/u1/video/clip.jpg",
		thumbnailFor(videoURL, models.MediaKindVideo))

	imageURL := "https://res.cloudinary.com/demo/image/upload/v1/pic.png"
	assert.Equal(t, imageURL, thumbnailFor(imageURL, models.MediaKindImage))

	assert.Empty(t, thumbnailFor("https://cdn/track.mp3", models.MediaKindAudio))
}

func TestResourceTypeMapping(t *testing.T) {
	assert.Equal(t, "image", resourceTypeFor(models.MediaKindImage))
	assert.Equal(t, "video", resourceTypeFor(models.MediaKindVideo))
	assert.Equal(t, "video", resourceTypeFor(models.MediaKindAudio))
	assert.Equal(t, "video", resourceTypeFor(models.MediaKindUnknown))
}
