package models

import (
	"strings"
	"time"
)

// ===============================
// MEDIA
// ===============================

// MediaKind identifies the playable kind of a media item.
type MediaKind string

const (
	MediaKindVideo MediaKind = "video"
	MediaKindImage MediaKind = "image"
	MediaKindAudio MediaKind = "audio"

	// MediaKindUnknown covers any kind the backend sends that this client
	// does not recognize. Unknown items still render (title + metadata),
	// they just have no inline player.
	MediaKindUnknown MediaKind = "unknown"
)

// ParseMediaKind normalizes a raw kind string from the backend. Anything
// that is not video/image/audio maps to MediaKindUnknown.
func ParseMediaKind(raw string) MediaKind {
	switch MediaKind(strings.ToLower(strings.TrimSpace(raw))) {
	case MediaKindVideo:
		return MediaKindVideo
	case MediaKindImage:
		return MediaKindImage
	case MediaKindAudio:
		return MediaKindAudio
	default:
		return MediaKindUnknown
	}
}

// MediaItem is a single playable unit of content as served by the backend.
// Engagement counters are non-negative and only ever incremented from the
// client's perspective; the server owns the authoritative values.
type MediaItem struct {
	ID           string   `json:"id"`
	UserID       string   `json:"userId"`
	Username     string   `json:"username"`
	UserPhotoURL string   `json:"userPhotoURL,omitempty"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	URL          string   `json:"url,omitempty"` // legacy field, superseded by MediaURL
	MediaURL     string   `json:"mediaUrl,omitempty"`
	ThumbnailURL string   `json:"thumbnailUrl,omitempty"`
	Type         string   `json:"type"`
	Hashtags     []string `json:"hashtags,omitempty"`
	Likes        int64    `json:"likes"`
	Views        int64    `json:"views"`
	Comments     int64    `json:"comments"`

	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`

	ChallengeID    string `json:"challengeId,omitempty"`
	ChallengeTitle string `json:"challengeTitle,omitempty"`
}

// Kind returns the normalized media kind.
func (m *MediaItem) Kind() MediaKind {
	return ParseMediaKind(m.Type)
}

// PlayableURL prefers MediaURL and falls back to the legacy URL field.
func (m *MediaItem) PlayableURL() string {
	if m.MediaURL != "" {
		return m.MediaURL
	}
	return m.URL
}

// Stat names a single engagement counter on a MediaItem.
type Stat string

const (
	StatViews    Stat = "views"
	StatLikes    Stat = "likes"
	StatComments Stat = "comments"
)

// Valid reports whether s names one of the three engagement counters.
func (s Stat) Valid() bool {
	switch s {
	case StatViews, StatLikes, StatComments:
		return true
	}
	return false
}

// ApplyIncrement bumps the named counter by one.
func (m *MediaItem) ApplyIncrement(stat Stat) {
	switch stat {
	case StatViews:
		m.Views++
	case StatLikes:
		m.Likes++
	case StatComments:
		m.Comments++
	}
}

// ===============================
// COMMENTS
// ===============================

// Comment is a reply attached to a MediaItem. Comments are created once and
// never edited or deleted by this client.
type Comment struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	Username     string    `json:"username"`
	UserPhotoURL string    `json:"userPhotoURL,omitempty"`
	Text         string    `json:"text"`
	CreatedAt    time.Time `json:"createdAt"`
}

// CreateCommentRequest is the payload submitted when posting a comment. The
// client stamps CreatedAt at submission time; the server may supersede it.
type CreateCommentRequest struct {
	UserID       string    `json:"userId" validate:"required"`
	Username     string    `json:"username" validate:"required"`
	UserPhotoURL string    `json:"userPhotoURL,omitempty"`
	Text         string    `json:"text" validate:"required"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ===============================
// USERS & SESSIONS
// ===============================

// User is the authenticated actor for the current session.
type User struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	UserPhotoURL string `json:"userPhotoURL,omitempty"`
}

// SignInRequest carries login credentials.
type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// SignUpRequest carries registration data.
type SignUpRequest struct {
	Username string `json:"username" validate:"required,min=3,max=32"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// SessionResponse is what the auth endpoints return. Token may be empty on
// registration when the backend does not auto-login.
type SessionResponse struct {
	Token string `json:"token,omitempty"`
	User  *User  `json:"user,omitempty"`
}

// ===============================
// UPLOAD & REGISTRATION
// ===============================

// MediaMetadata describes an upload beyond the raw file: title, kind,
// hashtags and an optional challenge linkage.
type MediaMetadata struct {
	Title          string   `json:"title" validate:"required,max=140"`
	Description    string   `json:"description,omitempty" validate:"max=2000"`
	Type           string   `json:"type" validate:"required"`
	Hashtags       []string `json:"hashtags,omitempty" validate:"dive,max=50"`
	ChallengeID    string   `json:"challengeId,omitempty"`
	ChallengeTitle string   `json:"challengeTitle,omitempty"`
}

// RegisterMediaRequest registers a CDN-hosted file with the backend after
// the binary upload has already succeeded.
type RegisterMediaRequest struct {
	URL          string `json:"url" validate:"required,url"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
	UserID       string `json:"userId" validate:"required"`
	Username     string `json:"username" validate:"required"`
	UserPhotoURL string `json:"userPhotoURL,omitempty"`
	MediaMetadata
}
