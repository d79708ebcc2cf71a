// Package apitest provides an in-memory fake of the Challz backend for
// tests. It speaks the same routes and payload shapes as the real API so
// client packages can exercise full request/response cycles against an
// httptest server.
package apitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"challz/internal/models"
)

// Server is a fake Challz backend
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	media    []models.MediaItem
	comments map[string][]models.Comment
	users    map[string]models.User // token -> user

	// FailTrending forces 500s on the trending endpoint.
	FailTrending bool
	// IncrementFailures makes the next N increment calls return 500.
	IncrementFailures int
	// IncrementCalls counts increment requests, including failed ones.
	IncrementCalls int
}

// New starts a fake backend. Callers own shutdown via Close.
func New() *Server {
	s := &Server{
		comments: make(map[string][]models.Comment),
		users:    make(map[string]models.User),
	}

	r := chi.NewRouter()

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", s.handleLogin)
		r.Post("/register", s.handleRegister)
		r.Post("/logout", s.handleLogout)
		r.Get("/me", s.handleMe)
	})

	r.Route("/media", func(r chi.Router) {
		r.Get("/trending", s.handleTrending)
		r.Get("/recent", s.handleRecent)
		r.Get("/user/{userID}", s.handleUserMedia)
		r.Post("/register", s.handleRegisterMedia)
		r.Get("/{mediaID}", s.handleMediaByID)
		r.Get("/{mediaID}/comments", s.handleListComments)
		r.Post("/{mediaID}/comments", s.handlePostComment)
		r.Post("/{mediaID}/increment", s.handleIncrement)
	})

	s.Server = httptest.NewServer(r)
	return s
}

// ===============================
// FIXTURES
// ===============================

// SeedMedia replaces the stored media items
func (s *Server) SeedMedia(items ...models.MediaItem) {
	s.mu.Lock()
	s.media = append([]models.MediaItem(nil), items...)
	s.mu.Unlock()
}

// SeedUser registers a token/user pair accepted by authenticated routes
func (s *Server) SeedUser(token string, user models.User) {
	s.mu.Lock()
	s.users[token] = user
	s.mu.Unlock()
}

// Media returns a copy of the stored media items
func (s *Server) Media() []models.MediaItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.MediaItem(nil), s.media...)
}

// ===============================
// AUTH HANDLERS
// ===============================

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req models.SignInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	if req.Password == "wrong" {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	user := models.User{
		ID:       "user-" + req.Email,
		Username: strings.SplitN(req.Email, "@", 2)[0],
		Email:    req.Email,
	}
	token := "token-" + req.Email

	s.mu.Lock()
	s.users[token] = user
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, models.SessionResponse{Token: token, User: &user})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req models.SignUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	if req.Username == "taken" {
		writeError(w, http.StatusConflict, "username already exists")
		return
	}

	user := models.User{
		ID:       "user-" + req.Username,
		Username: req.Username,
		Email:    req.Email,
	}
	token := "token-" + req.Username

	s.mu.Lock()
	s.users[token] = user
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, models.SessionResponse{Token: token, User: &user})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.authedUser(r); !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := s.authedUser(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) authedUser(r *http.Request) (models.User, bool) {
	header := r.Header.Get("Authorization")
	token := strings.TrimPrefix(header, "Bearer ")
	if token == "" || token == header {
		return models.User{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[token]
	return user, ok
}

// ===============================
// MEDIA HANDLERS
// ===============================

func (s *Server) handleTrending(w http.ResponseWriter, r *http.Request) {
	if s.FailTrending {
		writeError(w, http.StatusInternalServerError, "trending unavailable")
		return
	}

	orderBy := r.URL.Query().Get("orderBy")
	limit := queryInt(r, "limit", 10)

	s.mu.Lock()
	items := append([]models.MediaItem(nil), s.media...)
	s.mu.Unlock()

	sort.SliceStable(items, func(i, j int) bool {
		switch orderBy {
		case "likes":
			return items[i].Likes > items[j].Likes
		case "comments":
			return items[i].Comments > items[j].Comments
		default:
			return items[i].Views > items[j].Views
		}
	})

	if len(items) > limit {
		items = items[:limit]
	}

	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 10)

	s.mu.Lock()
	items := append([]models.MediaItem(nil), s.media...)
	s.mu.Unlock()

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})

	if len(items) > limit {
		items = items[:limit]
	}

	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleUserMedia(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	s.mu.Lock()
	var items []models.MediaItem
	for _, item := range s.media {
		if item.UserID == userID {
			items = append(items, item)
		}
	}
	s.mu.Unlock()

	if items == nil {
		items = []models.MediaItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleMediaByID(w http.ResponseWriter, r *http.Request) {
	mediaID := chi.URLParam(r, "mediaID")

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range s.media {
		if item.ID == mediaID {
			writeJSON(w, http.StatusOK, item)
			return
		}
	}

	writeError(w, http.StatusNotFound, "media not found")
}

func (s *Server) handleRegisterMedia(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.authedUser(r); !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req models.RegisterMediaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	s.mu.Lock()
	item := models.MediaItem{
		ID:           fmt.Sprintf("media-%d", len(s.media)+1),
		UserID:       req.UserID,
		Username:     req.Username,
		UserPhotoURL: req.UserPhotoURL,
		Title:        req.Title,
		Description:  req.Description,
		MediaURL:     req.URL,
		ThumbnailURL: req.ThumbnailURL,
		Type:         req.Type,
		Hashtags:     req.Hashtags,
		CreatedAt:    time.Now(),
	}
	s.media = append(s.media, item)
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, item)
}

func (s *Server) handleListComments(w http.ResponseWriter, r *http.Request) {
	mediaID := chi.URLParam(r, "mediaID")

	s.mu.Lock()
	comments := append([]models.Comment(nil), s.comments[mediaID]...)
	s.mu.Unlock()

	if comments == nil {
		comments = []models.Comment{}
	}
	writeJSON(w, http.StatusOK, comments)
}

func (s *Server) handlePostComment(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.authedUser(r); !ok {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	mediaID := chi.URLParam(r, "mediaID")

	var req models.CreateCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	s.mu.Lock()
	comment := models.Comment{
		ID:           fmt.Sprintf("comment-%s-%d", mediaID, len(s.comments[mediaID])+1),
		UserID:       req.UserID,
		Username:     req.Username,
		UserPhotoURL: req.UserPhotoURL,
		Text:         req.Text,
		CreatedAt:    time.Now(),
	}
	s.comments[mediaID] = append([]models.Comment{comment}, s.comments[mediaID]...)
	for i := range s.media {
		if s.media[i].ID == mediaID {
			s.media[i].Comments++
		}
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, comment)
}

func (s *Server) handleIncrement(w http.ResponseWriter, r *http.Request) {
	mediaID := chi.URLParam(r, "mediaID")

	var req struct {
		Stat models.Stat `json:"stat"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !req.Stat.Valid() {
		writeError(w, http.StatusBadRequest, "invalid stat")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.IncrementCalls++
	if s.IncrementFailures > 0 {
		s.IncrementFailures--
		writeError(w, http.StatusInternalServerError, "increment unavailable")
		return
	}

	for i := range s.media {
		if s.media[i].ID == mediaID {
			s.media[i].ApplyIncrement(req.Stat)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}

	writeError(w, http.StatusNotFound, "media not found")
}

// ===============================
// HELPERS
// ===============================

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
