// Package shareserver is an in-process implementation of the pantry share
// service, used by the -serve-dev command and the integration tests. It
// reproduces the upstream contract: JSON bodies, {"detail": ...} rejections,
// Basic auth, pending-only received listings sorted most recent first.
package shareserver

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/pantrylink/pantrylink-go/internal/logutil"
)

// Server serves the share-service HTTP API over an in-memory repository.
type Server struct {
	repo   *Repository
	logger *slog.Logger
}

// NewServer creates a stub share service.
func NewServer(logger *slog.Logger) *Server {
	return &Server{
		repo:   NewRepository(),
		logger: logutil.NoopIfNil(logger),
	}
}

// Repo exposes the backing repository for test seeding.
func (s *Server) Repo() *Repository { return s.repo }

// Router builds the chi router for the service.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Post("/signup", s.handleSignup)
	r.Post("/login", s.handleLogin)

	r.Route("/share", func(r chi.Router) {
		r.Use(s.requireBasicAuth)
		r.Post("/request", s.handleCreateRequest)
		r.Get("/received/{userID}", s.handleReceived)
		r.Get("/sent/{userID}", s.handleSent)
		r.Post("/respond", s.handleRespond)
		r.Get("/shared-with/{userID}", s.handleSharedWith)
	})

	return r
}

// shareView is the wire form of a share request. Listing endpoints add the
// sender enrichment fields.
type shareView struct {
	ID           string `json:"id"`
	FromUserID   string `json:"from_user_id"`
	FromUsername string `json:"from_username,omitempty"`
	FromEmail    string `json:"from_email,omitempty"`
	ToUsername   string `json:"to_username"`
	ToEmail      string `json:"to_email,omitempty"`
	Status       string `json:"status"`
	Permission   string `json:"permission"`
	TimeAgo      string `json:"time_ago,omitempty"`
	CreatedAt    string `json:"created_at"`
}

type grantView struct {
	UserID     string `json:"user_id"`
	Username   string `json:"username"`
	Email      string `json:"email"`
	Permission string `json:"permission"`
	SharedAt   string `json:"shared_at"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Username == "" || body.Email == "" || body.Password == "" {
		writeDetail(w, http.StatusBadRequest, "username, email, and password are required")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	acct, err := s.repo.CreateUser(body.Username, body.Email, string(hash))
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "username or email already registered")
		return
	}

	s.logger.Info("account created", "username", acct.Username)
	writeJSON(w, http.StatusCreated, map[string]string{
		"id":       acct.ID,
		"username": acct.Username,
		"email":    acct.Email,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	acct, err := s.repo.UserByEmail(body.Email)
	if err != nil || bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(body.Password)) != nil {
		writeDetail(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"id":       acct.ID,
		"username": acct.Username,
		"email":    acct.Email,
	})
}

func (s *Server) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	var body struct {
		FromUserID string `json:"from_user_id"`
		ToUsername string `json:"to_username"`
		Permission string `json:"permission"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Permission == "" {
		body.Permission = "view"
	}
	if body.Permission != "view" && body.Permission != "edit" {
		writeDetail(w, http.StatusBadRequest, "permission must be view or edit")
		return
	}

	target, err := s.repo.UserByUsername(body.ToUsername)
	if err != nil {
		writeDetail(w, http.StatusNotFound, fmt.Sprintf("User '%s' not found", body.ToUsername))
		return
	}

	if body.FromUserID == target.ID {
		writeDetail(w, http.StatusBadRequest, "You cannot share your pantry with yourself")
		return
	}

	if s.repo.HasPending(body.FromUserID, body.ToUsername) {
		writeDetail(w, http.StatusBadRequest, fmt.Sprintf("Share request already pending for %s", body.ToUsername))
		return
	}

	rec := s.repo.CreateShare(body.FromUserID, body.ToUsername, target.Email, body.Permission)
	s.logger.Info("share request created", "id", rec.ID, "to", rec.ToUsername, "permission", rec.Permission)

	writeJSON(w, http.StatusOK, shareView{
		ID:         rec.ID,
		FromUserID: rec.FromUserID,
		ToUsername: rec.ToUsername,
		ToEmail:    rec.ToEmail,
		Status:     rec.Status,
		Permission: rec.Permission,
		CreatedAt:  rec.CreatedAt.Format(time.RFC3339),
	})
}

func (s *Server) handleReceived(w http.ResponseWriter, r *http.Request) {
	user, err := s.repo.UserByID(chi.URLParam(r, "userID"))
	if err != nil {
		writeDetail(w, http.StatusNotFound, "User not found")
		return
	}

	views := []shareView{}
	for _, rec := range s.repo.SharesTo(user.Username, "pending") {
		sender, err := s.repo.UserByID(rec.FromUserID)
		if err != nil {
			continue
		}
		views = append(views, shareView{
			ID:           rec.ID,
			FromUserID:   rec.FromUserID,
			FromUsername: sender.Username,
			FromEmail:    sender.Email,
			ToUsername:   rec.ToUsername,
			Status:       rec.Status,
			Permission:   rec.Permission,
			TimeAgo:      timeAgo(rec.CreatedAt),
			CreatedAt:    rec.CreatedAt.Format(time.RFC3339),
		})
	}

	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleSent(w http.ResponseWriter, r *http.Request) {
	views := []shareView{}
	for _, rec := range s.repo.SharesFrom(chi.URLParam(r, "userID")) {
		views = append(views, shareView{
			ID:         rec.ID,
			FromUserID: rec.FromUserID,
			ToUsername: rec.ToUsername,
			ToEmail:    rec.ToEmail,
			Status:     rec.Status,
			Permission: rec.Permission,
			CreatedAt:  rec.CreatedAt.Format(time.RFC3339),
		})
	}

	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleRespond(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RequestID string `json:"request_id"`
		Action    string `json:"action"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Action != "accept" && body.Action != "reject" {
		writeDetail(w, http.StatusBadRequest, "action must be accept or reject")
		return
	}

	rec, err := s.repo.Share(body.RequestID)
	if err != nil {
		writeDetail(w, http.StatusNotFound, "Share request not found")
		return
	}

	// Terminal requests are immutable: repeated responds fail, they do not
	// silently succeed.
	if rec.Status != "pending" {
		writeDetail(w, http.StatusConflict, fmt.Sprintf("Share request already %s", rec.Status))
		return
	}

	newStatus := "accepted"
	if body.Action == "reject" {
		newStatus = "rejected"
	}

	updated, err := s.repo.SetStatus(body.RequestID, newStatus)
	if err != nil {
		writeDetail(w, http.StatusNotFound, "Share request not found")
		return
	}

	s.logger.Info("share request resolved", "id", updated.ID, "status", updated.Status)
	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Request %sed successfully", body.Action),
		"status":  updated.Status,
	})
}

func (s *Server) handleSharedWith(w http.ResponseWriter, r *http.Request) {
	user, err := s.repo.UserByID(chi.URLParam(r, "userID"))
	if err != nil {
		writeDetail(w, http.StatusNotFound, "User not found")
		return
	}

	grants := []grantView{}
	for _, rec := range s.repo.SharesTo(user.Username, "accepted") {
		sender, err := s.repo.UserByID(rec.FromUserID)
		if err != nil {
			continue
		}
		grants = append(grants, grantView{
			UserID:     sender.ID,
			Username:   sender.Username,
			Email:      sender.Email,
			Permission: rec.Permission,
			SharedAt:   rec.UpdatedAt.Format(time.RFC3339),
		})
	}

	writeJSON(w, http.StatusOK, grants)
}

// requireBasicAuth verifies the Basic credential against a registered
// account's password hash.
func (s *Server) requireBasicAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Basic ") {
			writeDetail(w, http.StatusUnauthorized, "missing credentials")
			return
		}

		raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(auth, "Basic "))
		if err != nil {
			writeDetail(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		username, password, ok := strings.Cut(string(raw), ":")
		if !ok {
			writeDetail(w, http.StatusUnauthorized, "invalid credentials")
			return
		}

		acct, err := s.repo.UserByUsername(username)
		if err != nil || bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)) != nil {
			writeDetail(w, http.StatusUnauthorized, "invalid credentials")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// timeAgo renders the coarse age string the upstream service produces.
func timeAgo(t time.Time) string {
	diff := time.Since(t)
	switch {
	case diff >= 24*time.Hour:
		days := int(diff.Hours()) / 24
		return fmt.Sprintf("%d day%s ago", days, plural(days))
	case diff >= time.Hour:
		hours := int(diff.Hours())
		return fmt.Sprintf("%d hour%s ago", hours, plural(hours))
	default:
		minutes := int(diff.Minutes())
		return fmt.Sprintf("%d minute%s ago", minutes, plural(minutes))
	}
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
