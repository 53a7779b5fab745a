package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/xeze-org/clinic/backend/internal/clinic"
	"github.com/xeze-org/clinic/backend/internal/middleware"
	"github.com/xeze-org/clinic/backend/internal/models"
)

// Accounts is the slice of the clinic the auth routes need.
type Accounts interface {
	Register(ctx context.Context, username, password string) (*models.User, error)
	Login(ctx context.Context, username, password string) (*models.User, error)
	Logout(ctx context.Context, userID int64)
	User(ctx context.Context, id int64) (*models.User, error)
}

// Handler holds auth-related HTTP handlers.
type Handler struct {
	accounts     Accounts
	sessions     *SessionStore
	secureCookie bool
}

func NewHandler(accounts Accounts, sessions *SessionStore, secureCookie bool) *Handler {
	return &Handler{accounts: accounts, sessions: sessions, secureCookie: secureCookie}
}

// Register creates a new user and logs them in.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}
	if req.Username == "" || req.Password == "" {
		http.Error(w, `{"error":"username and password are required"}`, http.StatusBadRequest)
		return
	}

	user, err := h.accounts.Register(r.Context(), req.Username, req.Password)
	if errors.Is(err, clinic.ErrConflict) {
		http.Error(w, `{"error":"Username already exists. Please choose a different username."}`, http.StatusConflict)
		return
	}
	if errors.Is(err, clinic.ErrInvalidInput) {
		http.Error(w, `{"error":"password must be at most 72 bytes"}`, http.StatusBadRequest)
		return
	}
	if err != nil {
		log.Printf("register error: %v", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	if !h.startSession(w, r, user.ID) {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(user)
}

// Login authenticates a user and creates a session.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}

	user, err := h.accounts.Login(r.Context(), req.Username, req.Password)
	if errors.Is(err, clinic.ErrInvalidCredentials) {
		http.Error(w, `{"error":"Invalid credentials. Please try again."}`, http.StatusUnauthorized)
		return
	}
	if err != nil {
		log.Printf("login error: %v", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	if !h.startSession(w, r, user.ID) {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(user)
}

// Logout destroys the current session.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		if uid, err := h.sessions.Get(r.Context(), cookie.Value); err == nil && uid != 0 {
			h.accounts.Logout(r.Context(), uid)
		}
		if err := h.sessions.Delete(r.Context(), cookie.Value); err != nil {
			log.Printf("session delete: %v", err)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookie,
		MaxAge:   -1,
	})

	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"message":"logged out"}`))
}

// Me returns the currently authenticated user.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, `{"error":"not authenticated"}`, http.StatusUnauthorized)
		return
	}

	user, err := h.accounts.User(r.Context(), userID)
	if errors.Is(err, clinic.ErrNotFound) {
		http.Error(w, `{"error":"user not found"}`, http.StatusNotFound)
		return
	}
	if err != nil {
		log.Printf("me error: %v", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(user)
}

func (h *Handler) startSession(w http.ResponseWriter, r *http.Request, userID int64) bool {
	sid, err := h.sessions.Create(r.Context(), userID)
	if err != nil {
		log.Printf("session create: %v", err)
		http.Error(w, `{"error":"session creation failed"}`, http.StatusInternalServerError)
		return false
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sid,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(SessionTTL / time.Second),
	})
	return true
}
