package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/jackknife/charsheet/internal/models"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// CookieOptions controls the session cookie written on login.
type CookieOptions struct {
	TTL    time.Duration
	Secure bool
}

// Handler holds auth-related HTTP handlers.
type Handler struct {
	svc      *Service
	sessions SessionStore
	cookie   CookieOptions
	log      *zap.Logger
}

func NewHandler(svc *Service, sessions SessionStore, cookie CookieOptions, log *zap.Logger) *Handler {
	if cookie.TTL <= 0 {
		cookie.TTL = DefaultSessionTTL
	}
	return &Handler{svc: svc, sessions: sessions, cookie: cookie, log: log}
}

// Login authenticates or registers a user and creates a session.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.SuccessResponse{Error: "invalid request body"})
		return
	}

	outcome, err := h.svc.Login(r.Context(), req.Username, req.Password)
	switch {
	case errors.Is(err, ErrInvalidCredential):
		writeJSON(w, http.StatusBadRequest, models.SuccessResponse{Error: err.Error()})
		return
	case err != nil:
		h.log.Error("login failed", zap.String("username", req.Username), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, models.SuccessResponse{})
		return
	}

	if !outcome.OK() {
		writeJSON(w, http.StatusOK, models.SuccessResponse{})
		return
	}

	// Replace any session the browser already holds.
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		if err := h.sessions.Delete(r.Context(), cookie.Value); err != nil {
			h.log.Warn("failed to delete previous session", zap.Error(err))
		}
	}

	sid, err := h.sessions.Create(r.Context(), req.Username)
	if err != nil {
		h.log.Error("session creation failed", zap.String("username", req.Username), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, models.SuccessResponse{})
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sid,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(h.cookie.TTL / time.Second),
	})

	h.log.Debug("login", zap.String("username", req.Username), zap.Stringer("outcome", outcome))
	writeJSON(w, http.StatusOK, models.SuccessResponse{Success: true})
}

// Logout destroys the current session.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		MaxAge:   -1,
	})

	if cookie, err := r.Cookie(SessionCookie); err == nil {
		if err := h.sessions.Delete(r.Context(), cookie.Value); err != nil {
			h.log.Error("failed to delete session", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, models.SuccessResponse{})
			return
		}
	}

	writeJSON(w, http.StatusOK, models.SuccessResponse{Success: true})
}

// WhoAmI returns the username bound to the current session.
func (h *Handler) WhoAmI(w http.ResponseWriter, r *http.Request) {
	username, ok := UsernameFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, models.WhoAmIResponse{})
		return
	}

	exists, err := h.svc.Exists(r.Context(), username)
	if err != nil {
		h.log.Error("failed to look up session user", zap.String("username", username), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, models.WhoAmIResponse{})
		return
	}
	if !exists {
		writeJSON(w, http.StatusUnauthorized, models.WhoAmIResponse{})
		return
	}

	writeJSON(w, http.StatusOK, models.WhoAmIResponse{Username: &username})
}

// ChangePassword rehashes the password of the session's user.
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	username, _ := UsernameFrom(r.Context())

	var req models.ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.SuccessResponse{Error: "invalid request body"})
		return
	}

	err := h.svc.ChangePassword(r.Context(), username, req.Password)
	switch {
	case errors.Is(err, ErrPasswordTooShort):
		writeJSON(w, http.StatusBadRequest, models.SuccessResponse{Error: err.Error()})
	case err != nil:
		h.log.Error("change password failed", zap.String("username", username), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, models.SuccessResponse{})
	default:
		writeJSON(w, http.StatusOK, models.SuccessResponse{Success: true})
	}
}
