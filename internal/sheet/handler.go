package sheet

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/jackknife/charsheet/internal/auth"
	"github.com/jackknife/charsheet/internal/models"
)

var emptyDocument = json.RawMessage(`{}`)

// Store persists one opaque JSON document per user.
type Store interface {
	SaveSheet(ctx context.Context, username string, doc []byte) error
	// LoadSheet returns nil when nothing has been saved.
	LoadSheet(ctx context.Context, username string) ([]byte, error)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// Handler serves the save/load endpoints. Both require auth.RequireAuth upstream.
type Handler struct {
	store   Store
	maxBody int64
	log     *zap.Logger
}

func NewHandler(store Store, maxBody int64, log *zap.Logger) *Handler {
	return &Handler{store: store, maxBody: maxBody, log: log}
}

// Save overwrites the user's document with the request's data value verbatim.
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	username, _ := auth.UsernameFrom(r.Context())

	if h.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}

	var req models.SaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, models.SuccessResponse{Error: "sheet is too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, models.SuccessResponse{Error: "invalid request body"})
		return
	}
	if req.Data == nil {
		writeJSON(w, http.StatusBadRequest, models.SuccessResponse{Error: "data is required"})
		return
	}

	if err := h.store.SaveSheet(r.Context(), username, req.Data); err != nil {
		h.log.Error("save sheet failed", zap.String("username", username), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, models.SuccessResponse{})
		return
	}

	h.log.Debug("sheet saved", zap.String("username", username), zap.Int("bytes", len(req.Data)))
	writeJSON(w, http.StatusOK, models.SuccessResponse{Success: true})
}

// Load returns the user's document, or {} when nothing usable is stored.
func (h *Handler) Load(w http.ResponseWriter, r *http.Request) {
	username, _ := auth.UsernameFrom(r.Context())

	doc, err := h.store.LoadSheet(r.Context(), username)
	if err != nil && !errors.Is(err, models.ErrUserNotFound) {
		h.log.Error("load sheet failed", zap.String("username", username), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, models.SuccessResponse{})
		return
	}

	writeJSON(w, http.StatusOK, models.DataResponse{Data: normalize(doc, h.log, username)})
}

// normalize maps missing, null and unparsable documents to an empty object.
func normalize(doc []byte, log *zap.Logger, username string) json.RawMessage {
	trimmed := bytes.TrimSpace(doc)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return emptyDocument
	}
	if !json.Valid(trimmed) {
		log.Warn("stored sheet is not valid JSON", zap.String("username", username))
		return emptyDocument
	}
	return json.RawMessage(trimmed)
}
