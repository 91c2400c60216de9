package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/jovyan/nbagent/internal/log"
	"github.com/jovyan/nbagent/internal/session"
)

// sessionHandler serves conversation session CRUD.
type sessionHandler struct {
	store  *session.Store
	logger log.Logger
}

// list handles GET /api/v1/sessions.
func (h *sessionHandler) list(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	sessions, err := h.store.List(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("listing sessions", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error", h.logger)
		return
	}
	if sessions == nil {
		sessions = []*session.Session{}
	}
	writeJSON(w, http.StatusOK, sessions, h.logger)
}

// createSessionRequest is the POST /api/v1/sessions payload.
type createSessionRequest struct {
	Title string `json:"title"`
	Model string `json:"model"`
}

// create handles POST /api/v1/sessions. Responds 201 with the new session.
func (h *sessionHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", h.logger)
		return
	}
	if req.Title == "" {
		req.Title = "New Session"
	}

	sess, err := h.store.Create(r.Context(), req.Title, req.Model)
	if err != nil {
		h.logger.Error("creating session", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error", h.logger)
		return
	}
	writeJSON(w, http.StatusCreated, sess, h.logger)
}

// get handles GET /api/v1/sessions/{id}.
func (h *sessionHandler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	sess, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess, h.logger)
}

// messageView is the wire shape of one history message.
type messageView struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// messages handles GET /api/v1/sessions/{id}/messages.
func (h *sessionHandler) messages(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	history, err := h.store.History(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}

	views := make([]messageView, 0, len(history))
	for _, msg := range history {
		views = append(views, messageView{
			Role: string(msg.Role),
			Text: msg.Text(),
		})
	}
	writeJSON(w, http.StatusOK, views, h.logger)
}

// remove handles DELETE /api/v1/sessions/{id}. Responds 204 on success.
func (h *sessionHandler) remove(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		h.writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *sessionHandler) sessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session id", h.logger)
		return uuid.Nil, false
	}
	return id, true
}

func (h *sessionHandler) writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, session.ErrSessionNotFound) {
		writeError(w, http.StatusNotFound, err.Error(), h.logger)
		return
	}
	h.logger.Error("session store operation failed", "error", err)
	writeError(w, http.StatusInternalServerError, "internal server error", h.logger)
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}
