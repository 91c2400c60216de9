package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/firebase/genkit/go/genkit"

	"github.com/jovyan/nbagent/internal/agent"
	"github.com/jovyan/nbagent/internal/chat"
	"github.com/jovyan/nbagent/internal/log"
)

// chatHandler serves chat requests through the Genkit flow.
//
//   - POST /api/v1/chat        synchronous JSON request/response
//   - POST /api/v1/chat/stream SSE streaming
//
// Both paths go through the same flow.
type chatHandler struct {
	flow   *chat.Flow
	logger log.Logger
}

// registerRoutes registers chat routes on mux. Without a flow the routes
// are not registered and return 404.
func (h *chatHandler) registerRoutes(mux *http.ServeMux) {
	if h.flow == nil {
		h.logger.Warn("chat flow not configured, skipping route registration")
		return
	}

	mux.Handle("POST /api/v1/chat", genkit.Handler(h.flow))
	mux.HandleFunc("POST /api/v1/chat/stream", h.stream)
}

// SSE event types for chat streaming.
const (
	eventChunk = "chunk"
	eventDone  = "done"
	eventError = "error"
)

// donePayload is the SSE data payload when streaming completes.
type donePayload struct {
	Response  string `json:"response"`
	SessionID string `json:"sessionId"`
}

// errorPayload is the SSE data payload for stream failures.
type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// stream handles SSE streaming chat requests.
func (h *chatHandler) stream(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	var input chat.Input
	if err := decodeBody(w, r, &input); err != nil {
		_ = writeEvent(w, flusher, eventError, errorPayload{
			Code:    "INVALID_REQUEST",
			Message: "invalid request body",
		})
		return
	}
	if input.SessionID == "" {
		_ = writeEvent(w, flusher, eventError, errorPayload{Code: "MISSING_SESSION_ID", Message: "sessionId is required"})
		return
	}
	if input.Query == "" {
		_ = writeEvent(w, flusher, eventError, errorPayload{Code: "MISSING_QUERY", Message: "query is required"})
		return
	}

	ctx := r.Context()
	h.logger.Debug("SSE stream started", "session_id", input.SessionID)

	var (
		finalOutput chat.Output
		streamErr   error
	)

	for streamValue, err := range h.flow.Stream(ctx, input) {
		select {
		case <-ctx.Done():
			h.logger.Info("client disconnected", "session_id", input.SessionID)
			return
		default:
		}

		if err != nil {
			streamErr = err
			break
		}

		if streamValue.Done {
			finalOutput = streamValue.Output
			break
		}

		if streamValue.Stream.Text != "" {
			if err := writeEvent(w, flusher, eventChunk, chat.StreamChunk{
				Text: streamValue.Stream.Text,
			}); err != nil {
				// Write failure usually means the connection closed.
				h.logger.Debug("writing chunk", "error", err)
				return
			}
		}
	}

	if streamErr != nil {
		h.writeStreamError(w, flusher, streamErr)
		return
	}

	_ = writeEvent(w, flusher, eventDone, donePayload{
		Response:  finalOutput.Response,
		SessionID: finalOutput.SessionID,
	})

	h.logger.Debug("SSE stream completed", "session_id", input.SessionID)
}

// writeStreamError maps agent errors to SSE error events.
func (h *chatHandler) writeStreamError(w io.Writer, f http.Flusher, err error) {
	code := "STREAM_ERROR"
	switch {
	case errors.Is(err, agent.ErrInvalidSession):
		code = "INVALID_SESSION"
	case errors.Is(err, agent.ErrUnsupportedProvider):
		code = "UNSUPPORTED_PROVIDER"
	case errors.Is(err, agent.ErrExecutionFailed):
		code = "EXECUTION_FAILED"
	}

	_ = writeEvent(w, f, eventError, errorPayload{
		Code:    code,
		Message: err.Error(),
	})
}
