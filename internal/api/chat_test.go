package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/firebase/genkit/go/genkit"
	"github.com/google/uuid"

	"github.com/jovyan/nbagent/internal/agent"
	"github.com/jovyan/nbagent/internal/chat"
	"github.com/jovyan/nbagent/internal/log"
)

// sseTestEvent is one parsed SSE event from a recorded response body.
type sseTestEvent struct {
	Type string
	Data map[string]string
}

// parseSSEEvents parses an SSE response body into structured events.
func parseSSEEvents(t *testing.T, body string) []sseTestEvent {
	t.Helper()

	var events []sseTestEvent
	for _, block := range strings.Split(body, "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		var ev sseTestEvent
		for _, line := range strings.Split(block, "\n") {
			switch {
			case strings.HasPrefix(line, "event: "):
				ev.Type = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				raw := strings.TrimPrefix(line, "data: ")
				ev.Data = make(map[string]string)
				if err := json.Unmarshal([]byte(raw), &ev.Data); err != nil {
					t.Fatalf("invalid JSON in data line %q: %v", raw, err)
				}
			}
		}
		if ev.Type != "" {
			events = append(events, ev)
		}
	}
	return events
}

// filterSSEEvents returns the events of the given type.
func filterSSEEvents(events []sseTestEvent, eventType string) []sseTestEvent {
	var out []sseTestEvent
	for _, ev := range events {
		if ev.Type == eventType {
			out = append(out, ev)
		}
	}
	return out
}

func TestChatStream(t *testing.T) {
	sessionID := uuid.NewString()

	tests := []struct {
		name       string
		flowFn     func(context.Context, chat.Input, func(context.Context, chat.StreamChunk) error) (chat.Output, error)
		wantChunks []string          // expected chunk text values in order
		wantDone   map[string]string // expected done event fields (nil = no done)
		wantError  string            // expected error code ("" = no error)
	}{
		{
			name: "chunks then done",
			flowFn: func(ctx context.Context, input chat.Input, stream func(context.Context, chat.StreamChunk) error) (chat.Output, error) {
				for _, text := range []string{"Hello ", "World"} {
					if err := stream(ctx, chat.StreamChunk{Text: text}); err != nil {
						return chat.Output{}, err
					}
				}
				return chat.Output{Response: "Hello World", SessionID: input.SessionID}, nil
			},
			wantChunks: []string{"Hello ", "World"},
			wantDone:   map[string]string{"response": "Hello World", "sessionId": sessionID},
		},
		{
			name: "invalid session",
			flowFn: func(_ context.Context, _ chat.Input, _ func(context.Context, chat.StreamChunk) error) (chat.Output, error) {
				return chat.Output{}, fmt.Errorf("loading session: %w", agent.ErrInvalidSession)
			},
			wantError: "INVALID_SESSION",
		},
		{
			name: "unsupported provider",
			flowFn: func(_ context.Context, _ chat.Input, _ func(context.Context, chat.StreamChunk) error) (chat.Output, error) {
				return chat.Output{}, fmt.Errorf("resolving model: %w", agent.ErrUnsupportedProvider)
			},
			wantError: "UNSUPPORTED_PROVIDER",
		},
		{
			name: "partial chunks then execution failure",
			flowFn: func(ctx context.Context, _ chat.Input, stream func(context.Context, chat.StreamChunk) error) (chat.Output, error) {
				if err := stream(ctx, chat.StreamChunk{Text: "partial"}); err != nil {
					return chat.Output{}, err
				}
				return chat.Output{}, fmt.Errorf("generate: %w", agent.ErrExecutionFailed)
			},
			wantChunks: []string{"partial"},
			wantError:  "EXECUTION_FAILED",
		},
		{
			name: "unmapped error",
			flowFn: func(_ context.Context, _ chat.Input, _ func(context.Context, chat.StreamChunk) error) (chat.Output, error) {
				return chat.Output{}, errors.New("model exploded")
			},
			wantError: "STREAM_ERROR",
		},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			t.Cleanup(cancel)

			g := genkit.Init(ctx)
			testFlow := genkit.DefineStreamingFlow(g, fmt.Sprintf("test/chat-%d", i), tt.flowFn)

			h := &chatHandler{flow: testFlow, logger: log.NewNop()}

			body := strings.NewReader(fmt.Sprintf(`{"query":"hi","sessionId":%q}`, sessionID))
			r := httptest.NewRequest(http.MethodPost, "/api/v1/chat/stream", body)
			w := httptest.NewRecorder()
			h.stream(w, r)

			if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
				t.Fatalf("Content-Type = %q, want text/event-stream", ct)
			}

			events := parseSSEEvents(t, w.Body.String())

			chunks := filterSSEEvents(events, eventChunk)
			if len(chunks) != len(tt.wantChunks) {
				t.Fatalf("got %d chunk events, want %d", len(chunks), len(tt.wantChunks))
			}
			for j, want := range tt.wantChunks {
				if got := chunks[j].Data["text"]; got != want {
					t.Errorf("chunk[%d].text = %q, want %q", j, got, want)
				}
			}

			done := filterSSEEvents(events, eventDone)
			if tt.wantDone != nil {
				if len(done) != 1 {
					t.Fatalf("got %d done events, want 1", len(done))
				}
				for k, want := range tt.wantDone {
					if got := done[0].Data[k]; got != want {
						t.Errorf("done.%s = %q, want %q", k, got, want)
					}
				}
			} else if len(done) != 0 {
				t.Errorf("got %d done events, want 0", len(done))
			}

			errEvents := filterSSEEvents(events, eventError)
			if tt.wantError != "" {
				if len(errEvents) != 1 {
					t.Fatalf("got %d error events, want 1", len(errEvents))
				}
				if got := errEvents[0].Data["code"]; got != tt.wantError {
					t.Errorf("error.code = %q, want %q", got, tt.wantError)
				}
				if errEvents[0].Data["message"] == "" {
					t.Error("error.message is empty")
				}
			} else if len(errEvents) != 0 {
				t.Errorf("got %d error events, want 0", len(errEvents))
			}
		})
	}
}

func TestChatStream_Validation(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode string
	}{
		{"malformed json", "{", "INVALID_REQUEST"},
		{"missing session id", `{"query":"hi"}`, "MISSING_SESSION_ID"},
		{"missing query", fmt.Sprintf(`{"sessionId":%q}`, uuid.NewString()), "MISSING_QUERY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Validation rejects the request before the flow is touched.
			h := &chatHandler{logger: log.NewNop()}

			r := httptest.NewRequest(http.MethodPost, "/api/v1/chat/stream", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			h.stream(w, r)

			errEvents := filterSSEEvents(parseSSEEvents(t, w.Body.String()), eventError)
			if len(errEvents) != 1 {
				t.Fatalf("got %d error events, want 1", len(errEvents))
			}
			if got := errEvents[0].Data["code"]; got != tt.wantCode {
				t.Errorf("error.code = %q, want %q", got, tt.wantCode)
			}
		})
	}
}
