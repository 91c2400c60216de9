package tui

import (
	"context"
	"strings"
	"testing"

	"charm.land/bubbles/v2/textarea"
	"go.uber.org/goleak"

	"github.com/jovyan/nbagent/internal/chat"
)

// goleakOptions filters persistent goroutines expected to survive a test.
func goleakOptions() []goleak.Option {
	return []goleak.Option{
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
		goleak.IgnoreTopFunction("net/http.(*http2clientConnReadLoop).run"),
	}
}

// newTestTUI creates a TUI with an initialized textarea, skipping New so
// no chat flow is needed.
func newTestTUI() *TUI {
	ta := textarea.New()
	ta.SetHeight(3)
	ta.ShowLineNumbers = false
	return &TUI{
		state:    StateInput,
		input:    ta,
		history:  make([]string, 0),
		styles:   DefaultStyles(),
		markdown: newMarkdownRenderer(80),
		ctx:      context.Background(),
	}
}

func TestNew_ErrorOnNilFlow(t *testing.T) {
	_, err := New(context.Background(), nil, "test", "")
	if err == nil {
		t.Error("Expected error for nil flow")
	}
}

func TestNew_ErrorOnNilContext(t *testing.T) {
	var flow *chat.Flow
	//lint:ignore SA1012 intentionally testing nil context handling
	_, err := New(nil, flow, "test", "") //nolint:staticcheck
	if err == nil {
		t.Error("Expected error for nil context")
	}
}

func TestNew_ErrorOnEmptySessionID(t *testing.T) {
	_, err := New(context.Background(), nil, "", "")
	if err == nil {
		t.Error("Expected error for empty session ID")
	}
}

func TestTUI_Init(t *testing.T) {
	defer goleak.VerifyNone(t, goleakOptions()...)

	tui := newTestTUI()
	cmd := tui.Init()
	if cmd == nil {
		t.Error("Init should return a command (blink + spinner tick)")
	}
}

func TestTUI_HandleSlashCommands(t *testing.T) {
	defer goleak.VerifyNone(t, goleakOptions()...)

	tests := []struct {
		name     string
		cmd      string
		wantExit bool
		wantMsgs int // messages added on top of the pre-populated one
	}{
		{"help", "/help", false, 1},
		{"clear", "/clear", false, 0},
		{"exit", "/exit", true, 0},
		{"quit", "/quit", true, 0},
		{"unknown", "/unknown", false, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tui := newTestTUI()
			tui.messages = []Message{{Role: roleUser, Text: "hello"}}

			model, cmd := tui.handleSlashCommand(tt.cmd)
			result := model.(*TUI)

			if tt.wantExit {
				if cmd == nil {
					t.Error("Expected quit command for exit")
				}
				return
			}

			if tt.cmd == cmdClear {
				if len(result.messages) != 0 {
					t.Error("/clear should clear messages")
				}
				return
			}

			if len(result.messages) != 1+tt.wantMsgs {
				t.Errorf("Expected %d messages, got %d", 1+tt.wantMsgs, len(result.messages))
			}
		})
	}
}

func TestTUI_HistoryNavigation(t *testing.T) {
	defer goleak.VerifyNone(t, goleakOptions()...)

	tui := newTestTUI()
	tui.history = []string{"first", "second", "third"}
	tui.historyIdx = 3

	tests := []struct {
		delta    int
		expected string
	}{
		{-1, "third"},
		{-1, "second"},
		{-1, "first"},
		{-1, "first"}, // clamped at first
		{1, "second"},
		{1, "third"},
		{1, ""}, // past end = empty
		{1, ""}, // clamped
	}

	for i, tt := range tests {
		model, _ := tui.navigateHistory(tt.delta)
		tui = model.(*TUI)
		if tui.input.Value() != tt.expected {
			t.Errorf("Step %d: got %q, want %q", i, tui.input.Value(), tt.expected)
		}
	}
}

func TestTUI_AddMessageBound(t *testing.T) {
	tui := newTestTUI()
	for i := 0; i < maxMessages+25; i++ {
		tui.addMessage(Message{Role: roleUser, Text: "m"})
	}
	if len(tui.messages) != maxMessages {
		t.Errorf("messages = %d, want %d", len(tui.messages), maxMessages)
	}
}

func TestTUI_RebuildViewportContent(t *testing.T) {
	tui := newTestTUI()
	tui.viewport.SetWidth(80)
	tui.viewport.SetHeight(20)

	tui.addMessage(Message{Role: roleUser, Text: "run cell 3"})
	tui.addMessage(Message{Role: roleError, Text: "boom"})
	tui.rebuildViewportContent()

	content := tui.viewport.View()
	if !strings.Contains(content, "run cell 3") {
		t.Error("viewport should contain the user message")
	}
}

func TestListenForStream_NilChannel(t *testing.T) {
	cmd := listenForStream(nil)
	if msg := cmd(); msg != nil {
		t.Errorf("expected nil msg for nil channel, got %T", msg)
	}
}

func TestListenForStream_Dispatch(t *testing.T) {
	defer goleak.VerifyNone(t, goleakOptions()...)

	ch := make(chan streamEvent, 4)
	ch <- streamEvent{} // empty event is skipped
	ch <- streamEvent{text: "hello"}

	msg := listenForStream(ch)()
	textMsg, ok := msg.(streamTextMsg)
	if !ok {
		t.Fatalf("expected streamTextMsg, got %T", msg)
	}
	if textMsg.text != "hello" {
		t.Errorf("text = %q, want %q", textMsg.text, "hello")
	}

	ch <- streamEvent{done: true, output: chat.Output{Response: "final"}}
	msg = listenForStream(ch)()
	doneMsg, ok := msg.(streamDoneMsg)
	if !ok {
		t.Fatalf("expected streamDoneMsg, got %T", msg)
	}
	if doneMsg.output.Response != "final" {
		t.Errorf("response = %q, want %q", doneMsg.output.Response, "final")
	}

	close(ch)
	msg = listenForStream(ch)()
	if _, ok := msg.(streamErrorMsg); !ok {
		t.Fatalf("expected streamErrorMsg on closed channel, got %T", msg)
	}
}
