// Package chat orchestrates conversation turns: it resolves the session,
// loads history, runs the agent, and persists the exchange. The Genkit
// flow in flow.go exposes this to HTTP handlers and the DevUI.
package chat

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/google/uuid"

	"github.com/jovyan/nbagent/internal/agent"
	"github.com/jovyan/nbagent/internal/log"
	"github.com/jovyan/nbagent/internal/session"
)

// Chat runs conversation turns against the session store.
type Chat struct {
	agent    *agent.Agent
	sessions *session.Store
	logger   log.Logger
	system   string // optional system prompt override
}

// New creates a Chat orchestrator.
func New(ag *agent.Agent, sessions *session.Store, logger log.Logger) (*Chat, error) {
	if ag == nil {
		return nil, fmt.Errorf("agent is required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Chat{agent: ag, sessions: sessions, logger: logger}, nil
}

// SetSystemPrompt overrides the agent's default system prompt for all
// subsequent turns. Call before the flow is defined.
func (c *Chat) SetSystemPrompt(prompt string) {
	c.system = prompt
}

// Execute runs one turn in the given session. The session is created on
// first use since frontends generate session IDs client-side. model may be
// empty to use the server default.
func (c *Chat) Execute(ctx context.Context, sessionID uuid.UUID, query, model string, callback agent.StreamCallback) (*agent.Response, error) {
	if _, err := c.sessions.GetOrCreate(ctx, sessionID, model); err != nil {
		return nil, fmt.Errorf("resolving session: %w", err)
	}

	history, err := c.sessions.History(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}

	resp, err := c.agent.ExecuteStream(ctx, agent.Request{
		Input:   query,
		System:  c.system,
		Model:   model,
		History: history,
	}, callback)
	if err != nil {
		return nil, err
	}

	turn := []*ai.Message{
		ai.NewUserMessage(ai.NewTextPart(query)),
		ai.NewModelMessage(ai.NewTextPart(resp.FinalText)),
	}
	// Persistence is best-effort: the user already has the response.
	if err := c.sessions.AppendMessages(ctx, sessionID, turn); err != nil {
		c.logger.Warn("appending messages to history", "session_id", sessionID, "error", err)
	}

	return resp, nil
}
