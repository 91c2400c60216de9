package chat

import (
	"context"
	"fmt"
	"sync"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core"
	"github.com/firebase/genkit/go/genkit"
	"github.com/google/uuid"

	"github.com/jovyan/nbagent/internal/agent"
)

// Input is the request payload for the chat flow.
type Input struct {
	Query     string `json:"query"`
	SessionID string `json:"sessionId"`
	Model     string `json:"model,omitempty"` // "provider:model", empty for server default
}

// Output is the response payload from the chat flow.
type Output struct {
	Response  string `json:"response"`
	SessionID string `json:"sessionId"`
}

// StreamChunk carries one piece of partial response text.
type StreamChunk struct {
	Text string `json:"text"`
}

// FlowName is the registered name of the chat flow.
const FlowName = "nbagent/chat"

// Flow is the chat flow type, exported for genkit.Handler in the api
// package.
type Flow = core.Flow[Input, Output, StreamChunk]

// DefineStreamingFlow panics on re-registration, so the flow is a
// package-level singleton.
var (
	flowOnce sync.Once
	flow     *Flow
)

// NewFlow returns the chat flow singleton, defining it on first call.
func NewFlow(g *genkit.Genkit, c *Chat) *Flow {
	flowOnce.Do(func() {
		flow = c.defineFlow(g)
	})
	return flow
}

// ResetFlowForTesting clears the flow singleton. Tests only.
func ResetFlowForTesting() {
	flowOnce = sync.Once{}
	flow = nil
}

func (c *Chat) defineFlow(g *genkit.Genkit) *Flow {
	return genkit.DefineStreamingFlow(g, FlowName,
		func(ctx context.Context, input Input, streamCb func(context.Context, StreamChunk) error) (Output, error) {
			sessionID, err := uuid.Parse(input.SessionID)
			if err != nil {
				return Output{SessionID: input.SessionID}, fmt.Errorf("%w: %w", agent.ErrInvalidSession, err)
			}

			var callback agent.StreamCallback
			if streamCb != nil {
				callback = func(ctx context.Context, chunk *ai.ModelResponseChunk) error {
					if chunk == nil {
						return nil
					}
					for _, part := range chunk.Content {
						if part.Text == "" {
							continue
						}
						if streamErr := streamCb(ctx, StreamChunk{Text: part.Text}); streamErr != nil {
							return streamErr
						}
					}
					return nil
				}
			}

			resp, err := c.Execute(ctx, sessionID, input.Query, input.Model, callback)
			if err != nil {
				return Output{SessionID: input.SessionID}, err
			}

			return Output{
				Response:  resp.FinalText,
				SessionID: input.SessionID,
			}, nil
		},
	)
}
