// Package agent runs LLM conversations against a Jupyter workspace. It
// wraps Genkit generation with retry, rate limiting, and the tool set
// assembled from builtin tools and connected MCP servers.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"golang.org/x/time/rate"

	"github.com/jovyan/nbagent/internal/log"
)

// Sentinel errors for agent operations.
var (
	// ErrInvalidSession indicates the session ID is invalid or unknown.
	ErrInvalidSession = errors.New("invalid session")

	// ErrExecutionFailed indicates the generation loop failed.
	ErrExecutionFailed = errors.New("execution failed")

	// ErrUnsupportedProvider indicates a model provider this build cannot
	// serve.
	ErrUnsupportedProvider = errors.New("unsupported model provider")
)

// systemPrompt frames every conversation. The agent works inside a Jupyter
// workspace and reaches notebooks and kernels through its tools.
const systemPrompt = `You are a helpful AI assistant embedded in a Jupyter environment.
You can read notebooks, list workspace files, and execute code through the
tools available to you. Prefer showing runnable code over prose when the
user asks for an implementation. When you execute code, report the actual
output. Keep answers concise.`

// fallbackResponse is returned when the model produces an empty response.
const fallbackResponse = "I couldn't generate a response. Please try rephrasing your question."

// StreamCallback receives each streamed chunk of a response. Returning an
// error aborts the stream.
type StreamCallback func(ctx context.Context, chunk *ai.ModelResponseChunk) error

// Response is the completed result of one agent turn.
type Response struct {
	FinalText    string
	ToolRequests []*ai.ToolRequest
}

// Config carries the dependencies for an Agent.
type Config struct {
	Genkit *genkit.Genkit
	Logger log.Logger
	Tools  []ai.Tool

	// ModelName is the provider-qualified default model, e.g.
	// "googleai/gemini-2.5-flash". A request may override it.
	ModelName string
	MaxTurns  int

	RetryConfig RetryConfig
	RateLimiter *rate.Limiter
}

func (cfg Config) validate() error {
	if cfg.Genkit == nil {
		return errors.New("genkit instance is required")
	}
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	return nil
}

// Agent is the conversational engine shared by the HTTP API and the CLI.
// All configuration is captured at construction, so a single Agent is safe
// for concurrent use.
type Agent struct {
	g         *genkit.Genkit
	logger    log.Logger
	tools     []ai.Tool
	toolRefs  []ai.ToolRef
	toolNames string

	modelName string
	maxTurns  int

	retryConfig RetryConfig
	rateLimiter *rate.Limiter
}

// New creates an Agent.
func New(cfg Config) (*Agent, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	maxTurns := cfg.MaxTurns
	if maxTurns <= 0 {
		maxTurns = 10
	}

	retryConfig := cfg.RetryConfig
	if retryConfig.MaxRetries == 0 {
		retryConfig = DefaultRetryConfig()
	}

	rl := cfg.RateLimiter
	if rl == nil {
		rl = rate.NewLimiter(10, 30)
	}

	toolRefs := make([]ai.ToolRef, len(cfg.Tools))
	names := make([]string, len(cfg.Tools))
	for i, t := range cfg.Tools {
		toolRefs[i] = t
		names[i] = t.Name()
	}

	a := &Agent{
		g:           cfg.Genkit,
		logger:      cfg.Logger,
		tools:       cfg.Tools,
		toolRefs:    toolRefs,
		toolNames:   strings.Join(names, ", "),
		modelName:   cfg.ModelName,
		maxTurns:    maxTurns,
		retryConfig: retryConfig,
		rateLimiter: rl,
	}

	a.logger.Info("agent initialized",
		"model", a.modelName,
		"tool_count", len(a.tools),
		"max_turns", a.maxTurns,
	)
	return a, nil
}

// Request is one agent turn.
type Request struct {
	// Input is the user's message.
	Input string

	// System overrides the default system prompt when set.
	System string

	// Model overrides the agent's default model when set. Accepts the
	// frontend's "provider:model" form or a provider-qualified Genkit name.
	Model string

	// History holds prior conversation messages, oldest first.
	History []*ai.Message
}

// Execute runs one turn without streaming.
func (a *Agent) Execute(ctx context.Context, req Request) (*Response, error) {
	return a.ExecuteStream(ctx, req, nil)
}

// ExecuteStream runs one turn, invoking callback for each chunk when it is
// non-nil. The complete response is returned either way.
func (a *Agent) ExecuteStream(ctx context.Context, req Request, callback StreamCallback) (*Response, error) {
	modelName := a.modelName
	if req.Model != "" {
		resolved, err := ResolveModel(req.Model)
		if err != nil {
			return nil, err
		}
		modelName = resolved
	}

	system := req.System
	if system == "" {
		system = systemPrompt
	}

	// History is copied before handing it to generation since the
	// framework mutates message content in place.
	messages := copyMessages(req.History)
	messages = append(messages, ai.NewUserMessage(ai.NewTextPart(req.Input)))

	opts := []ai.GenerateOption{
		ai.WithModelName(modelName),
		ai.WithSystem(system),
		ai.WithMessages(messages...),
		ai.WithMaxTurns(a.maxTurns),
	}
	if len(a.toolRefs) > 0 {
		opts = append(opts, ai.WithTools(a.toolRefs...))
	}
	if callback != nil {
		opts = append(opts, ai.WithStreaming(ai.ModelStreamCallback(callback)))
	}

	a.logger.Debug("executing agent turn",
		"model", modelName,
		"tools", a.toolNames,
		"history_len", len(req.History),
		"input_len", len(req.Input),
	)

	start := time.Now()
	resp, err := a.generateWithRetry(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExecutionFailed, err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" && len(resp.ToolRequests()) == 0 {
		a.logger.Warn("model returned empty response")
		text = fallbackResponse
	}

	a.logger.Debug("agent turn complete",
		"elapsed", time.Since(start),
		"tool_requests", len(resp.ToolRequests()),
	)

	return &Response{
		FinalText:    text,
		ToolRequests: resp.ToolRequests(),
	}, nil
}

// copyMessages creates independent copies of the messages and their parts
// slice. Generation modifies message content in place, so shared history
// must not be handed over directly.
func copyMessages(msgs []*ai.Message) []*ai.Message {
	if msgs == nil {
		return nil
	}
	copied := make([]*ai.Message, len(msgs))
	for i, msg := range msgs {
		parts := make([]*ai.Part, len(msg.Content))
		copy(parts, msg.Content)
		copied[i] = &ai.Message{
			Role:     msg.Role,
			Content:  parts,
			Metadata: msg.Metadata,
		}
	}
	return copied
}
