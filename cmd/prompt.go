package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/firebase/genkit/go/ai"

	"github.com/jovyan/nbagent/internal/agent"
	"github.com/jovyan/nbagent/internal/app"
	"github.com/jovyan/nbagent/internal/config"
)

// runPrompt runs a one-shot instruction against a notebook and streams the
// agent's answer to stdout.
func runPrompt() error {
	flags, err := parseAgentFlags("prompt")
	if err != nil {
		return err
	}
	if flags.Input == "" {
		return errors.New("prompt: --input is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := flags.apply(cfg); err != nil {
		return err
	}

	notebook, err := flags.loadNotebook()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg, slog.Default(), app.Options{SkipFlow: true})
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			slog.Warn("shutdown error", "error", closeErr)
		}
	}()

	task := agent.PromptTask{
		Input:            flags.Input,
		Notebook:         notebook,
		CurrentCellIndex: flags.CurrentCellIndex,
		FullContext:      flags.FullContext,
	}

	return runAgentRequest(ctx, a.Agent, task.Request())
}

// runAgentRequest executes a request and streams text chunks to stdout.
// When the model does not stream, the final text is printed instead.
func runAgentRequest(ctx context.Context, ag *agent.Agent, req agent.Request) error {
	var streamed bool
	resp, err := ag.ExecuteStream(ctx, req, func(_ context.Context, chunk *ai.ModelResponseChunk) error {
		if chunk == nil {
			return nil
		}
		for _, part := range chunk.Content {
			if part.Text == "" {
				continue
			}
			streamed = true
			fmt.Print(part.Text)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if !streamed && resp.FinalText != "" {
		fmt.Print(resp.FinalText)
	}
	fmt.Fprintln(os.Stdout)
	return nil
}
