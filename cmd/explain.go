package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/jovyan/nbagent/internal/agent"
	"github.com/jovyan/nbagent/internal/app"
	"github.com/jovyan/nbagent/internal/config"
)

// runExplainError finds the failing cell in a notebook, asks the agent to
// explain it, and streams the answer to stdout.
func runExplainError() error {
	flags, err := parseAgentFlags("explain-error")
	if err != nil {
		return err
	}
	if flags.Path == "" {
		return errors.New("explain-error: --path is required")
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

	task := agent.ExplainErrorTask{
		Notebook:  notebook,
		CellIndex: flags.CurrentCellIndex,
	}
	req, err := task.Request()
	if err != nil {
		if errors.Is(err, agent.ErrNoErrorFound) {
			return fmt.Errorf("no error output found in %s", flags.Path)
		}
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

	return runAgentRequest(ctx, a.Agent, req)
}
