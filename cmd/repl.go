package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	tea "charm.land/bubbletea/v2"

	"github.com/jovyan/nbagent/internal/app"
	"github.com/jovyan/nbagent/internal/config"
	"github.com/jovyan/nbagent/internal/tui"
)

// runREPL starts the interactive terminal chat.
func runREPL() error {
	flags, err := parseAgentFlags("repl")
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := flags.apply(cfg); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg, slog.Default(), app.Options{})
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			slog.Warn("shutdown error", "error", closeErr)
		}
	}()

	if flags.SystemPrompt != "" {
		a.Chat.SetSystemPrompt(flags.SystemPrompt)
	}

	sess, err := a.SessionStore.Create(ctx, "REPL Session", cfg.ModelName)
	if err != nil {
		return fmt.Errorf("creating session: %w", err)
	}

	model, err := tui.New(ctx, a.Flow, sess.ID.String(), flags.Model)
	if err != nil {
		return fmt.Errorf("creating TUI: %w", err)
	}
	program := tea.NewProgram(model, tea.WithContext(ctx))

	if _, err = program.Run(); err != nil {
		return fmt.Errorf("TUI exited: %w", err)
	}
	return nil
}
