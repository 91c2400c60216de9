// Package cmd provides the CLI commands for nbagent.
//
// Commands:
//   - serve: HTTP API server for the JupyterLab sidebar
//   - prompt: run a one-shot instruction against a notebook
//   - explain-error: diagnose a failing notebook cell
//   - repl: interactive terminal chat with the notebook agent
//
// All commands install signal handling and shut down via context
// cancellation.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/jovyan/nbagent/internal/log"
)

// Execute is the main entry point for the nbagent CLI.
func Execute() error {
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	slog.SetDefault(log.New(log.Config{Level: level}))

	if len(os.Args) < 2 {
		runHelp()
		return nil
	}

	switch os.Args[1] {
	case "serve":
		return runServe()
	case "prompt":
		return runPrompt()
	case "explain-error":
		return runExplainError()
	case "repl":
		return runREPL()
	case "version", "--version", "-v":
		runVersion()
		return nil
	case "help", "--help", "-h":
		runHelp()
		return nil
	default:
		return fmt.Errorf("unknown command: %s", os.Args[1])
	}
}

// runHelp displays the help message.
func runHelp() {
	fmt.Println("nbagent - AI agent for Jupyter notebooks")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  nbagent serve [addr]         Start HTTP API server (default: 127.0.0.1:8890)")
	fmt.Println("  nbagent prompt [flags]       Run an instruction against a notebook")
	fmt.Println("  nbagent explain-error [flags] Explain the error in a notebook cell")
	fmt.Println("  nbagent repl [flags]         Start interactive chat mode")
	fmt.Println("  nbagent --version            Show version information")
	fmt.Println("  nbagent --help               Show this help")
	fmt.Println()
	fmt.Println("Agent flags (prompt, explain-error, repl):")
	fmt.Println("  --url URL          Jupyter server URL (default: http://localhost:8888)")
	fmt.Println("  --token TOKEN      Jupyter server token")
	fmt.Println("  --model MODEL      Model as provider:name, e.g. google:gemini-2.5-flash")
	fmt.Println("  --model-provider P Model provider (used with --model-name)")
	fmt.Println("  --model-name NAME  Model name (used with --model-provider)")
	fmt.Println("  --path PATH        Notebook path used as context")
	fmt.Println("  --input TEXT       Instruction text (prompt only)")
	fmt.Println("  --system-prompt TEXT    Override the system prompt (repl only)")
	fmt.Println("  --current-cell-index N  Restrict context to cells before N")
	fmt.Println("  --full-context     Include every notebook cell as context")
	fmt.Println("  --verbose          Enable debug logging")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  GEMINI_API_KEY     Gemini API key (google provider)")
	fmt.Println("  OPENAI_API_KEY     OpenAI API key (openai provider)")
	fmt.Println("  JUPYTER_URL        Jupyter server URL")
	fmt.Println("  JUPYTER_TOKEN      Jupyter server token")
	fmt.Println("  DEBUG              Enable debug logging")
}
