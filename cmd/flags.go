package cmd

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/jovyan/nbagent/internal/config"
	"github.com/jovyan/nbagent/internal/jupyter"
	"github.com/jovyan/nbagent/internal/log"
)

// agentFlags holds the flags shared by the prompt, explain-error, and repl
// commands.
type agentFlags struct {
	URL              string // Jupyter server URL
	Token            string // Jupyter server token
	Model            string // "provider:model" override
	ModelProvider    string // provider override, used with --model-name
	ModelName        string // model name override, used with --model-provider
	Path             string // notebook path used as context
	Input            string // instruction text
	SystemPrompt     string // system prompt override (repl)
	CurrentCellIndex int    // context bound, negative = unbounded
	FullContext      bool   // include every cell
	Verbose          bool   // debug logging
}

// parseAgentFlags parses the shared agent flags from os.Args[2:].
func parseAgentFlags(command string) (*agentFlags, error) {
	fs := flag.NewFlagSet(command, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	f := &agentFlags{}
	fs.StringVar(&f.URL, "url", "", "Jupyter server URL")
	fs.StringVar(&f.Token, "token", "", "Jupyter server token")
	fs.StringVar(&f.Model, "model", "", "Model as provider:name")
	fs.StringVar(&f.ModelProvider, "model-provider", "", "Model provider (google, openai, ollama)")
	fs.StringVar(&f.ModelName, "model-name", "", "Model name, used with --model-provider")
	fs.StringVar(&f.Path, "path", "", "Notebook path used as context")
	fs.StringVar(&f.Input, "input", "", "Instruction text")
	fs.StringVar(&f.SystemPrompt, "system-prompt", "", "System prompt override")
	fs.IntVar(&f.CurrentCellIndex, "current-cell-index", -1, "Restrict context to cells before this index")
	fs.BoolVar(&f.FullContext, "full-context", false, "Include every notebook cell as context")
	fs.BoolVar(&f.Verbose, "verbose", false, "Enable debug logging")

	args := []string{}
	if len(os.Args) > 2 {
		args = os.Args[2:]
	}
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parsing %s flags: %w", command, err)
	}

	if f.Verbose {
		slog.SetDefault(log.New(log.Config{Level: slog.LevelDebug}))
	}

	return f, nil
}

// apply overrides the loaded configuration with the flag values.
// --model wins over the --model-provider/--model-name pair.
func (f *agentFlags) apply(cfg *config.Config) error {
	if f.URL != "" {
		cfg.JupyterURL = f.URL
	}
	if f.Token != "" {
		cfg.JupyterToken = f.Token
	}

	switch {
	case f.Model != "":
		provider, model, err := config.SplitModelRef(f.Model)
		if err != nil {
			return err
		}
		cfg.Provider = provider
		cfg.ModelName = model
	case f.ModelProvider != "" || f.ModelName != "":
		if f.ModelProvider == "" || f.ModelName == "" {
			return errors.New("--model-provider and --model-name must be used together")
		}
		provider, model, err := config.SplitModelRef(f.ModelProvider + ":" + f.ModelName)
		if err != nil {
			return err
		}
		cfg.Provider = provider
		cfg.ModelName = model
	}
	return nil
}

// loadNotebook reads the notebook named by --path, or returns nil when the
// flag is unset.
func (f *agentFlags) loadNotebook() (*jupyter.Notebook, error) {
	if f.Path == "" {
		return nil, nil
	}
	nb, err := jupyter.Load(f.Path)
	if err != nil {
		return nil, fmt.Errorf("loading notebook %s: %w", f.Path, err)
	}
	return nb, nil
}
