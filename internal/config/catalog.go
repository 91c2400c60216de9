package config

import (
	"fmt"
	"os"
	"strings"
)

// AIModel describes a model the chat frontend can select.
// JSON field names match the sidebar's wire format.
type AIModel struct {
	ID           string   `json:"id"`   // "provider:model", e.g. "google:gemini-2.5-flash"
	Name         string   `json:"name"` // display name
	BuiltinTools []string `json:"builtinTools"`
}

// BuiltinTool describes a tool that ships with the agent itself, as
// opposed to tools contributed by MCP servers.
type BuiltinTool struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Builtin tool identifiers.
const (
	ToolJupyterExecute = "jupyter_execute"
	ToolJupyterRead    = "jupyter_read"
	ToolJupyterFiles   = "jupyter_files"
)

// defaultBuiltinTools is the fixed builtin tool set advertised to the
// frontend. jupyter_execute is fulfilled by the Jupyter MCP server's
// execution tools; jupyter_read and jupyter_files are local tools.
var defaultBuiltinTools = []BuiltinTool{
	{ID: ToolJupyterExecute, Name: "Execute Code", Description: "Execute code in the active kernel"},
	{ID: ToolJupyterRead, Name: "Read Notebook", Description: "Read a Jupyter notebook file"},
	{ID: ToolJupyterFiles, Name: "List Files", Description: "List files in the workspace"},
}

// BuiltinTools returns the builtin tool descriptors.
func BuiltinTools() []BuiltinTool {
	out := make([]BuiltinTool, len(defaultBuiltinTools))
	copy(out, defaultBuiltinTools)
	return out
}

// allBuiltinToolIDs lists every builtin tool id, in catalog order.
func allBuiltinToolIDs() []string {
	return []string{ToolJupyterExecute, ToolJupyterRead, ToolJupyterFiles}
}

// providerAliases maps the provider names the frontend and CLI may send to
// the canonical Provider identifiers.
var providerAliases = map[string]string{
	"google":   ProviderGoogle,
	"gemini":   ProviderGoogle,
	"googleai": ProviderGoogle,
	"openai":   ProviderOpenAI,
	"ollama":   ProviderOllama,
}

// SplitModelRef splits a "provider:model" reference (also accepting
// "provider/model") into the canonical provider identifier and model name.
func SplitModelRef(ref string) (provider, model string, err error) {
	sep := ":"
	if !strings.Contains(ref, ":") {
		sep = "/"
	}
	parts := strings.SplitN(ref, sep, 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("%w: expected provider:model, got %q", ErrInvalidModelName, ref)
	}

	canonical, ok := providerAliases[strings.ToLower(parts[0])]
	if !ok {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidProvider, parts[0])
	}
	return canonical, parts[1], nil
}

// Models returns the model catalog filtered by which provider API keys are
// present in the environment. An Ollama host is assumed reachable when the
// provider is configured, so its models are always listed in that case.
func (c *Config) Models() []AIModel {
	var models []AIModel

	if os.Getenv("GEMINI_API_KEY") != "" || os.Getenv("GOOGLE_API_KEY") != "" {
		models = append(models,
			AIModel{ID: "google:gemini-2.5-flash", Name: "Gemini 2.5 Flash", BuiltinTools: allBuiltinToolIDs()},
			AIModel{ID: "google:gemini-2.5-pro", Name: "Gemini 2.5 Pro", BuiltinTools: allBuiltinToolIDs()},
		)
	}
	if os.Getenv("OPENAI_API_KEY") != "" {
		models = append(models,
			AIModel{ID: "openai:gpt-4o", Name: "GPT-4o", BuiltinTools: allBuiltinToolIDs()},
			AIModel{ID: "openai:gpt-4o-mini", Name: "GPT-4o mini", BuiltinTools: allBuiltinToolIDs()},
		)
	}
	if c.Provider == ProviderOllama && c.ModelName != "" {
		models = append(models,
			AIModel{ID: "ollama:" + c.ModelName, Name: c.ModelName, BuiltinTools: allBuiltinToolIDs()},
		)
	}

	// Always include the configured model so the frontend has at least one
	// entry even when no key matched (e.g. keys injected at request time).
	if len(models) == 0 && c.ModelName != "" {
		models = append(models, AIModel{
			ID:           c.Provider + ":" + c.ModelName,
			Name:         c.ModelName,
			BuiltinTools: allBuiltinToolIDs(),
		})
	}

	return models
}
