// Package tools registers the builtin Genkit tools the agent always
// carries: reading notebooks and listing workspace files. Code execution
// arrives through the Jupyter MCP server, not from this package.
package tools

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/jovyan/nbagent/internal/jupyter"
	"github.com/jovyan/nbagent/internal/log"
	"github.com/jovyan/nbagent/internal/security"
)

// maxListEntries bounds a single directory listing in tool output.
const maxListEntries = 200

// Register defines the builtin tools on g and returns them for handing to
// the agent. The path validator scopes all file access to the workspace.
func Register(g *genkit.Genkit, pathVal *security.PathValidator, logger log.Logger) ([]ai.Tool, error) {
	if pathVal == nil {
		return nil, fmt.Errorf("path validator is required")
	}
	if logger == nil {
		logger = log.NewNop()
	}

	readTool := genkit.DefineTool(
		g, "jupyter_read", "Read a Jupyter notebook file and return its cells",
		func(_ *ai.ToolContext, input struct {
			Path string `json:"path" jsonschema_description:"Notebook path relative to the workspace"`
		},
		) (string, error) {
			logger.Debug("jupyter_read called", "path", input.Path)

			safePath, err := pathVal.Validate(input.Path)
			if err != nil {
				return "", fmt.Errorf("path validation failed: %w", err)
			}

			nb, err := jupyter.Load(safePath)
			if err != nil {
				return "", fmt.Errorf("reading notebook: %w", err)
			}

			var b strings.Builder
			fmt.Fprintf(&b, "Notebook %s (%d cells)\n\n", input.Path, len(nb.Cells))
			b.WriteString(nb.Context())
			if cellErr, ok := nb.FirstError(); ok {
				fmt.Fprintf(&b, "\n\nCell %d has an error output: %s: %s",
					cellErr.Index, cellErr.EName, cellErr.EValue)
			}
			return b.String(), nil
		},
	)

	filesTool := genkit.DefineTool(
		g, "jupyter_files", "List files and directories in the workspace",
		func(_ *ai.ToolContext, input struct {
			Path string `json:"path" jsonschema_description:"Directory path relative to the workspace, empty for the root"`
		},
		) (string, error) {
			logger.Debug("jupyter_files called", "path", input.Path)

			path := input.Path
			if path == "" {
				path = "."
			}
			safePath, err := pathVal.Validate(path)
			if err != nil {
				return "", fmt.Errorf("path validation failed: %w", err)
			}

			entries, err := listDir(safePath)
			if err != nil {
				return "", err
			}
			if len(entries) == 0 {
				return "(empty directory)", nil
			}
			return strings.Join(entries, "\n"), nil
		},
	)

	return []ai.Tool{readTool, filesTool}, nil
}

func listDir(path string) ([]string, error) {
	dirEntries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("reading directory: %w", err)
	}

	var entries []string
	for _, entry := range dirEntries {
		// Jupyter hides checkpoints and other dot-directories from its
		// file browser.
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if entry.IsDir() {
			entries = append(entries, entry.Name()+"/")
		} else {
			entries = append(entries, entry.Name())
		}
	}
	sort.Strings(entries)

	if len(entries) > maxListEntries {
		truncated := len(entries) - maxListEntries
		entries = entries[:maxListEntries]
		entries = append(entries, fmt.Sprintf("... and %d more entries", truncated))
	}
	return entries, nil
}
