package agent

import (
	"fmt"
	"strings"

	"github.com/jovyan/nbagent/internal/jupyter"
)

// promptSystem drives the prompt task: create and execute notebook code
// from a user instruction, working through the Jupyter tools.
const promptSystem = `You are a powerful coding assistant for Jupyter notebooks.
Create and execute code in a notebook based on user instructions.
Add markdown cells to explain the code and structure the notebook clearly.

Important guidelines:
- Assume that no packages are installed, so install them with !pip install in code cells
- Keep cell indexing consistent when new cells are inserted
- Use the available Jupyter tools to interact with the notebook
- Always execute code cells after inserting them to verify they work

When you have completed the task, reply with a short summary of what you
did without making any more tool calls.`

// PromptTask builds the request for the prompt command: run a user
// instruction against a notebook, optionally with the notebook's cells as
// context.
type PromptTask struct {
	// Input is the user's instruction.
	Input string

	// Notebook provides cell context when non-nil.
	Notebook *jupyter.Notebook

	// CurrentCellIndex bounds the context to the cells before it. Negative
	// means no bound.
	CurrentCellIndex int

	// FullContext includes every cell regardless of CurrentCellIndex.
	FullContext bool
}

// Request renders the task as an agent request.
func (t PromptTask) Request() Request {
	system := promptSystem
	if t.Notebook != nil {
		stop := t.CurrentCellIndex
		if t.FullContext {
			stop = -1
		}
		if context := t.Notebook.ContextUpTo(stop); context != "" {
			system = fmt.Sprintf("%s\n\nCurrent notebook content:\n%s", system, context)
		}
	}
	return Request{
		Input:  strings.TrimSpace(t.Input),
		System: system,
	}
}
