package agent

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jovyan/nbagent/internal/jupyter"
)

// ErrNoErrorFound indicates the notebook has no error output to explain.
var ErrNoErrorFound = errors.New("no error output found in notebook")

// explainSystem drives the explain-error task: diagnose a traceback and
// insert a corrected cell.
const explainSystem = `You are a powerful coding assistant.
Your goal is to help the user understand a coding error in a notebook and provide a correction.
You will receive the notebook content and the error. Explain the cause
concisely, then insert a corrected code cell using the available tools.
Keep cell indexing consistent when new cells are inserted.`

// ExplainErrorTask builds the request for the explain-error command.
type ExplainErrorTask struct {
	Notebook *jupyter.Notebook

	// CellIndex selects the failing cell. Negative means find the first
	// cell with an error output.
	CellIndex int
}

// Request renders the task as an agent request. It fails with
// ErrNoErrorFound when the notebook carries no matching error output.
func (t ExplainErrorTask) Request() (Request, error) {
	if t.Notebook == nil {
		return Request{}, fmt.Errorf("%w: no notebook", ErrNoErrorFound)
	}

	var (
		cellErr jupyter.CellError
		ok      bool
	)
	if t.CellIndex >= 0 {
		cellErr, ok = t.Notebook.ErrorAt(t.CellIndex)
	} else {
		cellErr, ok = t.Notebook.FirstError()
	}
	if !ok {
		return Request{}, ErrNoErrorFound
	}

	system := explainSystem
	if context := t.Notebook.ContextUpTo(cellErr.Index); context != "" {
		system = fmt.Sprintf("%s\n\nNotebook content before the error:\n%s", system, context)
	}

	var input strings.Builder
	fmt.Fprintf(&input, "Cell %d failed.\n\nSource:\n%s\n\n", cellErr.Index, cellErr.Source)
	fmt.Fprintf(&input, "Error: %s: %s\n\nTraceback:\n%s",
		cellErr.EName, cellErr.EValue, strings.Join(cellErr.Traceback, "\n"))

	return Request{
		Input:  input.String(),
		System: system,
	}, nil
}
