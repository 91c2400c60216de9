// Package jupyter provides access to a Jupyter server: notebook file
// parsing for building prompt context, and the MCP connection used by the
// agent to operate on live notebooks.
package jupyter

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

// Cell types as stored in the nbformat document.
const (
	CellCode     = "code"
	CellMarkdown = "markdown"
	CellRaw      = "raw"
)

// Notebook is a decoded .ipynb document (nbformat 4).
type Notebook struct {
	Cells         []Cell `json:"cells"`
	NBFormat      int    `json:"nbformat"`
	NBFormatMinor int    `json:"nbformat_minor"`
}

// Cell is a single notebook cell.
type Cell struct {
	Type    string   `json:"cell_type"`
	Source  Source   `json:"source"`
	Outputs []Output `json:"outputs,omitempty"`
}

// Output is one execution output of a code cell.
type Output struct {
	Type      string   `json:"output_type"`
	Name      string   `json:"name,omitempty"`
	Text      Source   `json:"text,omitempty"`
	EName     string   `json:"ename,omitempty"`
	EValue    string   `json:"evalue,omitempty"`
	Traceback []string `json:"traceback,omitempty"`
}

// Source holds cell or output text. The on-disk format stores it either as
// a single string or as a list of lines, so decoding accepts both.
type Source string

func (s *Source) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = Source(str)
		return nil
	}

	var lines []string
	if err := json.Unmarshal(data, &lines); err != nil {
		return fmt.Errorf("source is neither string nor string list: %w", err)
	}
	*s = Source(strings.Join(lines, ""))
	return nil
}

func (s Source) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(s))
}

// Load reads and decodes the notebook at path.
func Load(path string) (*Notebook, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening notebook: %w", err)
	}
	defer func() { _ = f.Close() }()

	nb, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding notebook %s: %w", path, err)
	}
	return nb, nil
}

// Decode decodes a notebook document from r.
func Decode(r io.Reader) (*Notebook, error) {
	var nb Notebook
	dec := json.NewDecoder(r)
	if err := dec.Decode(&nb); err != nil {
		return nil, fmt.Errorf("parsing notebook JSON: %w", err)
	}
	if nb.NBFormat != 0 && nb.NBFormat < 4 {
		return nil, fmt.Errorf("unsupported nbformat %d, need 4", nb.NBFormat)
	}
	return &nb, nil
}

// CellError describes an error output found in a code cell.
type CellError struct {
	Index     int
	Source    string
	EName     string
	EValue    string
	Traceback []string
}

// ansiEscape matches terminal color codes that Jupyter embeds in tracebacks.
var ansiEscape = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// StripANSI removes terminal escape sequences from s.
func StripANSI(s string) string {
	return ansiEscape.ReplaceAllString(s, "")
}

func cellError(index int, c Cell) (CellError, bool) {
	for _, out := range c.Outputs {
		if out.Type != "error" {
			continue
		}
		tb := make([]string, len(out.Traceback))
		for i, line := range out.Traceback {
			tb[i] = StripANSI(line)
		}
		return CellError{
			Index:     index,
			Source:    string(c.Source),
			EName:     out.EName,
			EValue:    out.EValue,
			Traceback: tb,
		}, true
	}
	return CellError{}, false
}

// FirstError returns the first cell carrying an error output, if any.
func (n *Notebook) FirstError() (CellError, bool) {
	for i, c := range n.Cells {
		if ce, ok := cellError(i, c); ok {
			return ce, true
		}
	}
	return CellError{}, false
}

// ErrorAt returns the error output of the cell at index, if that cell has
// one.
func (n *Notebook) ErrorAt(index int) (CellError, bool) {
	if index < 0 || index >= len(n.Cells) {
		return CellError{}, false
	}
	return cellError(index, n.Cells[index])
}

// ContextUpTo renders the cells before stop as prompt context, one block
// per cell with its index and type. A negative stop includes every cell.
func (n *Notebook) ContextUpTo(stop int) string {
	var b strings.Builder
	for i, c := range n.Cells {
		if stop >= 0 && i >= stop {
			break
		}
		fmt.Fprintf(&b, "Cell %d (%s):\n%s\n\n", i, c.Type, string(c.Source))
	}
	return strings.TrimRight(b.String(), "\n")
}

// Context renders every cell as prompt context.
func (n *Notebook) Context() string {
	return n.ContextUpTo(-1)
}
