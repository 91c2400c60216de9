package tools

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/firebase/genkit/go/genkit"

	"github.com/jovyan/nbagent/internal/log"
	"github.com/jovyan/nbagent/internal/security"
)

func TestRegister(t *testing.T) {
	root := t.TempDir()
	v, err := security.NewPathValidator(root)
	if err != nil {
		t.Fatalf("NewPathValidator: %v", err)
	}

	g := genkit.Init(context.Background())
	registered, err := Register(g, v, log.NewNop())
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if len(registered) != 2 {
		t.Fatalf("Register() returned %d tools, want 2", len(registered))
	}

	names := map[string]bool{}
	for _, tool := range registered {
		names[tool.Name()] = true
	}
	for _, want := range []string{"jupyter_read", "jupyter_files"} {
		if !names[want] {
			t.Errorf("tool %s not registered", want)
		}
	}
}

func TestRegister_RequiresValidator(t *testing.T) {
	g := genkit.Init(context.Background())
	if _, err := Register(g, nil, log.NewNop()); err == nil {
		t.Fatal("Register(nil validator) expected error")
	}
}

func TestListDir(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"b.ipynb", "a.txt"} {
		if err := os.WriteFile(filepath.Join(root, name), []byte("x"), 0o600); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}
	if err := os.MkdirAll(filepath.Join(root, "data"), 0o750); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(root, ".ipynb_checkpoints"), 0o750); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	entries, err := listDir(root)
	if err != nil {
		t.Fatalf("listDir: %v", err)
	}

	got := strings.Join(entries, ",")
	if got != "a.txt,b.ipynb,data/" {
		t.Errorf("listDir() = %q", got)
	}
}

func TestListDir_Missing(t *testing.T) {
	if _, err := listDir(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("listDir(missing) expected error")
	}
}
