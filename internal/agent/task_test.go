package agent

import (
	"errors"
	"strings"
	"testing"

	"github.com/jovyan/nbagent/internal/jupyter"
)

func testNotebook(t *testing.T) *jupyter.Notebook {
	t.Helper()
	nb, err := jupyter.Decode(strings.NewReader(`{
	  "nbformat": 4,
	  "cells": [
	    {"cell_type": "code", "source": "import json", "outputs": []},
	    {
	      "cell_type": "code",
	      "source": "json.loads('{')",
	      "outputs": [
	        {"output_type": "error", "ename": "JSONDecodeError", "evalue": "Expecting property name", "traceback": ["JSONDecodeError: Expecting property name"]}
	      ]
	    },
	    {"cell_type": "code", "source": "print('later')", "outputs": []}
	  ]
	}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return nb
}

func TestPromptTask_WithoutNotebook(t *testing.T) {
	req := PromptTask{Input: "  plot a sine wave  "}.Request()

	if req.Input != "plot a sine wave" {
		t.Errorf("Input = %q", req.Input)
	}
	if !strings.Contains(req.System, "coding assistant for Jupyter notebooks") {
		t.Errorf("System missing base prompt: %q", req.System)
	}
	if strings.Contains(req.System, "Current notebook content") {
		t.Error("System includes notebook context without a notebook")
	}
}

func TestPromptTask_BoundsContext(t *testing.T) {
	req := PromptTask{
		Input:            "fix it",
		Notebook:         testNotebook(t),
		CurrentCellIndex: 1,
	}.Request()

	if !strings.Contains(req.System, "import json") {
		t.Errorf("System missing cell 0: %q", req.System)
	}
	if strings.Contains(req.System, "print('later')") {
		t.Errorf("System includes cells past the index: %q", req.System)
	}
}

func TestPromptTask_FullContextOverridesIndex(t *testing.T) {
	req := PromptTask{
		Input:            "summarize",
		Notebook:         testNotebook(t),
		CurrentCellIndex: 1,
		FullContext:      true,
	}.Request()

	if !strings.Contains(req.System, "print('later')") {
		t.Errorf("System missing later cells with full context: %q", req.System)
	}
}

func TestExplainErrorTask_FirstError(t *testing.T) {
	req, err := ExplainErrorTask{Notebook: testNotebook(t), CellIndex: -1}.Request()
	if err != nil {
		t.Fatalf("Request: %v", err)
	}

	if !strings.Contains(req.Input, "Cell 1 failed") {
		t.Errorf("Input missing failing cell: %q", req.Input)
	}
	if !strings.Contains(req.Input, "JSONDecodeError") {
		t.Errorf("Input missing traceback: %q", req.Input)
	}
	if !strings.Contains(req.System, "import json") {
		t.Errorf("System missing prior cells: %q", req.System)
	}
	if strings.Contains(req.System, "print('later')") {
		t.Errorf("System includes cells after the error: %q", req.System)
	}
}

func TestExplainErrorTask_AtIndex(t *testing.T) {
	if _, err := (ExplainErrorTask{Notebook: testNotebook(t), CellIndex: 0}).Request(); !errors.Is(err, ErrNoErrorFound) {
		t.Errorf("Request(clean cell) error = %v, want ErrNoErrorFound", err)
	}

	req, err := ExplainErrorTask{Notebook: testNotebook(t), CellIndex: 1}.Request()
	if err != nil {
		t.Fatalf("Request: %v", err)
	}
	if !strings.Contains(req.Input, "Expecting property name") {
		t.Errorf("Input missing error value: %q", req.Input)
	}
}

func TestExplainErrorTask_NoNotebook(t *testing.T) {
	if _, err := (ExplainErrorTask{}).Request(); !errors.Is(err, ErrNoErrorFound) {
		t.Errorf("Request(nil notebook) error = %v, want ErrNoErrorFound", err)
	}
}

func TestNewAgent_Validation(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("New(empty config) expected error")
	}
}
