package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jovyan/nbagent/internal/config"
)

// withArgs replaces os.Args for the duration of a test.
func withArgs(t *testing.T, args []string) {
	t.Helper()
	old := os.Args
	os.Args = args
	t.Cleanup(func() { os.Args = old })
}

func TestParseAgentFlags_Defaults(t *testing.T) {
	withArgs(t, []string{"nbagent", "prompt"})

	f, err := parseAgentFlags("prompt")
	if err != nil {
		t.Fatalf("parseAgentFlags: %v", err)
	}
	if f.URL != "" || f.Token != "" || f.Model != "" || f.Path != "" || f.Input != "" {
		t.Errorf("expected empty string flags, got %+v", f)
	}
	if f.CurrentCellIndex != -1 {
		t.Errorf("CurrentCellIndex = %d, want -1", f.CurrentCellIndex)
	}
	if f.FullContext {
		t.Error("FullContext should default to false")
	}
}

func TestParseAgentFlags_All(t *testing.T) {
	withArgs(t, []string{"nbagent", "prompt",
		"--url", "http://localhost:8888",
		"--token", "secret",
		"--model", "google:gemini-2.5-flash",
		"--path", "analysis.ipynb",
		"--input", "plot the data",
		"--current-cell-index", "4",
		"--full-context",
	})

	f, err := parseAgentFlags("prompt")
	if err != nil {
		t.Fatalf("parseAgentFlags: %v", err)
	}
	if f.URL != "http://localhost:8888" {
		t.Errorf("URL = %q", f.URL)
	}
	if f.Token != "secret" {
		t.Errorf("Token = %q", f.Token)
	}
	if f.Model != "google:gemini-2.5-flash" {
		t.Errorf("Model = %q", f.Model)
	}
	if f.Path != "analysis.ipynb" {
		t.Errorf("Path = %q", f.Path)
	}
	if f.Input != "plot the data" {
		t.Errorf("Input = %q", f.Input)
	}
	if f.CurrentCellIndex != 4 {
		t.Errorf("CurrentCellIndex = %d, want 4", f.CurrentCellIndex)
	}
	if !f.FullContext {
		t.Error("FullContext should be true")
	}
}

func TestAgentFlags_Apply(t *testing.T) {
	cfg := &config.Config{
		Provider:   config.ProviderGoogle,
		ModelName:  "gemini-2.5-flash",
		JupyterURL: "http://localhost:8888",
	}

	f := &agentFlags{
		URL:   "http://jupyter:9999",
		Token: "tok",
		Model: "openai:gpt-4o",
	}
	if err := f.apply(cfg); err != nil {
		t.Fatalf("apply: %v", err)
	}

	if cfg.JupyterURL != "http://jupyter:9999" {
		t.Errorf("JupyterURL = %q", cfg.JupyterURL)
	}
	if cfg.JupyterToken != "tok" {
		t.Errorf("JupyterToken = %q", cfg.JupyterToken)
	}
	if cfg.Provider != config.ProviderOpenAI {
		t.Errorf("Provider = %q, want openai", cfg.Provider)
	}
	if cfg.ModelName != "gpt-4o" {
		t.Errorf("ModelName = %q, want gpt-4o", cfg.ModelName)
	}
}

func TestAgentFlags_ApplyProviderNamePair(t *testing.T) {
	cfg := &config.Config{Provider: config.ProviderGoogle, ModelName: "gemini-2.5-flash"}

	f := &agentFlags{ModelProvider: "ollama", ModelName: "llama3.3"}
	if err := f.apply(cfg); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if cfg.Provider != config.ProviderOllama || cfg.ModelName != "llama3.3" {
		t.Errorf("got %s/%s, want ollama/llama3.3", cfg.Provider, cfg.ModelName)
	}

	// The pair must be complete.
	f = &agentFlags{ModelProvider: "openai"}
	if err := f.apply(cfg); err == nil {
		t.Error("expected error for --model-provider without --model-name")
	}

	// --model wins over the pair.
	cfg = &config.Config{Provider: config.ProviderGoogle, ModelName: "gemini-2.5-flash"}
	f = &agentFlags{Model: "openai:gpt-4o", ModelProvider: "ollama", ModelName: "llama3.3"}
	if err := f.apply(cfg); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if cfg.Provider != config.ProviderOpenAI || cfg.ModelName != "gpt-4o" {
		t.Errorf("got %s/%s, want openai/gpt-4o", cfg.Provider, cfg.ModelName)
	}
}

func TestAgentFlags_ApplyInvalidModel(t *testing.T) {
	cfg := &config.Config{Provider: config.ProviderGoogle, ModelName: "gemini-2.5-flash"}

	f := &agentFlags{Model: "no-separator"}
	if err := f.apply(cfg); err == nil {
		t.Error("expected error for model without provider")
	}

	f = &agentFlags{Model: "anthropic:claude"}
	if err := f.apply(cfg); err == nil {
		t.Error("expected error for unsupported provider")
	}
}

func TestAgentFlags_LoadNotebook(t *testing.T) {
	f := &agentFlags{}
	nb, err := f.loadNotebook()
	if err != nil {
		t.Fatalf("loadNotebook without path: %v", err)
	}
	if nb != nil {
		t.Error("expected nil notebook when --path is unset")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "nb.ipynb")
	content := `{"nbformat": 4, "nbformat_minor": 5, "cells": [{"cell_type": "code", "source": "x = 1"}]}`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	f = &agentFlags{Path: path}
	nb, err = f.loadNotebook()
	if err != nil {
		t.Fatalf("loadNotebook: %v", err)
	}
	if len(nb.Cells) != 1 {
		t.Errorf("cells = %d, want 1", len(nb.Cells))
	}

	f = &agentFlags{Path: filepath.Join(dir, "missing.ipynb")}
	if _, err := f.loadNotebook(); err == nil {
		t.Error("expected error for missing notebook")
	}
}
