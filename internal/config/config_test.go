package config

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestFullModelName(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		model    string
		want     string
	}{
		{"google", ProviderGoogle, "gemini-2.5-flash", "googleai/gemini-2.5-flash"},
		{"openai", ProviderOpenAI, "gpt-4o", "openai/gpt-4o"},
		{"ollama", ProviderOllama, "llama3.3", "ollama/llama3.3"},
		{"already qualified", ProviderGoogle, "openai/gpt-4o", "openai/gpt-4o"},
		{"unknown defaults to google", "other", "m", "googleai/m"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Provider: tt.provider, ModelName: tt.model}
			if got := cfg.FullModelName(); got != tt.want {
				t.Errorf("FullModelName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDataPaths(t *testing.T) {
	cfg := &Config{DataDir: "/data/nbagent"}

	if got := cfg.RegistryPath(); got != "/data/nbagent/mcp_servers.json" {
		t.Errorf("RegistryPath() = %q", got)
	}
	if got := cfg.DatabasePath(); got != "/data/nbagent/nbagent.db" {
		t.Errorf("DatabasePath() = %q", got)
	}
}

func TestMarshalJSON_MasksSecrets(t *testing.T) {
	cfg := Config{
		Provider:     ProviderGoogle,
		ModelName:    "gemini-2.5-flash",
		JupyterToken: "super-secret-jupyter-token",
		APIToken:     "super-secret-api-token",
	}

	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	out := string(data)
	if strings.Contains(out, "super-secret-jupyter-token") {
		t.Error("JupyterToken leaked into JSON output")
	}
	if strings.Contains(out, "super-secret-api-token") {
		t.Error("APIToken leaked into JSON output")
	}
	if !strings.Contains(out, maskedValue) {
		t.Error("expected masked placeholder in JSON output")
	}
}

func TestString_MasksSecrets(t *testing.T) {
	cfg := Config{JupyterToken: "another-long-secret-token"}
	if strings.Contains(cfg.String(), "another-long-secret-token") {
		t.Error("String() leaked the Jupyter token")
	}
}

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		in      string
		visible bool // first/last chars kept
	}{
		{"", false},
		{"short", false},
		{"a-much-longer-secret", true},
	}

	for _, tt := range tests {
		got := maskSecret(tt.in)
		if tt.in == "" {
			if got != "" {
				t.Errorf("maskSecret(%q) = %q, want empty", tt.in, got)
			}
			continue
		}
		if got == tt.in {
			t.Errorf("maskSecret(%q) returned the secret unchanged", tt.in)
		}
		if tt.visible && !strings.HasPrefix(got, tt.in[:2]) {
			t.Errorf("maskSecret(%q) = %q, want first 2 chars kept", tt.in, got)
		}
	}
}
