// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.nbagent/config.yaml)
//  3. Default values
//
// A .env file in the working directory is loaded before binding so that
// provider API keys (GEMINI_API_KEY, OPENAI_API_KEY) can live next to the
// project instead of the shell profile.
//
// Security: sensitive fields (Jupyter token, API token) are masked in
// MarshalJSON and String. Validation uses sentinel errors checkable with
// errors.Is().
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates a required provider API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidProvider indicates the AI provider is not supported.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrInvalidModelName indicates the model name is invalid.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidTemperature indicates the temperature value is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidMaxTokens indicates the max tokens value is out of range.
	ErrInvalidMaxTokens = errors.New("invalid max tokens")

	// ErrInvalidMaxTurns indicates the max agent turns value is out of range.
	ErrInvalidMaxTurns = errors.New("invalid max turns")

	// ErrInvalidJupyterURL indicates the Jupyter server URL is invalid.
	ErrInvalidJupyterURL = errors.New("invalid Jupyter URL")

	// ErrInvalidHistoryLimit indicates max_history_messages is out of range.
	ErrInvalidHistoryLimit = errors.New("invalid history limit")

	// ErrInvalidOllamaHost indicates the Ollama host is invalid.
	ErrInvalidOllamaHost = errors.New("invalid Ollama host")
)

// AI provider identifiers used in Config.Provider.
const (
	ProviderGoogle = "google"
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// History bounds. MaxAllowedHistoryMessages is the absolute cap to keep a
// runaway session from exhausting the context window.
const (
	DefaultMaxHistoryMessages = 100
	MaxAllowedHistoryMessages = 10000
	MinHistoryMessages        = 10
)

// Config stores application configuration.
// SECURITY: sensitive fields are explicitly masked in MarshalJSON().
// When adding new sensitive fields, update MarshalJSON.
type Config struct {
	// AI provider and model configuration
	Provider    string  `mapstructure:"provider" json:"provider"`     // "google" (default), "openai", "ollama"
	ModelName   string  `mapstructure:"model_name" json:"model_name"` // e.g. "gemini-2.5-flash", "gpt-4o"
	Temperature float32 `mapstructure:"temperature" json:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens" json:"max_tokens"`
	MaxTurns    int     `mapstructure:"max_turns" json:"max_turns"`

	// Ollama configuration (only used when provider is "ollama")
	OllamaHost string `mapstructure:"ollama_host" json:"ollama_host"`

	// Jupyter server the agents operate against (via jupyter-mcp-server)
	JupyterURL   string `mapstructure:"jupyter_url" json:"jupyter_url"`
	JupyterToken string `mapstructure:"jupyter_token" json:"jupyter_token"` // SENSITIVE: masked in MarshalJSON

	// Conversation history configuration
	MaxHistoryMessages int `mapstructure:"max_history_messages" json:"max_history_messages"`

	// Data directory for the SQLite store and the MCP server registry.
	// Empty means ~/.nbagent.
	DataDir string `mapstructure:"data_dir" json:"data_dir"`

	// Serve mode configuration
	APIToken    string   `mapstructure:"api_token" json:"api_token"` // SENSITIVE: masked in MarshalJSON
	CORSOrigins []string `mapstructure:"cors_origins" json:"cors_origins"`
	TrustProxy  bool     `mapstructure:"trust_proxy" json:"trust_proxy"` // trust X-Real-IP/X-Forwarded-For

	// Tracing configuration (optional; empty endpoint disables export)
	Trace TraceConfig `mapstructure:"trace" json:"trace"`
}

// TraceConfig configures the optional OTLP HTTP trace exporter.
type TraceConfig struct {
	Endpoint    string `mapstructure:"endpoint" json:"endpoint"` // host:port of an OTLP HTTP collector
	ServiceName string `mapstructure:"service_name" json:"service_name"`
	Environment string `mapstructure:"environment" json:"environment"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	// Best-effort .env loading; absence is the normal case.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Debug("skipping .env file", "error", err)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".nbagent")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".")

	setDefaults(configDir)
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		// Missing config file is not an error, defaults apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(configDir string) {
	viper.SetDefault("provider", ProviderGoogle)
	viper.SetDefault("model_name", "gemini-2.5-flash")
	viper.SetDefault("temperature", 0.7)
	viper.SetDefault("max_tokens", 4096)
	viper.SetDefault("max_turns", 10)
	viper.SetDefault("max_history_messages", DefaultMaxHistoryMessages)

	viper.SetDefault("ollama_host", "http://localhost:11434")

	viper.SetDefault("jupyter_url", "http://localhost:8888")

	viper.SetDefault("data_dir", configDir)

	// JupyterLab dev server origin
	viper.SetDefault("cors_origins", []string{"http://localhost:8888"})
	viper.SetDefault("trust_proxy", false)

	viper.SetDefault("trace.service_name", "nbagent")
	viper.SetDefault("trace.environment", "dev")
}

// bindEnvVariables binds environment variables explicitly.
//
// Provider API keys (GEMINI_API_KEY, OPENAI_API_KEY) are
// read directly by the Genkit plugins, not via Viper; Validate() only checks
// their presence for the selected provider.
func bindEnvVariables() {
	// Hardcoded keys cannot fail to bind; a panic here is a bug.
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("jupyter_url", "JUPYTER_URL")
	mustBind("jupyter_token", "JUPYTER_TOKEN")

	mustBind("provider", "NBAGENT_PROVIDER")
	mustBind("model_name", "NBAGENT_MODEL_NAME")
	mustBind("ollama_host", "NBAGENT_OLLAMA_HOST")
	mustBind("data_dir", "NBAGENT_DATA_DIR")

	mustBind("api_token", "NBAGENT_API_TOKEN")
	mustBind("cors_origins", "NBAGENT_CORS_ORIGINS")
	mustBind("trust_proxy", "NBAGENT_TRUST_PROXY")

	mustBind("trace.endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT")
	mustBind("trace.service_name", "OTEL_SERVICE_NAME")
}

// maskedValue is the placeholder for masked sensitive data. Full-width
// blocks avoid accidental substring matches against the real secret.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging. Secrets of 8 bytes or
// fewer are fully masked; longer ones keep the first and last 2 characters
// for debug utility.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with explicit sensitive field masking.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.JupyterToken = maskSecret(a.JupyterToken)
	a.APIToken = maskSecret(a.APIToken)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}

// FullModelName returns the provider-qualified model name for Genkit.
// Examples: "googleai/gemini-2.5-flash", "openai/gpt-4o", "ollama/llama3.3".
// If ModelName already contains a "/", it is returned as-is.
func (c *Config) FullModelName() string {
	if strings.Contains(c.ModelName, "/") {
		return c.ModelName
	}
	switch c.Provider {
	case ProviderOpenAI:
		return "openai/" + c.ModelName
	case ProviderOllama:
		return "ollama/" + c.ModelName
	default:
		return "googleai/" + c.ModelName
	}
}

// RegistryPath returns the path of the MCP server registry file.
func (c *Config) RegistryPath() string {
	return filepath.Join(c.DataDir, "mcp_servers.json")
}

// DatabasePath returns the path of the SQLite database file.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "nbagent.db")
}
