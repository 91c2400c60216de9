package config

import (
	"errors"
	"testing"
)

// validBaseConfig returns a Config with all required fields set for the
// given provider.
func validBaseConfig(provider string) *Config {
	cfg := &Config{
		Provider:           provider,
		ModelName:          "gemini-2.5-flash",
		Temperature:        0.7,
		MaxTokens:          4096,
		MaxTurns:           10,
		MaxHistoryMessages: DefaultMaxHistoryMessages,
		JupyterURL:         "http://localhost:8888",
	}
	switch provider {
	case ProviderOllama:
		cfg.ModelName = "llama3.3"
		cfg.OllamaHost = "http://localhost:11434"
	case ProviderOpenAI:
		cfg.ModelName = "gpt-4o"
	}
	return cfg
}

// setEnvForProvider sets the required API key for the given provider.
func setEnvForProvider(t *testing.T, provider string) {
	t.Helper()
	switch provider {
	case ProviderGoogle:
		t.Setenv("GEMINI_API_KEY", "test-api-key")
	case ProviderOpenAI:
		t.Setenv("OPENAI_API_KEY", "test-openai-key")
	case ProviderOllama:
		// no key needed
	}
}

func TestValidateSuccess(t *testing.T) {
	for _, provider := range []string{ProviderGoogle, ProviderOpenAI, ProviderOllama} {
		t.Run(provider, func(t *testing.T) {
			setEnvForProvider(t, provider)

			cfg := validBaseConfig(provider)
			if err := cfg.Validate(); err != nil {
				t.Errorf("Validate() unexpected error with valid config (provider %q): %v", provider, err)
			}
		})
	}
}

func TestValidateNilConfig(t *testing.T) {
	var cfg *Config
	if err := cfg.Validate(); !errors.Is(err, ErrConfigNil) {
		t.Errorf("Validate() on nil = %v, want ErrConfigNil", err)
	}
}

func TestValidateInvalidProvider(t *testing.T) {
	cfg := validBaseConfig(ProviderGoogle)
	cfg.Provider = "unsupported"

	if err := cfg.Validate(); !errors.Is(err, ErrInvalidProvider) {
		t.Errorf("Validate() = %v, want ErrInvalidProvider", err)
	}
}

func TestValidateMissingAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")

	cfg := validBaseConfig(ProviderGoogle)
	if err := cfg.Validate(); !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("Validate() = %v, want ErrMissingAPIKey", err)
	}
}

func TestValidateGoogleAcceptsEitherKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "alt-key")

	cfg := validBaseConfig(ProviderGoogle)
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() with GOOGLE_API_KEY = %v, want nil", err)
	}
}

func TestValidateEmptyModelName(t *testing.T) {
	setEnvForProvider(t, ProviderGoogle)

	cfg := validBaseConfig(ProviderGoogle)
	cfg.ModelName = ""
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidModelName) {
		t.Errorf("Validate() = %v, want ErrInvalidModelName", err)
	}
}

func TestValidateTemperatureRange(t *testing.T) {
	setEnvForProvider(t, ProviderGoogle)

	for _, temp := range []float32{-0.1, 2.1} {
		cfg := validBaseConfig(ProviderGoogle)
		cfg.Temperature = temp
		if err := cfg.Validate(); !errors.Is(err, ErrInvalidTemperature) {
			t.Errorf("Validate() with temperature %v = %v, want ErrInvalidTemperature", temp, err)
		}
	}
}

func TestValidateMaxTurnsRange(t *testing.T) {
	setEnvForProvider(t, ProviderGoogle)

	for _, turns := range []int{0, 101} {
		cfg := validBaseConfig(ProviderGoogle)
		cfg.MaxTurns = turns
		if err := cfg.Validate(); !errors.Is(err, ErrInvalidMaxTurns) {
			t.Errorf("Validate() with max_turns %d = %v, want ErrInvalidMaxTurns", turns, err)
		}
	}
}

func TestValidateHistoryLimitRange(t *testing.T) {
	setEnvForProvider(t, ProviderGoogle)

	for _, limit := range []int{MinHistoryMessages - 1, MaxAllowedHistoryMessages + 1} {
		cfg := validBaseConfig(ProviderGoogle)
		cfg.MaxHistoryMessages = limit
		if err := cfg.Validate(); !errors.Is(err, ErrInvalidHistoryLimit) {
			t.Errorf("Validate() with history limit %d = %v, want ErrInvalidHistoryLimit", limit, err)
		}
	}
}

func TestValidateJupyterURL(t *testing.T) {
	setEnvForProvider(t, ProviderGoogle)

	cfg := validBaseConfig(ProviderGoogle)
	cfg.JupyterURL = "ftp://example.com"
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidJupyterURL) {
		t.Errorf("Validate() = %v, want ErrInvalidJupyterURL", err)
	}

	// Empty Jupyter URL is allowed: CLI commands can work on local files.
	cfg = validBaseConfig(ProviderGoogle)
	cfg.JupyterURL = ""
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() with empty Jupyter URL = %v, want nil", err)
	}
}

func TestValidateOllamaHost(t *testing.T) {
	cfg := validBaseConfig(ProviderOllama)
	cfg.OllamaHost = ""
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidOllamaHost) {
		t.Errorf("Validate() = %v, want ErrInvalidOllamaHost", err)
	}

	cfg = validBaseConfig(ProviderOllama)
	cfg.OllamaHost = "not-a-url"
	if err := cfg.Validate(); !errors.Is(err, ErrInvalidOllamaHost) {
		t.Errorf("Validate() = %v, want ErrInvalidOllamaHost", err)
	}
}
