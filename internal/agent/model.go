package agent

import (
	"fmt"
	"strings"
)

// providerAliases maps the provider names used by chat frontends and CLI
// flags onto the Genkit plugin prefixes this build registers. Several
// OpenAI-compatible providers collapse onto the openai plugin.
var providerAliases = map[string]string{
	"google":         "googleai",
	"gemini":         "googleai",
	"googleai":       "googleai",
	"openai":         "openai",
	"azure-openai":   "openai",
	"github-copilot": "openai",
	"ollama":         "ollama",
}

// ResolveModel converts a model reference into a provider-qualified Genkit
// model name. It accepts "provider:model" (the frontend's form) and
// "provider/model" (already qualified). A bare name with no provider is
// rejected.
func ResolveModel(ref string) (string, error) {
	var provider, model string
	switch {
	case strings.Contains(ref, ":"):
		provider, model, _ = strings.Cut(ref, ":")
	case strings.Contains(ref, "/"):
		provider, model, _ = strings.Cut(ref, "/")
	default:
		return "", fmt.Errorf("%w: model %q has no provider prefix", ErrUnsupportedProvider, ref)
	}

	resolved, ok := providerAliases[strings.ToLower(provider)]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedProvider, provider)
	}
	if model == "" {
		return "", fmt.Errorf("%w: empty model name in %q", ErrUnsupportedProvider, ref)
	}
	return resolved + "/" + model, nil
}
