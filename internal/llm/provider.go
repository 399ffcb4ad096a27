// Package llm provides a provider-agnostic adapter for the extraction
// oracle. The pipeline treats the oracle as an opaque text-completion
// service: one instruction string in, free text out. Providers translate
// their transport failures into classified OracleErrors so callers can show
// a cause (quota, key, overload) instead of a generic failure.
package llm

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Provider is the interface for oracle completions.
type Provider interface {
	// Complete sends a prompt and returns the raw response text.
	Complete(ctx context.Context, prompt string, opts CompletionOpts) (string, error)
	// Name returns a human-readable provider name (e.g. "google/gemini-2.5-flash").
	Name() string
}

// CompletionOpts configures a single completion request.
type CompletionOpts struct {
	MaxTokens   int     // Max tokens to generate (0 = provider default)
	Temperature float64 // 0.0-2.0 (0 = deterministic)
	Format      string  // "json" for structured output, empty for plain text
	System      string  // System prompt (optional)
}

// Config holds provider configuration. The endpoint is always an explicit
// value injected here, never inspected from globals elsewhere in the
// pipeline.
type Config struct {
	Provider string // "google", "openrouter", "ollama"
	Model    string // e.g. "gemini-2.5-flash", "openai/gpt-4o-mini", "llama3.1"
	APIKey   string // API key (empty = read from env)
	BaseURL  string // Optional URL override (local vs deployed endpoint)
}

// NewProvider creates an oracle provider from the given config.
func NewProvider(cfg Config) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "google":
		key := cfg.APIKey
		if key == "" {
			key = os.Getenv("GEMINI_API_KEY")
		}
		if key == "" {
			key = os.Getenv("GOOGLE_API_KEY")
		}
		if key == "" {
			return nil, fmt.Errorf("google provider requires GEMINI_API_KEY or GOOGLE_API_KEY env var")
		}
		model := cfg.Model
		if model == "" {
			model = "gemini-2.5-flash"
		}
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "https://generativelanguage.googleapis.com/v1beta"
		}
		return &googleProvider{apiKey: key, model: model, baseURL: baseURL}, nil

	case "openrouter":
		key := cfg.APIKey
		if key == "" {
			key = os.Getenv("OPENROUTER_API_KEY")
		}
		if key == "" {
			return nil, fmt.Errorf("openrouter provider requires OPENROUTER_API_KEY env var")
		}
		model := cfg.Model
		if model == "" {
			model = "openai/gpt-4o-mini"
		}
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "https://openrouter.ai/api/v1"
		}
		return &openrouterProvider{apiKey: key, model: model, baseURL: baseURL}, nil

	case "ollama":
		model := cfg.Model
		if model == "" {
			model = "llama3.1"
		}
		return newOllamaProvider(cfg.BaseURL, model)

	default:
		return nil, fmt.Errorf("unknown oracle provider: %q (supported: google, openrouter, ollama)", cfg.Provider)
	}
}
