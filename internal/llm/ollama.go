package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
	"github.com/ollama/ollama/envconfig"
)

// ollamaProvider implements Provider against a local Ollama daemon. No API
// key is involved; the only knob is the host URL.
type ollamaProvider struct {
	client *api.Client
	model  string
}

func newOllamaProvider(baseURL, model string) (*ollamaProvider, error) {
	host := envconfig.Host()
	if baseURL != "" {
		parsed, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid ollama base URL %q: %w", baseURL, err)
		}
		host = parsed
	}
	return &ollamaProvider{
		client: api.NewClient(host, http.DefaultClient),
		model:  model,
	}, nil
}

func (o *ollamaProvider) Name() string {
	return "ollama/" + o.model
}

func (o *ollamaProvider) Complete(ctx context.Context, prompt string, opts CompletionOpts) (string, error) {
	req := api.GenerateRequest{
		Model:  o.model,
		Prompt: prompt,
		System: opts.System,
		Options: map[string]interface{}{
			"temperature": opts.Temperature,
		},
	}
	if opts.MaxTokens > 0 {
		req.Options["num_predict"] = opts.MaxTokens
	}
	if strings.ToLower(opts.Format) == "json" {
		req.Format = []byte(`"json"`)
	}

	var out strings.Builder
	err := o.client.Generate(ctx, &req, func(resp api.GenerateResponse) error {
		_, err := out.WriteString(resp.Response)
		return err
	})
	if err != nil {
		return "", &OracleError{Kind: KindNetwork, Provider: o.Name(), Err: err}
	}

	return strings.TrimSpace(out.String()), nil
}
