package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// Ollama calls a local Ollama instance. Useful as a credential-free provider.
type Ollama struct {
	url    string
	model  string
	client *resty.Client
}

// NewOllama creates a new Ollama client.
func NewOllama(url, model string) *Ollama {
	client := resty.New()
	client.SetTimeout(120 * time.Second)
	return &Ollama{
		url:    url,
		model:  model,
		client: client,
	}
}

// Complete sends a prompt to Ollama's generate endpoint.
func (o *Ollama) Complete(ctx context.Context, prompt string) (*Response, error) {
	reqBody := map[string]any{
		"model":  o.model,
		"prompt": prompt,
		"stream": false,
		"options": map[string]any{
			"temperature": 0.3,
			"num_predict": 2048,
		},
	}

	resp, err := o.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(reqBody).
		Post(o.url + "/api/generate")
	if err != nil {
		return nil, fmt.Errorf("ollama api: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("ollama api status %d: %s", resp.StatusCode(), resp.String())
	}

	var result struct {
		Response string `json:"response"`
	}
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &Response{
		Content:  result.Response,
		Provider: "ollama",
	}, nil
}
