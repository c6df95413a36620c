// Package llm provides the text generation adapter backed by a local Ollama runtime.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"speechqa/internal/adapter/retry"
	"speechqa/internal/port"
)

var _ port.LLM = (*Ollama)(nil)

var ErrModelNotFound = errors.New("model not available in ollama")

const (
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "llama3.2:1b"
)

type Config struct {
	BaseURL string
	Model   string
	Policy  retry.Policy
}

// Ollama generates completions through /api/generate.
type Ollama struct {
	client  *http.Client
	baseURL string
	model   string
	policy  retry.Policy
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

type tagsResponse struct {
	Models []struct {
		Name  string `json:"name"`
		Model string `json:"model"`
	} `json:"models"`
}

func NewOllama(cfg Config) *Ollama {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	return &Ollama{
		client:  &http.Client{},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		policy:  cfg.Policy,
	}
}

// Generate sends the prompt and returns the raw completion text.
func (o *Ollama) Generate(ctx context.Context, prompt string) (string, error) {
	var out string
	err := retry.Do(ctx, o.policy, func(ctx context.Context) error {
		var err error
		out, err = o.generate(ctx, prompt)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("generate with %s: %w", o.model, err)
	}
	return out, nil
}

func (o *Ollama) generate(ctx context.Context, prompt string) (string, error) {
	jsonBody, err := json.Marshal(generateRequest{
		Model:  o.model,
		Prompt: prompt,
		Stream: false,
	})
	if err != nil {
		return "", retry.Permanent(fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/generate", bytes.NewReader(jsonBody))
	if err != nil {
		return "", retry.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", fmt.Errorf("ollama error (status %d): failed to read response", resp.StatusCode)
		}
		if resp.StatusCode == http.StatusNotFound {
			return "", retry.Permanent(fmt.Errorf("%w: %s: %s", ErrModelNotFound, o.model, strings.TrimSpace(string(body))))
		}
		return "", fmt.Errorf("ollama error (status %d): %s", resp.StatusCode, string(body))
	}

	var genResp generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if genResp.Error != "" {
		return "", fmt.Errorf("ollama error: %s", genResp.Error)
	}

	return genResp.Response, nil
}

// Ping checks that the service answers on /api/tags and that the model is pulled.
func (o *Ollama) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/api/tags", http.NoBody)
	if err != nil {
		return fmt.Errorf("ollama: failed to create ping request: %w", err)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama: ping failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("ollama: API returned status %d (failed to read body: %w)", resp.StatusCode, err)
		}
		return fmt.Errorf("ollama: API returned status %d: %s", resp.StatusCode, string(body))
	}

	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return fmt.Errorf("ollama: decode tags: %w", err)
	}
	for _, m := range tags.Models {
		if sameModel(m.Name, o.model) || sameModel(m.Model, o.model) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s (run `ollama pull %s`)", ErrModelNotFound, o.model, o.model)
}

// sameModel treats "llama3.2" and "llama3.2:latest" as the same tag.
func sameModel(have, want string) bool {
	if have == "" {
		return false
	}
	if !strings.Contains(have, ":") {
		have += ":latest"
	}
	if !strings.Contains(want, ":") {
		want += ":latest"
	}
	return have == want
}

func (o *Ollama) ModelName() string {
	return o.model
}
