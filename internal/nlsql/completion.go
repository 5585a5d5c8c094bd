package nlsql

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/askdb/askdb/internal/config"
)

// stopSequence marks the end of the generated SQL block.
const stopSequence = "```"

// Completer turns a prompt into generated text. Treated as an unreliable
// network dependency: any failure propagates to the caller unmodified.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// HTTPCompleter calls an OpenAI-completions-shaped endpoint with
// deterministic decoding parameters.
type HTTPCompleter struct {
	endpoint  string
	model     string
	maxTokens int
	client    *http.Client
}

// NewHTTPCompleter creates a completer from the generation config.
func NewHTTPCompleter(cfg config.GenerationConfig) *HTTPCompleter {
	return &HTTPCompleter{
		endpoint:  cfg.Endpoint,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		client:    &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
	}
}

type completionRequest struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	Stop        string  `json:"stop"`
}

type completionResponse struct {
	Choices []struct {
		Text string `json:"text"`
	} `json:"choices"`
}

func (c *HTTPCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(completionRequest{
		Model:       c.model,
		Prompt:      prompt,
		Temperature: 0,
		MaxTokens:   c.maxTokens,
		Stop:        stopSequence,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling generation service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("generation service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var out completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding completion response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("generation service returned no choices")
	}

	return cleanGeneratedSQL(out.Choices[0].Text), nil
}

// cleanGeneratedSQL strips a known generation quirk: the model emits
// NULLS LAST even for engines that reject it.
func cleanGeneratedSQL(text string) string {
	return strings.TrimSpace(strings.ReplaceAll(text, "NULLS LAST", ""))
}
