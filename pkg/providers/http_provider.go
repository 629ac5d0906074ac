// OpenSpore - Autonomous personal AI agent
// License: MIT
//
// Copyright (c) 2026 OpenSpore contributors

package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/witong42/OpenSpore/pkg/config"
	"github.com/witong42/OpenSpore/pkg/logger"
)

const (
	maxAttempts    = 3
	retryBaseDelay = 1 * time.Second
)

// HTTPProvider talks to an OpenAI-compatible chat/completions endpoint.
// Transient upstream failures (429, 5xx) are retried with exponential
// backoff; everything else fails fast.
type HTTPProvider struct {
	apiKey      string
	apiBase     string
	model       string
	maxTokens   int
	temperature float64
	httpClient  *http.Client

	// baseDelay is retryBaseDelay unless shortened by tests.
	baseDelay time.Duration
}

func NewHTTPProvider(pcfg config.ProviderConfig, defaults config.AgentDefaults) *HTTPProvider {
	return &HTTPProvider{
		apiKey:      pcfg.APIKey,
		apiBase:     pcfg.APIBase,
		model:       defaults.Model,
		maxTokens:   defaults.MaxTokens,
		temperature: defaults.Temperature,
		httpClient:  &http.Client{Timeout: 120 * time.Second},
		baseDelay:   retryBaseDelay,
	}
}

func (p *HTTPProvider) Complete(ctx context.Context, messages []Message) (string, error) {
	if p.apiBase == "" {
		return "", fmt.Errorf("API base not configured")
	}

	requestBody := map[string]interface{}{
		"model":       p.model,
		"messages":    messages,
		"temperature": p.temperature,
	}
	if p.maxTokens > 0 {
		requestBody["max_tokens"] = p.maxTokens
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	attempts := 0
	for {
		attempts++

		req, err := http.NewRequestWithContext(ctx, "POST", p.apiBase+"/chat/completions", bytes.NewReader(jsonData))
		if err != nil {
			return "", fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if p.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+p.apiKey)
		}

		resp, err := p.httpClient.Do(req)
		if err != nil {
			return "", fmt.Errorf("failed to send request: %w", err)
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return "", fmt.Errorf("failed to read response: %w", err)
		}

		if resp.StatusCode == http.StatusOK {
			return parseCompletion(body)
		}

		if retryable(resp.StatusCode) && attempts < maxAttempts {
			delay := p.baseDelay * time.Duration(1<<(attempts-1))
			logger.WarnCF("provider", "API error, retrying",
				map[string]interface{}{
					"status":  resp.StatusCode,
					"delay":   delay.String(),
					"attempt": attempts,
					"max":     maxAttempts,
				})
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
			continue
		}

		return "", fmt.Errorf("API error: %d (after %d attempts)", resp.StatusCode, attempts)
	}
}

// retryable reports whether a status code is a transient upstream
// condition worth retrying: rate limiting or server-side errors.
func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// parseCompletion extracts the single assistant text field. A 200
// response without that field is an error, not an empty completion.
func parseCompletion(body []byte) (string, error) {
	var apiResponse struct {
		Choices []struct {
			Message struct {
				Content *string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}

	if err := json.Unmarshal(body, &apiResponse); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(apiResponse.Choices) == 0 {
		return "", fmt.Errorf("response contains no choices")
	}
	content := apiResponse.Choices[0].Message.Content
	if content == nil {
		return "", fmt.Errorf("response contains no message content")
	}
	return *content, nil
}
