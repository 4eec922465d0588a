package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"advisor/internal/config"
	"advisor/internal/logging"
	"advisor/internal/rules"
)

const systemPrompt = "You are a senior code reviewer. Given Python code and a list of " +
	"static-analysis suggestions, write a short prioritized review: which findings " +
	"matter most and why, in at most five sentences. Plain text only."

// OpenAIEnricher calls an OpenAI-compatible chat-completions endpoint.
// Works against any provider exposing that contract when configured with
// the matching base URL.
type OpenAIEnricher struct {
	baseURL string
	model   string
	apiKey  string
	client  *http.Client
	logger  *logging.Logger
}

// NewEnricher builds the enricher selected by configuration: a no-op when
// disabled or missing credentials, otherwise the OpenAI-compatible client.
func NewEnricher(cfg config.AdvisorConfig, logger *logging.Logger) Enricher {
	if !cfg.Enabled {
		return NoopEnricher{}
	}
	if cfg.APIKey == "" {
		logger.Warn("Report enrichment enabled but no API key present, disabling", map[string]interface{}{
			"provider": cfg.Provider,
		})
		return NoopEnricher{}
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	return &OpenAIEnricher{
		baseURL: baseURL,
		model:   cfg.Model,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

func (e *OpenAIEnricher) Enabled() bool { return true }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Enrich asks the model for a prioritized narrative over the suggestions.
func (e *OpenAIEnricher) Enrich(ctx context.Context, code string, suggestions []rules.Suggestion) (*Report, error) {
	body, err := json.Marshal(chatRequest{
		Model: e.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildPrompt(code, suggestions)},
		},
		Temperature: 0.2,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode enrichment request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		e.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build enrichment request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("enrichment request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read enrichment response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("enrichment endpoint returned %d: %s", resp.StatusCode, truncate(string(payload), 200))
	}

	var parsed chatResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode enrichment response: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("enrichment endpoint error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 || strings.TrimSpace(parsed.Choices[0].Message.Content) == "" {
		return nil, fmt.Errorf("enrichment response contained no content")
	}

	model := parsed.Model
	if model == "" {
		model = e.model
	}
	return &Report{
		Narrative: strings.TrimSpace(parsed.Choices[0].Message.Content),
		Model:     model,
	}, nil
}

func buildPrompt(code string, suggestions []rules.Suggestion) string {
	var sb strings.Builder
	sb.WriteString("Code:\n```python\n")
	sb.WriteString(code)
	sb.WriteString("\n```\n\nSuggestions:\n")
	if len(suggestions) == 0 {
		sb.WriteString("(none)\n")
	}
	for _, s := range suggestions {
		line := "-"
		if s.Line != nil {
			line = fmt.Sprintf("%d", *s.Line)
		}
		fmt.Fprintf(&sb, "- [%s] line %s (%s): %s\n", s.Severity, line, s.RuleID, s.Message)
	}
	return sb.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
