package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"jobtalk/internal/domain"
	"jobtalk/internal/extract"
)

type ClaudeClient struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	model      string
	maxTokens  int
}

func NewClaudeClient(apiKey, model string) *ClaudeClient {
	return NewClaudeClientWithURL(apiKey, model, "https://api.anthropic.com/v1")
}

func NewClaudeClientWithURL(apiKey, model, baseURL string) *ClaudeClient {
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	return &ClaudeClient{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		baseURL:    baseURL,
		model:      model,
		maxTokens:  2048,
	}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type request struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	System      string    `json:"system"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
}

type response struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

// Categorize sends the transcript with the extraction instructions and parses
// the JSON reply.
func (c *ClaudeClient) Categorize(ctx context.Context, transcript string) (domain.CategorizedFields, error) {
	reqBody := request{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System:    extract.Instructions,
		Messages: []message{
			{Role: "user", Content: extract.Prompt(transcript)},
		},
		Temperature: 0.2,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return domain.CategorizedFields{}, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(bodyBytes))
	if err != nil {
		return domain.CategorizedFields{}, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.CategorizedFields{}, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return domain.CategorizedFields{}, fmt.Errorf("claude API error %d: %s", resp.StatusCode, string(respBody))
	}

	var result response
	if err = json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return domain.CategorizedFields{}, fmt.Errorf("decoding response: %w", err)
	}

	if len(result.Content) == 0 {
		return domain.CategorizedFields{}, fmt.Errorf("%w: empty response from claude", domain.ErrMalformedResult)
	}

	fields, err := extract.Parse(result.Content[0].Text)
	if err != nil {
		return domain.CategorizedFields{}, fmt.Errorf("parsing claude reply (stop_reason %s): %w", result.StopReason, err)
	}
	return fields, nil
}
