package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"jobtalk/internal/domain"
	"jobtalk/internal/extract"
)

// Client talks to the Gemini generateContent endpoint. It serves both as a
// speech-to-text backend (audio sent inline) and as a categorizer.
type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	model      string
}

func NewClient(apiKey, model string) *Client {
	return NewClientWithURL(apiKey, model, "https://generativelanguage.googleapis.com/v1beta")
}

func NewClientWithURL(apiKey, model, baseURL string) *Client {
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &Client{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		baseURL:    baseURL,
		model:      model,
	}
}

type content struct {
	Parts []part `json:"parts"`
	Role  string `json:"role,omitempty"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type request struct {
	Contents         []content        `json:"contents"`
	SystemInstruct   *content         `json:"systemInstruction,omitempty"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generationConfig struct {
	MaxOutputTokens  int     `json:"maxOutputTokens"`
	Temperature      float64 `json:"temperature"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

type response struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error,omitempty"`
}

const transcribePrompt = "Transcribe the following audio to text. Reply with the transcription only."

func (c *Client) Transcribe(ctx context.Context, audio domain.AudioPayload) (string, error) {
	reqBody := request{
		Contents: []content{
			{
				Role: "user",
				Parts: []part{
					{Text: transcribePrompt},
					{InlineData: &inlineData{
						MimeType: audio.Encoding.MIMEType(),
						Data:     base64.StdEncoding.EncodeToString(audio.Data),
					}},
				},
			},
		},
		GenerationConfig: generationConfig{
			MaxOutputTokens: 4096,
			Temperature:     0,
		},
	}

	text, err := c.generate(ctx, reqBody)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (c *Client) Categorize(ctx context.Context, transcript string) (domain.CategorizedFields, error) {
	reqBody := request{
		SystemInstruct: &content{
			Parts: []part{{Text: extract.Instructions}},
		},
		Contents: []content{
			{
				Role:  "user",
				Parts: []part{{Text: extract.Prompt(transcript)}},
			},
		},
		GenerationConfig: generationConfig{
			MaxOutputTokens:  2048,
			Temperature:      0.2,
			ResponseMimeType: "application/json",
		},
	}

	text, err := c.generate(ctx, reqBody)
	if err != nil {
		return domain.CategorizedFields{}, err
	}

	fields, err := extract.Parse(text)
	if err != nil {
		return domain.CategorizedFields{}, fmt.Errorf("parsing gemini reply: %w", err)
	}
	return fields, nil
}

func (c *Client) generate(ctx context.Context, reqBody request) (string, error) {
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gemini API error %d: %s", resp.StatusCode, string(respBody))
	}

	var result response
	if err = json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}

	if result.Error != nil {
		return "", fmt.Errorf("gemini error: %s", result.Error.Message)
	}

	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response from gemini")
	}

	var sb strings.Builder
	for _, p := range result.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String(), nil
}
