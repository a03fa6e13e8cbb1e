package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"jobtalk/internal/domain"
)

type WhisperClient struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	model      string
	language   string
}

func NewWhisperClient(apiKey, model, language string) *WhisperClient {
	return NewWhisperClientWithURL(apiKey, model, language, "https://api.openai.com/v1")
}

func NewWhisperClientWithURL(apiKey, model, language, baseURL string) *WhisperClient {
	if model == "" {
		model = "whisper-1"
	}
	return &WhisperClient{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		baseURL:    baseURL,
		model:      model,
		language:   language,
	}
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

// Transcribe uploads the recording once. The file name carries the encoding
// so the API can pick the right decoder.
func (c *WhisperClient) Transcribe(ctx context.Context, audio domain.AudioPayload) (string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", "audio."+string(audio.Encoding))
	if err != nil {
		return "", fmt.Errorf("creating form file: %w", err)
	}

	if _, err = part.Write(audio.Data); err != nil {
		return "", fmt.Errorf("writing audio: %w", err)
	}

	if err = writer.WriteField("model", c.model); err != nil {
		return "", fmt.Errorf("writing model field: %w", err)
	}

	if c.language != "" {
		if err = writer.WriteField("language", c.language); err != nil {
			return "", fmt.Errorf("writing language field: %w", err)
		}
	}

	if err = writer.Close(); err != nil {
		return "", fmt.Errorf("closing writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio/transcriptions", body)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("whisper API error %d: %s", resp.StatusCode, string(respBody))
	}

	var result transcriptionResponse
	if err = json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}

	return result.Text, nil
}
