package gemini_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"jobtalk/internal/domain"
	"jobtalk/internal/infra/gemini"
)

type capturedRequest struct {
	Contents []struct {
		Parts []struct {
			Text       string `json:"text"`
			InlineData *struct {
				MimeType string `json:"mimeType"`
				Data     string `json:"data"`
			} `json:"inlineData"`
		} `json:"parts"`
	} `json:"contents"`
	GenerationConfig struct {
		ResponseMimeType string `json:"responseMimeType"`
	} `json:"generationConfig"`
}

func geminiServer(t *testing.T, reply string, got *capturedRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/gemini-test:generateContent" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if r.Header.Get("x-goog-api-key") != "test-key" {
			http.Error(w, `{"error":{"code":403,"message":"bad key"}}`, http.StatusForbidden)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(got); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		response := map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]string{{"text": reply}}}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}))
}

func TestClient_Transcribe(t *testing.T) {
	var got capturedRequest
	server := geminiServer(t, "  Jane Doe needs her fence repainted.\n", &got)
	defer server.Close()

	client := gemini.NewClientWithURL("test-key", "gemini-test", server.URL)

	audio := domain.AudioPayload{Encoding: domain.EncodingWebM, Data: []byte{0x1a, 0x45, 0xdf, 0xa3}}
	text, err := client.Transcribe(context.Background(), audio)
	if err != nil {
		t.Fatalf("Transcribe error: %v", err)
	}

	if text != "Jane Doe needs her fence repainted." {
		t.Errorf("text: got %q", text)
	}

	if len(got.Contents) != 1 || len(got.Contents[0].Parts) != 2 {
		t.Fatalf("unexpected request shape: %+v", got)
	}

	inline := got.Contents[0].Parts[1].InlineData
	if inline == nil || inline.MimeType != "audio/webm" {
		t.Fatalf("inline data: got %+v, want audio/webm", inline)
	}

	if inline.Data != base64.StdEncoding.EncodeToString(audio.Data) {
		t.Errorf("inline data not base64 of payload: %s", inline.Data)
	}
}

func TestClient_Categorize(t *testing.T) {
	var got capturedRequest
	server := geminiServer(t, `{"scopeOfWork":"Repaint the fence.","contactInformation":{"name":"Jane Doe","phone":"555-1234"},"timeline":"One week.","budget":"$500"}`, &got)
	defer server.Close()

	client := gemini.NewClientWithURL("test-key", "gemini-test", server.URL)

	fields, err := client.Categorize(context.Background(), "Jane Doe, 555-1234, job is repainting the fence, done in one week, costs $500")
	if err != nil {
		t.Fatalf("Categorize error: %v", err)
	}

	if got.GenerationConfig.ResponseMimeType != "application/json" {
		t.Errorf("responseMimeType: got %q", got.GenerationConfig.ResponseMimeType)
	}

	if !strings.Contains(got.Contents[0].Parts[0].Text, "Jane Doe, 555-1234") {
		t.Errorf("transcript missing from prompt: %s", got.Contents[0].Parts[0].Text)
	}

	if fields.ContactInformation.Name != "Jane Doe" {
		t.Errorf("Name: got %s", fields.ContactInformation.Name)
	}

	if fields.ContactInformation.Address != domain.NotMentioned {
		t.Errorf("Address: got %s, want %s", fields.ContactInformation.Address, domain.NotMentioned)
	}
}

func TestClient_CategorizeMalformed(t *testing.T) {
	var got capturedRequest
	server := geminiServer(t, `not json at all`, &got)
	defer server.Close()

	client := gemini.NewClientWithURL("test-key", "gemini-test", server.URL)

	_, err := client.Categorize(context.Background(), "hello")
	if !errors.Is(err, domain.ErrMalformedResult) {
		t.Fatalf("expected ErrMalformedResult, got %v", err)
	}
}

func TestClient_APIError(t *testing.T) {
	var got capturedRequest
	server := geminiServer(t, "", &got)
	defer server.Close()

	client := gemini.NewClientWithURL("wrong-key", "gemini-test", server.URL)

	_, err := client.Transcribe(context.Background(), domain.AudioPayload{Encoding: domain.EncodingWAV, Data: []byte{1}})
	if err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected 403 error, got %v", err)
	}
}
