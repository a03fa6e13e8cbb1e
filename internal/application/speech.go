package application

import (
	"context"
	"fmt"

	"jobtalk/internal/domain"
)

type SpeechToText interface {
	Transcribe(ctx context.Context, audio domain.AudioPayload) (string, error)
}

// NoopSTT stands in when no transcription provider is configured.
// It fails every call so the pipeline reports a TranscriptionError.
type NoopSTT struct{}

func (n *NoopSTT) Transcribe(_ context.Context, _ domain.AudioPayload) (string, error) {
	return "", fmt.Errorf("speech-to-text not configured: set transcription.provider and its api_key")
}
