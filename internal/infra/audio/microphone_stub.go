//go:build !portaudio
// +build !portaudio

package audio

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"jobtalk/internal/application"
)

// MicrophoneDevice stub when portaudio is not available
type MicrophoneDevice struct {
	logger *slog.Logger
}

func NewMicrophoneDevice(sampleRate int, maxDuration, silenceStop time.Duration, logger *slog.Logger) *MicrophoneDevice {
	return &MicrophoneDevice{logger: logger}
}

func (m *MicrophoneDevice) Name() string {
	return "microphone"
}

func (m *MicrophoneDevice) Open(_ context.Context) (application.AudioStream, error) {
	return nil, fmt.Errorf("microphone device not available: rebuild with -tags portaudio")
}
