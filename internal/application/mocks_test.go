package application_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"jobtalk/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type mockSTT struct {
	text  string
	err   error
	calls int
}

func (m *mockSTT) Transcribe(_ context.Context, _ domain.AudioPayload) (string, error) {
	m.calls++
	return m.text, m.err
}

type mockCategorizer struct {
	fields      domain.CategorizedFields
	err         error
	calls       int
	transcripts []string
}

func (m *mockCategorizer) Categorize(_ context.Context, transcript string) (domain.CategorizedFields, error) {
	m.calls++
	m.transcripts = append(m.transcripts, transcript)
	return m.fields, m.err
}

type mockNotifier struct {
	mu       sync.Mutex
	messages []string
	err      error
}

func (m *mockNotifier) Notify(_ context.Context, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, message)
	return m.err
}

type stageCall struct {
	stage string
	err   error
}

type mockObserver struct {
	stages  []stageCall
	intakes []error
}

func (m *mockObserver) ObserveStage(stage string, _ time.Duration, err error) {
	m.stages = append(m.stages, stageCall{stage: stage, err: err})
}

func (m *mockObserver) ObserveIntake(err error) {
	m.intakes = append(m.intakes, err)
}

func wavPayload() domain.AudioPayload {
	return domain.AudioPayload{Encoding: domain.EncodingWAV, Data: []byte("RIFF....WAVE")}
}
