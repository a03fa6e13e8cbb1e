package application

import (
	"context"
	"time"
)

// Notifier delivers user-visible messages about pipeline progress.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

type NoopNotifier struct{}

func (n *NoopNotifier) Notify(_ context.Context, _ string) error {
	return nil
}

const (
	StageTranscription  = "transcription"
	StageCategorization = "categorization"
)

// StageObserver records how long each pipeline stage took and whether it failed.
type StageObserver interface {
	ObserveStage(stage string, elapsed time.Duration, err error)
	ObserveIntake(err error)
}

type NoopObserver struct{}

func (NoopObserver) ObserveStage(string, time.Duration, error) {}
func (NoopObserver) ObserveIntake(error)                       {}
