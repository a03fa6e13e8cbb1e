package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"jobtalk/internal/domain"
)

// StatusFunc receives the status transitions of one intake run.
type StatusFunc func(domain.Status)

// IntakeResult is what a successful run hands back to the session.
type IntakeResult struct {
	Transcript string
	Fields     domain.CategorizedFields
}

// Pipeline runs transcription then categorization. Each stage is attempted
// exactly once and a failure aborts the run.
type Pipeline struct {
	stt         SpeechToText
	categorizer Categorizer
	notifier    Notifier
	observer    StageObserver
	logger      *slog.Logger
}

func NewPipeline(
	stt SpeechToText,
	categorizer Categorizer,
	notifier Notifier,
	observer StageObserver,
	logger *slog.Logger,
) *Pipeline {
	if notifier == nil {
		notifier = &NoopNotifier{}
	}
	if observer == nil {
		observer = NoopObserver{}
	}
	return &Pipeline{
		stt:         stt,
		categorizer: categorizer,
		notifier:    notifier,
		observer:    observer,
		logger:      logger,
	}
}

// TranscribeDataURI validates and decodes a data URI before transcribing it.
func (p *Pipeline) TranscribeDataURI(ctx context.Context, uri string) (string, error) {
	audio, err := domain.ParseDataURI(uri)
	if err != nil {
		p.logger.Warn("rejected audio data URI", "length", len(uri), "error", err)
		return "", err
	}
	return p.Transcribe(ctx, audio)
}

// Transcribe returns non-empty text or an error; malformed audio never
// reaches the speech-to-text service.
func (p *Pipeline) Transcribe(ctx context.Context, audio domain.AudioPayload) (string, error) {
	if err := audio.Validate(); err != nil {
		return "", err
	}

	p.logger.Info("transcribing audio", "encoding", audio.Encoding, "bytes", len(audio.Data))

	start := time.Now()
	text, err := p.stt.Transcribe(ctx, audio)
	if err == nil && strings.TrimSpace(text) == "" {
		err = domain.ErrEmptyTranscription
	}
	p.observer.ObserveStage(StageTranscription, time.Since(start), err)

	if err != nil {
		return "", asTranscriptionError(err)
	}

	text = strings.TrimSpace(text)
	p.logger.Info("transcribed", "chars", len(text))
	return text, nil
}

// Categorize returns all four fields and all four contact sub-fields, each
// either extracted or domain.NotMentioned.
func (p *Pipeline) Categorize(ctx context.Context, transcript string) (domain.CategorizedFields, error) {
	if strings.TrimSpace(transcript) == "" {
		p.logger.Info("empty transcript, skipping categorization")
		return domain.EmptyFields(), nil
	}

	p.logger.Info("categorizing transcript", "chars", len(transcript))

	start := time.Now()
	fields, err := p.categorizer.Categorize(ctx, transcript)
	p.observer.ObserveStage(StageCategorization, time.Since(start), err)

	if err != nil {
		return domain.CategorizedFields{}, asCategorizationError(err)
	}

	return fields.WithDefaults(), nil
}

// RunIntake transcribes then categorizes. Stage two only starts after stage
// one succeeded; report sees transcribing, categorizing and then done or error.
func (p *Pipeline) RunIntake(ctx context.Context, audio domain.AudioPayload, report StatusFunc) (IntakeResult, error) {
	if report == nil {
		report = func(domain.Status) {}
	}

	result, err := p.runIntake(ctx, audio, report)
	p.observer.ObserveIntake(err)
	if err != nil {
		report(domain.StatusError)
		p.notify(ctx, fmt.Sprintf("Processing error: %s", err.Error()))
		p.logger.Error("intake failed", "error", err)
		return IntakeResult{}, err
	}

	report(domain.StatusDone)
	p.notify(ctx, "Categorization complete! Job details sorted.")
	return result, nil
}

func (p *Pipeline) runIntake(ctx context.Context, audio domain.AudioPayload, report StatusFunc) (IntakeResult, error) {
	if err := audio.Validate(); err != nil {
		return IntakeResult{}, err
	}

	report(domain.StatusTranscribing)
	p.notify(ctx, "Transcribing... Analyzing your speech.")

	transcript, err := p.Transcribe(ctx, audio)
	if err != nil {
		return IntakeResult{}, err
	}

	report(domain.StatusCategorizing)
	p.notify(ctx, "Transcription complete. Categorizing information...")

	fields, err := p.Categorize(ctx, transcript)
	if err != nil {
		return IntakeResult{}, err
	}

	return IntakeResult{Transcript: transcript, Fields: fields}, nil
}

func (p *Pipeline) notify(ctx context.Context, message string) {
	if err := p.notifier.Notify(ctx, message); err != nil {
		p.logger.Warn("sending notification", "error", err)
	}
}

func asTranscriptionError(err error) error {
	var te *domain.TranscriptionError
	if errors.As(err, &te) {
		return err
	}
	return &domain.TranscriptionError{Err: err}
}

func asCategorizationError(err error) error {
	var ce *domain.CategorizationError
	if errors.As(err, &ce) {
		return err
	}
	return &domain.CategorizationError{Err: err}
}
