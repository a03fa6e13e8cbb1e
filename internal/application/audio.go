package application

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"jobtalk/internal/domain"
)

var ErrRecordingCancelled = errors.New("recording cancelled")

// AudioDevice opens a capture stream, e.g. the default microphone.
type AudioDevice interface {
	Name() string
	Open(ctx context.Context) (AudioStream, error)
}

// AudioStream is an open capture. Read returns io.EOF when the source ends on
// its own. Close stops the underlying device and must be safe to call once
// after any Read outcome.
type AudioStream interface {
	Read(ctx context.Context) ([]byte, error)
	Encode(data []byte) (domain.AudioPayload, error)
	Close() error
}

// WordSource is a best-effort live recognizer. Each value is an interim
// transcript; only its last word is shown.
type WordSource interface {
	Listen(ctx context.Context) (<-chan string, error)
}

type CaptureEventKind string

const (
	CaptureInterimWord CaptureEventKind = "interim_word"
	CaptureCompleted   CaptureEventKind = "completed"
	CaptureErrored     CaptureEventKind = "errored"
	CaptureCancelled   CaptureEventKind = "cancelled"
)

type CaptureEvent struct {
	Kind    CaptureEventKind
	Word    string
	Payload domain.AudioPayload
	Err     error
}

func (e CaptureEvent) Terminal() bool {
	return e.Kind != CaptureInterimWord
}

// Recorder owns at most one recording at a time.
type Recorder struct {
	device AudioDevice
	words  WordSource
	logger *slog.Logger

	mu      sync.Mutex
	current *Recording
}

func NewRecorder(device AudioDevice, words WordSource, logger *slog.Logger) *Recorder {
	return &Recorder{
		device: device,
		words:  words,
		logger: logger,
	}
}

// Start cancels any recording still running, opens the device and begins
// capturing.
func (r *Recorder) Start(ctx context.Context) (*Recording, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.current != nil {
		r.current.Cancel()
		<-r.current.done
		r.current = nil
	}

	stream, err := r.device.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", r.device.Name(), err)
	}

	rec := newRecording(ctx, r.logger.With("device", r.device.Name()))
	if r.words != nil {
		feedbackCtx, cancel := context.WithCancel(rec.ctx)
		rec.feedbackCancel = cancel
		go rec.feedback(feedbackCtx, r.words)
	} else {
		close(rec.feedbackDone)
		r.logger.Debug("live speech feedback not available")
	}
	go rec.capture(stream)

	r.current = rec
	return rec, nil
}

// Close cancels the active recording, if any.
func (r *Recorder) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current != nil {
		r.current.Cancel()
		<-r.current.done
		r.current = nil
	}
}

// Recording is one capture session. Events delivers interim words followed by
// exactly one terminal event, then the channel is closed.
type Recording struct {
	events chan CaptureEvent
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	stopped   atomic.Bool
	cancelled atomic.Bool

	// feedbackCancel is set before the feedback goroutine starts and never
	// changes afterwards.
	feedbackCancel context.CancelFunc
	feedbackDone   chan struct{}

	done chan struct{}
}

func newRecording(parent context.Context, logger *slog.Logger) *Recording {
	ctx, cancel := context.WithCancel(parent)
	return &Recording{
		events:       make(chan CaptureEvent, 32),
		logger:       logger,
		ctx:          ctx,
		cancel:       cancel,
		feedbackDone: make(chan struct{}),
		done:         make(chan struct{}),
	}
}

func (r *Recording) Events() <-chan CaptureEvent {
	return r.events
}

// Stop ends the recording normally; the captured audio becomes the payload.
func (r *Recording) Stop() {
	r.stopped.Store(true)
	r.cancel()
}

// Cancel ends the recording and discards the audio.
func (r *Recording) Cancel() {
	r.cancelled.Store(true)
	r.cancel()
}

// StopFeedback ends the live word stream without touching the capture.
func (r *Recording) StopFeedback() {
	if r.feedbackCancel != nil {
		r.feedbackCancel()
	}
}

// Done is closed once the device is released and the terminal event is queued.
func (r *Recording) Done() <-chan struct{} {
	return r.done
}

// Result drains the events and returns the payload of a completed recording.
func (r *Recording) Result(ctx context.Context, onWord func(string)) (domain.AudioPayload, error) {
	for {
		select {
		case <-ctx.Done():
			r.Cancel()
			return domain.AudioPayload{}, ctx.Err()
		case ev, ok := <-r.events:
			if !ok {
				return domain.AudioPayload{}, ErrRecordingCancelled
			}
			switch ev.Kind {
			case CaptureInterimWord:
				if onWord != nil {
					onWord(ev.Word)
				}
			case CaptureCompleted:
				return ev.Payload, nil
			case CaptureErrored:
				return domain.AudioPayload{}, ev.Err
			case CaptureCancelled:
				return domain.AudioPayload{}, ErrRecordingCancelled
			}
		}
	}
}

func (r *Recording) capture(stream AudioStream) {
	defer close(r.done)

	var buf bytes.Buffer
	var readErr error
	for {
		chunk, err := stream.Read(r.ctx)
		buf.Write(chunk)
		if err != nil {
			readErr = err
			break
		}
	}

	if err := stream.Close(); err != nil {
		r.logger.Warn("releasing audio device", "error", err)
	}

	// Ends feedback on every exit path, including io.EOF from the source.
	r.cancel()
	<-r.feedbackDone

	r.events <- r.outcome(stream, buf.Bytes(), readErr)
	close(r.events)
}

func (r *Recording) outcome(stream AudioStream, data []byte, readErr error) CaptureEvent {
	switch {
	case r.cancelled.Load():
		r.logger.Info("recording cancelled")
		return CaptureEvent{Kind: CaptureCancelled}

	case r.stopped.Load() || errors.Is(readErr, io.EOF):
		payload, err := stream.Encode(data)
		if err != nil {
			return CaptureEvent{Kind: CaptureErrored, Err: fmt.Errorf("encoding recording: %w", err)}
		}
		r.logger.Info("recording complete", "encoding", payload.Encoding, "bytes", len(payload.Data))
		return CaptureEvent{Kind: CaptureCompleted, Payload: payload}

	case errors.Is(readErr, context.Canceled) || errors.Is(readErr, context.DeadlineExceeded):
		r.logger.Info("recording interrupted", "error", readErr)
		return CaptureEvent{Kind: CaptureCancelled}

	default:
		r.logger.Error("recording failed", "error", readErr)
		return CaptureEvent{Kind: CaptureErrored, Err: fmt.Errorf("reading audio: %w", readErr)}
	}
}

func (r *Recording) feedback(ctx context.Context, words WordSource) {
	defer close(r.feedbackDone)
	defer r.feedbackCancel()

	if ctx.Err() != nil {
		return
	}

	ch, err := words.Listen(ctx)
	if err != nil {
		r.logger.Warn("live speech feedback unavailable", "error", err)
		return
	}

	var last string
	for {
		select {
		case <-ctx.Done():
			return
		case text, ok := <-ch:
			if !ok {
				return
			}
			word := lastWord(text)
			if word == "" || word == last {
				continue
			}
			last = word
			// The last slot is reserved for the terminal event. Only this
			// goroutine sends interim words, so the length check cannot race
			// with another sender.
			if len(r.events) >= cap(r.events)-1 {
				continue
			}
			r.events <- CaptureEvent{Kind: CaptureInterimWord, Word: word}
		}
	}
}
