package application

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"jobtalk/internal/domain"
)

var ErrSuperseded = errors.New("intake superseded by a newer recording")

// Session is one user's intake: page state plus the editable field store.
// The pipeline runs without the lock held; its result only lands if no newer
// recording started in the meantime.
type Session struct {
	id       string
	pipeline *Pipeline
	logger   *slog.Logger

	mu         sync.Mutex
	state      SessionState
	store      *FieldStore
	seq        uint64
	lastActive time.Time
}

func NewSession(id string, pipeline *Pipeline, logger *slog.Logger) *Session {
	return &Session{
		id:         id,
		pipeline:   pipeline,
		logger:     logger.With("session", id),
		state:      InitialSessionState(),
		store:      NewFieldStore(),
		lastActive: time.Now(),
	}
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Touch marks the session as in use.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = time.Now()
}

// Busy reports whether an intake is transcribing or categorizing.
func (s *Session) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Status.Busy()
}

func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Snapshot()
}

// SessionView is everything a client needs to draw the intake page.
type SessionView struct {
	ID                 string                   `json:"id"`
	State              SessionState             `json:"state"`
	Views              []FieldView              `json:"views"`
	LineItems          []domain.LineItem        `json:"lineItems"`
	Images             []domain.ImageAttachment `json:"images"`
	Total              float64                  `json:"total"`
	DownPaymentPercent float64                  `json:"downPaymentPercent"`
	Terms              string                   `json:"terms"`
}

func (s *Session) View() SessionView {
	s.mu.Lock()
	state := s.state
	snap := s.store.Snapshot()
	s.mu.Unlock()

	return SessionView{
		ID:                 s.id,
		State:              state,
		Views:              BuildViews(state, snap),
		LineItems:          snap.LineItems,
		Images:             snap.Images,
		Total:              domain.SumLineItems(snap.LineItems),
		DownPaymentPercent: snap.DownPaymentPercent,
		Terms:              snap.Terms,
	}
}

// Edit runs fn against the field store under the session lock.
func (s *Session) Edit(fn func(*FieldStore) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = time.Now()
	return fn(s.store)
}

// HearWord shows a live interim word while a recording is in progress.
func (s *Session) HearWord(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = time.Now()
	s.state = Next(s.state, SessionEvent{Kind: EventWordHeard, Word: text})
}

// Intake treats audio as a fresh recording: the session is reset and the
// pipeline runs on it.
func (s *Session) Intake(ctx context.Context, audio domain.AudioPayload) (IntakeResult, error) {
	seq := s.begin(false)
	return s.run(ctx, seq, audio)
}

// Record resets the session, follows rec until it ends and runs the pipeline
// on the captured audio.
func (s *Session) Record(ctx context.Context, rec *Recording) (IntakeResult, error) {
	seq := s.begin(true)

	audio, err := rec.Result(ctx, func(word string) {
		s.apply(seq, SessionEvent{Kind: EventWordHeard, Word: word})
	})
	s.apply(seq, SessionEvent{Kind: EventRecordingStopped})
	if err != nil {
		if !errors.Is(err, ErrRecordingCancelled) && !errors.Is(err, context.Canceled) {
			s.apply(seq, SessionEvent{Kind: EventFailed, Err: err})
		}
		return IntakeResult{}, err
	}

	return s.run(ctx, seq, audio)
}

// StartRecording resets the session for a recording captured elsewhere,
// e.g. in the browser, so interim words can be shown while it runs.
func (s *Session) StartRecording() {
	s.begin(true)
}

// StopRecording ends a remote recording without running the pipeline.
func (s *Session) StopRecording() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Next(s.state, SessionEvent{Kind: EventRecordingStopped})
	s.lastActive = time.Now()
}

// Reset clears everything and invalidates any intake still running.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.store.Reset()
	s.state = Next(s.state, SessionEvent{Kind: EventReset})
	s.lastActive = time.Now()
}

func (s *Session) begin(recording bool) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	s.store.Reset()
	s.state = Next(s.state, SessionEvent{Kind: EventReset})
	if recording {
		s.state = Next(s.state, SessionEvent{Kind: EventRecordingStarted})
	}
	s.lastActive = time.Now()
	return s.seq
}

func (s *Session) run(ctx context.Context, seq uint64, audio domain.AudioPayload) (IntakeResult, error) {
	result, err := s.pipeline.RunIntake(ctx, audio, func(status domain.Status) {
		s.apply(seq, SessionEvent{Kind: EventStatusChanged, Status: status})
	})

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.seq != seq {
		s.logger.Info("discarding stale intake result", "seq", seq, "current", s.seq)
		return IntakeResult{}, ErrSuperseded
	}
	s.lastActive = time.Now()

	if err != nil {
		s.state = Next(s.state, SessionEvent{Kind: EventFailed, Err: err})
		return IntakeResult{}, err
	}

	s.state = Next(s.state, SessionEvent{Kind: EventTranscribed, Transcript: result.Transcript})
	s.store.Load(result.Fields)
	return result, nil
}

func (s *Session) apply(seq uint64, ev SessionEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seq != seq {
		return
	}
	s.state = Next(s.state, ev)
}
