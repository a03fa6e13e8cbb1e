package application_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobtalk/internal/application"
	"jobtalk/internal/domain"
)

// blockingSTT waits for release before answering so a test can start a
// second intake while the first one is in flight.
type blockingSTT struct {
	started chan struct{}
	release chan struct{}
	text    string
}

func (b *blockingSTT) Transcribe(ctx context.Context, _ domain.AudioPayload) (string, error) {
	b.started <- struct{}{}
	select {
	case <-b.release:
		return b.text, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func TestSession_Intake(t *testing.T) {
	cat := &mockCategorizer{fields: domain.CategorizedFields{
		ContactInformation: domain.ContactInformation{Name: "Jane Doe"},
		Budget:             "$500",
	}}
	pipeline := newPipeline(&mockSTT{text: "Jane Doe wants the fence painted for $500"}, cat, nil, nil)
	s := application.NewSession("s1", pipeline, discardLogger())

	_, err := s.Intake(context.Background(), wavPayload())
	require.NoError(t, err)

	view := s.View()
	assert.Equal(t, "s1", view.ID)
	assert.Equal(t, domain.StatusDone, view.State.Status)
	assert.Equal(t, "Jane Doe wants the fence painted for $500", view.State.Transcript)
	require.Len(t, view.Views, 5)
	assert.Equal(t, "Jane Doe", view.Views[1].Fields[0].Text)
	assert.Equal(t, 50.0, view.DownPaymentPercent)
}

func TestSession_IntakeResetsPreviousWork(t *testing.T) {
	pipeline := newPipeline(&mockSTT{text: "hello"}, &mockCategorizer{}, nil, nil)
	s := application.NewSession("s1", pipeline, discardLogger())

	require.NoError(t, s.Edit(func(f *application.FieldStore) error {
		_, err := f.AddLineItem(1, "Paint", 20)
		return err
	}))
	assert.Equal(t, 20.0, s.View().Total)

	_, err := s.Intake(context.Background(), wavPayload())
	require.NoError(t, err)
	assert.Empty(t, s.View().LineItems)
}

func TestSession_IntakeFailure(t *testing.T) {
	pipeline := newPipeline(&mockSTT{text: "x"}, &mockCategorizer{err: errors.New("quota exceeded")}, nil, nil)
	s := application.NewSession("s1", pipeline, discardLogger())

	_, err := s.Intake(context.Background(), wavPayload())
	require.Error(t, err)

	state := s.State()
	assert.Equal(t, domain.StatusError, state.Status)
	assert.Contains(t, state.Error, "failed to categorize information")
	assert.False(t, s.Snapshot().Categorized)
}

func TestSession_NewerIntakeSupersedesOlder(t *testing.T) {
	stt := &blockingSTT{
		started: make(chan struct{}, 2),
		release: make(chan struct{}),
		text:    "first",
	}
	pipeline := application.NewPipeline(stt, &mockCategorizer{}, nil, nil, discardLogger())
	s := application.NewSession("s1", pipeline, discardLogger())

	firstErr := make(chan error, 1)
	go func() {
		_, err := s.Intake(context.Background(), wavPayload())
		firstErr <- err
	}()
	<-stt.started

	s.Reset()
	close(stt.release)

	assert.ErrorIs(t, <-firstErr, application.ErrSuperseded)
	assert.Equal(t, application.InitialSessionState(), s.State())
	assert.False(t, s.Snapshot().Categorized)
}

func TestSession_Record(t *testing.T) {
	stream := newStream("pcm")
	words := &fakeWords{ch: make(chan string, 1)}
	recorder := application.NewRecorder(&fakeDevice{stream: stream}, words, discardLogger())
	pipeline := newPipeline(&mockSTT{text: "paint the fence"}, &mockCategorizer{}, nil, nil)
	s := application.NewSession("cli", pipeline, discardLogger())

	rec, err := recorder.Start(context.Background())
	require.NoError(t, err)

	words.ch <- "paint the"
	go func() {
		for s.State().LastWord != "the" {
			time.Sleep(time.Millisecond)
		}
		rec.Stop()
	}()

	result, err := s.Record(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, "paint the fence", result.Transcript)

	state := s.State()
	assert.False(t, state.Recording)
	assert.Empty(t, state.LastWord)
	assert.Equal(t, domain.StatusDone, state.Status)
	assert.Equal(t, int32(1), stream.closed.Load())
}

func TestSession_RecordCancelled(t *testing.T) {
	recorder := application.NewRecorder(&fakeDevice{stream: newStream("pcm")}, nil, discardLogger())
	stt := &mockSTT{text: "x"}
	s := application.NewSession("cli", newPipeline(stt, &mockCategorizer{}, nil, nil), discardLogger())

	rec, err := recorder.Start(context.Background())
	require.NoError(t, err)
	rec.Cancel()

	_, err = s.Record(context.Background(), rec)
	assert.ErrorIs(t, err, application.ErrRecordingCancelled)
	assert.Zero(t, stt.calls)
	assert.Equal(t, domain.StatusIdle, s.State().Status)
}

func TestSession_RecordInterrupted(t *testing.T) {
	recorder := application.NewRecorder(&fakeDevice{stream: newStream("pcm")}, nil, discardLogger())
	stt := &mockSTT{text: "x"}
	s := application.NewSession("cli", newPipeline(stt, &mockCategorizer{}, nil, nil), discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	rec, err := recorder.Start(ctx)
	require.NoError(t, err)
	cancel()

	_, err = s.Record(ctx, rec)
	require.Error(t, err)
	assert.Zero(t, stt.calls)

	state := s.State()
	assert.Equal(t, domain.StatusIdle, state.Status)
	assert.Empty(t, state.Error)
	assert.False(t, state.Recording)
}
