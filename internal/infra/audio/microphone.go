//go:build portaudio
// +build portaudio

package audio

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/gordonklaus/portaudio"

	"jobtalk/internal/application"
	"jobtalk/internal/domain"
)

const framesPerBuffer = 1024

// MicrophoneDevice records from the default input device as 16-bit mono PCM.
type MicrophoneDevice struct {
	sampleRate  int
	maxDuration time.Duration
	silenceStop time.Duration
	logger      *slog.Logger
}

func NewMicrophoneDevice(sampleRate int, maxDuration, silenceStop time.Duration, logger *slog.Logger) *MicrophoneDevice {
	return &MicrophoneDevice{
		sampleRate:  sampleRate,
		maxDuration: maxDuration,
		silenceStop: silenceStop,
		logger:      logger,
	}
}

func (m *MicrophoneDevice) Name() string {
	return "microphone"
}

func (m *MicrophoneDevice) Open(_ context.Context) (application.AudioStream, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initializing portaudio: %w", err)
	}

	buffer := make([]int16, framesPerBuffer)

	stream, err := portaudio.OpenDefaultStream(1, 0, float64(m.sampleRate), framesPerBuffer, buffer)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("opening stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("starting stream: %w", err)
	}

	m.logger.Info("microphone started", "sampleRate", m.sampleRate)

	return &micStream{
		stream:     stream,
		buffer:     buffer,
		sampleRate: m.sampleRate,
		maxSamples: int(m.maxDuration.Seconds() * float64(m.sampleRate)),
		maxSilence: int(m.silenceStop.Seconds() * float64(m.sampleRate)),
	}, nil
}

type micStream struct {
	stream     *portaudio.Stream
	buffer     []int16
	sampleRate int

	maxSamples int
	maxSilence int
	samples    int
	silence    int
}

// Read blocks for one buffer. It reports io.EOF once the maximum duration is
// reached or, when silence detection is on, after a long enough pause
// following at least one second of audio.
func (s *micStream) Read(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := s.stream.Read(); err != nil {
		return nil, fmt.Errorf("reading from stream: %w", err)
	}

	chunk := samplesToPCM(s.buffer)
	s.samples += len(s.buffer)

	if silent(s.buffer, 500) {
		s.silence += len(s.buffer)
	} else {
		s.silence = 0
	}

	if s.maxSamples > 0 && s.samples >= s.maxSamples {
		return chunk, io.EOF
	}
	if s.maxSilence > 0 && s.silence > s.maxSilence && s.samples > s.sampleRate {
		return chunk, io.EOF
	}
	return chunk, nil
}

func (s *micStream) Encode(pcm []byte) (domain.AudioPayload, error) {
	wav, err := EncodeWAV(pcm, s.sampleRate)
	if err != nil {
		return domain.AudioPayload{}, err
	}
	return domain.NewAudioPayload(domain.EncodingWAV, wav)
}

func (s *micStream) Close() error {
	defer portaudio.Terminate()
	if err := s.stream.Stop(); err != nil {
		s.stream.Close()
		return fmt.Errorf("stopping stream: %w", err)
	}
	if err := s.stream.Close(); err != nil {
		return fmt.Errorf("closing stream: %w", err)
	}
	return nil
}
