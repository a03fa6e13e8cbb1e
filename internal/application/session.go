package application

import (
	"strings"

	"jobtalk/internal/domain"
)

// SessionState is the page-level state of one intake session. It only
// changes through Next.
type SessionState struct {
	Recording  bool          `json:"recording"`
	LastWord   string        `json:"lastWord,omitempty"`
	Status     domain.Status `json:"status"`
	Transcript string        `json:"transcript,omitempty"`
	Error      string        `json:"error,omitempty"`
}

type SessionEventKind int

const (
	EventRecordingStarted SessionEventKind = iota
	EventWordHeard
	EventRecordingStopped
	EventStatusChanged
	EventTranscribed
	EventFailed
	EventReset
)

type SessionEvent struct {
	Kind       SessionEventKind
	Word       string
	Status     domain.Status
	Transcript string
	Err        error
}

func InitialSessionState() SessionState {
	return SessionState{Status: domain.StatusIdle}
}

// Next returns the state after ev. It never mutates s.
func Next(s SessionState, ev SessionEvent) SessionState {
	switch ev.Kind {
	case EventRecordingStarted:
		return SessionState{Recording: true, Status: domain.StatusRecording}

	case EventWordHeard:
		word := lastWord(ev.Word)
		if !s.Recording || word == "" {
			return s
		}
		s.LastWord = word

	case EventRecordingStopped:
		s.Recording = false
		s.LastWord = ""
		if s.Status == domain.StatusRecording {
			s.Status = domain.StatusIdle
		}

	case EventStatusChanged:
		s.Status = ev.Status
		if ev.Status != domain.StatusError {
			s.Error = ""
		}

	case EventTranscribed:
		s.Transcript = ev.Transcript

	case EventFailed:
		s.Recording = false
		s.LastWord = ""
		s.Status = domain.StatusError
		if ev.Err != nil {
			s.Error = ev.Err.Error()
		}

	case EventReset:
		return InitialSessionState()
	}
	return s
}

// lastWord picks the most recent word out of an interim recognizer result.
func lastWord(text string) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}
	return words[len(words)-1]
}
