package domain

// Status is the pipeline progress shown to the user.
type Status string

const (
	StatusIdle         Status = "idle"
	StatusRecording    Status = "recording"
	StatusTranscribing Status = "transcribing"
	StatusCategorizing Status = "categorizing"
	StatusDone         Status = "done"
	StatusError        Status = "error"
)

// Busy reports whether a pipeline run is in flight.
func (s Status) Busy() bool {
	return s == StatusTranscribing || s == StatusCategorizing
}
