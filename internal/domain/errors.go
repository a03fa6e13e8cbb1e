package domain

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyTranscription = errors.New("transcription returned empty text")
	ErrMalformedResult    = errors.New("categorization returned a malformed result")
)

// ValidationError reports input rejected before any work was attempted.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

type TranscriptionError struct {
	Err error
}

func (e *TranscriptionError) Error() string {
	return fmt.Sprintf("failed to transcribe audio: %v", e.Err)
}

func (e *TranscriptionError) Unwrap() error {
	return e.Err
}

type CategorizationError struct {
	Err error
}

func (e *CategorizationError) Error() string {
	return fmt.Sprintf("failed to categorize information: %v", e.Err)
}

func (e *CategorizationError) Unwrap() error {
	return e.Err
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsTranscription(err error) bool {
	var t *TranscriptionError
	return errors.As(err, &t)
}

func IsCategorization(err error) bool {
	var c *CategorizationError
	return errors.As(err, &c)
}
