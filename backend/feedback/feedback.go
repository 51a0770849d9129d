package feedback

import (
	"context"
	"fmt"
	"strings"

	"github.com/furisto/promptbuilder/shared"
)

type Submission struct {
	Name    string
	Email   string
	Message string
}

//go:generate mockgen -destination=../mocks/feedback_sink_mock.go -package=mocks . Sink
type Sink interface {
	Submit(ctx context.Context, submission Submission) error
}

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) ErrorSource() shared.ErrorSource {
	return shared.ErrorSourceUser
}

type SinkError struct {
	Sink       string
	StatusCode int
	Err        error
}

func (e *SinkError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("%s rejected feedback with status %d: %v", e.Sink, e.StatusCode, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s rejected feedback with status %d", e.Sink, e.StatusCode)
	default:
		return fmt.Sprintf("failed to submit feedback to %s: %v", e.Sink, e.Err)
	}
}

func (e *SinkError) Unwrap() error {
	return e.Err
}

func (e *SinkError) ErrorSource() shared.ErrorSource {
	return shared.ErrorSourceSink
}

// Validate checks a submission before it reaches any sink.
func Validate(submission Submission) error {
	if strings.TrimSpace(submission.Message) == "" {
		return &ValidationError{Field: "message", Reason: "please enter a message before submitting"}
	}
	return nil
}

// Send validates the submission and hands it to the sink.
func Send(ctx context.Context, sink Sink, submission Submission) error {
	submission.Name = strings.TrimSpace(submission.Name)
	submission.Email = strings.TrimSpace(submission.Email)
	if err := Validate(submission); err != nil {
		return err
	}
	return sink.Submit(ctx, submission)
}
