package feedback

import (
	"context"
	"errors"

	"github.com/furisto/promptbuilder/backend/analytics"
)

const posthogSink = "posthog"

var errAnalyticsDisabled = errors.New("analytics.posthog_key is not configured")

// PostHogSink records submissions as feedback_submitted events.
type PostHogSink struct {
	client     analytics.Enqueuer
	distinctID string
}

func NewPostHogSink(client analytics.Enqueuer, distinctID string) *PostHogSink {
	return &PostHogSink{
		client:     client,
		distinctID: distinctID,
	}
}

func (s *PostHogSink) Submit(ctx context.Context, submission Submission) error {
	if s.client == nil {
		return &SinkError{Sink: posthogSink, Err: errAnalyticsDisabled}
	}
	if err := analytics.EmitFeedbackSubmitted(s.client, s.distinctID, submission.Name, submission.Email, submission.Message); err != nil {
		return &SinkError{Sink: posthogSink, Err: err}
	}
	return nil
}
