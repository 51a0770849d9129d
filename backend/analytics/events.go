package analytics

import (
	"github.com/posthog/posthog-go"
)

// Enqueuer is the part of posthog.Client used for capturing events. A nil Enqueuer
// disables analytics.
type Enqueuer interface {
	Enqueue(posthog.Message) error
}

func NewClient(apiKey, endpoint string) (posthog.Client, error) {
	config := posthog.Config{}
	if endpoint != "" {
		config.Endpoint = endpoint
	}
	return posthog.NewWithConfig(apiKey, config)
}

func emit(client Enqueuer, sessionID string, event string, properties posthog.Properties) {
	if client == nil {
		return
	}

	_ = client.Enqueue(posthog.Capture{
		DistinctId: sessionID,
		Event:      event,
		Properties: properties,
	})
}

func EmitGoalSubmitted(client Enqueuer, sessionID string, style string, goalLength int) {
	emit(client, sessionID, "goal_submitted", posthog.Properties{
		"style":       style,
		"goal_length": goalLength,
	})
}

func EmitQuestionsGenerated(client Enqueuer, sessionID string, questionCount int) {
	emit(client, sessionID, "questions_generated", posthog.Properties{
		"question_count": questionCount,
	})
}

func EmitPromptGenerated(client Enqueuer, sessionID string, style string, delegatedAnswers int, historyLength int) {
	emit(client, sessionID, "prompt_generated", posthog.Properties{
		"style":             style,
		"delegated_answers": delegatedAnswers,
		"history_length":    historyLength,
	})
}

func EmitSessionRestarted(client Enqueuer, sessionID string, historyLength int) {
	emit(client, sessionID, "session_restarted", posthog.Properties{
		"history_length": historyLength,
	})
}

func EmitHistoryExported(client Enqueuer, sessionID string, format string, entries int) {
	emit(client, sessionID, "history_exported", posthog.Properties{
		"format":  format,
		"entries": entries,
	})
}

func EmitFeedbackSubmitted(client Enqueuer, distinctID string, name string, email string, message string) error {
	if client == nil {
		return nil
	}

	return client.Enqueue(posthog.Capture{
		DistinctId: distinctID,
		Event:      "feedback_submitted",
		Properties: posthog.Properties{
			"name":    name,
			"email":   email,
			"message": message,
		},
	})
}
