package fail

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/furisto/promptbuilder/backend/feedback"
	"github.com/furisto/promptbuilder/backend/model"
	"github.com/furisto/promptbuilder/backend/wizard"
	"github.com/furisto/promptbuilder/frontend/cli/pkg/terminal"
)

const issuesURL = "https://github.com/furisto/promptbuilder/issues/new"

type UserError struct {
	Cause       error
	UserMessage string
	Solutions   []string
	TechDetails string
	HelpURLs    []string
}

func (e *UserError) Error() string {
	var msg strings.Builder

	msg.WriteString(fmt.Sprintf("%s %s\n\n", terminal.ErrorSymbol, terminal.Bold(e.UserMessage)))

	if len(e.Solutions) > 0 {
		msg.WriteString(fmt.Sprintf("%s Try these solutions:\n", terminal.InfoSymbol))
		for i, solution := range e.Solutions {
			msg.WriteString(fmt.Sprintf("  %d. %s\n", i+1, solution))
		}
		msg.WriteString("\n")
	}

	if e.TechDetails != "" {
		msg.WriteString(fmt.Sprintf("Technical details: %s\n", e.TechDetails))
	}

	if len(e.HelpURLs) > 0 {
		msg.WriteString("If the problem persists:\n")
		for _, url := range e.HelpURLs {
			msg.WriteString(fmt.Sprintf("%s %s\n", terminal.LinkSymbol, url))
		}
	}

	return msg.String()
}

// Short is the one line form shown inline by the interactive wizard.
func (e *UserError) Short() string {
	if len(e.Solutions) == 0 {
		return e.UserMessage
	}
	return fmt.Sprintf("%s. %s", e.UserMessage, e.Solutions[0])
}

func (e *UserError) Unwrap() error {
	return e.Cause
}

func NewMissingAPIKeyError(provider model.ProviderKind) *UserError {
	return &UserError{
		UserMessage: fmt.Sprintf("No API key configured for %s", provider),
		Solutions: []string{
			fmt.Sprintf("Export %s in your shell or add it to a .env file", model.APIKeyEnv(provider)),
			fmt.Sprintf("Store the key in the system keyring: promptbuilder auth set %s", provider),
			"Switch to another provider: promptbuilder config set provider <name>",
		},
		HelpURLs: []string{issuesURL},
	}
}

func NewFeedbackEndpointError() *UserError {
	return &UserError{
		UserMessage: "Feedback is not configured",
		Solutions: []string{
			"Set a form endpoint: promptbuilder config set feedback.endpoint https://formspree.io/f/<form-id>",
			"Or send feedback as an analytics event: promptbuilder config set feedback.sink posthog",
		},
	}
}

func NewServiceError(err error) *UserError {
	userErr := &UserError{
		Cause:       err,
		UserMessage: "The completion service could not process the request",
		Solutions:   []string{"Try the same action again"},
		TechDetails: err.Error(),
		HelpURLs:    []string{issuesURL},
	}

	var pe *model.ProviderError
	if !errors.As(err, &pe) {
		if errors.Is(err, context.DeadlineExceeded) {
			userErr.UserMessage = "The completion service did not answer in time"
			userErr.Solutions = []string{"Try again", "Increase the timeout: promptbuilder config set timeout 2m"}
		}
		return userErr
	}

	switch pe.Kind {
	case model.ProviderErrorKindAuthentication:
		userErr.UserMessage = fmt.Sprintf("%s rejected the API key", pe.Provider)
		userErr.Solutions = []string{
			fmt.Sprintf("Check the value of %s", model.APIKeyEnv(pe.Provider)),
			fmt.Sprintf("Replace the stored key: promptbuilder auth set %s", pe.Provider),
		}
	case model.ProviderErrorKindRateLimitExceeded:
		userErr.UserMessage = fmt.Sprintf("%s rate limit or quota exceeded", pe.Provider)
		userErr.Solutions = []string{
			"Wait a moment and try again",
			"Check the billing and quota settings of your account",
			"Enable automatic retries: promptbuilder config set retry.max_attempts 3",
		}
	case model.ProviderErrorKindTimeout:
		userErr.UserMessage = fmt.Sprintf("%s did not answer in time", pe.Provider)
		userErr.Solutions = []string{
			"Try again",
			"Increase the timeout: promptbuilder config set timeout 2m",
		}
	case model.ProviderErrorKindCanceled:
		userErr.UserMessage = "The request was canceled"
		userErr.Solutions = []string{"Try the same action again"}
	case model.ProviderErrorKindInvalidRequest:
		userErr.UserMessage = fmt.Sprintf("%s rejected the request", pe.Provider)
		userErr.Solutions = []string{
			"Check that the configured model exists: promptbuilder config get model",
			"Shorten the goal or the answers",
		}
	case model.ProviderErrorKindOverloaded, model.ProviderErrorKindInternal, model.ProviderErrorKindUnavailable:
		userErr.UserMessage = fmt.Sprintf("%s is temporarily unavailable", pe.Provider)
		userErr.Solutions = []string{
			"Wait a moment and try again",
			"Switch to another provider: promptbuilder config set provider <name>",
		}
	}

	return userErr
}

func NewSinkError(err error) *UserError {
	return &UserError{
		Cause:       err,
		UserMessage: "Something went wrong. Please try again later",
		Solutions:   []string{"Check your network connection and send the feedback again"},
		TechDetails: err.Error(),
	}
}

// HandleError turns errors of the wizard, feedback and provider packages into a
// UserError. Other errors are returned as they are.
func HandleError(err error) error {
	if err == nil {
		return nil
	}

	var userErr *UserError
	if errors.As(err, &userErr) {
		return err
	}

	var (
		wizardValidation   *wizard.ValidationError
		feedbackValidation *feedback.ValidationError
		serviceErr         *wizard.ServiceError
		transitionErr      *wizard.TransitionError
		sinkErr            *feedback.SinkError
		providerErr        *model.ProviderError
	)

	switch {
	case errors.As(err, &wizardValidation):
		return &UserError{Cause: err, UserMessage: capitalize(wizardValidation.Reason)}
	case errors.As(err, &feedbackValidation):
		return &UserError{Cause: err, UserMessage: capitalize(feedbackValidation.Reason)}
	case errors.As(err, &serviceErr), errors.As(err, &providerErr):
		return NewServiceError(err)
	case errors.As(err, &sinkErr):
		return NewSinkError(err)
	case errors.As(err, &transitionErr):
		return &UserError{Cause: err, UserMessage: capitalize(transitionErr.Error()), HelpURLs: []string{issuesURL}}
	}

	return EnhanceError(err, nil)
}

func EnhanceError(err error, context map[string]interface{}) error {
	if err == nil {
		return nil
	}

	if _, ok := err.(*UserError); ok {
		return err
	}

	errStr := err.Error()

	if os.IsPermission(err) {
		path, _ := context["path"].(string)
		return &UserError{
			Cause:       err,
			UserMessage: fmt.Sprintf("Permission denied accessing %s", path),
			Solutions: []string{
				"Check file permissions and ownership",
				"Choose a different output path with --output",
			},
			TechDetails: errStr,
		}
	}

	if strings.Contains(errStr, "no such file or directory") || strings.Contains(errStr, "font file not found") {
		return &UserError{
			Cause:       err,
			UserMessage: "Required file or directory not found",
			Solutions: []string{
				"Verify the path exists and is accessible",
				"Check the configured font: promptbuilder config get export.font_path",
			},
			TechDetails: errStr,
		}
	}

	return err
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
