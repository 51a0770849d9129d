package wizard

import (
	"fmt"

	"github.com/furisto/promptbuilder/shared"
)

// ValidationError rejects user input before any state change or service call.
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

// ServiceError reports a failed completion call. The session is left unchanged and the
// action can be repeated.
type ServiceError struct {
	Step Step
	Err  error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("completion service failed during %s step: %v", e.Step, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) ErrorSource() shared.ErrorSource {
	return shared.ErrorSourceProvider
}

// TransitionError is returned when an action is not available in the current step.
type TransitionError struct {
	Action string
	From   Step
	Want   Step
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s from %s step, requires %s step", e.Action, e.From, e.Want)
}

func (e *TransitionError) ErrorSource() shared.ErrorSource {
	return shared.ErrorSourceUser
}
