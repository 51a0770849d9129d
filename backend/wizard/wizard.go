package wizard

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/furisto/promptbuilder/backend/analytics"
	"github.com/furisto/promptbuilder/backend/model"
)

const DefaultTimeout = 60 * time.Second

// Wizard drives a Session through the goal, clarify and result steps. Every
// transition either commits completely or leaves the session untouched.
type Wizard struct {
	provider model.CompletionProvider
	timeout  time.Duration
	logger   *slog.Logger
	events   analytics.Enqueuer
	now      func() time.Time
}

type Option func(*Wizard)

func WithTimeout(timeout time.Duration) Option {
	return func(w *Wizard) {
		if timeout > 0 {
			w.timeout = timeout
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(w *Wizard) {
		if logger != nil {
			w.logger = logger
		}
	}
}

func WithAnalytics(events analytics.Enqueuer) Option {
	return func(w *Wizard) {
		w.events = events
	}
}

func WithClock(now func() time.Time) Option {
	return func(w *Wizard) {
		w.now = now
	}
}

func New(provider model.CompletionProvider, opts ...Option) *Wizard {
	w := &Wizard{
		provider: provider,
		timeout:  DefaultTimeout,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Wizard) Analytics() analytics.Enqueuer {
	return w.events
}

// SubmitGoal asks the service for clarifying questions. When none are needed the
// final prompt is generated right away and the session enters the result step.
func (w *Wizard) SubmitGoal(ctx context.Context, s *Session, goal string, style Style) error {
	if s.Step != StepGoal {
		return &TransitionError{Action: "submit goal", From: s.Step, Want: StepGoal}
	}

	goal = strings.TrimSpace(goal)
	if goal == "" {
		return &ValidationError{Field: "goal", Reason: "goal must not be empty"}
	}
	if !style.Valid() {
		return &ValidationError{Field: "style", Reason: "unknown style " + string(style)}
	}

	analytics.EmitGoalSubmitted(w.events, s.ID.String(), string(style), len(goal))

	resp, err := w.complete(ctx, StepGoal, questionsInstruction(goal))
	if err != nil {
		return err
	}
	usage := s.Usage.Add(resp.Usage)

	questions := parseQuestions(resp.Text)
	if len(questions) == 0 {
		return w.enterResult(ctx, s, goal, style, nil, map[string]Answer{}, usage)
	}

	s.Goal = goal
	s.Style = style
	s.Questions = questions
	s.Answers = make(map[string]Answer, len(questions))
	s.Usage = usage
	s.Step = StepClarify

	analytics.EmitQuestionsGenerated(w.events, s.ID.String(), len(questions))
	w.logger.DebugContext(ctx, "clarifying questions generated", "session", s.ID, "count", len(questions))
	return nil
}

// SubmitAnswers always moves to the result step once generation succeeds. Questions
// without an answer, and answers left blank, are delegated to the service. Answers to
// anything that is not a current question are dropped.
func (w *Wizard) SubmitAnswers(ctx context.Context, s *Session, answers map[string]Answer) error {
	if s.Step != StepClarify {
		return &TransitionError{Action: "submit answers", From: s.Step, Want: StepClarify}
	}

	stored := make(map[string]Answer, len(s.Questions))
	for _, q := range s.Questions {
		answer, ok := answers[q]
		if !ok || answer.Delegated {
			stored[q] = Delegate()
			continue
		}
		stored[q] = TextAnswer(answer.Text)
	}

	return w.enterResult(ctx, s, s.Goal, s.Style, s.Questions, stored, s.Usage)
}

// Restart returns to the goal step. Style and history survive.
func (w *Wizard) Restart(s *Session) error {
	if s.Step != StepResult {
		return &TransitionError{Action: "restart", From: s.Step, Want: StepResult}
	}

	s.Step = StepGoal
	s.Goal = ""
	s.Questions = nil
	s.Answers = make(map[string]Answer)
	s.GeneratedPrompt = ""

	analytics.EmitSessionRestarted(w.events, s.ID.String(), len(s.History))
	return nil
}

// DelegateAll answers every question with the delegate sentinel.
func DelegateAll(questions []string) map[string]Answer {
	answers := make(map[string]Answer, len(questions))
	for _, q := range questions {
		answers[q] = Delegate()
	}
	return answers
}

func (w *Wizard) enterResult(ctx context.Context, s *Session, goal string, style Style, questions []string, answers map[string]Answer, usage model.Usage) error {
	resp, err := w.complete(ctx, StepResult, promptInstruction(goal, style, questions, answers))
	if err != nil {
		return err
	}

	prompt := strings.TrimSpace(resp.Text)

	s.Goal = goal
	s.Style = style
	s.Questions = questions
	s.Answers = answers
	s.GeneratedPrompt = prompt
	s.History = append(s.History, HistoryEntry{
		Prompt:    prompt,
		Goal:      goal,
		Style:     style,
		CreatedAt: w.now(),
	})
	s.Usage = usage.Add(resp.Usage)
	s.Step = StepResult

	analytics.EmitPromptGenerated(w.events, s.ID.String(), string(style), s.DelegatedCount(), len(s.History))
	w.logger.DebugContext(ctx, "prompt generated", "session", s.ID, "history", len(s.History))
	return nil
}

func (w *Wizard) complete(ctx context.Context, step Step, instruction string) (*model.Completion, error) {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	resp, err := w.provider.Complete(ctx, SystemRole, instruction)
	if err != nil {
		w.logger.ErrorContext(ctx, "completion failed", "step", step, "error", err)
		return nil, &ServiceError{Step: step, Err: err}
	}
	return resp, nil
}
