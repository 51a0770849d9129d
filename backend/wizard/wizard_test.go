package wizard

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"go.uber.org/mock/gomock"

	"github.com/furisto/promptbuilder/backend/mocks"
	"github.com/furisto/promptbuilder/backend/model"
)

var fixedTime = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

func setup(t *testing.T) (*Wizard, *mocks.MockCompletionProvider) {
	t.Helper()
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockCompletionProvider(ctrl)
	return New(provider, WithClock(func() time.Time { return fixedTime })), provider
}

func completion(text string) *model.Completion {
	return &model.Completion{Text: text, Usage: model.Usage{InputTokens: 10, OutputTokens: 5}}
}

func containsAll(parts ...string) gomock.Matcher {
	return gomock.Cond(func(x any) bool {
		s, ok := x.(string)
		if !ok {
			return false
		}
		for _, p := range parts {
			if !strings.Contains(s, p) {
				return false
			}
		}
		return true
	})
}

var sessionCmp = cmp.Options{
	cmpopts.IgnoreFields(Session{}, "ID"),
	cmpopts.EquateEmpty(),
}

func TestSubmitGoalWithQuestions(t *testing.T) {
	w, provider := setup(t)
	s := NewSession()

	provider.EXPECT().
		Complete(gomock.Any(), SystemRole, containsAll("Design a logo", "up to 5", "NONE")).
		Return(completion("What industry?\nWhat colors?"), nil)

	if err := w.SubmitGoal(context.Background(), s, "Design a logo", StyleTechnical); err != nil {
		t.Fatalf("SubmitGoal() failed: %v", err)
	}

	want := &Session{
		Step:      StepClarify,
		Goal:      "Design a logo",
		Style:     StyleTechnical,
		Questions: []string{"What industry?", "What colors?"},
		Answers:   map[string]Answer{},
		Usage:     model.Usage{InputTokens: 10, OutputTokens: 5},
	}
	if diff := cmp.Diff(want, s, sessionCmp); diff != "" {
		t.Errorf("session mismatch (-want +got):\n%s", diff)
	}
}

func TestSubmitGoalNoneEntersResult(t *testing.T) {
	tests := []string{"NONE", "none", "  None  ", "\nNONE\n"}

	for _, response := range tests {
		t.Run(response, func(t *testing.T) {
			w, provider := setup(t)
			s := NewSession()

			gomock.InOrder(
				provider.EXPECT().Complete(gomock.Any(), SystemRole, containsAll("list up to 5")).Return(completion(response), nil),
				provider.EXPECT().
					Complete(gomock.Any(), SystemRole, containsAll("Write a blog post about healthy eating", "Preferred prompt style: Creative", "Only output the final prompt")).
					Return(completion("  Write an engaging blog post...  "), nil),
			)

			if err := w.SubmitGoal(context.Background(), s, "Write a blog post about healthy eating", StyleCreative); err != nil {
				t.Fatalf("SubmitGoal() failed: %v", err)
			}

			want := &Session{
				Step:            StepResult,
				Goal:            "Write a blog post about healthy eating",
				Style:           StyleCreative,
				Answers:         map[string]Answer{},
				GeneratedPrompt: "Write an engaging blog post...",
				History: []HistoryEntry{{
					Prompt:    "Write an engaging blog post...",
					Goal:      "Write a blog post about healthy eating",
					Style:     StyleCreative,
					CreatedAt: fixedTime,
				}},
				Usage: model.Usage{InputTokens: 20, OutputTokens: 10},
			}
			if diff := cmp.Diff(want, s, sessionCmp); diff != "" {
				t.Errorf("session mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSubmitGoalRejectsEmptyGoal(t *testing.T) {
	for _, goal := range []string{"", "   ", "\n\t"} {
		w, _ := setup(t)
		s := NewSession()
		before := *s

		err := w.SubmitGoal(context.Background(), s, goal, StyleCreative)

		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("SubmitGoal(%q) = %v, want ValidationError", goal, err)
		}
		if diff := cmp.Diff(&before, s); diff != "" {
			t.Errorf("session changed (-want +got):\n%s", diff)
		}
	}
}

func TestSubmitGoalRejectsUnknownStyle(t *testing.T) {
	w, _ := setup(t)
	s := NewSession()

	err := w.SubmitGoal(context.Background(), s, "Design a logo", Style("Baroque"))
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("SubmitGoal() = %v, want ValidationError", err)
	}
	if s.Step != StepGoal {
		t.Errorf("Step = %s, want goal", s.Step)
	}
}

func TestServiceFailureLeavesSessionUnchanged(t *testing.T) {
	failure := model.NewProviderError(model.ProviderKindOpenAI, model.ProviderErrorKindRateLimitExceeded, nil)

	t.Run("questions", func(t *testing.T) {
		w, provider := setup(t)
		s := NewSession()
		before := *s

		provider.EXPECT().Complete(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, failure)

		err := w.SubmitGoal(context.Background(), s, "Design a logo", StyleCreative)
		assertServiceError(t, err, StepGoal, failure)
		if diff := cmp.Diff(&before, s); diff != "" {
			t.Errorf("session changed (-want +got):\n%s", diff)
		}

		// the action can simply be repeated
		provider.EXPECT().Complete(gomock.Any(), gomock.Any(), gomock.Any()).Return(completion("What industry?"), nil)
		if err := w.SubmitGoal(context.Background(), s, "Design a logo", StyleCreative); err != nil {
			t.Fatalf("retry failed: %v", err)
		}
		if s.Step != StepClarify {
			t.Errorf("Step = %s, want clarify", s.Step)
		}
	})

	t.Run("generation after none", func(t *testing.T) {
		w, provider := setup(t)
		s := NewSession()
		before := *s

		gomock.InOrder(
			provider.EXPECT().Complete(gomock.Any(), gomock.Any(), gomock.Any()).Return(completion("NONE"), nil),
			provider.EXPECT().Complete(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, failure),
		)

		err := w.SubmitGoal(context.Background(), s, "Write a haiku", StyleConcise)
		assertServiceError(t, err, StepResult, failure)
		if diff := cmp.Diff(&before, s); diff != "" {
			t.Errorf("session changed (-want +got):\n%s", diff)
		}
	})

	t.Run("generation after answers", func(t *testing.T) {
		w, provider := setup(t)
		s := clarifying(t, w, provider, "What industry?")
		before := *s

		provider.EXPECT().Complete(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, failure)

		err := w.SubmitAnswers(context.Background(), s, map[string]Answer{"What industry?": TextAnswer("Coffee")})
		assertServiceError(t, err, StepResult, failure)
		if diff := cmp.Diff(&before, s); diff != "" {
			t.Errorf("session changed (-want +got):\n%s", diff)
		}
	})
}

func TestSubmitGoalHonorsCancellation(t *testing.T) {
	w, provider := setup(t)
	s := NewSession()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	provider.EXPECT().Complete(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _, _ string) (*model.Completion, error) {
			return nil, ctx.Err()
		})

	err := w.SubmitGoal(ctx, s, "Design a logo", StyleCreative)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("SubmitGoal() = %v, want context.Canceled", err)
	}
	if s.Step != StepGoal {
		t.Errorf("Step = %s, want goal", s.Step)
	}
}

func TestCompletionTimeout(t *testing.T) {
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockCompletionProvider(ctrl)
	w := New(provider, WithTimeout(25*time.Millisecond))

	provider.EXPECT().Complete(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _, _ string) (*model.Completion, error) {
			if _, ok := ctx.Deadline(); !ok {
				t.Error("completion context has no deadline")
			}
			<-ctx.Done()
			return nil, ctx.Err()
		})

	err := w.SubmitGoal(context.Background(), NewSession(), "Design a logo", StyleCreative)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("SubmitGoal() = %v, want deadline exceeded", err)
	}
}

func TestSubmitAnswers(t *testing.T) {
	tests := []struct {
		name     string
		answers  map[string]Answer
		stored   map[string]Answer
		rendered []string
	}{
		{
			name:    "free text and delegate",
			answers: map[string]Answer{"What industry?": TextAnswer("Coffee"), "What colors?": Delegate()},
			stored:  map[string]Answer{"What industry?": {Text: "Coffee"}, "What colors?": Delegate()},
			rendered: []string{
				"- What industry?: Coffee\n",
				"- What colors?: " + DelegateMarker + "\n",
			},
		},
		{
			name:    "all blank",
			answers: map[string]Answer{"What industry?": {Text: ""}, "What colors?": {Text: "   "}},
			stored:  DelegateAll([]string{"What industry?", "What colors?"}),
			rendered: []string{
				"- What industry?: " + DelegateMarker,
				"- What colors?: " + DelegateMarker,
			},
		},
		{
			name:    "missing and unknown keys",
			answers: map[string]Answer{"What budget?": TextAnswer("Low")},
			stored:  DelegateAll([]string{"What industry?", "What colors?"}),
			rendered: []string{
				"- What industry?: " + DelegateMarker,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, provider := setup(t)
			s := clarifying(t, w, provider, "What industry?", "What colors?")

			provider.EXPECT().
				Complete(gomock.Any(), SystemRole, containsAll(append(tt.rendered, "Design a logo", "fill in appropriate defaults")...)).
				Return(completion("A minimalist logo prompt"), nil)

			if err := w.SubmitAnswers(context.Background(), s, tt.answers); err != nil {
				t.Fatalf("SubmitAnswers() failed: %v", err)
			}

			if s.Step != StepResult {
				t.Errorf("Step = %s, want result", s.Step)
			}
			if diff := cmp.Diff(tt.stored, s.Answers); diff != "" {
				t.Errorf("answers mismatch (-want +got):\n%s", diff)
			}
			for key := range s.Answers {
				if !containsString(s.Questions, key) {
					t.Errorf("answer key %q is not a current question", key)
				}
			}
			if s.GeneratedPrompt != "A minimalist logo prompt" || len(s.History) != 1 {
				t.Errorf("GeneratedPrompt = %q, history = %d", s.GeneratedPrompt, len(s.History))
			}
		})
	}
}

func TestRestart(t *testing.T) {
	w, provider := setup(t)
	s := clarifying(t, w, provider, "What industry?")

	provider.EXPECT().Complete(gomock.Any(), gomock.Any(), gomock.Any()).Return(completion("first prompt"), nil)
	if err := w.SubmitAnswers(context.Background(), s, nil); err != nil {
		t.Fatal(err)
	}

	if err := w.Restart(s); err != nil {
		t.Fatalf("Restart() failed: %v", err)
	}

	want := &Session{
		Step:    StepGoal,
		Style:   StyleCreative,
		Answers: map[string]Answer{},
		History: []HistoryEntry{{Prompt: "first prompt", Goal: "Design a logo", Style: StyleCreative, CreatedAt: fixedTime}},
		Usage:   model.Usage{InputTokens: 20, OutputTokens: 10},
	}
	if diff := cmp.Diff(want, s, sessionCmp); diff != "" {
		t.Errorf("session mismatch (-want +got):\n%s", diff)
	}
}

func TestHistoryGrowsAcrossCycles(t *testing.T) {
	w, provider := setup(t)
	s := NewSession()

	previous := 0
	for i, prompt := range []string{"first", "second", "third"} {
		gomock.InOrder(
			provider.EXPECT().Complete(gomock.Any(), gomock.Any(), gomock.Any()).Return(completion("NONE"), nil),
			provider.EXPECT().Complete(gomock.Any(), gomock.Any(), gomock.Any()).Return(completion(prompt), nil),
		)

		if err := w.SubmitGoal(context.Background(), s, "goal", StyleFriendly); err != nil {
			t.Fatal(err)
		}
		if got := len(s.History); got != previous+1 {
			t.Fatalf("cycle %d: history length = %d, want %d", i, got, previous+1)
		}
		previous = len(s.History)

		if err := w.Restart(s); err != nil {
			t.Fatal(err)
		}
		if s.Style != StyleFriendly {
			t.Errorf("Style = %s after restart, want Friendly", s.Style)
		}
	}

	if diff := cmp.Diff([]string{"first", "second", "third"}, s.Prompts()); diff != "" {
		t.Errorf("Prompts() mismatch (-want +got):\n%s", diff)
	}
}

func TestTransitionsFromWrongStep(t *testing.T) {
	w, provider := setup(t)
	s := NewSession()

	var terr *TransitionError
	if err := w.SubmitAnswers(context.Background(), s, nil); !errors.As(err, &terr) {
		t.Errorf("SubmitAnswers() from goal = %v, want TransitionError", err)
	}
	if err := w.Restart(s); !errors.As(err, &terr) {
		t.Errorf("Restart() from goal = %v, want TransitionError", err)
	}

	s = clarifying(t, w, provider, "What industry?")
	if err := w.SubmitGoal(context.Background(), s, "another goal", StyleCreative); !errors.As(err, &terr) {
		t.Errorf("SubmitGoal() from clarify = %v, want TransitionError", err)
	}
	if s.Goal != "Design a logo" || s.Step != StepClarify {
		t.Errorf("session changed after rejected transition: %+v", s)
	}
}

func clarifying(t *testing.T, w *Wizard, provider *mocks.MockCompletionProvider, questions ...string) *Session {
	t.Helper()

	s := NewSession()
	provider.EXPECT().Complete(gomock.Any(), gomock.Any(), gomock.Any()).Return(completion(strings.Join(questions, "\n")), nil)
	if err := w.SubmitGoal(context.Background(), s, "Design a logo", StyleCreative); err != nil {
		t.Fatalf("SubmitGoal() failed: %v", err)
	}
	return s
}

func assertServiceError(t *testing.T, err error, step Step, cause error) {
	t.Helper()

	var serr *ServiceError
	if !errors.As(err, &serr) {
		t.Fatalf("error = %v, want ServiceError", err)
	}
	if serr.Step != step {
		t.Errorf("ServiceError.Step = %s, want %s", serr.Step, step)
	}
	if !errors.Is(err, cause) {
		t.Errorf("ServiceError does not wrap %v", cause)
	}
}

func containsString(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}
