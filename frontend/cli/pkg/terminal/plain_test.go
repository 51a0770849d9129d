package terminal

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"
	"go.uber.org/mock/gomock"

	"github.com/furisto/promptbuilder/backend/export"
	"github.com/furisto/promptbuilder/backend/mocks"
	"github.com/furisto/promptbuilder/backend/model"
	"github.com/furisto/promptbuilder/backend/wizard"
)

func newPlainRunner(t *testing.T, input string) (*PlainRunner, *mocks.MockCompletionProvider, *afero.Afero, *bytes.Buffer) {
	t.Helper()
	ctrl := gomock.NewController(t)
	provider := mocks.NewMockCompletionProvider(ctrl)
	fs := &afero.Afero{Fs: afero.NewMemMapFs()}
	out := &bytes.Buffer{}

	return &PlainRunner{
		Wizard:    wizard.New(provider),
		Session:   wizard.NewSession(),
		Exporter:  export.NewExporter(fs),
		OutputDir: "/out",
		In:        strings.NewReader(input),
		Out:       out,
	}, provider, fs, out
}

func TestPlainRunnerCompletesWizard(t *testing.T) {
	runner, provider, fs, out := newPlainRunner(t, "write a poem\nkids\n\ns\nq\n")

	gomock.InOrder(
		provider.EXPECT().
			Complete(gomock.Any(), wizard.SystemRole, gomock.Any()).
			Return(&model.Completion{Text: "Who is the audience?\nHow long?"}, nil),
		provider.EXPECT().
			Complete(gomock.Any(), wizard.SystemRole, gomock.Any()).
			Return(&model.Completion{Text: "Write a short poem for kids."}, nil),
	)

	if err := runner.Run(context.Background()); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	want := map[string]wizard.Answer{
		"Who is the audience?": wizard.TextAnswer("kids"),
		"How long?":            wizard.Delegate(),
	}
	if diff := cmp.Diff(want, runner.Session.Answers); diff != "" {
		t.Errorf("answers mismatch (-want +got):\n%s", diff)
	}
	if len(runner.Session.History) != 1 {
		t.Errorf("history = %d entries, want 1", len(runner.Session.History))
	}

	content, err := fs.ReadFile("/out/prompt.txt")
	if err != nil {
		t.Fatalf("prompt.txt not written: %v", err)
	}
	if string(content) != "Write a short poem for kids.\n" {
		t.Errorf("prompt.txt = %q", content)
	}

	for _, s := range []string{"Who is the audience?", "How long?", "Write a short poem for kids.", "Saved prompt to /out/prompt.txt"} {
		if !strings.Contains(out.String(), s) {
			t.Errorf("output missing %q:\n%s", s, out.String())
		}
	}
}

func TestPlainRunnerDelegatesRemainingQuestions(t *testing.T) {
	runner, provider, _, _ := newPlainRunner(t, "plan a trip\nrome\n*\n")

	gomock.InOrder(
		provider.EXPECT().
			Complete(gomock.Any(), wizard.SystemRole, gomock.Any()).
			Return(&model.Completion{Text: "Where?\nWhen?\nBudget?"}, nil),
		provider.EXPECT().
			Complete(gomock.Any(), wizard.SystemRole, gomock.Any()).
			Return(&model.Completion{Text: "Plan a trip to Rome."}, nil),
	)

	if err := runner.Run(context.Background()); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	want := map[string]wizard.Answer{
		"Where?":  wizard.TextAnswer("rome"),
		"When?":   wizard.Delegate(),
		"Budget?": wizard.Delegate(),
	}
	if diff := cmp.Diff(want, runner.Session.Answers); diff != "" {
		t.Errorf("answers mismatch (-want +got):\n%s", diff)
	}
}

func TestPlainRunnerReportsEmptyGoal(t *testing.T) {
	runner, _, _, out := newPlainRunner(t, "   \n")

	if err := runner.Run(context.Background()); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	if !strings.Contains(out.String(), "goal must not be empty") {
		t.Errorf("output missing validation error:\n%s", out.String())
	}
	if runner.Session.Step != wizard.StepGoal {
		t.Errorf("step = %s, want goal", runner.Session.Step)
	}
}

func TestPlainRunnerServiceFailureStaysOnGoal(t *testing.T) {
	runner, provider, _, out := newPlainRunner(t, "write a poem\n")

	provider.EXPECT().
		Complete(gomock.Any(), wizard.SystemRole, gomock.Any()).
		Return(nil, model.NewProviderError(model.ProviderKindAnthropic, model.ProviderErrorKindOverloaded, nil))

	if err := runner.Run(context.Background()); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	if !strings.Contains(out.String(), "overloaded") {
		t.Errorf("output missing service error:\n%s", out.String())
	}
	if runner.Session.Step != wizard.StepGoal || len(runner.Session.History) != 0 {
		t.Errorf("failed call must leave the session untouched")
	}
}
