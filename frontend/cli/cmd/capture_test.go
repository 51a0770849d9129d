package cmd

import (
	"fmt"
	"testing"

	"go.uber.org/mock/gomock"

	"github.com/furisto/promptbuilder/backend/mocks"
	"github.com/furisto/promptbuilder/backend/model"
	"github.com/furisto/promptbuilder/backend/wizard"
	"github.com/furisto/promptbuilder/frontend/cli/pkg/fail"
	"github.com/furisto/promptbuilder/frontend/cli/pkg/terminal"
)

func TestCapture(t *testing.T) {
	setup := &TestSetup{}

	bakery := wizard.Capture{Context: "family bakery", Tone: "playful"}
	instruction := wizard.BuildCaptureInstruction(bakery)
	openai := &ProviderCall{
		Kind:   model.ProviderKindOpenAI,
		APIKey: "sk-test",
		Model:  model.DefaultModel(model.ProviderKindOpenAI),
	}
	generate := func(provider *mocks.MockCompletionProvider) {
		provider.EXPECT().
			Complete(gomock.Any(), wizard.SystemRole, instruction).
			Return(&model.Completion{Text: "Write playful copy for a family bakery."}, nil)
	}

	setup.RunTests(t, []TestScenario{
		{
			Name:    "no formula parts",
			Command: []string{"capture"},
			Expected: TestExpectation{
				Error: (&fail.UserError{
					UserMessage: "At least one part of the CAPTURE formula is required",
					Solutions:   []string{"Pass one or more of --context, --audience, --purpose, --tone, --use-case, --relevance, --examples"},
				}).Error(),
			},
		},
		{
			Name:    "print instruction",
			Command: []string{"capture", "--context", "family bakery", "--tone", "playful"},
			Expected: TestExpectation{
				Stdout: instruction + "\n",
			},
		},
		{
			Name:          "generate prompt",
			Command:       []string{"capture", "--context", "family bakery", "--tone", "playful", "--generate"},
			SetupEnv:      map[string]string{"OPENAI_API_KEY": "sk-test"},
			SetupProvider: generate,
			Expected: TestExpectation{
				Stdout:   "Write playful copy for a family bakery.\n",
				Provider: openai,
			},
		},
		{
			Name:          "generate and save",
			Command:       []string{"capture", "--context", "family bakery", "--tone", "playful", "--generate", "-o", "/work/bakery.txt"},
			SetupEnv:      map[string]string{"OPENAI_API_KEY": "sk-test"},
			SetupProvider: generate,
			Expected: TestExpectation{
				Stdout:   fmt.Sprintf("%s Saved prompt to /work/bakery.txt\n", terminal.SuccessSymbol),
				Provider: openai,
				Files: map[string]string{
					"/work/bakery.txt": "Write playful copy for a family bakery.\n",
				},
			},
		},
	})
}
