package cmd

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"
	"go.uber.org/mock/gomock"

	"github.com/furisto/promptbuilder/backend/mocks"
	"github.com/furisto/promptbuilder/backend/model"
	sharedmocks "github.com/furisto/promptbuilder/shared/mocks"
)

// isolatedEnv lists the variables a scenario must not inherit from the machine
// running the tests.
var isolatedEnv = []string{
	"OPENAI_API_KEY",
	"ANTHROPIC_API_KEY",
	"GEMINI_API_KEY",
	"DEEPSEEK_API_KEY",
	envPrefix + "PROVIDER",
	envPrefix + "MODEL",
	envPrefix + "STYLE",
	envPrefix + "LOG_LEVEL",
	envPrefix + "FEEDBACK_ENDPOINT",
	envPrefix + "POSTHOG_KEY",
	envPrefix + "SENTRY_DSN",
	envPrefix + "EXPORT_FONT",
}

type TestSetup struct {
	CmpOptions []cmp.Option
}

type TestScenario struct {
	Name            string
	Command         []string
	Stdin           string
	SetupProvider   func(provider *mocks.MockCompletionProvider)
	SetupSink       func(sink *mocks.MockSink)
	SetupKeyring    func(keyring *sharedmocks.MockProvider)
	SetupFileSystem func(fs *afero.Afero)
	SetupUserInfo   func(userInfo *sharedmocks.MockUserInfo)
	SetupEnv        map[string]string
	Expected        TestExpectation
}

type TestExpectation struct {
	Stdout   string
	Error    string
	Provider *ProviderCall
	// Files maps paths to the content they must hold after the command ran.
	Files map[string]string
}

type ProviderCall struct {
	Kind   model.ProviderKind
	APIKey string
	Model  string
}

func (s *TestSetup) RunTests(t *testing.T, scenarios []TestScenario) {
	if len(scenarios) == 0 {
		t.Fatalf("no scenarios provided")
	}

	for _, scenario := range scenarios {
		t.Run(scenario.Name, func(t *testing.T) {
			ctrl := gomock.NewController(t)

			for _, key := range isolatedEnv {
				unsetEnv(t, key)
			}
			for key, value := range scenario.SetupEnv {
				t.Setenv(key, value)
			}

			provider := mocks.NewMockCompletionProvider(ctrl)
			if scenario.SetupProvider != nil {
				scenario.SetupProvider(provider)
			}

			keyringProvider := sharedmocks.NewMockProvider(ctrl)
			if scenario.SetupKeyring != nil {
				scenario.SetupKeyring(keyringProvider)
			}

			userInfo := sharedmocks.NewMockUserInfo(ctrl)
			if scenario.SetupUserInfo != nil {
				scenario.SetupUserInfo(userInfo)
			}
			userInfo.EXPECT().ConfigDir().Return("/config", nil).AnyTimes()
			userInfo.EXPECT().LogDir().Return("/logs", nil).AnyTimes()
			userInfo.EXPECT().Cwd().Return("/work", nil).AnyTimes()
			userInfo.EXPECT().HomeDir().Return("/home/user", nil).AnyTimes()

			fs := &afero.Afero{Fs: afero.NewMemMapFs()}
			if scenario.SetupFileSystem != nil {
				scenario.SetupFileSystem(fs)
			}

			var actual TestExpectation
			factory := ProviderFactory(func(ctx context.Context, kind model.ProviderKind, apiKey string, logger *slog.Logger, opts ...model.ProviderOption) (model.CompletionProvider, error) {
				options := model.DefaultProviderOptions(kind)
				for _, opt := range opts {
					opt(options)
				}
				actual.Provider = &ProviderCall{Kind: kind, APIKey: apiKey, Model: options.Model}
				return provider, nil
			})

			testCmd := NewRootCmd()

			var stdin bytes.Buffer
			stdin.WriteString(scenario.Stdin)
			testCmd.SetIn(&stdin)

			var stdout bytes.Buffer
			testCmd.SetOut(&stdout)
			testCmd.SetErr(&stdout)

			ctx := context.Background()
			ctx = context.WithValue(ctx, ContextKeyFileSystem, fs)
			ctx = context.WithValue(ctx, ContextKeyUserInfo, userInfo)
			ctx = context.WithValue(ctx, ContextKeyKeyring, keyringProvider)
			ctx = context.WithValue(ctx, ContextKeyProviderFactory, factory)
			ctx = context.WithValue(ctx, ContextKeyDisableFileLogs, true)
			if scenario.SetupSink != nil {
				sink := mocks.NewMockSink(ctrl)
				scenario.SetupSink(sink)
				ctx = context.WithValue(ctx, ContextKeyFeedbackSink, sink)
			}

			testCmd.SetArgs(scenario.Command)

			err := testCmd.ExecuteContext(ctx)
			if err != nil {
				actual.Error = err.Error()
			}
			actual.Stdout = stdout.String()

			if len(scenario.Expected.Files) > 0 {
				actual.Files = make(map[string]string, len(scenario.Expected.Files))
				for path := range scenario.Expected.Files {
					content, err := fs.ReadFile(path)
					if err != nil {
						actual.Files[path] = "<missing>"
						continue
					}
					actual.Files[path] = string(content)
				}
			}

			if diff := cmp.Diff(scenario.Expected, actual, s.CmpOptions...); diff != "" {
				t.Errorf("%s() mismatch (-want +got):\n%s", scenario.Name, diff)
			}
		})
	}
}

func unsetEnv(t *testing.T, key string) {
	t.Helper()
	previous, ok := os.LookupEnv(key)
	os.Unsetenv(key)
	t.Cleanup(func() {
		if ok {
			os.Setenv(key, previous)
		} else {
			os.Unsetenv(key)
		}
	})
}

func writeFile(path, content string) func(fs *afero.Afero) {
	return func(fs *afero.Afero) {
		if err := fs.WriteFile(path, []byte(content), 0600); err != nil {
			panic(err)
		}
	}
}
