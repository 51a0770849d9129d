package cmd

import (
	"testing"

	"github.com/furisto/promptbuilder/shared/keyring"
	sharedmocks "github.com/furisto/promptbuilder/shared/mocks"
)

func TestAuth(t *testing.T) {
	setup := &TestSetup{}

	setup.RunTests(t, []TestScenario{
		{
			Name:    "set api key",
			Command: []string{"auth", "set", "openai"},
			Stdin:   "sk-new\n",
			SetupKeyring: func(k *sharedmocks.MockProvider) {
				k.EXPECT().Set(keyring.APIKeyName("openai"), "sk-new").Return(nil)
			},
			Expected: TestExpectation{
				Stdout: "Enter the openai API key: \nAPI key for openai stored\n",
			},
		},
		{
			Name:    "empty api key",
			Command: []string{"auth", "set", "anthropic"},
			Stdin:   "\n",
			Expected: TestExpectation{
				Stdout: "Enter the anthropic API key: \n",
				Error:  "API key must not be empty",
			},
		},
		{
			Name:    "delete with force",
			Command: []string{"auth", "delete", "gemini", "--force"},
			SetupKeyring: func(k *sharedmocks.MockProvider) {
				k.EXPECT().Delete(keyring.APIKeyName("gemini")).Return(nil)
			},
			Expected: TestExpectation{
				Stdout: "API key for gemini removed\n",
			},
		},
		{
			Name:    "delete missing key after confirmation",
			Command: []string{"auth", "rm", "deepseek"},
			Stdin:   "yes\n",
			SetupKeyring: func(k *sharedmocks.MockProvider) {
				k.EXPECT().Delete(keyring.APIKeyName("deepseek")).Return(&keyring.ErrSecretNotFound{Key: keyring.APIKeyName("deepseek")})
			},
			Expected: TestExpectation{
				Stdout: "Are you sure you want to delete the API key for deepseek? (y/n): API key for deepseek removed\n",
			},
		},
		{
			Name:    "delete declined",
			Command: []string{"auth", "delete", "openai"},
			Stdin:   "n\n",
			Expected: TestExpectation{
				Stdout: "Are you sure you want to delete the API key for openai? (y/n): ",
			},
		},
		{
			Name:    "unknown provider",
			Command: []string{"auth", "set", "cohere"},
			Expected: TestExpectation{
				Error: `unsupported provider "cohere"`,
			},
		},
	})
}
