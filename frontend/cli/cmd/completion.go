package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/furisto/promptbuilder/backend/export"
	"github.com/furisto/promptbuilder/backend/feedback"
	"github.com/furisto/promptbuilder/backend/model"
	"github.com/furisto/promptbuilder/backend/wizard"
	"github.com/furisto/promptbuilder/frontend/cli/pkg/fail"
	"github.com/furisto/promptbuilder/shared"
	"github.com/furisto/promptbuilder/shared/config"
	"github.com/furisto/promptbuilder/shared/keyring"
	"github.com/furisto/promptbuilder/shared/resilience"
)

type providerOptions struct {
	Provider string
	Model    string
}

func addProviderFlags(cmd *cobra.Command, options *providerOptions) {
	cmd.Flags().StringVar(&options.Provider, "provider", "", "completion provider: openai, anthropic, gemini or deepseek")
	cmd.Flags().StringVar(&options.Model, "model", "", "model to use (default: first model of the provider)")
}

// completionService is a configured provider together with the pricing of its model.
type completionService struct {
	Provider model.CompletionProvider
	Kind     model.ProviderKind
	Model    string
	Pricing  model.ModelPricing
}

func newCompletionService(cmd *cobra.Command, options providerOptions) (*completionService, error) {
	ctx := cmd.Context()
	cfg := currentConfig(cmd)

	kind, err := model.ParseProviderKind(firstNonEmpty(options.Provider, os.Getenv(envPrefix+"PROVIDER"), cfg.Provider))
	if err != nil {
		return nil, shared.Wrap(shared.ErrorSourceUser, err, "invalid provider")
	}
	modelName := firstNonEmpty(options.Model, os.Getenv(envPrefix+"MODEL"), cfg.Model, model.DefaultModel(kind))

	apiKey, err := resolveAPIKey(cmd, kind)
	if err != nil {
		return nil, err
	}

	providerOpts := []model.ProviderOption{
		model.WithModel(modelName),
		model.WithRetryConfig(retryConfig(cfg)),
		model.WithMetrics(getMetrics(ctx)),
	}
	if cfg.Temperature != nil {
		providerOpts = append(providerOpts, model.WithTemperature(*cfg.Temperature))
	}

	provider, err := getProviderFactory(ctx)(ctx, kind, apiKey, slog.Default(), providerOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s provider: %w", kind, err)
	}

	service := &completionService{
		Provider: provider,
		Kind:     kind,
		Model:    modelName,
	}
	if m, ok := model.LookupModel(kind, modelName); ok {
		service.Pricing = m.Pricing
	}
	return service, nil
}

// resolveAPIKey prefers the provider's environment variable over the keyring.
func resolveAPIKey(cmd *cobra.Command, kind model.ProviderKind) (string, error) {
	if key := os.Getenv(model.APIKeyEnv(kind)); key != "" {
		return key, nil
	}

	key, err := getKeyring(cmd.Context()).Get(keyring.APIKeyName(string(kind)))
	if err != nil {
		if errors.Is(err, &keyring.ErrSecretNotFound{}) {
			return "", fail.NewMissingAPIKeyError(kind)
		}
		return "", fmt.Errorf("failed to read API key from keyring: %w", err)
	}
	return key, nil
}

func retryConfig(cfg config.Config) *resilience.RetryConfig {
	rc := resilience.NoRetry()
	rc.MaxAttempts = cfg.Retry.MaxAttempts
	rc.UseProviderBackoff = rc.MaxAttempts > 1
	return rc
}

func newWizard(cmd *cobra.Command, provider model.CompletionProvider) *wizard.Wizard {
	cfg := currentConfig(cmd)
	return wizard.New(provider,
		wizard.WithTimeout(cfg.Timeout),
		wizard.WithLogger(slog.Default()),
		wizard.WithAnalytics(getAnalytics(cmd.Context())),
	)
}

func newExporter(cmd *cobra.Command) *export.Exporter {
	cfg := currentConfig(cmd)

	var opts []export.Option
	if fontPath := firstNonEmpty(os.Getenv(envPrefix+"EXPORT_FONT"), cfg.Export.FontPath); fontPath != "" {
		opts = append(opts, export.WithFont(fontPath))
	}
	return export.NewExporter(getFileSystem(cmd.Context()), opts...)
}

// resolveStyle applies flag, environment and configuration in that order.
func resolveStyle(cmd *cobra.Command, flag string) (wizard.Style, error) {
	value := firstNonEmpty(flag, os.Getenv(envPrefix+"STYLE"), currentConfig(cmd).Style)
	if value == "" {
		return wizard.DefaultStyle, nil
	}
	return wizard.ParseStyle(value)
}

func newFeedbackSink(cmd *cobra.Command) (feedback.Sink, error) {
	if sink := getFeedbackSink(cmd.Context()); sink != nil {
		return sink, nil
	}

	cfg := currentConfig(cmd)
	switch cfg.Feedback.Sink {
	case "posthog":
		client := getAnalytics(cmd.Context())
		if client == nil {
			return nil, &fail.UserError{
				UserMessage: "The posthog feedback sink needs an analytics key",
				Solutions:   []string{"promptbuilder config set analytics.posthog_key <key>"},
			}
		}
		return feedback.NewPostHogSink(client, uuid.NewString()), nil
	default:
		endpoint := firstNonEmpty(os.Getenv(envPrefix+"FEEDBACK_ENDPOINT"), cfg.Feedback.Endpoint)
		if endpoint == "" {
			return nil, fail.NewFeedbackEndpointError()
		}
		sink, err := feedback.NewFormspreeSink(endpoint, nil)
		if err != nil {
			return nil, shared.Wrap(shared.ErrorSourceUser, err, "invalid feedback endpoint")
		}
		return sink, nil
	}
}

func currentConfig(cmd *cobra.Command) config.Config {
	store := getConfigStore(cmd.Context())
	if store == nil {
		return config.Config{}.WithDefaults()
	}
	return store.Config().WithDefaults()
}

func outputDir(cmd *cobra.Command, flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	return getUserInfo(cmd.Context()).Cwd()
}

// isInteractive reports whether both ends of the command are attached to a terminal.
func isInteractive(cmd *cobra.Command) bool {
	in, ok := cmd.InOrStdin().(*os.File)
	if !ok || !term.IsTerminal(int(in.Fd())) {
		return false
	}
	out, ok := cmd.OutOrStdout().(*os.File)
	return ok && term.IsTerminal(int(out.Fd()))
}

func formatError(err error) string {
	if userErr, ok := fail.HandleError(err).(*fail.UserError); ok {
		return userErr.Short()
	}
	return err.Error()
}
