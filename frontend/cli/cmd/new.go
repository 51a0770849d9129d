package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/furisto/promptbuilder/backend/wizard"
	"github.com/furisto/promptbuilder/frontend/cli/pkg/fail"
	"github.com/furisto/promptbuilder/frontend/cli/pkg/terminal"
)

type newOptions struct {
	Style    string
	Plain    bool
	Output   string
	Provider providerOptions
}

func NewNewCmd() *cobra.Command {
	options := &newOptions{}

	cmd := &cobra.Command{
		Use:   "new [flags]",
		Short: "Build a new prompt step by step",
		Long: `Build a new prompt step by step.

Describe your goal and pick a style. The AI asks up to five clarifying questions;
answer them or let the AI answer for you, and you get a finished prompt back.`,
		Example: `  # Start the interactive wizard
  promptbuilder new

  # Start with a technical style and Anthropic as provider
  promptbuilder new --style tech --provider anthropic

  # Use line based prompts, e.g. in a pipe
  promptbuilder new --plain`,
		GroupID: "core",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			style, err := resolveStyle(cmd, options.Style)
			if err != nil {
				return fail.HandleError(err)
			}

			service, err := newCompletionService(cmd, options.Provider)
			if err != nil {
				return fail.HandleError(err)
			}

			dir, err := outputDir(cmd, options.Output)
			if err != nil {
				return err
			}

			session := wizard.NewSession()
			session.Style = style
			engine := newWizard(cmd, service.Provider)
			exporter := newExporter(cmd)

			if options.Plain || !isInteractive(cmd) {
				runner := &terminal.PlainRunner{
					Wizard:      engine,
					Session:     session,
					Exporter:    exporter,
					Pricing:     service.Pricing,
					OutputDir:   dir,
					In:          cmd.InOrStdin(),
					Out:         cmd.OutOrStdout(),
					Animate:     isInteractive(cmd),
					FormatError: formatError,
				}
				return runner.Run(cmd.Context())
			}

			// the feedback form stays disabled when no sink is configured
			sink, _ := newFeedbackSink(cmd)
			final, err := terminal.RunWizard(cmd.Context(), terminal.WizardConfig{
				Wizard:      engine,
				Session:     session,
				Exporter:    exporter,
				Sink:        sink,
				Pricing:     service.Pricing,
				OutputDir:   dir,
				FormatError: formatError,
			})
			if err != nil {
				return fmt.Errorf("failed to run the wizard: %w", err)
			}

			if len(final.History) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "%s Generated %d prompt(s). Last prompt:\n\n%s\n", terminal.SuccessSymbol, len(final.History), final.History[len(final.History)-1].Prompt)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&options.Style, "style", "s", "", "prompt style: Creative, Technical, Conversational, Concise, Formal or Friendly")
	cmd.Flags().BoolVar(&options.Plain, "plain", false, "use line based prompts instead of the full screen interface")
	cmd.Flags().StringVarP(&options.Output, "output", "o", "", "directory for saved prompts and exports (default: current directory)")
	addProviderFlags(cmd, &options.Provider)

	return cmd
}
