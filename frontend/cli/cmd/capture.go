package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/furisto/promptbuilder/backend/model"
	"github.com/furisto/promptbuilder/backend/wizard"
	"github.com/furisto/promptbuilder/frontend/cli/pkg/fail"
	"github.com/furisto/promptbuilder/frontend/cli/pkg/terminal"
)

type captureOptions struct {
	Capture  wizard.Capture
	Generate bool
	Output   string
	Provider providerOptions
}

func NewCaptureCmd() *cobra.Command {
	options := &captureOptions{}

	cmd := &cobra.Command{
		Use:   "capture [flags]",
		Short: "Build a prompt with the CAPTURE formula",
		Long: `Build a prompt from the seven parts of the CAPTURE formula: context, audience,
purpose, tone, use case, relevance and examples.

Without --generate the assembled instruction is printed as is. With --generate it
is sent to the completion provider and the resulting prompt is printed.`,
		Example: `  # Print the assembled instruction
  promptbuilder capture --context "B2B SaaS launch" --audience "CTOs" --purpose "announce"

  # Let the provider write the prompt and save it
  promptbuilder capture --context "bakery" --tone playful --generate --output prompt.txt`,
		GroupID: "core",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if options.Capture.Empty() {
				return &fail.UserError{
					UserMessage: "At least one part of the CAPTURE formula is required",
					Solutions:   []string{"Pass one or more of --context, --audience, --purpose, --tone, --use-case, --relevance, --examples"},
				}
			}

			prompt := wizard.BuildCaptureInstruction(options.Capture)
			if options.Generate {
				generated, err := generateCapture(cmd, options, prompt)
				if err != nil {
					return fail.HandleError(err)
				}
				prompt = generated
			}

			if options.Output != "" {
				if err := newExporter(cmd).WritePrompt(options.Output, prompt); err != nil {
					return fail.EnhanceError(err, map[string]interface{}{"path": options.Output})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s Saved prompt to %s\n", terminal.SuccessSymbol, options.Output)
				return nil
			}

			fmt.Fprintln(cmd.OutOrStdout(), prompt)
			return nil
		},
	}

	cmd.Flags().StringVar(&options.Capture.Context, "context", "", "background of the task")
	cmd.Flags().StringVar(&options.Capture.Audience, "audience", "", "who the result is for")
	cmd.Flags().StringVar(&options.Capture.Purpose, "purpose", "", "what the result should achieve")
	cmd.Flags().StringVar(&options.Capture.Tone, "tone", "", "tone of voice")
	cmd.Flags().StringVar(&options.Capture.UseCase, "use-case", "", "where the result will be used")
	cmd.Flags().StringVar(&options.Capture.Relevance, "relevance", "", "why it matters now")
	cmd.Flags().StringVar(&options.Capture.Examples, "examples", "", "examples of the desired output")
	cmd.Flags().BoolVar(&options.Generate, "generate", false, "send the instruction to the completion provider")
	cmd.Flags().StringVarP(&options.Output, "output", "o", "", "write the prompt to this file instead of stdout")
	addProviderFlags(cmd, &options.Provider)

	return cmd
}

func generateCapture(cmd *cobra.Command, options *captureOptions, instruction string) (string, error) {
	service, err := newCompletionService(cmd, options.Provider)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), currentConfig(cmd).Timeout)
	defer cancel()

	resp, err := terminal.SpinnerFunc(cmd.ErrOrStderr(), "Writing your prompt", func() (*model.Completion, error) {
		return service.Provider.Complete(ctx, wizard.SystemRole, instruction)
	}, terminal.WithAnimation(isInteractive(cmd)), terminal.WithSuccessMsg("Prompt ready"))
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}
