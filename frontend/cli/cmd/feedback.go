package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/furisto/promptbuilder/backend/feedback"
	"github.com/furisto/promptbuilder/frontend/cli/pkg/fail"
	"github.com/furisto/promptbuilder/frontend/cli/pkg/terminal"
)

type feedbackOptions struct {
	Name    string
	Email   string
	Message string
}

func NewFeedbackCmd() *cobra.Command {
	options := &feedbackOptions{}

	cmd := &cobra.Command{
		Use:   "feedback [message] [flags]",
		Short: "Tell us what you think",
		Example: `  # Send a short note
  promptbuilder feedback "Love the clarifying questions"

  # Leave your contact details
  promptbuilder feedback --name Ada --email ada@example.com --message "Please add a French style"`,
		GroupID: "system",
		RunE: func(cmd *cobra.Command, args []string) error {
			submission := feedback.Submission{
				Name:    options.Name,
				Email:   options.Email,
				Message: firstNonEmpty(options.Message, strings.Join(args, " ")),
			}

			// an empty message is rejected before any sink is built
			if err := feedback.Validate(submission); err != nil {
				return fail.HandleError(err)
			}

			sink, err := newFeedbackSink(cmd)
			if err != nil {
				return fail.HandleError(err)
			}

			if err := feedback.Send(cmd.Context(), sink, submission); err != nil {
				return fail.HandleError(err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s Thank you for your feedback!\n", terminal.SuccessSymbol)
			return nil
		},
	}

	cmd.Flags().StringVar(&options.Name, "name", "", "your name (optional)")
	cmd.Flags().StringVar(&options.Email, "email", "", "your email address (optional)")
	cmd.Flags().StringVarP(&options.Message, "message", "m", "", "the feedback message")

	return cmd
}
