package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/furisto/promptbuilder/backend/wizard"
	"github.com/furisto/promptbuilder/frontend/cli/pkg/fail"
)

func NewStylesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "styles",
		Short:   "List the available prompt styles",
		GroupID: "core",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			current, err := resolveStyle(cmd, "")
			if err != nil {
				return fail.HandleError(err)
			}

			for _, style := range wizard.Styles() {
				marker := " "
				if style == current {
					marker = "*"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", marker, style)
			}
			return nil
		},
	}

	return cmd
}
