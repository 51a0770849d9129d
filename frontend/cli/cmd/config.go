package cmd

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/furisto/promptbuilder/backend/wizard"
	"github.com/furisto/promptbuilder/frontend/cli/pkg/fail"
	"github.com/furisto/promptbuilder/shared/config"
)

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Read and change persistent settings",
		Long: `Read and change the settings stored in config.yaml.

Supported keys:
  ` + strings.Join(config.Keys(), "\n  "),
		GroupID: "system",
	}

	cmd.AddCommand(NewConfigGetCmd())
	cmd.AddCommand(NewConfigSetCmd())
	cmd.AddCommand(NewConfigUnsetCmd())
	cmd.AddCommand(NewConfigListCmd())

	return cmd
}

func NewConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print the value of a setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := getConfigStore(cmd.Context()).Get(args[0])
			if err != nil {
				return configError(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), value)
			return nil
		},
	}
}

func NewConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change a setting",
		Example: `  # Use Anthropic by default
  promptbuilder config set provider anthropic

  # Allow up to three attempts per completion call
  promptbuilder config set retry.max_attempts 3`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, value := args[0], args[1]
			if key == "style" {
				style, err := wizard.ParseStyle(value)
				if err != nil {
					return fail.HandleError(err)
				}
				value = string(style)
			}

			if err := getConfigStore(cmd.Context()).Set(key, value); err != nil {
				return configError(err)
			}
			return nil
		},
	}
}

func NewConfigUnsetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unset <key>",
		Short: "Reset a setting to its default",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := getConfigStore(cmd.Context()).Unset(args[0]); err != nil {
				return configError(err)
			}
			return nil
		},
	}
}

func NewConfigListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Short:   "Print all settings that hold a value",
		Aliases: []string{"ls"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			values := getConfigStore(cmd.Context()).List()

			keys := make([]string, 0, len(values))
			for key := range values {
				keys = append(keys, key)
			}
			sort.Strings(keys)

			for _, key := range keys {
				fmt.Fprintf(cmd.OutOrStdout(), "%s=%s\n", key, values[key])
			}
			return nil
		},
	}
}

func configError(err error) error {
	var unknown *config.UnknownKeyError
	if errors.As(err, &unknown) {
		return fmt.Errorf("%w, supported keys: %s", err, strings.Join(config.Keys(), ", "))
	}
	return err
}
