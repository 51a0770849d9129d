package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/furisto/promptbuilder/backend/model"
	"github.com/furisto/promptbuilder/shared/keyring"
)

func NewAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage provider API keys in the system keyring",
		Long: `Manage provider API keys in the system keyring.

Keys in the environment (OPENAI_API_KEY, ANTHROPIC_API_KEY, GEMINI_API_KEY,
DEEPSEEK_API_KEY) take precedence over keys stored here.`,
		GroupID: "system",
	}

	cmd.AddCommand(NewAuthSetCmd())
	cmd.AddCommand(NewAuthDeleteCmd())

	return cmd
}

func NewAuthSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "set <provider>",
		Short:     "Store the API key of a provider",
		Long:      "Store the API key of a provider. The key is read from stdin.",
		Args:      cobra.ExactArgs(1),
		ValidArgs: providerNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := model.ParseProviderKind(args[0])
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Enter the %s API key: ", kind)
			key, err := readSecret(cmd)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout())
			if key == "" {
				return errors.New("API key must not be empty")
			}

			if err := getKeyring(cmd.Context()).Set(keyring.APIKeyName(string(kind)), key); err != nil {
				return fmt.Errorf("failed to store API key: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "API key for %s stored\n", kind)
			return nil
		},
	}
}

type authDeleteOptions struct {
	Force bool
}

func NewAuthDeleteCmd() *cobra.Command {
	var options authDeleteOptions

	cmd := &cobra.Command{
		Use:       "delete <provider> [flags]",
		Short:     "Remove the stored API key of a provider",
		Aliases:   []string{"rm"},
		Args:      cobra.ExactArgs(1),
		ValidArgs: providerNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := model.ParseProviderKind(args[0])
			if err != nil {
				return err
			}

			if !options.Force && !confirm(cmd.InOrStdin(), cmd.OutOrStdout(), fmt.Sprintf("Are you sure you want to delete the API key for %s?", kind)) {
				return nil
			}

			err = getKeyring(cmd.Context()).Delete(keyring.APIKeyName(string(kind)))
			if err != nil && !errors.Is(err, &keyring.ErrSecretNotFound{}) {
				return fmt.Errorf("failed to delete API key: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "API key for %s removed\n", kind)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&options.Force, "force", "f", false, "Skip confirmation prompt")

	return cmd
}

// readSecret reads without echo from a terminal and a single line otherwise.
func readSecret(cmd *cobra.Command) (string, error) {
	if in, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(in.Fd())) {
		secret, err := term.ReadPassword(int(in.Fd()))
		if err != nil {
			return "", fmt.Errorf("failed to read API key: %w", err)
		}
		return strings.TrimSpace(string(secret)), nil
	}

	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read API key: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func providerNames() []string {
	names := make([]string, 0, len(model.ProviderKinds()))
	for _, kind := range model.ProviderKinds() {
		names = append(names, string(kind))
	}
	return names
}
