package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/furisto/promptbuilder/backend/analytics"
	"github.com/furisto/promptbuilder/frontend/cli/pkg/fail"
	"github.com/furisto/promptbuilder/shared"
	"github.com/furisto/promptbuilder/shared/config"
)

var (
	// Version is the version of the CLI
	Version = "unknown"

	// Git Commit is the commit that the CLI was built from
	GitCommit = "unknown"

	// BuildDate is the date the CLI was built
	BuildDate = "unknown"
)

const envPrefix = "PROMPTBUILDER_"

type globalOptions struct {
	LogLevel    LogLevel
	MetricsFile string
}

func NewRootCmd() *cobra.Command {
	options := globalOptions{}
	cmd := &cobra.Command{
		Use:   "promptbuilder",
		Short: "Promptbuilder: Turn a rough idea into a prompt you can paste into any AI tool.",
		Long: figure.NewColorFigure("promptbuilder", "standard", "purple", true).String() + `
Describe what you want, answer a few clarifying questions (or let the AI
answer them) and get a finished prompt back.`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", Version, GitCommit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			fs := getFileSystem(cmd.Context())
			userInfo := getUserInfo(cmd.Context())

			loadDotEnv(fs, userInfo)

			options.LogLevel = resolveLogLevel(cmd, &options)
			slog.SetDefault(slog.New(slog.NewJSONHandler(setupLogSink(cmd.Context(), userInfo), &slog.HandlerOptions{
				Level: options.LogLevel.SlogLevel(),
			})))
			cmd.SetContext(setGlobalOptions(cmd.Context(), &options))

			configStore, err := config.NewStore(fs, userInfo)
			if err != nil {
				return err
			}
			cmd.SetContext(setConfigStore(cmd.Context(), configStore))
			cfg := configStore.Config()

			setupSentry(firstNonEmpty(os.Getenv(envPrefix+"SENTRY_DSN"), cfg.Sentry.DSN))

			if options.MetricsFile != "" && getMetrics(cmd.Context()) == nil {
				cmd.SetContext(setMetrics(cmd.Context(), prometheus.NewRegistry()))
			}

			if getAnalytics(cmd.Context()) == nil {
				key := firstNonEmpty(os.Getenv(envPrefix+"POSTHOG_KEY"), cfg.Analytics.PostHogKey)
				if key != "" {
					client, err := analytics.NewClient(key, cfg.Analytics.Endpoint)
					if err != nil {
						slog.Warn("failed to create analytics client", "error", err)
					} else {
						cmd.SetContext(setAnalytics(cmd.Context(), client))
					}
				}
			}

			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if closer, ok := getAnalytics(cmd.Context()).(io.Closer); ok {
				if err := closer.Close(); err != nil {
					slog.Warn("failed to flush analytics events", "error", err)
				}
			}

			if registry := getMetrics(cmd.Context()); registry != nil && options.MetricsFile != "" {
				if err := prometheus.WriteToTextfile(options.MetricsFile, registry); err != nil {
					return fmt.Errorf("failed to write metrics to %s: %w", options.MetricsFile, err)
				}
			}
			return nil
		},
	}

	cmd.PersistentFlags().Var(&options.LogLevel, "log-level", "set the log level")
	cmd.PersistentFlags().StringVar(&options.MetricsFile, "metrics-file", "", "write completion metrics in Prometheus text format to this file on exit")

	cmd.AddGroup(
		&cobra.Group{
			ID:    "core",
			Title: "Core Commands",
		},
	)

	cmd.AddGroup(
		&cobra.Group{
			ID:    "system",
			Title: "System Commands",
		},
	)

	cmd.AddCommand(NewNewCmd())
	cmd.AddCommand(NewCaptureCmd())
	cmd.AddCommand(NewStylesCmd())
	cmd.AddCommand(NewFeedbackCmd())

	cmd.AddCommand(NewConfigCmd())
	cmd.AddCommand(NewAuthCmd())
	return cmd
}

func Execute() {
	defer func() {
		if r := recover(); r != nil {
			sentry.CurrentHub().Recover(r)
			sentry.Flush(2 * time.Second)
			fmt.Fprintf(os.Stderr, "Panic occurred: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack:\n%s\n", debug.Stack())
			os.Exit(1)
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rootCmd := NewRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		printError(os.Stderr, err)
		if shared.SourceOf(err) != shared.ErrorSourceUser {
			sentry.CaptureException(err)
		}
		sentry.Flush(2 * time.Second)
		os.Exit(1)
	}

	sentry.Flush(2 * time.Second)
}

func printError(w io.Writer, err error) {
	var userErr *fail.UserError
	if errors.As(err, &userErr) {
		fmt.Fprint(w, userErr.Error())
		return
	}
	fmt.Fprintf(w, "Error: %s\n", err)
}

func setupSentry(dsn string) {
	if dsn == "" {
		return
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:     dsn,
		Release: Version,
	})
	if err != nil {
		slog.Warn("failed to initialize sentry", "error", err)
	}
}

// loadDotEnv exports the variables of a .env file in the working directory.
// Variables that are already set keep their value.
func loadDotEnv(fs *afero.Afero, userInfo shared.UserInfo) {
	cwd, err := userInfo.Cwd()
	if err != nil {
		return
	}

	content, err := fs.ReadFile(filepath.Join(cwd, ".env"))
	if err != nil {
		return
	}

	values, err := godotenv.Parse(bytes.NewReader(content))
	if err != nil {
		slog.Warn("failed to parse .env file", "error", err)
		return
	}

	for key, value := range values {
		if _, set := os.LookupEnv(key); !set {
			os.Setenv(key, value)
		}
	}
}

func confirm(stdin io.Reader, stdout io.Writer, message string) bool {
	fmt.Fprintf(stdout, "%s (y/n): ", message)
	var confirm string
	_, err := fmt.Fscan(stdin, &confirm)
	if err != nil {
		return false
	}

	confirm = strings.TrimSpace(strings.ToLower(confirm))
	return confirm == "y" || confirm == "yes"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

func (e *LogLevel) String() string {
	if e == nil {
		return ""
	}
	return string(*e)
}

func (e *LogLevel) Set(v string) error {
	for _, level := range []LogLevel{LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError} {
		if v == string(level) {
			*e = level
			return nil
		}
	}
	return errors.New(`must be one of "debug", "info", "warn", or "error"`)
}

func (e *LogLevel) Type() string {
	return "log-level"
}

func (e *LogLevel) SlogLevel() slog.Level {
	switch *e {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelInfo:
		return slog.LevelInfo
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	}

	return slog.LevelInfo
}

func resolveLogLevel(cmd *cobra.Command, options *globalOptions) LogLevel {
	if cmd.Flags().Changed("log-level") {
		return options.LogLevel
	}

	var level LogLevel
	if err := level.Set(os.Getenv(envPrefix + "LOG_LEVEL")); err == nil {
		return level
	}
	return LogLevelInfo
}

// setupLogSink writes logs to a rotating file in the log directory. Logs never go to
// stdout, where they would corrupt the interactive screen.
func setupLogSink(ctx context.Context, userInfo shared.UserInfo) io.Writer {
	if disable, ok := ctx.Value(ContextKeyDisableFileLogs).(bool); ok && disable {
		return io.Discard
	}

	logDir, err := userInfo.LogDir()
	if err != nil {
		return io.Discard
	}

	return &lumberjack.Logger{
		Filename:   filepath.Join(logDir, shared.AppName+".json"),
		MaxSize:    50,
		MaxAge:     7,
		MaxBackups: 3,
		Compress:   true,
	}
}
