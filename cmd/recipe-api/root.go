package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/upb/recipe-api/config"
	"github.com/upb/recipe-api/internal/observability"
	"go.uber.org/zap"
)

const name = "recipe-api"

var (
	// overridden during build with ldflags
	version = "dev"
	commit  = "unknown"
)

// cli carries the state shared by every subcommand once flags are parsed
type cli struct {
	logLevel  string
	logFormat string

	cfg    *config.Config
	logger *zap.Logger
}

// Execute runs the root command until it finishes or the process is
// interrupted, and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   name,
		Short: "Recipe recommendations and AI recipe generation",
		Long: fmt.Sprintf(`%s - recipe recommendation service

Version: %s
Commit:  %s

Ranks a precomputed recipe dataset by cosine similarity to the user's
ingredients and preferences, and generates new recipes grounded on the
closest matches.`, name, version, commit),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "version" {
				return nil
			}
			return c.setup(cmd.Context())
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&c.logFormat, "log-format", "", "log format override (json, console)")

	root.AddCommand(
		newServeCmd(c),
		newRecommendCmd(c),
		newGenerateCmd(c),
		newCheckDatasetCmd(c),
		newImportDatasetCmd(c),
		newExportDatasetCmd(c),
		newVersionCmd(),
	)
	return root
}

// setup loads configuration from the environment and builds the logger
func (c *cli) setup(ctx context.Context) error {
	cfg, err := config.New(ctx)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if c.logLevel != "" {
		cfg.Observability.LogLevel = c.logLevel
	}
	if c.logFormat != "" {
		cfg.Observability.LogFormat = c.logFormat
	}

	logger, err := initLogger(cfg.Observability)
	if err != nil {
		return err
	}

	c.cfg = cfg
	c.logger = logger
	return nil
}

func initLogger(obs config.ObservabilityConfig) (*zap.Logger, error) {
	logger, err := observability.NewLogger(obs.LogLevel, obs.LogFormat)
	if err != nil {
		return nil, err
	}
	return logger.With(zap.String("service", name), zap.String("version", version)), nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s)\n", name, version, commit)
		},
	}
}
