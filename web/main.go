package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/devilmonastery/bnetsso/internal/config"
	"github.com/devilmonastery/bnetsso/internal/pkg/logger"
)

// rootOptions are the flags shared by every command
type rootOptions struct {
	configPath    string
	logLevel      string
	logFile       string
	logFormat     string
	alsoLogStderr bool

	cfg *config.Config
}

func main() {
	rootCmd := newRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "bnetsso",
		Short: "Battle.net single sign-on for the forum",
		Long:  "Serves the Battle.net login, registration and account association endpoints",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts.cfg)
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to config file (optional)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error), overrides config")
	cmd.PersistentFlags().StringVar(&opts.logFile, "log-file", "", "Log file path (if specified, logs to file instead of stderr)")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "Log format (text, json), overrides config")
	cmd.PersistentFlags().BoolVar(&opts.alsoLogStderr, "alsologtostderr", false, "Log to both file and stderr")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newMigrateCommand(opts))
	cmd.AddCommand(newAssociationCommand(opts))
	cmd.AddCommand(newUserCommand(opts))
	cmd.AddCommand(newConfigCommand(opts))
	cmd.AddCommand(newGuideCommand(opts))

	return cmd
}

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the web server (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts.cfg)
		},
	}
}

// setup loads configuration and installs the global logger
func (o *rootOptions) setup() error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	o.cfg = cfg

	level := cfg.Logging.Level
	if o.logLevel != "" {
		level = o.logLevel
	}
	format := cfg.Logging.Format
	if o.logFormat != "" {
		format = o.logFormat
	}
	logFile := cfg.Logging.File
	if o.logFile != "" {
		logFile = o.logFile
	}

	globalLogger, err := logger.SetupLogger(logger.Config{
		Level:         logger.ParseLevel(level),
		LogFile:       logFile,
		LogToStderr:   logFile == "",
		AlsoLogStderr: o.alsoLogStderr,
		Format:        format,
	})
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}

	// Set as default logger so all slog.Info/Warn/Error calls use our configured logger
	slog.SetDefault(globalLogger)
	return nil
}
