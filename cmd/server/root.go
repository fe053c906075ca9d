package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentDesk/backend/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentDesk/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentDesk/backend/internal/infrastructure/storage"
)

const version = "0.3.0"

// globalFlags override the environment for every command.
type globalFlags struct {
	dbPath   string
	logLevel string
	dev      bool
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}
	serve := newServeCmd(flags)

	root := &cobra.Command{
		Use:   "agentdesk",
		Short: "AgentDesk - terminal sessions for AI coding agents",
		Long: `AgentDesk runs AI coding agents (Claude Code, Codex, Aider, ...) in
pseudo-terminals, streams their output to the desktop UI, keeps a searchable
log of every session and tracks token usage reported by the agents.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		// Running the bare binary starts the server.
		RunE: serve.RunE,
	}

	root.PersistentFlags().StringVar(&flags.dbPath, "db", "", "database path (overrides AGENTDESK_DB_PATH)")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn, error (overrides LOG_LEVEL)")
	root.PersistentFlags().BoolVar(&flags.dev, "dev", false, "development logging (console, debug level)")
	root.Flags().AddFlagSet(serve.Flags())

	root.AddCommand(serve, newMigrateCmd(flags), newUsageCmd(flags))
	return root
}

// loadConfig reads the environment, then applies flags that were set.
func (f *globalFlags) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("db") {
		cfg.Storage.Path = f.dbPath
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level = f.logLevel
	}
	if cmd.Flags().Changed("dev") {
		cfg.Logging.Development = f.dev
	}
	return cfg, nil
}

// newLogger builds the process logger. CLI subcommands log to stderr so
// their stdout stays machine-readable.
func newLogger(cfg *config.Config, outputs ...string) (*logging.Logger, error) {
	logCfg := logging.DefaultConfig()
	if cfg.Logging.Development {
		logCfg = logging.DevelopmentConfig()
	}
	if cfg.Logging.Level != "" {
		logCfg.Level = cfg.Logging.Level
	}
	if len(outputs) > 0 {
		logCfg.OutputPaths = outputs
	}
	return logging.New(logCfg)
}

// openStore opens the database for a one-shot command.
func openStore(cfg *config.Config, logger *zap.Logger) (*storage.Store, error) {
	return storage.Open(cfg.Storage.Path, logger, storage.Options{
		BreakerFailures: cfg.Storage.BreakerFailures,
		BreakerTimeout:  cfg.Storage.BreakerTimeout,
	})
}
