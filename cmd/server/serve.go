package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentDesk/backend/internal/infrastructure/server"
)

type serveFlags struct {
	port    string
	host    string
	presets string
	restore bool
}

func newServeCmd(global *globalFlags) *cobra.Command {
	flags := &serveFlags{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and WebSocket server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := global.loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = flags.port
			}
			if cmd.Flags().Changed("host") {
				cfg.Server.Host = flags.host
			}
			if cmd.Flags().Changed("presets") {
				cfg.Terminal.PresetsFile = flags.presets
			}

			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer logger.Close()

			srv, err := server.NewServer(cfg, logger)
			if err != nil {
				logger.Error("Failed to create server", zap.Error(err))
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := srv.Start(ctx, flags.restore); err != nil {
				// Stale statuses only affect what can be restored later.
				logger.Warn("Saved sessions not reconciled", zap.Error(err))
			}

			if err := srv.Run(ctx); err != nil {
				logger.Error("Server stopped with error", zap.Error(err))
				return err
			}
			logger.Info("Server stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&flags.port, "port", "8000", "listen port (overrides PORT)")
	cmd.Flags().StringVar(&flags.host, "host", "127.0.0.1", "listen host (overrides HOST)")
	cmd.Flags().StringVar(&flags.presets, "presets", "", "preset YAML file (overrides TERM_PRESETS_FILE)")
	cmd.Flags().BoolVar(&flags.restore, "restore", false, "relaunch sessions that were running at the last shutdown")
	return cmd
}
