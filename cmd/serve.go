package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	coreservice "github.com/adalundhe/remembrance/core/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the memory service with periodic decay and persistence",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	manager, gateway, logger, err := openEnv()
	if err != nil {
		return err
	}

	engine, err := coreservice.New(coreservice.Options{
		Config:  manager.Get(),
		Gateway: gateway,
		Logger:  logger,
	})
	if err != nil {
		return err
	}
	defer engine.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := manager.Watch(ctx); err != nil && ctx.Err() == nil {
			logger.Warn("config watch stopped", "error", err)
		}
	}()

	logger.Info("memory service running")
	return engine.Run(ctx)
}
