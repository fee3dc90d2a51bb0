package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"patentrag/internal/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve POST / and the MCP endpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		rebuild, _ := cmd.Flags().GetBool("rebuild")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := app.New(ctx, currentConfig, logger, app.Options{
			Runtime: app.RuntimeOptions{Rebuild: rebuild},
			Version: version,
		})
		if err != nil {
			return err
		}

		errCh := make(chan error, 1)
		go func() { errCh <- a.Start() }()

		select {
		case err := <-errCh:
			return errors.Join(err, a.Shutdown(context.Background()))
		case <-ctx.Done():
		}
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), currentConfig.ShutdownTimeout())
		defer cancel()
		if err := a.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return <-errCh
	},
}

func init() {
	serveCmd.Flags().Bool("rebuild", false, "rebuild the index from the corpus before serving")
	serveCmd.Flags().String("addr", "", "listen address")
	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
}
