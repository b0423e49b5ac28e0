package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/andy/kaitenbill/internal/api"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the JSON API for the embedded dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := appInstance.Config
		logger := appInstance.Logger.Named("api")

		addr := cfg.Server.Addr
		if cmd.Flags().Changed("addr") {
			addr, _ = cmd.Flags().GetString("addr")
		}

		if os.Getenv(gin.EnvGinMode) == "" {
			gin.SetMode(gin.ReleaseMode)
		}

		router := api.NewRouter(&api.Handler{
			Boards:   appInstance.Boards,
			Ledger:   appInstance.Ledger,
			Invoices: appInstance.Invoices,
			Embed: api.EmbedConfig{
				ContainerID: cfg.Server.ContainerID,
				APIURL:      cfg.Kaiten.APIURL,
			},
			Rate:     cfg.Invoice.Rate(),
			Currency: cfg.Invoice.Currency,
			Logger:   logger,
		})

		srv := &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		logger.Info("Starting server", zap.String("addr", addr))
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigCh)

		select {
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		case sig := <-sigCh:
			logger.Info("Shutdown initiated", zap.String("signal", sig.String()))
		}

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Error shutting down server", zap.Error(err))
			return err
		}
		logger.Info("HTTP server shut down gracefully")
		return nil
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (defaults to server.addr from the config)")
}
