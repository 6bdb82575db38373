package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bouyassine11/AnalytIQ/internal/api"
)

var (
	srvAddr    string
	srvWorkers int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server for uploads, analysis results and chat",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		c := currentConfig()
		addr := srvAddr
		if addr == "" {
			addr = c.ListenAddr
		}
		st, closeStore, err := openStore(ctx, c)
		if err != nil {
			return err
		}
		defer closeStore()

		gen, err := newGenerator(c, runtimeOptions{})
		if err != nil {
			return err
		}
		svc := newService(c, st, gen, srvWorkers)

		srv := &http.Server{
			Addr:              addr,
			Handler:           api.New(svc, c.UploadDir, logger),
			ReadHeaderTimeout: 10 * time.Second,
		}
		errCh := make(chan error, 1)
		go func() {
			logger.Info("server listening", zap.String("addr", addr), zap.String("store", c.StoreDriver))
			errCh <- srv.ListenAndServe()
		}()
		fmt.Fprintf(cmd.OutOrStdout(), "✓ AnalytIQ listening on %s\n", addr)

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				svc.Close()
				return fmt.Errorf("listen: %w", err)
			}
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("server shutdown", zap.Error(err))
		}
		// queued analyses finish before the store closes
		return svc.Close()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&srvAddr, "addr", "", "listen address (default from config, :8000)")
	serveCmd.Flags().IntVar(&srvWorkers, "workers", 0, "concurrent analyses (default from config)")
}
