package main

import (
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	orchestrators "github.com/ochairo/unitynuget/internal/domain-orchestrators"
	"github.com/ochairo/unitynuget/internal/domain/interfaces"
	"github.com/ochairo/unitynuget/internal/external-adapters/server"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the periodic build and serve the registry over HTTP",
	Example: `  unitynuget serve
  UNITYNUGET_LISTEN=:8080 unitynuget serve --config ./unitynuget.yaml`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := newApp(settings, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go a.fetcher.RefreshDNS(ctx, dnsRefreshInterval)

	scheduler := orchestrators.NewScheduler(a.orchestrator, a.report, a.lock, orchestrators.SchedulerConfig{
		UpdateInterval: settings.UpdateInterval,
		RetryInterval:  settings.RetryInterval,
	}, logger)

	var publicKey []byte
	if a.signer != nil {
		if publicKey, err = a.signer.PublicKey(); err != nil {
			return err
		}
	}

	go func() {
		if err := scheduler.Start(ctx); err != nil && !errors.Is(err, ctx.Err()) {
			logger.Error("scheduler stopped", interfaces.Err(err))
		}
	}()

	srv := server.New(scheduler, a.breakers, publicKey, logger)
	if err := srv.Start(ctx, settings.Listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}
