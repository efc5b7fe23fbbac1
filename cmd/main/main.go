package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"

	"cost-recon/internal/config"
	serverhttp "cost-recon/server/http"
)

func main() {
	cfg := config.Load()
	logger := config.SetupLogger(cfg)
	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("cost-recon stopped")
	}
}

func run(cfg config.Config, logger zerolog.Logger) error {
	kw, err := config.LoadKeywords(cfg.KeywordsFile)
	if err != nil {
		return err
	}
	cfg.Keywords = kw

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           serverhttp.NewRouter(cfg, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", cfg.Addr()).
			Str("specs_dir", cfg.SpecsDir).
			Str("price_root", cfg.PriceRoot).
			Float64("fuzzy_threshold", cfg.FuzzyThreshold).
			Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- eris.Wrap(err, "listen")
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	// batches can take a while; give running requests time to finish
	logger.Info().Msg("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return eris.Wrap(err, "shutdown")
	}
	logger.Info().Msg("bye")
	return nil
}
