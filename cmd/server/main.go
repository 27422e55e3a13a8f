package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/ryabkov82/bulk-import/internal/client"
	"github.com/ryabkov82/bulk-import/internal/config"
	"github.com/ryabkov82/bulk-import/internal/httpapi"
	"github.com/ryabkov82/bulk-import/internal/importer"
	"github.com/ryabkov82/bulk-import/internal/job"
	"github.com/ryabkov82/bulk-import/internal/logger"
	"github.com/ryabkov82/bulk-import/internal/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger.Init(logger.Options{
		Level:        cfg.Log.Level,
		Format:       cfg.Log.Format,
		Service:      version.Name,
		WithCaller:   cfg.Log.Caller,
		StaticFields: map[string]string{"version": version.Version},
	})
	log := logger.Named("server")
	log.Info().Str("version", version.String()).Msg("starting")

	store := job.NewStoreWithCapacity(cfg.Server.QueueSize)

	im := importer.New(importer.Options{
		Defaults:  cfg.Import.Defaults(),
		Gzip:      cfg.Delivery.Gzip,
		BasicUser: cfg.Delivery.BasicUser,
		BasicPass: cfg.Delivery.BasicPass,
		Logger:    logger.Named("importer"),
	})

	w := &worker{
		store:          store,
		importer:       im,
		allowedBaseDir: cfg.Input.AllowedBaseDir,
		log:            logger.Named("worker"),
	}
	if hook := client.NewRefreshHook(cfg.Delivery.RefreshURL, cfg.Delivery.RefreshTimeout); hook.Enabled() {
		w.refresher = hook
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		w.run(ctx)
	}()

	handler, err := httpapi.NewHandler(store, httpapi.HandlerOptions{
		AllowedBaseDir: cfg.Input.AllowedBaseDir,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		Logger:         logger.Named("http"),
	})
	if err != nil {
		return err
	}
	router := httpapi.SetupRouter(handler, httpapi.RouterOptions{
		APIKey: cfg.Auth.APIKey,
		CORS: httpapi.CORSOptions{
			AllowedOrigins: config.SplitList(cfg.CORS.AllowedOrigins),
			AllowedMethods: config.SplitList(cfg.CORS.AllowedMethods),
			AllowedHeaders: config.SplitList(cfg.CORS.AllowedHeaders),
			MaxAge:         cfg.CORS.MaxAge,
		},
	})

	server := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case err := <-serveErr:
		if err != nil {
			stop()
			<-workerDone
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}

	select {
	case <-workerDone:
	case <-shutdownCtx.Done():
		log.Warn().Msg("worker did not stop before shutdown timeout")
	}

	log.Info().Msg("server stopped")
	return nil
}
