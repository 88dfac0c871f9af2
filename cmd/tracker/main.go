package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"

	"bustracker.transport.org/internal/app"
	"bustracker.transport.org/internal/config"
	"bustracker.transport.org/internal/metrics"
	"bustracker.transport.org/internal/publisher"
	"bustracker.transport.org/internal/report"
)

const version = "1.0.0"

func main() {
	var (
		configFile = flag.String("config-file", "", "Path to an optional YAML configuration file")
		port       = flag.Int("port", 0, "API server port (overrides PORT)")
		env        = flag.String("env", "", "Environment (development|staging|production|testing)")
	)
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error loading configuration:", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *env != "" {
		cfg.Env = *env
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		flag.Usage()
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))

	if err := report.SetupSentry(report.SentryOptions{
		DSN:         cfg.SentryDSN,
		Environment: cfg.Env,
		Release:     version,
		Debug:       cfg.Env == "development" && cfg.SentryDSN != "",
	}); err != nil {
		logger.Error("Failed to initialize Sentry", "error", err)
		os.Exit(1)
	}
	defer report.FlushSentry()
	report.ConfigureScope(cfg.Env, version)

	if err := run(cfg, logger); err != nil {
		report.ReportError(err, sentry.LevelFatal)
		report.FlushSentry()
		logger.Error(err.Error())
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	collector := metrics.NewCollector()
	client := app.NewPooledClient(collector)

	st, err := openStore(ctx, cfg, client, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	deps := app.Deps{Store: st, Metrics: collector, Logger: logger}

	if cfg.NATS.URL != "" {
		pub, err := publisher.NewNATSPublisher(cfg.NATS.URL, publisher.Options{
			SubjectPrefix: cfg.NATS.SubjectPrefix,
			LogSubjects:   cfg.NATS.LogSubjects,
			Metrics:       collector,
			Logger:        logger,
		})
		if err != nil {
			return err
		}
		defer pub.Close()
		deps.Publisher = pub
		logger.Info("Publishing ETAs to NATS", "url", cfg.NATS.URL, "prefix", cfg.NATS.SubjectPrefix)
	}

	application := app.New(cfg, deps, version)
	application.StartBackground(ctx)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      application.Routes(ctx),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", srv.Addr, "env", cfg.Env)
		serverErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	logger.Info("shutdown complete")
	return nil
}
