package report

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
)

// SentryOptions configures the Sentry client. An empty DSN yields a client
// that drops every event, so reporting calls stay safe in development.
type SentryOptions struct {
	DSN         string
	Environment string
	Release     string
	Debug       bool
}

// SetupSentry initializes the global Sentry hub.
func SetupSentry(opts SentryOptions) error {
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              opts.DSN,
		Environment:      opts.Environment,
		Release:          opts.Release,
		EnableTracing:    true,
		Debug:            opts.Debug,
		TracesSampleRate: 1.0,
	}); err != nil {
		return fmt.Errorf("sentry.Init: %w", err)
	}
	if opts.DSN != "" {
		sentry.CaptureMessage("Bus tracker started")
	}
	return nil
}

func FlushSentry() {
	sentry.Flush(2 * time.Second)
}
