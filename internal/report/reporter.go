package report

import (
	"context"
	"os"
	"runtime"
	"strconv"

	"github.com/getsentry/sentry-go"
)

// ConfigureScope sets global Sentry scope tags and context related to the runtime and host.
func ConfigureScope(env, version string) {
	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("service", "bus-tracker")
		scope.SetTag("env", env)
		scope.SetTag("app_version", version)
		scope.SetTag("go_version", runtime.Version())
		scope.SetContext("host_info", sentry.Context{
			"hostname": hostname(),
			"goarch":   runtime.GOARCH,
		})
	})
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return h
}

// ReportError reports err at the given level, sentry.LevelError by default.
func ReportError(err error, levels ...sentry.Level) {
	level := sentry.LevelError
	if len(levels) > 0 {
		level = levels[0]
	}
	ReportErrorWithSentryOptions(err, SentryReportOptions{Level: level})
}

// BusContext identifies the bus an error is about.
type BusContext struct {
	Number string
	// RouteID is the requested route; zero means the bus's current route.
	RouteID   int64
	StopOrder *int
}

func (b BusContext) apply(scope *sentry.Scope) {
	scope.SetTag("bus_number", b.Number)
	ctx := sentry.Context{"number": b.Number}
	if b.RouteID != 0 {
		id := strconv.FormatInt(b.RouteID, 10)
		scope.SetTag("route_id", id)
		ctx["route_id"] = b.RouteID
	}
	if b.StopOrder != nil {
		ctx["stop_order"] = *b.StopOrder
	}
	scope.SetContext("bus", ctx)
}

// SentryReportOptions provides optional data for reporting.
type SentryReportOptions struct {
	ExtraContext map[string]interface{}
	Tags         map[string]string
	Level        sentry.Level
	Bus          *BusContext
}

func (o SentryReportOptions) apply(scope *sentry.Scope) {
	if o.ExtraContext != nil {
		scope.SetContext("extra", o.ExtraContext)
	}
	scope.SetTags(o.Tags)
	if o.Bus != nil && o.Bus.Number != "" {
		o.Bus.apply(scope)
	}
	if o.Level != "" {
		scope.SetLevel(o.Level)
	}
}

// ReportErrorWithSentryOptions reports the error with additional options (tags, context, level).
func ReportErrorWithSentryOptions(err error, opts SentryReportOptions) {
	reportOnHub(sentry.CurrentHub(), err, opts)
}

// ReportRequestError reports err on the hub attached to ctx by the HTTP
// middleware, so request tags travel with the event. Without a request hub it
// behaves like ReportErrorWithSentryOptions.
func ReportRequestError(ctx context.Context, err error, opts SentryReportOptions) {
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	reportOnHub(hub, err, opts)
}

func reportOnHub(hub *sentry.Hub, err error, opts SentryReportOptions) {
	if err == nil {
		return
	}
	hub.WithScope(func(scope *sentry.Scope) {
		opts.apply(scope)
		hub.CaptureException(err)
	})
}

// Tags builds a tag map from alternating key/value pairs. A trailing key
// without a value is dropped.
func Tags(kv ...string) map[string]string {
	m := make(map[string]string, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		m[kv[i]] = kv[i+1]
	}
	return m
}
