package publisher

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"bustracker.transport.org/internal/eta"
	"bustracker.transport.org/internal/models"
)

// PublisherMetrics is implemented by metrics.Collector.
type PublisherMetrics interface {
	PublishSucceeded()
	PublishFailed()
	SetNATSConnected(connected bool)
}

// conn is the part of *nats.Conn the publisher needs.
type conn interface {
	Publish(subject string, data []byte) error
}

// NATSPublisher publishes freshly computed ETAs as JSON on
// <prefix>.<bus number>.<route id>.
type NATSPublisher struct {
	nc          conn
	closer      *nats.Conn
	prefix      string
	logSubjects bool
	metrics     PublisherMetrics
	logger      *slog.Logger
}

// Options configures a NATSPublisher.
type Options struct {
	SubjectPrefix string
	LogSubjects   bool
	Metrics       PublisherMetrics
	Logger        *slog.Logger
}

// NewNATSPublisher connects to url. Connection state changes are logged and
// exported through Options.Metrics.
func NewNATSPublisher(url string, opts Options) (*NATSPublisher, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	m := opts.Metrics

	nc, err := nats.Connect(url,
		nats.Name("bus-tracker"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if m != nil {
				m.SetNATSConnected(false)
			}
			logger.Warn("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			if m != nil {
				m.SetNATSConnected(true)
			}
			logger.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			if m != nil {
				m.SetNATSConnected(false)
			}
			logger.Info("nats connection closed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats at %s: %w", url, err)
	}
	if m != nil {
		m.SetNATSConnected(true)
	}

	p := newPublisher(nc, opts)
	p.closer = nc
	return p, nil
}

func newPublisher(nc conn, opts Options) *NATSPublisher {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	prefix := strings.Trim(strings.TrimSpace(opts.SubjectPrefix), ".")
	if prefix == "" {
		prefix = "eta"
	}
	return &NATSPublisher{
		nc:          nc,
		prefix:      prefix,
		logSubjects: opts.LogSubjects,
		metrics:     opts.Metrics,
		logger:      logger,
	}
}

// Close drains pending messages and closes the connection.
func (p *NATSPublisher) Close() {
	if p.closer == nil {
		return
	}
	if err := p.closer.Drain(); err != nil {
		p.logger.Warn("nats drain failed", "error", err)
		p.closer.Close()
	}
}

// ETAMessage is the JSON payload of a published ETA.
type ETAMessage struct {
	BusNumber            string      `json:"bus_number"`
	RouteID              int64       `json:"route_id"`
	CurrentRouteID       *int64      `json:"current_route_id"`
	Mode                 models.Mode `json:"mode"`
	ETAMinutes           int         `json:"eta_minutes"`
	EstimatedArrivalText string      `json:"estimated_arrival_time"`
	DistanceKm           float64     `json:"distance_km"`
	AvgSpeedKmh          float64     `json:"avg_speed_kmh"`
	TargetStopOrder      *int        `json:"target_stop_order,omitempty"`
	SpeedDegraded        bool        `json:"speed_degraded"`
	ComputedAt           time.Time   `json:"computed_at"`
}

func newETAMessage(c eta.Computation) ETAMessage {
	msg := ETAMessage{
		BusNumber:            c.Result.BusNumber,
		RouteID:              c.RequestedRouteID,
		CurrentRouteID:       c.Result.CurrentRouteID,
		Mode:                 c.Detail.Mode,
		ETAMinutes:           c.Detail.ETAMinutes,
		EstimatedArrivalText: c.Result.EstimatedArrivalText,
		DistanceKm:           c.Detail.DistanceKm,
		AvgSpeedKmh:          c.Detail.AvgSpeedKmh,
		SpeedDegraded:        c.Detail.SpeedDegraded,
		ComputedAt:           c.ComputedAt.UTC(),
	}
	if c.Detail.TargetStop != nil {
		order := c.Detail.TargetStop.Order
		msg.TargetStopOrder = &order
	}
	return msg
}

// Subject returns the subject a computation is published on.
func (p *NATSPublisher) Subject(c eta.Computation) string {
	return fmt.Sprintf("%s.%s.%s", p.prefix,
		subjectToken(c.Result.BusNumber),
		subjectToken(strconv.FormatInt(c.RequestedRouteID, 10)))
}

// PublishETA implements eta.Publisher.
func (p *NATSPublisher) PublishETA(c eta.Computation) error {
	subject := p.Subject(c)
	b, err := json.Marshal(newETAMessage(c))
	if err != nil {
		return fmt.Errorf("marshal eta for %s: %w", subject, err)
	}
	if p.logSubjects {
		p.logger.Debug("nats publish", "subject", subject)
	}

	err = p.nc.Publish(subject, b)
	if p.metrics != nil {
		if err != nil {
			p.metrics.PublishFailed()
		} else {
			p.metrics.PublishSucceeded()
		}
	}
	if err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}
	return nil
}

func subjectToken(s string) string {
	s = strings.TrimSpace(s)
	// NATS tokens cannot contain whitespace, '.', '>' or '*'.
	repl := strings.NewReplacer(" ", "_", ".", "_", ">", "_", "*", "_", "/", "_", "\t", "_")
	s = repl.Replace(s)
	if s == "" {
		s = "_"
	}
	return s
}
