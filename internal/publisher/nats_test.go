package publisher

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bustracker.transport.org/internal/eta"
	"bustracker.transport.org/internal/models"
)

var _ eta.Publisher = (*NATSPublisher)(nil)

type fakeConn struct {
	subjects []string
	payloads [][]byte
	err      error
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	f.subjects = append(f.subjects, subject)
	f.payloads = append(f.payloads, data)
	return f.err
}

type countingMetrics struct {
	ok, failed int
	connected  bool
}

func (m *countingMetrics) PublishSucceeded()       { m.ok++ }
func (m *countingMetrics) PublishFailed()          { m.failed++ }
func (m *countingMetrics) SetNATSConnected(c bool) { m.connected = c }

func sampleComputation() eta.Computation {
	current := int64(4)
	return eta.Computation{
		Bus:              models.Bus{ID: 1, Number: "B 12", IsActive: true},
		RequestedRouteID: 4,
		Result: models.ETAResult{
			BusNumber:            "B 12",
			EstimatedArrivalText: "Arriving in 3 minutes",
			CurrentRouteID:       &current,
		},
		Detail: models.ETADetail{
			DistanceKm:  1.2,
			AvgSpeedKmh: 24,
			TargetStop:  &models.Stop{ID: 9, Order: 5, Name: "Market"},
			Mode:        models.ModeSameRoute,
			ETAMinutes:  3,
		},
		ComputedAt: time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC),
	}
}

func TestSubjectToken(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"B-12", "B-12"},
		{" B 12 ", "B_12"},
		{"a.b", "a_b"},
		{"x>y*z", "x_y_z"},
		{"line/7", "line_7"},
		{"", "_"},
		{"   ", "_"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, subjectToken(tt.in))
		})
	}
}

func TestPublishETA(t *testing.T) {
	nc := &fakeConn{}
	m := &countingMetrics{}
	p := newPublisher(nc, Options{SubjectPrefix: "fleet.eta.", Metrics: m})

	require.NoError(t, p.PublishETA(sampleComputation()))
	require.Len(t, nc.subjects, 1)
	assert.Equal(t, "fleet.eta.B_12.4", nc.subjects[0])
	assert.Equal(t, 1, m.ok)

	var msg ETAMessage
	require.NoError(t, json.Unmarshal(nc.payloads[0], &msg))
	assert.Equal(t, "B 12", msg.BusNumber)
	assert.Equal(t, int64(4), msg.RouteID)
	assert.Equal(t, models.ModeSameRoute, msg.Mode)
	assert.Equal(t, 3, msg.ETAMinutes)
	require.NotNil(t, msg.TargetStopOrder)
	assert.Equal(t, 5, *msg.TargetStopOrder)
}

func TestPublishETACrossRoute(t *testing.T) {
	nc := &fakeConn{}
	p := newPublisher(nc, Options{})

	c := sampleComputation()
	c.RequestedRouteID = 6
	c.Detail = models.ETADetail{
		DistanceKm:  models.NotApplicable,
		AvgSpeedKmh: models.NotApplicable,
		Mode:        models.ModeCrossRoute,
		ETAMinutes:  240,
	}
	require.NoError(t, p.PublishETA(c))
	assert.Equal(t, "eta.B_12.6", nc.subjects[0])

	var raw map[string]any
	require.NoError(t, json.Unmarshal(nc.payloads[0], &raw))
	assert.NotContains(t, raw, "target_stop_order")
	assert.Equal(t, -1.0, raw["distance_km"])
}

func TestPublishETAFailure(t *testing.T) {
	nc := &fakeConn{err: errors.New("connection closed")}
	m := &countingMetrics{}
	p := newPublisher(nc, Options{Metrics: m})

	err := p.PublishETA(sampleComputation())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "eta.B_12.4")
	assert.Equal(t, 1, m.failed)
	assert.Zero(t, m.ok)

	p.Close()
}
