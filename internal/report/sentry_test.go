package report_test

import (
	"errors"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bustracker.transport.org/internal/report"
)

func TestSetupSentry(t *testing.T) {
	t.Run("Valid DSN", func(t *testing.T) {
		err := report.SetupSentry(report.SentryOptions{
			DSN:         "https://public@sentry.example.com/1",
			Environment: "testing",
		})
		require.NoError(t, err)
		report.FlushSentry()
	})

	t.Run("Empty DSN", func(t *testing.T) {
		require.NoError(t, report.SetupSentry(report.SentryOptions{}))
		report.ConfigureScope("testing", "0.0.0")
		report.ReportError(errors.New("boom"))
		report.ReportErrorWithSentryOptions(errors.New("boom"), report.SentryReportOptions{
			Tags:  report.Tags("bus_number", "B-12"),
			Level: sentry.LevelWarning,
		})
		report.ReportError(nil)
	})

	t.Run("Malformed DSN", func(t *testing.T) {
		err := report.SetupSentry(report.SentryOptions{DSN: "::not a dsn"})
		assert.Error(t, err)
	})
}

func TestTags(t *testing.T) {
	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, report.Tags("a", "1", "b", "2"))
	assert.Equal(t, map[string]string{"a": "1"}, report.Tags("a", "1", "dangling"))
	assert.Empty(t, report.Tags())
}
