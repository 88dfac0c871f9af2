package gtfs

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	remoteGtfs "github.com/jamespfennell/gtfs"

	"bustracker.transport.org/internal/report"
)

// LoadStatic reads and parses a GTFS static bundle. source is either a
// local path or an http(s) URL.
func LoadStatic(ctx context.Context, client *http.Client, source string) (*remoteGtfs.Static, error) {
	var (
		data []byte
		err  error
	)
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		data, err = downloadStatic(ctx, client, source)
	} else {
		// Path comes from operator configuration.
		// #nosec G304
		data, err = os.ReadFile(source)
	}
	if err != nil {
		report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
			Tags: report.Tags("gtfs_source", source),
		})
		return nil, err
	}

	staticBundle, err := remoteGtfs.ParseStatic(data, remoteGtfs.ParseStaticOptions{})
	if err != nil {
		err = fmt.Errorf("failed to parse GTFS static data from %s: %w", source, err)
		report.ReportErrorWithSentryOptions(err, report.SentryReportOptions{
			ExtraContext: map[string]interface{}{"gtfs_source": source},
		})
		return nil, err
	}
	return staticBundle, nil
}

func downloadStatic(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for %s: %w", url, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make GET request to %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected response status %d when downloading GTFS bundle from %s", resp.StatusCode, url)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read GTFS bundle response body from %s: %w", url, err)
	}
	return data, nil
}
