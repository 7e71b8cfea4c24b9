package observability

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// WriteMetricsTextfile writes a Prometheus text-format snapshot of the
// gatherer to path. The file is written to a temporary name and renamed, so
// a textfile collector never reads a partial snapshot.
func WriteMetricsTextfile(path string, gatherer prometheus.Gatherer) error {
	err := prometheus.WriteToTextfile(path, gatherer)
	if err != nil {
		return fmt.Errorf("write metrics textfile %s: %w", path, err)
	}

	return nil
}
