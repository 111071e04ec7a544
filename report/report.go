// Package report prints the results of a load test.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
)

// nanoseconds per millisecond; latencies are recorded in ns and shown in ms
const msScale = float64(time.Millisecond)

var heading = color.New(color.FgCyan, color.Bold)

// DisplayLatency prints the percentile distribution of h in milliseconds
// followed by its summary statistics.
func DisplayLatency(w io.Writer, h *hdrhistogram.Histogram) error {
	heading.Fprintln(w, "Latency (ms):")
	if h.TotalCount() == 0 {
		fmt.Fprintln(w, "No samples recorded")
		return nil
	}
	if _, err := h.PercentilesPrint(w, 5, msScale); err != nil {
		return fmt.Errorf("failed to print percentiles: %w", err)
	}

	fmt.Fprintf(w, "Samples: %d\n", h.TotalCount())
	fmt.Fprintf(w, "Min: %.3f  Mean: %.3f  Max: %.3f  StdDev: %.3f\n",
		float64(h.Min())/msScale, h.Mean()/msScale, float64(h.Max())/msScale, h.StdDev()/msScale)
	for _, q := range []float64{50, 90, 99, 99.9} {
		fmt.Fprintf(w, "p%-5g %.3f\n", q, float64(h.ValueAtQuantile(q))/msScale)
	}
	return nil
}

// DisplayResults shows the summary of benchmark performance
func DisplayResults(w io.Writer, operation string, totalObjects int64, failed int64, duration time.Duration, totalData int64) {
	heading.Fprintf(w, "%s Results:\n", operation)
	fmt.Fprintf(w, "Duration: %s\n", duration.Round(time.Millisecond))
	fmt.Fprintf(w, "Total Objects Processed: %d\n", totalObjects)
	if failed > 0 {
		color.New(color.FgRed).Fprintf(w, "Failed Writes: %d\n", failed)
	}
	fmt.Fprintf(w, "Total Data: %s\n", humanize.IBytes(uint64(totalData)))

	if duration <= 0 {
		return
	}
	throughput := float64(totalData) / duration.Seconds()
	objectThroughput := float64(totalObjects) / duration.Seconds()
	fmt.Fprintf(w, "Data Throughput: %s/s\n", humanize.IBytes(uint64(throughput)))
	fmt.Fprintf(w, "Object Throughput: %.2f objects/s\n", objectThroughput)
}
