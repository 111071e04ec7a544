//go:build windows

package benchmark

import (
	"log/slog"
	"runtime/debug"
)

// SetMaxResources raises the Go runtime thread limit. Windows has no open file
// limit to adjust.
func SetMaxResources(logger *slog.Logger) error {
	const maxThreads = 8000
	debug.SetMaxThreads(maxThreads)

	logger.Debug("system resources adjusted", slog.Int("max_threads", maxThreads))
	return nil
}
