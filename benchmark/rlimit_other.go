//go:build !linux && !windows

package benchmark

import "log/slog"

// SetMaxResources leaves the resource limits alone.
func SetMaxResources(logger *slog.Logger) error {
	logger.Debug("system resource limits left unchanged")
	return nil
}
