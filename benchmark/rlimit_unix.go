//go:build linux

package benchmark

import (
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// SetMaxResources raises the open file limit to its hard maximum and lets the
// Go runtime use up to 90% of the kernel's thread limit.
func SetMaxResources(logger *slog.Logger) error {
	const threadLimit = 10000
	rLimit := unix.Rlimit{}

	// Get the current max file descriptor limit
	err := unix.Getrlimit(unix.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		return fmt.Errorf("unable to get rlimit: %w", err)
	}

	// Set the open file limit to the system's maximum value
	rLimit.Cur = rLimit.Max
	err = unix.Setrlimit(unix.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		return fmt.Errorf("unable to set open file limit: %w", err)
	}

	threads, err := readLinuxMaxThreads()
	if err != nil {
		return fmt.Errorf("unable to read max threads: %w", err)
	}

	maxThreads := (int(threads) * 90) / 100
	if maxThreads > threadLimit {
		debug.SetMaxThreads(maxThreads)
	}

	logger.Debug("system resources adjusted",
		slog.Uint64("open_files", rLimit.Cur),
		slog.Int("max_threads", maxThreads))
	return nil
}

// readLinuxMaxThreads reads the max threads from /proc/sys/kernel/threads-max.
func readLinuxMaxThreads() (uint32, error) {
	data, err := os.ReadFile("/proc/sys/kernel/threads-max")
	if err != nil {
		return 0, err
	}
	threads, err := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("unable to parse max threads value: %w", err)
	}
	return uint32(threads), nil
}
