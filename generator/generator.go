// Package generator materializes synthetic test objects: directory trees of
// randomly filled files matching a filespec.Spec.
package generator

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"ocflbench/filespec"
)

// ErrIO is returned when the test object could not be written.
var ErrIO = errors.New("test object generation failed")

// Generator creates test objects beneath a root directory.
type Generator struct {
	root   string
	logger *slog.Logger
}

// New returns a Generator that creates objects under root. The root is created
// on first use if it does not exist.
func New(root string, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Generator{root: root, logger: logger}
}

// Root returns the directory test objects are created in.
func (g *Generator) Root() string { return g.root }

// Generate writes a new test object and returns the path to its directory.
// Files are named file-1.bin, file-2.bin, ... across all size groups, with
// smaller sizes numbered first. On error a partially written directory may be
// left behind and the returned path is still set so the caller can remove it.
func (g *Generator) Generate(spec filespec.Spec) (string, error) {
	objectPath := filepath.Join(g.root, uuid.NewString())
	if err := os.MkdirAll(objectPath, 0o755); err != nil {
		return "", fmt.Errorf("%w: %v", ErrIO, err)
	}

	var seed [32]byte
	for i := range 4 {
		v := rand.Uint64()
		for j := range 8 {
			seed[i*8+j] = byte(v >> (8 * j))
		}
	}
	rng := rand.NewChaCha8(seed)

	n := 1
	for _, size := range spec.Sizes() {
		for range spec[size] {
			path := filepath.Join(objectPath, fmt.Sprintf("file-%d.bin", n))
			if err := writeFile(path, size, rng); err != nil {
				return objectPath, err
			}
			n++
		}
	}
	return objectPath, nil
}

func writeFile(path string, size int64, rng *rand.ChaCha8) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}

	buf := getBuffer()
	defer putBuffer(buf)
	chunk := *buf

	w := bufio.NewWriterSize(f, ChunkSize)
	for written := int64(0); written < size; {
		n := int64(len(chunk))
		if remaining := size - written; remaining < n {
			n = remaining
		}
		_, _ = rng.Read(chunk[:n])
		if _, err := w.Write(chunk[:n]); err != nil {
			f.Close()
			return fmt.Errorf("%w: write %s: %v", ErrIO, path, err)
		}
		written += n
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("%w: flush %s: %v", ErrIO, path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %v", ErrIO, path, err)
	}
	return nil
}

// Remove deletes a test object directory. Failures are logged and otherwise
// ignored.
func (g *Generator) Remove(objectPath string) {
	if objectPath == "" {
		return
	}
	if err := os.RemoveAll(objectPath); err != nil {
		g.logger.Warn("failed to remove test object", slog.String("path", objectPath), slog.Any("err", err))
	}
}
