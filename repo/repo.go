// Package repo implements a versioned, content-addressed object repository on
// top of a storage.Store. It is the client the benchmark drives: objects are
// written as new versions from a local directory and purged afterwards.
package repo

import (
	"bytes"
	"context"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"ocflbench/storage"
)

// ErrInvalidObjectID is returned for an empty object id.
var ErrInvalidObjectID = errors.New("invalid object id")

// VersionInfo describes who created a version and why.
type VersionInfo struct {
	UserName    string
	UserAddress string
	Message     string
}

// Task is one unit of work handed to a Fanout.
type Task func(ctx context.Context) error

// Fanout runs every task and returns once all of them have returned, reporting
// the first error.
type Fanout func(ctx context.Context, tasks []Task) error

// Sequential runs tasks one after another in the calling goroutine, stopping at
// the first error.
func Sequential(ctx context.Context, tasks []Task) error {
	for _, task := range tasks {
		if err := task(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Repository is the object repository interface used by the benchmark.
// Implementations must be safe for concurrent use.
type Repository interface {
	// PutObject writes the files under srcDir as the new head version of objectID.
	PutObject(ctx context.Context, objectID, srcDir string, info VersionInfo) error

	// PutObjectConcurrent is PutObject with per-file uploads run through fan.
	PutObjectConcurrent(ctx context.Context, objectID, srcDir string, info VersionInfo, fan Fanout) error

	// PurgeObject removes every version of objectID. Purging a missing object
	// is not an error.
	PurgeObject(ctx context.Context, objectID string) error
}

// OCFL stores objects in an OCFL style layout: a hashed n-tuple object root
// holding an inventory and one directory per version.
type OCFL struct {
	store  storage.Store
	logger *slog.Logger
	now    func() time.Time
}

// Option configures an OCFL repository.
type Option func(*OCFL)

// WithLogger sets the logger. If not set, logging is disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(r *OCFL) {
		r.logger = logger
	}
}

// New returns a repository writing to store.
func New(store storage.Store, opts ...Option) *OCFL {
	r := &OCFL{
		store:  store,
		logger: slog.New(slog.DiscardHandler),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// PutObject writes srcDir as a new version, uploading files one at a time.
func (r *OCFL) PutObject(ctx context.Context, objectID, srcDir string, info VersionInfo) error {
	return r.PutObjectConcurrent(ctx, objectID, srcDir, info, Sequential)
}

type stagedFile struct {
	relPath string
	digest  string
	stored  bool
}

// PutObjectConcurrent writes srcDir as a new version. Each file is digested and,
// unless identical content is already stored, uploaded as its own task. The
// inventory is written only after every task succeeded.
func (r *OCFL) PutObjectConcurrent(ctx context.Context, objectID, srcDir string, info VersionInfo, fan Fanout) error {
	if objectID == "" {
		return ErrInvalidObjectID
	}
	if fan == nil {
		fan = Sequential
	}

	root := objectRoot(objectID)
	inv, err := r.loadInventory(ctx, root, objectID)
	if err != nil {
		return err
	}
	versionName, err := inv.nextVersion()
	if err != nil {
		return err
	}

	relPaths, err := listFiles(srcDir)
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", srcDir, err)
	}

	staged := make([]stagedFile, len(relPaths))
	tasks := make([]Task, len(relPaths))
	for i, rel := range relPaths {
		tasks[i] = func(ctx context.Context) error {
			digest, stored, err := r.putFile(ctx, inv, filepath.Join(srcDir, filepath.FromSlash(rel)), contentKey(root, versionName, rel))
			if err != nil {
				return err
			}
			staged[i] = stagedFile{relPath: rel, digest: digest, stored: stored}
			return nil
		}
	}
	if err := fan(ctx, tasks); err != nil {
		return err
	}

	v := &version{
		Created: r.now().UTC().Truncate(time.Second),
		Message: info.Message,
		State:   map[string][]string{},
	}
	if info.UserName != "" {
		v.User = &user{Name: info.UserName, Address: info.UserAddress}
	}
	for _, f := range staged {
		if f.stored {
			inv.Manifest[f.digest] = append(inv.Manifest[f.digest], versionName+"/"+contentDir+"/"+f.relPath)
		}
		v.State[f.digest] = append(v.State[f.digest], f.relPath)
	}
	inv.Versions[versionName] = v
	inv.Head = versionName

	data, err := inv.encode()
	if err != nil {
		return err
	}
	if err := r.store.Put(ctx, inventoryKey(root), bytes.NewReader(data), int64(len(data))); err != nil {
		return fmt.Errorf("failed to write inventory for %s: %w", objectID, err)
	}

	r.logger.Debug("object written", slog.String("id", objectID), slog.String("version", versionName), slog.Int("files", len(staged)))
	return nil
}

// putFile digests path and uploads it under key unless the repository already
// holds content with the same digest. inv is only read here.
func (r *OCFL) putFile(ctx context.Context, inv *inventory, path, key string) (digest string, stored bool, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", false, err
	}
	defer f.Close()

	h := sha512.New()
	size, err := io.Copy(h, f)
	if err != nil {
		return "", false, fmt.Errorf("failed to digest %s: %w", path, err)
	}
	digest = hex.EncodeToString(h.Sum(nil))
	if inv.hasDigest(digest) {
		return digest, false, nil
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", false, err
	}
	if err := r.store.Put(ctx, key, f, size); err != nil {
		return "", false, err
	}
	return digest, true, nil
}

// PurgeObject deletes the inventory first so a partially purged object is
// never visible, then everything else under the object root.
func (r *OCFL) PurgeObject(ctx context.Context, objectID string) error {
	if objectID == "" {
		return ErrInvalidObjectID
	}
	root := objectRoot(objectID)

	keys, err := r.store.List(ctx, root+"/")
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", objectID, err)
	}
	if err := r.store.Delete(ctx, inventoryKey(root)); err != nil {
		return fmt.Errorf("failed to purge %s: %w", objectID, err)
	}
	for _, key := range keys {
		if key == inventoryKey(root) {
			continue
		}
		if err := r.store.Delete(ctx, key); err != nil {
			return fmt.Errorf("failed to purge %s: %w", objectID, err)
		}
	}
	return nil
}

func (r *OCFL) loadInventory(ctx context.Context, root, objectID string) (*inventory, error) {
	data, err := r.store.Get(ctx, inventoryKey(root))
	if errors.Is(err, storage.ErrNotFound) {
		return newInventory(objectID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read inventory for %s: %w", objectID, err)
	}
	inv, err := decodeInventory(data)
	if err != nil {
		return nil, err
	}
	if inv.ID != objectID {
		return nil, fmt.Errorf("corrupt inventory: object root of %q holds %q", objectID, inv.ID)
	}
	return inv, nil
}

// listFiles returns the slash separated paths of all regular files under dir.
func listFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Sort(files)
	return files, nil
}
