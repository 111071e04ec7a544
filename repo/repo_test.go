package repo

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ocflbench/storage"
)

func newTestRepo(t *testing.T) (*OCFL, *storage.Local) {
	t.Helper()
	store, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)
	return New(store), store
}

func writeSource(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func TestObjectRoot(t *testing.T) {
	root := objectRoot("object-1")
	parts := strings.Split(root, "/")
	require.Len(t, parts, 4)
	assert.Len(t, parts[3], 16)
	assert.Equal(t, parts[3][:3], parts[0])
	assert.Equal(t, parts[3][3:6], parts[1])
	assert.Equal(t, parts[3][6:9], parts[2])

	assert.Equal(t, root, objectRoot("object-1"))
	assert.NotEqual(t, root, objectRoot("object-2"))
}

func TestPutObject(t *testing.T) {
	ctx := context.Background()
	r, store := newTestRepo(t)
	src := writeSource(t, map[string]string{"file-1.bin": "one", "sub/file-2.bin": "two"})

	info := VersionInfo{UserName: "bench", UserAddress: "bench@example.com", Message: "testing"}
	require.NoError(t, r.PutObject(ctx, "obj", src, info))

	root := objectRoot("obj")
	inv, err := r.loadInventory(ctx, root, "obj")
	require.NoError(t, err)
	assert.Equal(t, "v1", inv.Head)
	assert.Equal(t, "obj", inv.ID)
	assert.Equal(t, digestAlgorithm, inv.DigestAlgorithm)
	assert.Len(t, inv.Manifest, 2)
	require.Contains(t, inv.Versions, "v1")
	assert.Equal(t, "testing", inv.Versions["v1"].Message)
	assert.Equal(t, "bench", inv.Versions["v1"].User.Name)

	got, err := store.Get(ctx, contentKey(root, "v1", "sub/file-2.bin"))
	require.NoError(t, err)
	assert.Equal(t, "two", string(got))
}

func TestPutObject_NewVersionDeduplicatesContent(t *testing.T) {
	ctx := context.Background()
	r, store := newTestRepo(t)
	src := writeSource(t, map[string]string{"a": "same", "b": "changes"})

	require.NoError(t, r.PutObject(ctx, "obj", src, VersionInfo{}))
	require.NoError(t, os.WriteFile(filepath.Join(src, "b"), []byte("changed"), 0o644))
	require.NoError(t, r.PutObject(ctx, "obj", src, VersionInfo{}))

	root := objectRoot("obj")
	inv, err := r.loadInventory(ctx, root, "obj")
	require.NoError(t, err)
	assert.Equal(t, "v2", inv.Head)
	assert.Len(t, inv.Versions, 2)
	assert.Len(t, inv.Manifest, 3)

	_, err = store.Get(ctx, contentKey(root, "v2", "a"))
	require.ErrorIs(t, err, storage.ErrNotFound, "unchanged content is not stored twice")
	_, err = store.Get(ctx, contentKey(root, "v2", "b"))
	require.NoError(t, err)
}

func TestPutObjectConcurrent_UsesFanout(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRepo(t)
	src := writeSource(t, map[string]string{"1": "a", "2": "b", "3": "c", "4": "d", "5": "e"})

	var ran atomic.Int32
	fan := func(ctx context.Context, tasks []Task) error {
		errc := make(chan error, len(tasks))
		for _, task := range tasks {
			go func() {
				errc <- task(ctx)
				ran.Add(1)
			}()
		}
		var first error
		for range tasks {
			if err := <-errc; err != nil && first == nil {
				first = err
			}
		}
		return first
	}

	require.NoError(t, r.PutObjectConcurrent(ctx, "obj", src, VersionInfo{}, fan))
	assert.Equal(t, int32(5), ran.Load())

	inv, err := r.loadInventory(ctx, objectRoot("obj"), "obj")
	require.NoError(t, err)
	assert.Len(t, inv.Versions["v1"].State, 5)
}

func TestPutObjectConcurrent_TaskFailureFailsWrite(t *testing.T) {
	ctx := context.Background()
	r, store := newTestRepo(t)
	src := writeSource(t, map[string]string{"1": "a", "2": "b"})

	boom := errors.New("boom")
	fan := func(ctx context.Context, tasks []Task) error {
		for _, task := range tasks {
			_ = task(ctx)
		}
		return boom
	}

	err := r.PutObjectConcurrent(ctx, "obj", src, VersionInfo{}, fan)
	require.ErrorIs(t, err, boom)

	_, err = store.Get(ctx, inventoryKey(objectRoot("obj")))
	require.ErrorIs(t, err, storage.ErrNotFound, "no inventory without all content")
}

func TestPurgeObject(t *testing.T) {
	ctx := context.Background()
	r, store := newTestRepo(t)
	src := writeSource(t, map[string]string{"1": "a", "2": "b"})

	require.NoError(t, r.PutObject(ctx, "obj", src, VersionInfo{}))
	require.NoError(t, r.PutObject(ctx, "other", src, VersionInfo{}))
	require.NoError(t, r.PurgeObject(ctx, "obj"))

	keys, err := store.List(ctx, objectRoot("obj")+"/")
	require.NoError(t, err)
	assert.Empty(t, keys)

	keys, err = store.List(ctx, objectRoot("other")+"/")
	require.NoError(t, err)
	assert.NotEmpty(t, keys)

	// purging a missing object is fine
	require.NoError(t, r.PurgeObject(ctx, "obj"))

	// a purged id starts over at v1
	require.NoError(t, r.PutObject(ctx, "obj", src, VersionInfo{}))
	inv, err := r.loadInventory(ctx, objectRoot("obj"), "obj")
	require.NoError(t, err)
	assert.Equal(t, "v1", inv.Head)
}

func TestInvalidObjectID(t *testing.T) {
	r, _ := newTestRepo(t)
	require.ErrorIs(t, r.PutObject(context.Background(), "", t.TempDir(), VersionInfo{}), ErrInvalidObjectID)
	require.ErrorIs(t, r.PurgeObject(context.Background(), ""), ErrInvalidObjectID)
}

func TestInventory_NextVersion(t *testing.T) {
	inv := newInventory("x")
	v, err := inv.nextVersion()
	require.NoError(t, err)
	assert.Equal(t, "v1", v)

	inv.Head = "v9"
	v, err = inv.nextVersion()
	require.NoError(t, err)
	assert.Equal(t, "v10", v)

	inv.Head = "9"
	_, err = inv.nextVersion()
	require.Error(t, err)
}
