package generator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ocflbench/filespec"
)

func TestGenerate(t *testing.T) {
	root := t.TempDir()
	g := New(root, nil)

	objectPath, err := g.Generate(filespec.Spec{1024: 2, 2048: 1})
	require.NoError(t, err)
	assert.Equal(t, root, filepath.Dir(objectPath))

	entries, err := os.ReadDir(objectPath)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	sizes := map[string]int64{}
	for _, e := range entries {
		info, err := e.Info()
		require.NoError(t, err)
		sizes[e.Name()] = info.Size()
	}
	assert.Equal(t, map[string]int64{
		"file-1.bin": 1024,
		"file-2.bin": 1024,
		"file-3.bin": 2048,
	}, sizes)
}

func TestGenerate_LargerThanChunk(t *testing.T) {
	g := New(t.TempDir(), nil)

	size := int64(3*ChunkSize + 17)
	objectPath, err := g.Generate(filespec.Spec{size: 1})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(objectPath, "file-1.bin"))
	require.NoError(t, err)
	assert.Len(t, data, int(size))

	zeros := 0
	for _, b := range data {
		if b == 0 {
			zeros++
		}
	}
	assert.Less(t, zeros, len(data)/10, "content should be random")
}

func TestGenerate_UniqueObjects(t *testing.T) {
	g := New(t.TempDir(), nil)
	spec := filespec.Spec{16: 1}

	a, err := g.Generate(spec)
	require.NoError(t, err)
	b, err := g.Generate(spec)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestGenerate_IOFailure(t *testing.T) {
	root := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(root, []byte("x"), 0o644))

	g := New(root, nil)
	_, err := g.Generate(filespec.Spec{16: 1})
	require.ErrorIs(t, err, ErrIO)
}

func TestRemove(t *testing.T) {
	g := New(t.TempDir(), nil)
	objectPath, err := g.Generate(filespec.Spec{16: 2})
	require.NoError(t, err)

	g.Remove(objectPath)
	_, err = os.Stat(objectPath)
	assert.True(t, os.IsNotExist(err))

	// removing twice or removing nothing is harmless
	g.Remove(objectPath)
	g.Remove("")
}
