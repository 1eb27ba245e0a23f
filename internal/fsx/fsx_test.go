package fsx_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robertmayen/airplay-wyse/internal/fsx"
)

func TestWriteFileAtomic_CreatesParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "c.conf")

	require.NoError(t, fsx.WriteFileAtomic(path, []byte("hello\n"), 0644))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(data))

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file must be renamed away")
}

func TestWriteFileAtomic_Overwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	require.NoError(t, fsx.WriteFileAtomic(path, []byte("one"), 0644))
	require.NoError(t, fsx.WriteFileAtomic(path, []byte("two"), 0644))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))
}

func TestWriteFileIfChanged(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")

	wrote, err := fsx.WriteFileIfChanged(path, []byte("content"), 0644)
	require.NoError(t, err)
	assert.True(t, wrote, "first write")

	wrote, err = fsx.WriteFileIfChanged(path, []byte("content"), 0644)
	require.NoError(t, err)
	assert.False(t, wrote, "identical content")

	wrote, err = fsx.WriteFileIfChanged(path, []byte("different"), 0644)
	require.NoError(t, err)
	assert.True(t, wrote, "changed content")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "different", string(data))
}
