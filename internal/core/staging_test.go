package core

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageUpload(t *testing.T) {
	dir := t.TempDir()

	path, size, err := stageUpload(dir, "abc", strings.NewReader("MFN: 1"), 100)

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "abc.txt"), path)
	assert.EqualValues(t, 6, size)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "MFN: 1", string(data))
}

func TestStageUpload_TooLarge(t *testing.T) {
	dir := t.TempDir()

	_, _, err := stageUpload(dir, "abc", strings.NewReader(strings.Repeat("x", 64)), 10)

	require.ErrorIs(t, err, ErrFileTooLarge)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "partial upload must be removed")
}

func TestStageUpload_ExistingNameRejected(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "abc.txt"), []byte("keep"), 0o600))

	_, _, err := stageUpload(dir, "abc", strings.NewReader("new"), 100)

	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrExist))
	data, _ := os.ReadFile(filepath.Join(dir, "abc.txt"))
	assert.Equal(t, "keep", string(data))
}

func TestReadCapped(t *testing.T) {
	data, err := readCapped(strings.NewReader("exactly10!"), 10)
	require.NoError(t, err)
	assert.Equal(t, "exactly10!", string(data))

	_, err = readCapped(strings.NewReader("eleven byte"), 10)
	assert.ErrorIs(t, err, ErrFileTooLarge)
}
