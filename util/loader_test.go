package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListImageFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"frame-10.jpg", "frame-2.png", "frame-1.jpg", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(name), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "frame-3.jpg"), 0o755))

	images, err := ListImageFiles(dir)
	require.NoError(t, err)
	require.Len(t, images, 3)

	frames := []int{images[0].Frame, images[1].Frame, images[2].Frame}
	assert.Equal(t, []int{1, 2, 10}, frames)

	data, err := images[2].Read()
	require.NoError(t, err)
	assert.Equal(t, []byte("frame-10.jpg"), data)
}

func TestListImageFilesRejectsUnnumberedFrames(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cover.jpg"), nil, 0o644))

	_, err := ListImageFiles(dir)
	assert.Error(t, err)
}

func TestListImageFilesMissingDirectory(t *testing.T) {
	_, err := ListImageFiles(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
