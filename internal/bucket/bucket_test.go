package bucket

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vibestack/internal/config"
)

func TestFSPutGet(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFS(dir)
	require.NoError(t, err)
	ctx := context.Background()

	meta, err := fs.Put(ctx, "a.png", strings.NewReader("pixels"), Meta{ContentType: "image/png"})
	require.NoError(t, err)
	assert.Equal(t, int64(6), meta.Size)
	assert.NotEmpty(t, meta.ETag)

	obj, err := fs.Get(ctx, "a.png")
	require.NoError(t, err)
	defer obj.Body.Close()
	body, err := io.ReadAll(obj.Body)
	require.NoError(t, err)
	assert.Equal(t, "pixels", string(body))
	assert.Equal(t, "image/png", obj.Meta.ContentType)
	assert.Equal(t, meta.ETag, obj.Meta.ETag)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "object plus sidecar, no temp leftovers")
}

func TestFSGetMissing(t *testing.T) {
	fs, err := NewFS(t.TempDir())
	require.NoError(t, err)
	_, err = fs.Get(context.Background(), "nope.bin")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = fs.Get(context.Background(), "../etc/passwd")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFSGetWithoutSidecar(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "raw.bin"), []byte("abc"), 0o644))
	fs, err := NewFS(dir)
	require.NoError(t, err)

	obj, err := fs.Get(context.Background(), "raw.bin")
	require.NoError(t, err)
	defer obj.Body.Close()
	assert.Equal(t, "application/octet-stream", obj.Meta.ContentType)
	assert.Equal(t, int64(3), obj.Meta.Size)
}

func TestFSPutRejectsTraversal(t *testing.T) {
	fs, err := NewFS(t.TempDir())
	require.NoError(t, err)
	_, err = fs.Put(context.Background(), "../x", strings.NewReader("x"), Meta{})
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestNewKey(t *testing.T) {
	assert.True(t, strings.HasSuffix(NewKey("photo.JPG"), ".jpg"))
	assert.True(t, strings.HasSuffix(NewKey("README"), ".bin"))
	assert.NotEqual(t, NewKey("a.txt"), NewKey("a.txt"))
	assert.True(t, ValidKey(NewKey("dir/nested.gif")))
}

func TestOpen(t *testing.T) {
	b, err := Open(context.Background(), config.StorageConfig{})
	require.NoError(t, err)
	assert.Nil(t, b)

	b, err = Open(context.Background(), config.StorageConfig{Driver: "fs", Dir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &FS{}, b)

	_, err = Open(context.Background(), config.StorageConfig{Driver: "ftp"})
	assert.Error(t, err)
}
