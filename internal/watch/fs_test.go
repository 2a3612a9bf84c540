package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOSFileSystemFileHash(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "conf.xml")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o600))

	fs := OSFileSystem{}
	hash, err := fs.FileHash(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", hash)

	_, err = fs.FileHash(context.Background(), filepath.Join(dir, "missing.xml"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.False(t, errors.Is(err, ErrHashUnavailable))

	info, err := fs.FileInfo(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, int64(5), info.Size)
}

func TestOSFileSystemFindLatestXMLDownload(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	write := func(name string, mtime time.Time) {
		t.Helper()
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(name), 0o600))
		require.NoError(t, os.Chtimes(p, mtime, mtime))
	}
	write("old-export.xml", base.Add(-time.Hour))
	write("export.xml", base.Add(time.Minute))
	write("export (1).XML", base.Add(2*time.Minute))
	write("notes.txt", base.Add(3*time.Minute))
	write("other.xml", base.Add(4*time.Minute))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "folder.xml"), 0o700))

	fs := OSFileSystem{DownloadsDir: dir}
	ctx := context.Background()

	d, err := fs.FindLatestXMLDownload(ctx, base, "")
	require.NoError(t, err)
	assert.Equal(t, "other.xml", d.FileName)

	d, err = fs.FindLatestXMLDownload(ctx, base, "export*")
	require.NoError(t, err)
	assert.Equal(t, "export (1).XML", d.FileName)
	assert.Equal(t, filepath.Join(dir, "export (1).XML"), d.Path)

	_, err = fs.FindLatestXMLDownload(ctx, base.Add(time.Hour), "")
	assert.ErrorIs(t, err, ErrNoDownload)

	_, err = fs.FindLatestXMLDownload(ctx, base, "[")
	assert.Error(t, err)
}
