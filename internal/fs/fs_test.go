package fs

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalFS(t *testing.T) {
	tmp := t.TempDir()
	lfs := LocalFS{}

	dir := filepath.Join(tmp, "subdir")
	assert.NoError(t, lfs.MkdirAll(dir, 0755))

	fpath := filepath.Join(dir, "test.bloom")
	f, err := lfs.OpenFile(fpath, os.O_CREATE|os.O_RDWR, 0644)
	require.NoError(t, err)

	_, err = f.Write([]byte("hello"))
	assert.NoError(t, err)
	assert.NoError(t, f.Truncate(4096))
	assert.NoError(t, f.Sync())
	assert.NotZero(t, f.Fd())
	assert.Equal(t, fpath, f.Name())

	info, err := f.Stat()
	assert.NoError(t, err)
	assert.Equal(t, int64(4096), info.Size())
	assert.NoError(t, f.Close())

	newPath := filepath.Join(dir, "renamed.bloom")
	assert.NoError(t, lfs.Rename(fpath, newPath))
	_, err = lfs.Stat(fpath)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	assert.NoError(t, SyncDir(lfs, dir))
	assert.NoError(t, lfs.Remove(newPath))
}

func TestFaultyFS_WriteLimit(t *testing.T) {
	ffs := NewFaultyFS(nil)
	ffs.AddRule("limited", Fault{FailAfterBytes: 4})

	f, err := ffs.OpenFile(filepath.Join(t.TempDir(), "limited.bloom"), os.O_CREATE|os.O_RDWR, 0644)
	require.NoError(t, err)
	defer f.Close()

	_, err = f.Write([]byte("abc"))
	require.NoError(t, err)
	_, err = f.Write([]byte("de"))
	assert.ErrorIs(t, err, ErrInjected)
	_, err = f.WriteAt([]byte("x"), 0)
	assert.NoError(t, err)
}

func TestFaultyFS_SetFaultOnOpenFile(t *testing.T) {
	ffs := NewFaultyFS(nil)
	f, err := ffs.OpenFile(filepath.Join(t.TempDir(), "a.bloom"), os.O_CREATE|os.O_RDWR, 0644)
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, f.Sync())

	custom := errors.New("disk on fire")
	ffs.SetFault(".bloom", Fault{FailAfterBytes: -1, FailOnSync: true, FailOnTruncate: true, Err: custom})
	assert.ErrorIs(t, f.Sync(), custom)
	assert.ErrorIs(t, f.Truncate(10), custom)

	ffs.ClearFaults()
	assert.NoError(t, f.Sync())
	assert.NoError(t, f.Truncate(10))
}

func TestFaultyFS_FailOnClose(t *testing.T) {
	ffs := NewFaultyFS(nil)
	ffs.AddRule("c.bloom", Fault{FailAfterBytes: -1, FailOnClose: true})

	f, err := ffs.OpenFile(filepath.Join(t.TempDir(), "c.bloom"), os.O_CREATE|os.O_RDWR, 0644)
	require.NoError(t, err)
	assert.ErrorIs(t, f.Close(), ErrInjected)
}
