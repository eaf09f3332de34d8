package mmap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSizedFile(t *testing.T, size int64) *os.File {
	t.Helper()
	f, err := os.OpenFile(filepath.Join(t.TempDir(), "map.bin"), os.O_CREATE|os.O_RDWR, 0644)
	require.NoError(t, err)
	require.NoError(t, f.Truncate(size))
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestMapping_WriteThrough(t *testing.T) {
	size := 2 * PageSize()
	f := newSizedFile(t, int64(size))

	m, err := Map(f.Fd(), size, ReadWrite)
	require.NoError(t, err)

	assert.Equal(t, size, m.Size())
	copy(m.Bytes()[PageSize()+10:], "Hello, Mmap!")
	require.NoError(t, m.Sync(PageSize()+10, 12))
	require.NoError(t, m.Advise(AccessRandom))
	require.NoError(t, m.Close())

	buf := make([]byte, 12)
	_, err = f.ReadAt(buf, int64(PageSize()+10))
	require.NoError(t, err)
	assert.Equal(t, "Hello, Mmap!", string(buf))
}

func TestMapping_SyncBounds(t *testing.T) {
	f := newSizedFile(t, int64(PageSize()))
	m, err := Map(f.Fd(), PageSize(), ReadWrite)
	require.NoError(t, err)
	defer m.Close()

	assert.NoError(t, m.Sync(0, 0))
	assert.ErrorIs(t, m.Sync(-1, 1), ErrOutOfBounds)
	assert.ErrorIs(t, m.Sync(0, PageSize()+1), ErrOutOfBounds)
	assert.NoError(t, m.Sync(PageSize()-1, 1))
}

func TestMapping_ReadOnly(t *testing.T) {
	f := newSizedFile(t, int64(PageSize()))
	m, err := Map(f.Fd(), PageSize(), ReadOnly)
	require.NoError(t, err)
	defer m.Close()

	assert.ErrorIs(t, m.Sync(0, 1), ErrReadOnly)
}

func TestMapping_CloseIdempotent(t *testing.T) {
	f := newSizedFile(t, int64(PageSize()))
	m, err := Map(f.Fd(), PageSize(), ReadWrite)
	require.NoError(t, err)

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
	assert.Nil(t, m.Bytes())
	assert.Zero(t, m.Size())
	assert.ErrorIs(t, m.Sync(0, 1), ErrClosed)
	assert.ErrorIs(t, m.Advise(AccessDefault), ErrClosed)
}

func TestMap_InvalidSize(t *testing.T) {
	_, err := Map(0, 0, ReadWrite)
	assert.ErrorIs(t, err, ErrInvalidSize)
}

func TestPageAlign(t *testing.T) {
	ps := int64(PageSize())
	assert.Equal(t, int64(0), PageAlign(0))
	assert.Equal(t, ps, PageAlign(1))
	assert.Equal(t, ps, PageAlign(ps))
	assert.Equal(t, 2*ps, PageAlign(ps+1))
}
