package engine

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/hupe1980/scalebloom/internal/fs"
	"github.com/hupe1980/scalebloom/internal/mmap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFaultyEngine(t *testing.T, capacity int) (*Engine, *fs.FaultyFS, string) {
	t.Helper()
	ffs := fs.NewFaultyFS(nil)
	path := filepath.Join(t.TempDir(), "faulty.bloom")
	e, err := Create(path, capacity, 0.01, WithFileSystem(ffs))
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e, ffs, path
}

func TestFault_FlushSyncFailure(t *testing.T) {
	e, ffs, path := newFaultyEngine(t, 100)

	require.NoError(t, e.Add([]byte("a"), 1))
	require.NoError(t, e.Add([]byte("b"), 2))

	ffs.SetFault("faulty.bloom", fs.Fault{FailAfterBytes: -1, FailOnSync: true})
	err := e.Flush()
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrInjected))

	var pe *os.PathError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, path, pe.Path)

	// state unchanged and retryable
	assert.Equal(t, uint64(2), e.MemSeqnum())
	assert.Equal(t, uint64(0), e.DiskSeqnum())
	assert.NotZero(t, e.Stats().DirtyPages)

	ffs.ClearFaults()
	require.NoError(t, e.Flush())
	assert.Equal(t, uint64(2), e.DiskSeqnum())
}

func TestFault_FailedFlushKeepsOldHeader(t *testing.T) {
	e, ffs, path := newFaultyEngine(t, 100)

	require.NoError(t, e.Add([]byte("a"), 1))
	require.NoError(t, e.Flush())
	require.NoError(t, e.Add([]byte("b"), 2))

	ffs.SetFault("faulty.bloom", fs.Fault{FailAfterBytes: -1, FailOnSync: true})
	require.Error(t, e.Flush())
	require.NoError(t, e.Close())

	e2, err := Open(path)
	require.NoError(t, err)
	defer e2.Close()
	assert.Equal(t, uint64(1), e2.DiskSeqnum())
}

func TestFault_ScaleDeferredOnGrowFailure(t *testing.T) {
	e, ffs, _ := newFaultyEngine(t, 10)

	for i := 0; i < 8; i++ {
		require.NoError(t, e.Add(key(i), uint64(i)))
	}
	size := e.Stats().FileSize

	ffs.SetFault("faulty.bloom", fs.Fault{FailAfterBytes: -1, FailOnTruncate: true})

	// crosses the threshold; the eager scale fails but the add stands
	require.NoError(t, e.Add(key(8), 8))
	assert.Equal(t, 1, e.NumSubFilters())
	assert.Equal(t, uint64(9), e.MemSeqnum())
	assert.Equal(t, size, e.Stats().FileSize)

	// the retried scale fails before anything is applied
	err := e.Add(key(9), 9)
	require.ErrorIs(t, err, fs.ErrInjected)
	assert.Equal(t, uint64(9), e.MemSeqnum())
	assert.False(t, e.Check(key(9)))

	ffs.ClearFaults()
	require.NoError(t, e.Add(key(9), 9))
	assert.Equal(t, 2, e.NumSubFilters())
	for i := 0; i < 10; i++ {
		assert.True(t, e.Check(key(i)))
	}
}

func TestFault_UnmapFailureKeepsGrownFile(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))

	path := filepath.Join(t.TempDir(), "unmap.bloom")
	e, err := Create(path, 10, 0.01, WithLogger(logger))
	require.NoError(t, err)
	defer e.Close()

	e.store.unmap = func(m *mmap.Mapping) error {
		_ = m.Close()
		return fs.ErrInjected
	}

	for i := 0; i < 9; i++ {
		require.NoError(t, e.Add(key(i), uint64(i)))
	}
	require.Equal(t, 2, e.NumSubFilters())

	fi, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, e.Stats().FileSize, fi.Size(), "file must match the installed mapping")
	assert.Equal(t, int(fi.Size()), len(e.store.bytes()))
	assert.Contains(t, buf.String(), "releasing previous mapping")

	// the new region is usable
	require.NoError(t, e.Add([]byte("after"), 100))
	assert.True(t, e.Check([]byte("after")))
	require.NoError(t, e.Flush())
}

func TestFault_CreateCleansUp(t *testing.T) {
	ffs := fs.NewFaultyFS(nil)
	ffs.AddRule("broken.bloom", fs.Fault{FailAfterBytes: -1, FailOnSync: true})
	path := filepath.Join(t.TempDir(), "broken.bloom")

	_, err := Create(path, 100, 0.01, WithFileSystem(ffs))
	require.ErrorIs(t, err, fs.ErrInjected)

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestFault_CloseError(t *testing.T) {
	e, ffs, _ := newFaultyEngine(t, 10)
	ffs.SetFault("faulty.bloom", fs.Fault{FailAfterBytes: -1, FailOnClose: true})

	require.Error(t, e.Close())
	assert.True(t, e.Closed())
	require.NoError(t, e.Close())
}
