package engine

import (
	"errors"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/scalebloom/internal/conv"
	"github.com/hupe1980/scalebloom/internal/fs"
	"github.com/hupe1980/scalebloom/internal/mmap"
)

// store owns the backing file descriptor and its shared mapping.
// Exactly one store exists per open filter and it is released by close.
type store struct {
	fsys    fs.FileSystem
	file    fs.File
	mapping *mmap.Mapping
	path    string
	size    int64

	syncConcurrency int

	// unmap releases a mapping that was replaced by remap.
	unmap func(*mmap.Mapping) error
}

func newStore(fsys fs.FileSystem, f fs.File, path string, syncConcurrency int) *store {
	return &store{
		fsys:            fsys,
		file:            f,
		path:            path,
		syncConcurrency: syncConcurrency,
		unmap:           (*mmap.Mapping).Close,
	}
}

func pathErr(op, path string, err error) error {
	var pe *os.PathError
	if errors.As(err, &pe) {
		return err
	}
	return &os.PathError{Op: op, Path: path, Err: err}
}

// createStore creates (or truncates) path and maps size zeroed bytes. Once
// the file was opened, a failure removes it again.
func createStore(fsys fs.FileSystem, path string, size int64, syncConcurrency int) (*store, error) {
	f, err := fsys.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, pathErr("create", path, err)
	}
	s := newStore(fsys, f, path, syncConcurrency)

	if err := f.Truncate(size); err != nil {
		_ = f.Close()
		_ = fsys.Remove(path)
		return nil, pathErr("truncate", path, err)
	}
	if _, err := s.remap(size); err != nil {
		_ = f.Close()
		_ = fsys.Remove(path)
		return nil, err
	}
	return s, nil
}

// openStore opens path read-write and maps the whole file.
func openStore(fsys fs.FileSystem, path string, syncConcurrency int) (*store, error) {
	f, err := fsys.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, pathErr("open", path, err)
	}
	s := newStore(fsys, f, path, syncConcurrency)

	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, pathErr("stat", path, err)
	}
	if fi.Size() < HeaderSize {
		_ = f.Close()
		return nil, corruptf("truncated file (%d bytes)", fi.Size())
	}
	if _, err := s.remap(fi.Size()); err != nil {
		_ = f.Close()
		return nil, err
	}
	return s, nil
}

// remap replaces the current mapping by one covering size bytes. The old
// mapping is only released once the new one exists. err reports a failure to
// map; the store is then unchanged. unmapErr reports a failure to release the
// old mapping after the new one was installed.
func (s *store) remap(size int64) (unmapErr, err error) {
	n, err := conv.Int64ToInt(size)
	if err != nil {
		return nil, pathErr("mmap", s.path, err)
	}
	m, err := mmap.Map(s.file.Fd(), n, mmap.ReadWrite)
	if err != nil {
		return nil, pathErr("mmap", s.path, err)
	}
	_ = m.Advise(mmap.AccessRandom)

	old := s.mapping
	s.mapping = m
	s.size = size
	if old != nil {
		if err := s.unmap(old); err != nil {
			return pathErr("munmap", s.path, err), nil
		}
	}
	return nil, nil
}

// grow extends the file to size and remaps it. If mapping fails the file is
// shrunk back and the previous mapping stays in place. Once the larger
// mapping is installed the file keeps its new size; a failure to release the
// old mapping is returned as unmapErr for the caller to report.
func (s *store) grow(size int64) (unmapErr, err error) {
	prev := s.size
	if err := s.file.Truncate(size); err != nil {
		return nil, pathErr("truncate", s.path, err)
	}
	unmapErr, err = s.remap(size)
	if err != nil {
		_ = s.file.Truncate(prev)
		return nil, err
	}
	return unmapErr, nil
}

func (s *store) bytes() []byte {
	return s.mapping.Bytes()
}

func (s *store) header() []byte {
	return s.mapping.Bytes()[:HeaderSize]
}

// syncRuns writes back the given page runs, a bounded number at a time.
func (s *store) syncRuns(runs []pageRun) error {
	if len(runs) == 0 {
		return nil
	}

	g := new(errgroup.Group)
	g.SetLimit(max(1, s.syncConcurrency))
	for _, r := range runs {
		g.Go(func() error {
			return s.mapping.Sync(r.offset(), r.length())
		})
	}
	if err := g.Wait(); err != nil {
		return pathErr("msync", s.path, err)
	}
	return nil
}

// syncHeader writes back the header page.
func (s *store) syncHeader() error {
	if err := s.mapping.Sync(0, HeaderSize); err != nil {
		return pathErr("msync", s.path, err)
	}
	return nil
}

// barrier is the durability barrier: it returns once the file's data and
// metadata are on stable storage.
func (s *store) barrier() error {
	if err := s.file.Sync(); err != nil {
		return pathErr("fsync", s.path, err)
	}
	return nil
}

// close unmaps and closes the descriptor. Both are attempted; the first
// error is returned.
func (s *store) close() error {
	err := s.mapping.Close()
	if cerr := s.file.Close(); cerr != nil && err == nil {
		err = pathErr("close", s.path, cerr)
	}
	return err
}
