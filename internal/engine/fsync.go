package engine

import (
	"os"
	"path/filepath"

	"github.com/hupe1980/scalebloom/internal/fs"
)

// syncParentDir syncs the directory holding path so that creating the file is
// durable, not only its contents.
func syncParentDir(fsys fs.FileSystem, path string) error {
	if err := fs.SyncDir(fsys, filepath.Dir(path)); err != nil {
		return &os.PathError{Op: "syncdir", Path: filepath.Dir(path), Err: err}
	}
	return nil
}
