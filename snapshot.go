package scalebloom

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hupe1980/scalebloom/internal/compress"
	"github.com/hupe1980/scalebloom/internal/engine"
	"github.com/hupe1980/scalebloom/internal/fs"
	"github.com/hupe1980/scalebloom/internal/hash"
)

// Compression selects how Snapshot compresses the filter image.
type Compression uint8

const (
	CompressionNone Compression = Compression(compress.None)
	CompressionLZ4  Compression = Compression(compress.LZ4)
	CompressionZstd Compression = Compression(compress.Zstd)
)

func (c Compression) String() string { return compress.Type(c).String() }

// ParseCompression maps "none", "lz4" and "zstd" to a Compression.
func ParseCompression(s string) (Compression, error) {
	t, err := compress.ParseType(s)
	if err != nil {
		return CompressionNone, configErr("compression", err.Error())
	}
	return Compression(t), nil
}

// Snapshot frame (little endian):
//
//	0   magic       [6]byte "SBSNAP"
//	6   version     u8
//	7   compression u8
//	8   fileSize    u64
//	16  crc32c      u32 of the raw file image
//	20  reserved    u32
//	24  blocks      compress block stream
const (
	snapshotVersion    = 1
	snapshotHeaderSize = 24
)

var snapshotMagic = [6]byte{'S', 'B', 'S', 'N', 'A', 'P'}

// Snapshot flushes the filter and writes a compressed copy of its file to w.
// The copy can be turned back into a filter file with Restore.
func (f *Filter) Snapshot(w io.Writer, c Compression) error {
	if !compress.Type(c).Valid() {
		return configErr("compression", fmt.Sprintf("unknown algorithm %d", c))
	}
	n, err := f.snapshot(w, compress.Type(c))
	f.logger.LogSnapshot("snapshot", n, err)
	return err
}

func (f *Filter) snapshot(w io.Writer, t compress.Type) (int64, error) {
	if err := f.Flush(); err != nil {
		return 0, err
	}

	crc := hash.NewCRC32C()
	size, err := f.eng.WriteTo(crc)
	if err != nil {
		return 0, translateError(f.path, err)
	}

	var hdr [snapshotHeaderSize]byte
	copy(hdr[0:6], snapshotMagic[:])
	hdr[6] = snapshotVersion
	hdr[7] = byte(t)
	binary.LittleEndian.PutUint64(hdr[8:], uint64(size))
	binary.LittleEndian.PutUint32(hdr[16:], crc.Sum32())
	if _, err := w.Write(hdr[:]); err != nil {
		return 0, err
	}

	bw := compress.NewWriter(w, t, 0)
	if _, err := f.eng.WriteTo(bw); err != nil {
		return 0, translateError(f.path, err)
	}
	if err := bw.Close(); err != nil {
		return 0, err
	}
	return snapshotHeaderSize + bw.Written(), nil
}

// Restore writes the filter image read from r to path and loads it. The
// file at path is replaced atomically; on failure it is left untouched.
func Restore(r io.Reader, path string, optFns ...Option) (*Filter, error) {
	if path == "" {
		return nil, configErr("filepath", "filepath required")
	}
	o := applyOptions(optFns)
	if err := o.validate(); err != nil {
		return nil, err
	}

	n, err := restoreFile(r, path, o.fsys)
	o.logger.WithPath(path).LogSnapshot("restore", n, err)
	if err != nil {
		return nil, err
	}
	return load(path, o, 0, 0)
}

func restoreFile(r io.Reader, path string, fsys fs.FileSystem) (int64, error) {
	corrupt := func(format string, args ...any) error {
		return &CorruptFileError{Path: path, Reason: fmt.Sprintf(format, args...)}
	}

	var hdr [snapshotHeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return 0, corrupt("truncated snapshot header")
	}
	if [6]byte(hdr[0:6]) != snapshotMagic {
		return 0, corrupt("bad snapshot magic %q", hdr[0:6])
	}
	if hdr[6] != snapshotVersion {
		return 0, corrupt("unsupported snapshot version %d", hdr[6])
	}
	t := compress.Type(hdr[7])
	if !t.Valid() {
		return 0, corrupt("unknown compression %d", hdr[7])
	}
	size := int64(binary.LittleEndian.Uint64(hdr[8:]))
	want := binary.LittleEndian.Uint32(hdr[16:])
	if size < engine.HeaderSize || size%engine.PageSize != 0 {
		return 0, corrupt("invalid image size %d", size)
	}

	tmp := path + ".restore"
	file, err := fsys.OpenFile(tmp, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return 0, ioErr("create", tmp, err)
	}
	fail := func(err error) (int64, error) {
		_ = file.Close()
		_ = fsys.Remove(tmp)
		return 0, err
	}

	crc := hash.NewCRC32C()
	if _, err := io.CopyN(io.MultiWriter(file, crc), compress.NewReader(r, t), size); err != nil {
		switch {
		case errors.Is(err, io.EOF):
			return fail(corrupt("snapshot ends before %d bytes", size))
		case errors.Is(err, compress.ErrCorruptBlock):
			return fail(translateError(path, err))
		default:
			return fail(ioErr("write", tmp, err))
		}
	}
	if got := crc.Sum32(); got != want {
		return fail(corrupt("snapshot checksum mismatch (stored %08x, computed %08x)", want, got))
	}

	page := make([]byte, engine.HeaderSize)
	if _, err := file.ReadAt(page, 0); err != nil {
		return fail(ioErr("read", tmp, err))
	}
	if _, err := engine.DecodeHeader(page, size); err != nil {
		return fail(translateError(path, err))
	}

	if err := file.Sync(); err != nil {
		return fail(ioErr("fsync", tmp, err))
	}
	if err := file.Close(); err != nil {
		_ = fsys.Remove(tmp)
		return 0, ioErr("close", tmp, err)
	}
	if err := fsys.Rename(tmp, path); err != nil {
		_ = fsys.Remove(tmp)
		return 0, ioErr("rename", path, err)
	}
	if err := fs.SyncDir(fsys, filepath.Dir(path)); err != nil {
		return 0, ioErr("syncdir", filepath.Dir(path), err)
	}
	return size, nil
}
