package compress

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Type identifies the block compression algorithm.
type Type uint8

const (
	None Type = 0
	LZ4  Type = 1
	Zstd Type = 2
)

func (t Type) String() string {
	switch t {
	case None:
		return "none"
	case LZ4:
		return "lz4"
	case Zstd:
		return "zstd"
	default:
		return fmt.Sprintf("compress.Type(%d)", uint8(t))
	}
}

// ParseType maps "none", "lz4" and "zstd" to a Type.
func ParseType(s string) (Type, error) {
	switch s {
	case "", "none":
		return None, nil
	case "lz4":
		return LZ4, nil
	case "zstd":
		return Zstd, nil
	}
	return None, fmt.Errorf("unknown compression %q", s)
}

// Valid reports whether t is a known algorithm.
func (t Type) Valid() bool { return t <= Zstd }

// DefaultBlockSize is the raw size of a block.
const DefaultBlockSize = 256 * 1024

// MaxBlockSize bounds the raw size accepted by Reader.
const MaxBlockSize = 64 << 20

const blockHeaderSize = 8

var (
	// ErrCorruptBlock is returned for malformed or truncated blocks.
	ErrCorruptBlock = errors.New("compress: corrupt block")

	encoderPool sync.Pool
	decoderPool sync.Pool
)

func getEncoder() *zstd.Encoder {
	if v := encoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getDecoder() *zstd.Decoder {
	if v := decoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

// encode returns the compressed form of data, or nil if it does not pay off.
func encode(t Type, data []byte) ([]byte, error) {
	var out []byte
	switch t {
	case LZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return nil, err
		}
		out = buf[:n]
	case Zstd:
		enc := getEncoder()
		out = enc.EncodeAll(data, nil)
		encoderPool.Put(enc)
	}
	if len(out) == 0 || float64(len(out)) > float64(len(data))*0.9 {
		return nil, nil
	}
	return out, nil
}

func decode(t Type, payload []byte, rawSize int) ([]byte, error) {
	raw := make([]byte, rawSize)
	switch t {
	case LZ4:
		n, err := lz4.UncompressBlock(payload, raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptBlock, err)
		}
		if n != rawSize {
			return nil, fmt.Errorf("%w: decompressed %d of %d bytes", ErrCorruptBlock, n, rawSize)
		}
		return raw, nil
	case Zstd:
		dec := getDecoder()
		defer decoderPool.Put(dec)
		out, err := dec.DecodeAll(payload, raw[:0])
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptBlock, err)
		}
		if len(out) != rawSize {
			return nil, fmt.Errorf("%w: decompressed %d of %d bytes", ErrCorruptBlock, len(out), rawSize)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: compressed payload with algorithm %v", ErrCorruptBlock, t)
	}
}

// Writer splits everything written to it into blocks.
type Writer struct {
	w         io.Writer
	t         Type
	blockSize int
	buf       []byte
	written   int64
	hdr       [blockHeaderSize]byte
}

// NewWriter creates a block writer. blockSize <= 0 selects DefaultBlockSize.
func NewWriter(w io.Writer, t Type, blockSize int) *Writer {
	if blockSize <= 0 || blockSize > MaxBlockSize {
		blockSize = DefaultBlockSize
	}
	return &Writer{w: w, t: t, blockSize: blockSize, buf: make([]byte, 0, blockSize)}
}

// Write buffers p and emits every full block.
func (c *Writer) Write(p []byte) (int, error) {
	total := 0
	for len(p) > 0 {
		n := min(c.blockSize-len(c.buf), len(p))
		c.buf = append(c.buf, p[:n]...)
		p = p[n:]
		total += n
		if len(c.buf) == c.blockSize {
			if err := c.flushBlock(); err != nil {
				return total, err
			}
		}
	}
	return total, nil
}

func (c *Writer) flushBlock() error {
	if len(c.buf) == 0 {
		return nil
	}
	payload, err := encode(c.t, c.buf)
	if err != nil {
		return err
	}
	stored := uint32(len(payload))
	if payload == nil {
		payload = c.buf
	}

	binary.LittleEndian.PutUint32(c.hdr[0:], uint32(len(c.buf)))
	binary.LittleEndian.PutUint32(c.hdr[4:], stored)
	if _, err := c.w.Write(c.hdr[:]); err != nil {
		return err
	}
	if _, err := c.w.Write(payload); err != nil {
		return err
	}
	c.written += int64(blockHeaderSize + len(payload))
	c.buf = c.buf[:0]
	return nil
}

// Close emits the final partial block. It does not close the underlying writer.
func (c *Writer) Close() error {
	return c.flushBlock()
}

// Written returns the number of framed bytes emitted so far.
func (c *Writer) Written() int64 { return c.written }

// Reader reassembles the raw stream from blocks.
type Reader struct {
	r       io.Reader
	t       Type
	pending []byte
	hdr     [blockHeaderSize]byte
}

// NewReader creates a block reader.
func NewReader(r io.Reader, t Type) *Reader {
	return &Reader{r: r, t: t}
}

func (c *Reader) Read(p []byte) (int, error) {
	for len(c.pending) == 0 {
		if err := c.next(); err != nil {
			return 0, err
		}
	}
	n := copy(p, c.pending)
	c.pending = c.pending[n:]
	return n, nil
}

func (c *Reader) next() error {
	if _, err := io.ReadFull(c.r, c.hdr[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("%w: truncated block header", ErrCorruptBlock)
		}
		return err
	}
	rawSize := binary.LittleEndian.Uint32(c.hdr[0:])
	stored := binary.LittleEndian.Uint32(c.hdr[4:])
	if rawSize == 0 || rawSize > MaxBlockSize || stored > MaxBlockSize {
		return fmt.Errorf("%w: block sizes %d/%d", ErrCorruptBlock, rawSize, stored)
	}

	size := stored
	if stored == 0 {
		size = rawSize
	}
	payload := make([]byte, size)
	if _, err := io.ReadFull(c.r, payload); err != nil {
		return fmt.Errorf("%w: truncated block payload", ErrCorruptBlock)
	}

	if stored == 0 {
		c.pending = payload
		return nil
	}
	raw, err := decode(c.t, payload, int(rawSize))
	if err != nil {
		return err
	}
	c.pending = raw
	return nil
}
