package engine

import (
	"encoding/binary"
	"math"

	"github.com/hupe1980/scalebloom/internal/conv"
	"github.com/hupe1980/scalebloom/internal/counting"
	"github.com/hupe1980/scalebloom/internal/hash"
)

const (
	// FormatVersion is the on-disk format version.
	FormatVersion = 1

	// PageSize is the alignment unit of the file format. Header and regions
	// start on PageSize boundaries independent of the OS page size.
	PageSize = 4096

	// HeaderSize is the size of the header page.
	HeaderSize = PageSize

	// MaxSubFilters is the number of descriptor slots in the header.
	MaxSubFilters = 48

	preambleSize   = 64
	descriptorSize = 80
	checksumOffset = 52

	flagSealed uint16 = 1 << 0
)

var magic = [8]byte{'S', 'C', 'B', 'L', 'O', 'O', 'M', 0}

// Descriptor locates and describes one sub-filter region.
type Descriptor struct {
	Capacity  uint64
	Counters  uint64
	Adds      uint64
	Offset    uint64
	Length    uint64
	ErrorRate float64
	MinID     uint64
	MaxID     uint64
	K         uint32
	Sealed    bool
}

// Header is the decoded header page.
//
// Layout (little endian):
//
//	0   magic        [8]byte "SCBLOOM\0"
//	8   version      u32
//	12  headerSize   u32
//	16  capacity     u64
//	24  errorRate    f64
//	32  memSeqnum    u64
//	40  diskSeqnum   u64
//	48  count        u32
//	52  crc32c       u32 (over the page with this field zeroed)
//	56  reserved     [8]byte
//	64  descriptors  count * 80 bytes:
//	      capacity u64, counters u64, adds u64, offset u64, length u64,
//	      errorRate f64, minID u64, maxID u64, k u16, flags u16, reserved [12]byte
type Header struct {
	Capacity    uint64
	ErrorRate   float64
	MemSeqnum   uint64
	DiskSeqnum  uint64
	Descriptors []Descriptor
}

// MarshalTo encodes h into page, which must be HeaderSize bytes.
func (h *Header) MarshalTo(page []byte) {
	_ = page[HeaderSize-1]
	clear(page[:HeaderSize])

	le := binary.LittleEndian
	copy(page[0:8], magic[:])
	le.PutUint32(page[8:], FormatVersion)
	le.PutUint32(page[12:], HeaderSize)
	le.PutUint64(page[16:], h.Capacity)
	le.PutUint64(page[24:], math.Float64bits(h.ErrorRate))
	le.PutUint64(page[32:], h.MemSeqnum)
	le.PutUint64(page[40:], h.DiskSeqnum)
	le.PutUint32(page[48:], uint32(len(h.Descriptors)))

	for i, d := range h.Descriptors {
		b := page[preambleSize+i*descriptorSize:]
		le.PutUint64(b[0:], d.Capacity)
		le.PutUint64(b[8:], d.Counters)
		le.PutUint64(b[16:], d.Adds)
		le.PutUint64(b[24:], d.Offset)
		le.PutUint64(b[32:], d.Length)
		le.PutUint64(b[40:], math.Float64bits(d.ErrorRate))
		le.PutUint64(b[48:], d.MinID)
		le.PutUint64(b[56:], d.MaxID)
		le.PutUint16(b[64:], uint16(d.K))
		var flags uint16
		if d.Sealed {
			flags |= flagSealed
		}
		le.PutUint16(b[66:], flags)
	}

	le.PutUint32(page[checksumOffset:], hash.CRC32CSkip(page[:HeaderSize], checksumOffset))
}

// DecodeHeader parses and validates a header page against the file size.
func DecodeHeader(page []byte, fileSize int64) (*Header, error) {
	if len(page) < HeaderSize || fileSize < HeaderSize {
		return nil, corruptf("truncated header (%d bytes)", fileSize)
	}
	page = page[:HeaderSize]

	le := binary.LittleEndian
	if [8]byte(page[0:8]) != magic {
		return nil, corruptf("bad magic %q", page[0:8])
	}
	if v := le.Uint32(page[8:]); v != FormatVersion {
		return nil, corruptf("unsupported version %d", v)
	}
	if hs := le.Uint32(page[12:]); hs != HeaderSize {
		return nil, corruptf("unexpected header size %d", hs)
	}
	if want, got := le.Uint32(page[checksumOffset:]), hash.CRC32CSkip(page, checksumOffset); want != got {
		return nil, corruptf("header checksum mismatch (stored %08x, computed %08x)", want, got)
	}

	h := &Header{
		Capacity:   le.Uint64(page[16:]),
		ErrorRate:  math.Float64frombits(le.Uint64(page[24:])),
		MemSeqnum:  le.Uint64(page[32:]),
		DiskSeqnum: le.Uint64(page[40:]),
	}
	count := le.Uint32(page[48:])
	if count == 0 || count > MaxSubFilters {
		return nil, corruptf("invalid sub-filter count %d", count)
	}

	h.Descriptors = make([]Descriptor, count)
	for i := range h.Descriptors {
		b := page[preambleSize+i*descriptorSize:]
		h.Descriptors[i] = Descriptor{
			Capacity:  le.Uint64(b[0:]),
			Counters:  le.Uint64(b[8:]),
			Adds:      le.Uint64(b[16:]),
			Offset:    le.Uint64(b[24:]),
			Length:    le.Uint64(b[32:]),
			ErrorRate: math.Float64frombits(le.Uint64(b[40:])),
			MinID:     le.Uint64(b[48:]),
			MaxID:     le.Uint64(b[56:]),
			K:         uint32(le.Uint16(b[64:])),
			Sealed:    le.Uint16(b[66:])&flagSealed != 0,
		}
	}

	if err := h.validate(fileSize); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *Header) validate(fileSize int64) error {
	if h.Capacity == 0 {
		return corruptf("zero capacity")
	}
	if math.IsNaN(h.ErrorRate) || h.ErrorRate < 0 || h.ErrorRate > 1 {
		return corruptf("error rate %v out of range", h.ErrorRate)
	}
	if h.DiskSeqnum > h.MemSeqnum {
		return corruptf("disk seqnum %d ahead of mem seqnum %d", h.DiskSeqnum, h.MemSeqnum)
	}

	end := uint64(HeaderSize)
	for i, d := range h.Descriptors {
		switch {
		case d.Capacity == 0 || d.Counters == 0:
			return corruptf("sub-filter %d: empty geometry", i)
		case d.K == 0 || d.K > counting.MaxHashes:
			return corruptf("sub-filter %d: invalid k %d", i, d.K)
		case d.Offset%PageSize != 0 || d.Offset < end:
			return corruptf("sub-filter %d: misplaced region at %d", i, d.Offset)
		case d.Length < counting.BytesFor(d.Counters):
			return corruptf("sub-filter %d: region of %d bytes cannot hold %d counters", i, d.Length, d.Counters)
		case d.Offset+d.Length < d.Offset || d.Offset+d.Length > uint64(fileSize):
			return corruptf("sub-filter %d: region [%d,%d) exceeds file size %d", i, d.Offset, d.Offset+d.Length, fileSize)
		case !pagesAddressable(d.Offset + d.Length):
			return corruptf("sub-filter %d: region ends beyond the addressable page range", i)
		case !d.Sealed && i < len(h.Descriptors)-1:
			return corruptf("sub-filter %d: unsealed sub-filter is not the last one", i)
		}
		end = d.Offset + d.Length
	}
	return nil
}

func pagesAddressable(end uint64) bool {
	_, err := conv.Uint64ToUint32(end / PageSize)
	return err == nil
}
