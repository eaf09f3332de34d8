package counting

import (
	"fmt"
	"testing"

	"github.com/hupe1980/scalebloom/internal/hash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	offs map[int64]int
}

func (r *recorder) MarkDirty(off int64) {
	if r.offs == nil {
		r.offs = make(map[int64]int)
	}
	r.offs[off]++
}

func newTestFilter(t *testing.T, capacity uint64, p float64) (*Filter, []byte) {
	t.Helper()
	g := Size(capacity, p)
	region := make([]byte, BytesFor(g.Counters))
	f, err := New(region, g.Counters, g.K, 0, nil)
	require.NoError(t, err)
	return f, region
}

func TestFilter_AddCheckRemove(t *testing.T) {
	f, _ := newTestFilter(t, 100, 0.01)

	foo := hash.Sum([]byte("foo"))
	assert.False(t, f.Check(foo))

	f.Add(foo)
	assert.True(t, f.Check(foo))

	f.Remove(foo)
	assert.False(t, f.Check(foo))
}

func TestFilter_RemoveNeverAddedIsNoop(t *testing.T) {
	f, region := newTestFilter(t, 100, 0.01)

	f.Remove(hash.Sum([]byte("ghost")))
	for _, b := range region {
		require.Zero(t, b)
	}

	bar := hash.Sum([]byte("bar"))
	f.Add(bar)
	f.Remove(bar)
	f.Remove(bar) // already gone: must not underflow
	for _, b := range region {
		require.Zero(t, b)
	}
}

func TestFilter_NibblePacking(t *testing.T) {
	region := make([]byte, 4)
	f, err := New(region, 8, 1, 0, nil)
	require.NoError(t, err)

	f.set(0, 3)
	f.set(1, 12)
	f.set(6, 15)
	assert.Equal(t, byte(0xc3), region[0])
	assert.Equal(t, byte(0x0f), region[3])
	assert.Equal(t, uint8(3), f.Get(0))
	assert.Equal(t, uint8(12), f.Get(1))
	assert.Equal(t, uint8(0), f.Get(7))
	assert.Equal(t, uint64(3), f.NonZero())
}

func TestFilter_Saturates(t *testing.T) {
	region := make([]byte, 4)
	f, err := New(region, 8, 1, 0, nil)
	require.NoError(t, err)

	p := hash.Pair{H1: 5, H2: 1}
	for i := 0; i < 40; i++ {
		f.Add(p)
	}
	assert.Equal(t, uint8(MaxCount), f.Get(5))
	assert.Equal(t, uint8(0), f.Get(4), "neighbour nibble must not be touched by overflow")

	f.Remove(p)
	assert.Equal(t, uint8(MaxCount-1), f.Get(5))
	assert.True(t, f.Check(p))
}

func TestFilter_SaturatedDrainsToZero(t *testing.T) {
	region := make([]byte, 4)
	f, err := New(region, 8, 1, 0, nil)
	require.NoError(t, err)

	p := hash.Pair{H1: 5, H2: 1}
	for i := 0; i <= MaxCount; i++ {
		f.Add(p)
	}
	require.Equal(t, uint8(MaxCount), f.Get(5))

	for i := 0; i < MaxCount; i++ {
		require.True(t, f.Check(p), "remove %d", i)
		f.Remove(p)
	}
	assert.Equal(t, uint8(0), f.Get(5))
	assert.False(t, f.Check(p))

	f.Remove(p)
	assert.Equal(t, uint8(0), f.Get(5), "zero counters stay at zero")
}

func TestFilter_MarksDirtyOffsets(t *testing.T) {
	region := make([]byte, 16)
	rec := &recorder{}
	f, err := New(region, 32, 2, 4096, rec)
	require.NoError(t, err)

	f.Add(hash.Pair{H1: 3, H2: 10}) // counters 3 and 13 -> bytes 1 and 6
	assert.Equal(t, map[int64]int{4097: 1, 4102: 1}, rec.offs)
}

func TestFilter_Rebind(t *testing.T) {
	f, region := newTestFilter(t, 50, 0.01)
	p := hash.Sum([]byte("moved"))
	f.Add(p)

	moved := append([]byte(nil), region...)
	require.NoError(t, f.Rebind(moved))
	clear(region)
	assert.True(t, f.Check(p))

	assert.ErrorIs(t, f.Rebind(moved[:1]), ErrRegionTooSmall)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(make([]byte, 1), 8, 1, 0, nil)
	assert.ErrorIs(t, err, ErrRegionTooSmall)

	_, err = New(make([]byte, 8), 0, 1, 0, nil)
	assert.ErrorIs(t, err, ErrBadGeometry)

	_, err = New(make([]byte, 8), 8, 0, 0, nil)
	assert.ErrorIs(t, err, ErrBadGeometry)
}

func TestFilter_FalsePositiveRate(t *testing.T) {
	const n = 2000
	f, _ := newTestFilter(t, n, 0.01)

	for i := 0; i < n; i++ {
		f.Add(hash.Sum([]byte(fmt.Sprintf("member-%d", i))))
	}
	for i := 0; i < n; i++ {
		require.True(t, f.Check(hash.Sum([]byte(fmt.Sprintf("member-%d", i)))))
	}

	fp := 0
	const probes = 20000
	for i := 0; i < probes; i++ {
		if f.Check(hash.Sum([]byte(fmt.Sprintf("stranger-%d", i)))) {
			fp++
		}
	}
	assert.Less(t, float64(fp)/probes, 0.02)
}
