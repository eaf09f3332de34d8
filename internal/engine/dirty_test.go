package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDirtyPages_Runs(t *testing.T) {
	d := newDirtyPages()
	assert.Empty(t, d.Runs())

	d.MarkDirty(HeaderSize)              // page 1
	d.MarkDirty(HeaderSize + 100)        // page 1 again
	d.MarkDirty(2*PageSize + 7)          // page 2
	d.MarkDirty(5 * PageSize)            // page 5
	d.MarkDirty(7*PageSize - 1)          // page 6
	d.MarkDirty(9*PageSize + PageSize/2) // page 9

	assert.Equal(t, uint64(5), d.Len())
	assert.Equal(t, []pageRun{
		{start: 1, count: 2},
		{start: 5, count: 2},
		{start: 9, count: 1},
	}, d.Runs())

	r := d.Runs()[1]
	assert.Equal(t, 5*PageSize, r.offset())
	assert.Equal(t, 2*PageSize, r.length())

	d.Clear()
	assert.Zero(t, d.Len())
}

func TestTracker(t *testing.T) {
	tr := NewTracker(7)
	assert.Equal(t, uint64(7), tr.Mem())
	assert.Equal(t, uint64(7), tr.Disk())
	assert.False(t, tr.Pending())

	assert.Equal(t, uint64(8), tr.Advance())
	tr.Advance()
	assert.True(t, tr.Pending())

	tr.MarkFlushed(8)
	assert.Equal(t, uint64(8), tr.Disk())
	assert.True(t, tr.Pending())

	// never beyond mem, never backwards
	tr.MarkFlushed(100)
	assert.Equal(t, uint64(9), tr.Disk())
	tr.MarkFlushed(3)
	assert.Equal(t, uint64(9), tr.Disk())
	assert.False(t, tr.Pending())
}

func TestPolicy_Plan(t *testing.T) {
	p := DefaultPolicy()
	a := assert.New(t)

	g0 := p.plan(0, 1000, 0.01)
	g1 := p.plan(1, 1000, 0.01)
	g2 := p.plan(2, 1000, 0.01)

	a.Equal(uint64(1000), g0.Capacity)
	a.Equal(uint64(2000), g1.Capacity)
	a.Equal(uint64(4000), g2.Capacity)
	a.InDelta(0.005, g0.ErrorRate, 1e-12)
	a.InDelta(0.0025, g1.ErrorRate, 1e-12)
	a.GreaterOrEqual(g1.K, g0.K)

	// budgets sum below the target
	sum := 0.0
	for i := 0; i < 20; i++ {
		sum += p.plan(i, 10, 0.01).ErrorRate
	}
	a.Less(sum, 0.01+1e-12)
}

func TestPolicy_Validate(t *testing.T) {
	assert.NoError(t, DefaultPolicy().validate())

	bad := []Policy{
		{FillThreshold: 0, GrowthFactor: 2, TighteningRatio: 0.5},
		{FillThreshold: 1.5, GrowthFactor: 2, TighteningRatio: 0.5},
		{FillThreshold: 0.8, GrowthFactor: 0, TighteningRatio: 0.5},
		{FillThreshold: 0.8, GrowthFactor: 1, TighteningRatio: 0.5},
		{FillThreshold: 0.8, GrowthFactor: 2, TighteningRatio: 1},
	}
	for _, p := range bad {
		assert.ErrorIs(t, p.validate(), ErrInvalidArgument)
	}
}

func TestPolicy_ShouldSeal(t *testing.T) {
	p := DefaultPolicy()
	assert.False(t, p.shouldSeal(80, 100))
	assert.True(t, p.shouldSeal(81, 100))
}
