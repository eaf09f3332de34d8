package counting

import "math"

const (
	// MinErrorRate is the tightest budget used for sizing. Smaller budgets
	// (including 0) are clamped to it.
	MinErrorRate = 1e-10

	// MaxErrorRate is the loosest budget used for sizing. Larger budgets
	// (including 1) are clamped to it.
	MaxErrorRate = 0.5

	// MaxHashes caps k.
	MaxHashes = 32

	minCounters = 8
)

// Geometry describes the size of a single counting filter.
type Geometry struct {
	Capacity  uint64  // elements the filter was sized for
	Counters  uint64  // m
	K         uint32  // hash functions
	ErrorRate float64 // budget the geometry was derived from
}

// Size computes the geometry for capacity elements at errorRate.
//
// For p = 1%: ~9.6 counters/element, k=7
// For p = 0.1%: ~14.4 counters/element, k=10
func Size(capacity uint64, errorRate float64) Geometry {
	if capacity == 0 {
		capacity = 1
	}
	p := ClampErrorRate(errorRate)

	// Optimal counters per element: m/n = -ln(p) / (ln(2)^2)
	bpe := -math.Log(p) / (math.Ln2 * math.Ln2)

	m := uint64(math.Ceil(float64(capacity) * bpe))
	if m < minCounters {
		m = minCounters
	}

	// Optimal number of hash functions: k = (m/n) * ln(2) = log2(1/p)
	k := uint32(math.Ceil(-math.Log2(p)))
	if k < 1 {
		k = 1
	}
	if k > MaxHashes {
		k = MaxHashes
	}

	return Geometry{
		Capacity:  capacity,
		Counters:  m,
		K:         k,
		ErrorRate: errorRate,
	}
}

// ClampErrorRate maps any budget onto [MinErrorRate, MaxErrorRate].
func ClampErrorRate(p float64) float64 {
	if math.IsNaN(p) || p < MinErrorRate {
		return MinErrorRate
	}
	if p > MaxErrorRate {
		return MaxErrorRate
	}
	return p
}

// BytesFor returns the number of bytes needed to hold m 4-bit counters.
func BytesFor(m uint64) uint64 {
	return (m + 1) / 2
}

// EstimateFalsePositiveRate returns (1 - e^(-k*n/m))^k.
func EstimateFalsePositiveRate(k uint32, m, n uint64) float64 {
	if n == 0 || m == 0 {
		return 0
	}
	kn := float64(k) * float64(n)
	return math.Pow(1-math.Exp(-kn/float64(m)), float64(k))
}
