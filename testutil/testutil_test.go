package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeys_Distinct(t *testing.T) {
	rng := NewRNG(4711)

	keys := rng.Keys(500, 8)

	assert.Len(t, keys, 500)
	seen := make(map[string]bool)
	for _, k := range keys {
		assert.Len(t, k, 8)
		assert.False(t, seen[string(k)])
		seen[string(k)] = true
	}
}

func TestRNG_Reset(t *testing.T) {
	rng := NewRNG(4711)
	a := rng.Uint64()
	rng.Reset()
	assert.Equal(t, a, rng.Uint64())
	assert.Equal(t, int64(4711), rng.Seed())
}

func TestSeqKeys(t *testing.T) {
	keys := SeqKeys("k-", 3)
	assert.Equal(t, [][]byte{[]byte("k-0"), []byte("k-1"), []byte("k-2")}, keys)
}
