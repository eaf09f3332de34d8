// Package testutil provides testing utilities for scalebloom.
//
// This package is intended for use in tests and benchmarks only.
// It provides a seeded, thread-safe RNG and generators for distinct keys.
//
//	rng := testutil.NewRNG(seed)
//	keys := rng.Keys(1000, 16)      // 1000 distinct random 16-byte keys
//	absent := testutil.SeqKeys("absent-", 1000)
package testutil
