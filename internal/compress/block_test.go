package compress

import (
	"bytes"
	"io"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sparse(n int) []byte {
	rng := rand.New(rand.NewSource(1))
	b := make([]byte, n)
	for i := 0; i < n/64; i++ {
		b[rng.Intn(n)] = byte(rng.Intn(15) + 1)
	}
	return b
}

func TestWriterReader(t *testing.T) {
	data := sparse(3*DefaultBlockSize + 1234)

	for _, typ := range []Type{None, LZ4, Zstd} {
		t.Run(typ.String(), func(t *testing.T) {
			var buf bytes.Buffer
			w := NewWriter(&buf, typ, 0)
			_, err := w.Write(data[:1000])
			require.NoError(t, err)
			_, err = w.Write(data[1000:])
			require.NoError(t, err)
			require.NoError(t, w.Close())
			assert.Equal(t, int64(buf.Len()), w.Written())

			if typ != None {
				assert.Less(t, buf.Len(), len(data)/2)
			}

			got, err := io.ReadAll(NewReader(&buf, typ))
			require.NoError(t, err)
			assert.Equal(t, data, got)
		})
	}
}

func TestWriter_IncompressibleStoredRaw(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	data := make([]byte, 4096)
	rng.Read(data)

	var buf bytes.Buffer
	w := NewWriter(&buf, Zstd, 4096)
	_, err := w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	assert.Equal(t, blockHeaderSize+len(data), buf.Len())

	got, err := io.ReadAll(NewReader(&buf, Zstd))
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestReader_Truncated(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, LZ4, 0)
	_, err := w.Write(sparse(10000))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	raw := buf.Bytes()
	_, err = io.ReadAll(NewReader(bytes.NewReader(raw[:len(raw)-5]), LZ4))
	require.ErrorIs(t, err, ErrCorruptBlock)

	_, err = io.ReadAll(NewReader(bytes.NewReader(raw[:3]), LZ4))
	require.ErrorIs(t, err, ErrCorruptBlock)
}

func TestParseType(t *testing.T) {
	for _, typ := range []Type{None, LZ4, Zstd} {
		got, err := ParseType(typ.String())
		require.NoError(t, err)
		assert.Equal(t, typ, got)
	}
	_, err := ParseType("brotli")
	assert.Error(t, err)
	assert.False(t, Type(9).Valid())
}
