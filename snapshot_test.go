package scalebloom_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/hupe1980/scalebloom"
	"github.com/hupe1980/scalebloom/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotRestore(t *testing.T) {
	for _, c := range []scalebloom.Compression{
		scalebloom.CompressionNone,
		scalebloom.CompressionLZ4,
		scalebloom.CompressionZstd,
	} {
		t.Run(c.String(), func(t *testing.T) {
			f, _ := newFilter(t, 100, 0.01)
			keys := testutil.SeqKeys("key-", 300)
			for i, k := range keys {
				require.NoError(t, f.Add(k, uint64(i)))
			}

			var buf bytes.Buffer
			require.NoError(t, f.Snapshot(&buf, c))
			assert.Equal(t, uint64(300), f.DiskSeqnum(), "snapshot flushes first")
			if c != scalebloom.CompressionNone {
				assert.Less(t, int64(buf.Len()), f.Stats().FileSize)
			}

			dst := filepath.Join(t.TempDir(), "restored.bloom")
			g, err := scalebloom.Restore(&buf, dst)
			require.NoError(t, err)
			defer g.Close()

			assert.Equal(t, dst, g.Path())
			assert.Equal(t, uint64(300), g.MemSeqnum())
			assert.Equal(t, uint64(300), g.DiskSeqnum())
			assert.Len(t, g.Stats().SubFilters, len(f.Stats().SubFilters))
			for _, k := range keys {
				require.True(t, g.Check(k))
			}

			// restored filter keeps working
			require.NoError(t, g.Add([]byte("after"), 1000))
			assert.True(t, g.Check([]byte("after")))
		})
	}
}

func TestRestore_CorruptLeavesTargetUntouched(t *testing.T) {
	f, _ := newFilter(t, 100, 0.01)
	require.NoError(t, f.Add([]byte("a"), 1))

	var buf bytes.Buffer
	require.NoError(t, f.Snapshot(&buf, scalebloom.CompressionNone))
	snap := buf.Bytes()

	dir := t.TempDir()
	dst := filepath.Join(dir, "target.bloom")
	original := []byte("precious")
	require.NoError(t, os.WriteFile(dst, original, 0644))

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"bad magic", append([]byte("XXXXXX"), snap[6:]...)},
		{"flipped payload byte", flip(snap, 24+8+100)},
		{"truncated", snap[:len(snap)/2]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := scalebloom.Restore(bytes.NewReader(tt.data), dst)
			var cfe *scalebloom.CorruptFileError
			require.ErrorAs(t, err, &cfe)

			got, err := os.ReadFile(dst)
			require.NoError(t, err)
			assert.Equal(t, original, got)

			_, err = os.Stat(dst + ".restore")
			assert.True(t, os.IsNotExist(err))
		})
	}
}

func flip(b []byte, i int) []byte {
	c := bytes.Clone(b)
	c[i] ^= 0xFF
	return c
}

func TestSnapshot_InvalidCompression(t *testing.T) {
	f, _ := newFilter(t, 10, 0.01)
	var ce *scalebloom.ConfigurationError
	require.ErrorAs(t, f.Snapshot(&bytes.Buffer{}, scalebloom.Compression(9)), &ce)

	_, err := scalebloom.ParseCompression("brotli")
	require.ErrorAs(t, err, &ce)

	c, err := scalebloom.ParseCompression("zstd")
	require.NoError(t, err)
	assert.Equal(t, scalebloom.CompressionZstd, c)
}
