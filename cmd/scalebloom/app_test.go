package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/scalebloom"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp(strings.NewReader(stdin), &out)
	err := app.Run(append([]string{"scalebloom"}, args...))
	return out.String(), err
}

func TestApp_Workflow(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.bloom")

	_, err := run(t, "", "create", "--capacity", "100", "--error-rate", "0.01", path)
	require.NoError(t, err)

	out, err := run(t, "", "add", path, "alpha", "beta")
	require.NoError(t, err)
	assert.Equal(t, "2 keys, seqnum 2\n", out)

	out, err = run(t, "gamma\ndelta\n", "add", "--stdin", path)
	require.NoError(t, err)
	assert.Equal(t, "2 keys, seqnum 4\n", out)

	out, err = run(t, "", "check", path, "alpha", "gamma", "omega")
	require.NoError(t, err)
	assert.Equal(t, "alpha\ttrue\ngamma\ttrue\nomega\tfalse\n", out)

	// alpha was added with id 1
	_, err = run(t, "", "delete", "--id", "1", path, "alpha")
	require.NoError(t, err)
	out, err = run(t, "", "check", path, "alpha")
	require.NoError(t, err)
	assert.Equal(t, "alpha\tfalse\n", out)

	out, err = run(t, "", "stats", path)
	require.NoError(t, err)
	var report statsReport
	require.NoError(t, yaml.Unmarshal([]byte(out), &report))
	assert.Equal(t, uint64(100), report.Capacity)
	assert.Equal(t, uint64(5), report.DiskSeqnum)
	assert.Equal(t, uint64(4), report.TotalAdds)
	assert.Len(t, report.SubFilters, 1)

	snap := filepath.Join(dir, "f.snap")
	_, err = run(t, "", "snapshot", "--compression", "lz4", path, snap)
	require.NoError(t, err)

	restored := filepath.Join(dir, "g.bloom")
	out, err = run(t, "", "restore", snap, restored)
	require.NoError(t, err)
	assert.Contains(t, out, "seqnum 5")

	out, err = run(t, "", "check", restored, "beta", "alpha")
	require.NoError(t, err)
	assert.Equal(t, "beta\ttrue\nalpha\tfalse\n", out)
}

func TestApp_Errors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.bloom")

	_, err := run(t, "", "create")
	assert.Error(t, err)

	_, err = run(t, "", "check", filepath.Join(dir, "missing.bloom"), "x")
	var ioe *scalebloom.IOError
	assert.ErrorAs(t, err, &ioe)

	_, err = run(t, "", "create", "--capacity", "10", path)
	require.NoError(t, err)

	_, err = run(t, "", "add", path)
	assert.EqualError(t, err, "no keys given")

	_, err = run(t, "", "delete", path, "x")
	assert.Error(t, err)

	_, err = run(t, "", "create", "--error-rate", "2", filepath.Join(dir, "bad.bloom"))
	var ce *scalebloom.ConfigurationError
	assert.ErrorAs(t, err, &ce)
}

func TestApp_Version(t *testing.T) {
	out, err := run(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, scalebloom.Version()+"\n", out)
}
