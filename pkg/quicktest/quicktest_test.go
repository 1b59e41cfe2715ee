// pkg/quicktest/quicktest_test.go
package quicktest

import (
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZeroNeverValid(t *testing.T) {
	fs := afero.NewMemMapFs()
	var zero T
	assert.True(t, zero.IsZero())
	assert.False(t, zero.Valid(fs))
	assert.Equal(t, "none", zero.String())
}

func TestExists(t *testing.T) {
	fs := afero.NewMemMapFs()
	qt := Exists("/var/lib/pkgdb/foo")
	assert.False(t, qt.Valid(fs), "path absent")

	require.NoError(t, afero.WriteFile(fs, "/var/lib/pkgdb/foo", []byte("x"), 0o644))
	assert.True(t, qt.Valid(fs), "path present")
	assert.False(t, qt.IsZero())
}

func TestUnchangedSince(t *testing.T) {
	fs := afero.NewMemMapFs()
	path := "/var/lib/dpkg/status"
	stamp := time.Unix(1700000000, 0)

	require.NoError(t, afero.WriteFile(fs, path, []byte("status"), 0o644))
	require.NoError(t, fs.Chtimes(path, stamp, stamp))

	qt := UnchangedSince(path, stamp)
	assert.True(t, qt.Valid(fs))

	// Sub-second skew is tolerated.
	require.NoError(t, fs.Chtimes(path, stamp, stamp.Add(300*time.Millisecond)))
	assert.True(t, qt.Valid(fs))

	// Whole-second drift invalidates.
	require.NoError(t, fs.Chtimes(path, stamp, stamp.Add(2*time.Second)))
	assert.False(t, qt.Valid(fs))

	// A vanished file invalidates too.
	require.NoError(t, fs.Remove(path))
	assert.False(t, qt.Valid(fs))
}
