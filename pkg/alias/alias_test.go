// pkg/alias/alias_test.go
package alias

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sqliteEntry = `name = "sqlite3"

[families]
debian = "libsqlite3-0"
rpm    = "sqlite-libs"
arch   = "sqlite"
`

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/aliases/sqlite3.toml", []byte(sqliteEntry), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/aliases/broken.toml", []byte("= not toml"), 0o644))
	return New("/aliases", fs)
}

func TestLoad(t *testing.T) {
	r := testRegistry(t)

	entry, err := r.Load("sqlite3")
	require.NoError(t, err)
	assert.Equal(t, "sqlite3", entry.Name)
	assert.Equal(t, "sqlite-libs", entry.Families["rpm"])

	_, err = r.Load("nothere")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = r.Load("broken")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestResolve(t *testing.T) {
	r := testRegistry(t)

	name, err := r.Resolve("sqlite3", "debian")
	require.NoError(t, err)
	assert.Equal(t, "libsqlite3-0", name)

	// Backend labels resolve the same as family names.
	name, err = r.Resolve("sqlite3", "Debian")
	require.NoError(t, err)
	assert.Equal(t, "libsqlite3-0", name)

	// An entry without the family falls back to the canonical name.
	name, err = r.Resolve("sqlite3", "gentoo")
	require.NoError(t, err)
	assert.Equal(t, "sqlite3", name)

	// No alias file at all is not an error.
	name, err = r.Resolve("ffmpeg", "debian")
	require.NoError(t, err)
	assert.Equal(t, "ffmpeg", name)

	_, err = r.Resolve("broken", "debian")
	assert.Error(t, err)
}

func TestEmptyDir(t *testing.T) {
	r := New("", afero.NewMemMapFs())

	name, err := r.Resolve("ffmpeg", "debian")
	require.NoError(t, err)
	assert.Equal(t, "ffmpeg", name)
}
