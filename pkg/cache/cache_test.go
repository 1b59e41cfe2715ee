// pkg/cache/cache_test.go
package cache

import (
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arc-language/hostpkg/pkg/quicktest"
)

const (
	testSource = "/var/lib/dpkg/status"
	testCache  = "/home/user/.cache/hostpkg/dpkg-status.cache"
)

func writeSource(t *testing.T, fs afero.Fs, content string, mtime time.Time) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, testSource, []byte(content), 0o644))
	require.NoError(t, fs.Chtimes(testSource, mtime, mtime))
}

func newTestCache(fs afero.Fs, regen RegenerateFunc) *Cache {
	return New(&Config{
		Path:       testCache,
		Source:     testSource,
		Format:     2,
		Regenerate: regen,
		Fs:         fs,
	})
}

func TestGetPutRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	stamp := time.Unix(1700000000, 0)
	writeSource(t, fs, "db-v1", stamp)

	c := newTestCache(fs, nil)
	calls := 0
	values, qt, err := c.Get("hello", func(string) []string {
		calls++
		return []string{"1.0\tx86_64"}
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"1.0\tx86_64"}, values)
	assert.Equal(t, 1, calls)
	assert.Equal(t, quicktest.KindUnchanged, qt.Kind)
	assert.Equal(t, testSource, qt.Path)
	assert.Equal(t, stamp.Unix(), qt.MTime.Unix())

	// A second instance must see the persisted answer without the handler.
	again := newTestCache(fs, nil)
	values, qt, err = again.Get("hello", func(string) []string {
		t.Fatal("miss handler must not run for a cached key")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"1.0\tx86_64"}, values)
	assert.True(t, qt.Valid(fs))
}

func TestMissHandlerRunsOnce(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeSource(t, fs, "db", time.Unix(1700000000, 0))

	c := newTestCache(fs, nil)
	calls := 0
	miss := func(string) []string {
		calls++
		return []string{"2.4-1\t*"}
	}
	for i := 0; i < 3; i++ {
		values, _, err := c.Get("pkg", miss)
		require.NoError(t, err)
		assert.Equal(t, []string{"2.4-1\t*"}, values)
	}
	assert.Equal(t, 1, calls)
}

func TestEmptyMissResultIsNotRecorded(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeSource(t, fs, "db", time.Unix(1700000000, 0))

	c := newTestCache(fs, nil)
	calls := 0
	miss := func(string) []string {
		calls++
		return nil
	}
	for i := 0; i < 2; i++ {
		values, _, err := c.Get("ghost", miss)
		require.NoError(t, err)
		assert.Empty(t, values)
	}
	assert.Equal(t, 2, calls, "an empty answer must stay uncached")
}

func TestMissingSentinelCachesNegativeAnswer(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeSource(t, fs, "db", time.Unix(1700000000, 0))

	c := newTestCache(fs, nil)
	calls := 0
	miss := func(string) []string {
		calls++
		return []string{Missing}
	}
	for i := 0; i < 2; i++ {
		values, _, err := c.Get("ghost", miss)
		require.NoError(t, err)
		assert.Equal(t, []string{Missing}, values)
	}
	assert.Equal(t, 1, calls, "the sentinel must suppress repeat queries")
}

func TestSourceChangeInvalidates(t *testing.T) {
	fs := afero.NewMemMapFs()
	stamp := time.Unix(1700000000, 0)
	writeSource(t, fs, "db-v1", stamp)

	c := newTestCache(fs, nil)
	_, _, err := c.Get("pkg", func(string) []string { return []string{"1.0\t*"} })
	require.NoError(t, err)

	// Same size, newer mtime: package database was touched.
	require.NoError(t, fs.Chtimes(testSource, stamp, stamp.Add(5*time.Second)))

	calls := 0
	values, qt, err := c.Get("pkg", func(string) []string {
		calls++
		return []string{"2.0\t*"}
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"2.0\t*"}, values, "stale value must not survive")
	assert.Equal(t, 1, calls)
	assert.Equal(t, stamp.Add(5*time.Second).Unix(), qt.MTime.Unix())

	// Size change alone invalidates as well.
	writeSource(t, fs, "db-v2-longer", stamp.Add(5*time.Second))
	values, _, err = c.Get("pkg", nil)
	require.NoError(t, err)
	assert.Empty(t, values)
}

func TestFormatBumpInvalidates(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeSource(t, fs, "db", time.Unix(1700000000, 0))

	old := New(&Config{Path: testCache, Source: testSource, Format: 1, Fs: fs})
	require.NoError(t, old.Put("pkg", []string{"1.0\t*"}))

	upgraded := New(&Config{Path: testCache, Source: testSource, Format: 2, Fs: fs})
	values, _, err := upgraded.Get("pkg", nil)
	require.NoError(t, err)
	assert.Empty(t, values, "old-format entries must be discarded")
}

func TestRegenerateRefillsAfterInvalidation(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeSource(t, fs, "db", time.Unix(1700000000, 0))

	regens := 0
	c := newTestCache(fs, func(put func(string, []string)) {
		regens++
		put("alpha", []string{"1.0\tx86_64"})
		put("beta", []string{"0.9-2\ti686", "1.1\tx86_64"})
	})

	values, _, err := c.Get("beta", func(string) []string {
		t.Fatal("regenerated keys must not hit the miss handler")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"0.9-2\ti686", "1.1\tx86_64"}, values)
	assert.Equal(t, 1, regens)

	// Still everything there for a fresh instance, without regenerating.
	again := newTestCache(fs, func(put func(string, []string)) { regens++ })
	values, _, err = again.Get("alpha", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"1.0\tx86_64"}, values)
	assert.Equal(t, 1, regens)
}

func TestCorruptFileRebuilds(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeSource(t, fs, "db", time.Unix(1700000000, 0))
	require.NoError(t, afero.WriteFile(fs, testCache, []byte("not a cache header at all"), 0o644))

	c := newTestCache(fs, nil)
	values, _, err := c.Get("pkg", func(string) []string { return []string{"3.0\t*"} })
	require.NoError(t, err)
	assert.Equal(t, []string{"3.0\t*"}, values)

	// The rewritten file must be loadable by a fresh instance.
	again := newTestCache(fs, nil)
	values, _, err = again.Get("pkg", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"3.0\t*"}, values)
}

func TestMissingSourceServesStaleWithoutQuickTest(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeSource(t, fs, "db", time.Unix(1700000000, 0))

	c := newTestCache(fs, nil)
	require.NoError(t, c.Put("pkg", []string{"1.0\t*"}))

	require.NoError(t, fs.Remove(testSource))

	again := newTestCache(fs, nil)
	values, qt, err := again.Get("pkg", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"1.0\t*"}, values, "best-effort answers survive a vanished source")
	assert.True(t, qt.IsZero(), "no revalidation promise without a source")
}

func TestLegacyEqualsSeparators(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeSource(t, fs, "db", time.Unix(1700000000, 0))

	c := New(&Config{
		Path:       testCache,
		Source:     testSource,
		Format:     1,
		Separators: SeparatorsEquals,
		Fs:         fs,
	})
	require.NoError(t, c.Put("pkg", []string{"1.0\tx86_64"}))

	again := New(&Config{
		Path:       testCache,
		Source:     testSource,
		Format:     1,
		Separators: SeparatorsEquals,
		Fs:         fs,
	})
	values, _, err := again.Get("pkg", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"1.0\tx86_64"}, values)
}

func TestValuesMayContainBodySeparator(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeSource(t, fs, "db", time.Unix(1700000000, 0))

	c := newTestCache(fs, nil)
	require.NoError(t, c.Put("pkg", []string{"1.0\tx86_64\textra"}))

	again := newTestCache(fs, nil)
	values, _, err := again.Get("pkg", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"1.0\tx86_64\textra"}, values,
		"only the first separator on a line is structural")
}

func TestPutAccumulates(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeSource(t, fs, "db", time.Unix(1700000000, 0))

	c := newTestCache(fs, nil)
	require.NoError(t, c.Put("pkg", []string{"1.0\t*"}))
	require.NoError(t, c.Put("pkg", []string{"2.0\t*"}))
	require.NoError(t, c.Put("other", nil)) // no-op

	values, _, err := c.Get("pkg", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"1.0\t*", "2.0\t*"}, values)

	values, _, err = c.Get("other", nil)
	require.NoError(t, err)
	assert.Empty(t, values)
}
