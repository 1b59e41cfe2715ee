// hostpkg_test.go
package hostpkg

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arc-language/hostpkg/pkg/alias"
	"github.com/arc-language/hostpkg/pkg/distro"
)

type fakeBackend struct {
	label      string
	candidates map[string][]Candidate
	refreshed  []string
	installed  bool
	err        error
}

func (f *fakeBackend) Label() string { return f.label }

func (f *fakeBackend) IsInstalled(context.Context, Selection) (bool, error) {
	return f.installed, f.err
}

func (f *fakeBackend) Candidates(_ context.Context, pkg string) ([]Candidate, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.candidates[pkg], nil
}

func (f *fakeBackend) Refresh(_ context.Context, pkgs []string) error {
	f.refreshed = append(f.refreshed, pkgs...)
	return f.err
}

func (f *fakeBackend) EntryPoint(c Candidate) string { return c.Main }

func testAliases(t *testing.T) *alias.Registry {
	t.Helper()
	fs := afero.NewMemMapFs()
	entry := "name = \"sqlite3\"\n[families]\ndebian = \"libsqlite3-0\"\n"
	require.NoError(t, afero.WriteFile(fs, "/aliases/sqlite3.toml", []byte(entry), 0o644))
	return alias.New("/aliases", fs)
}

func TestCandidatesResolvesAliases(t *testing.T) {
	fake := &fakeBackend{
		label: "Debian",
		candidates: map[string][]Candidate{
			"libsqlite3-0": {{ID: "package:deb:libsqlite3-0:3.45.1:x86_64", Name: "libsqlite3-0"}},
		},
	}
	d := NewWithBackend(fake, testAliases(t))

	cands, err := d.Candidates(context.Background(), "sqlite3")
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Equal(t, "libsqlite3-0", cands[0].Name)

	// Names without an alias pass through unchanged.
	cands, err = d.Candidates(context.Background(), "libsqlite3-0")
	require.NoError(t, err)
	assert.Len(t, cands, 1)
}

func TestRefreshResolvesAliases(t *testing.T) {
	fake := &fakeBackend{label: "Debian"}
	d := NewWithBackend(fake, testAliases(t))

	require.NoError(t, d.Refresh(context.Background(), "sqlite3", "ffmpeg"))
	assert.Equal(t, []string{"libsqlite3-0", "ffmpeg"}, fake.refreshed)
}

func TestErrorsCarryContext(t *testing.T) {
	fake := &fakeBackend{label: "Debian", err: distro.ErrToolUnavailable}
	d := NewWithBackend(fake, nil)

	_, err := d.Candidates(context.Background(), "ffmpeg")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrToolUnavailable)

	var herr *Error
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, "enumerate", herr.Op)
	assert.Equal(t, "ffmpeg", herr.Package)

	_, err = d.IsInstalled(context.Background(), Selection{ID: "package:deb:ffmpeg:1:*"})
	require.Error(t, err)
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, "is-installed", herr.Op)
}

func TestNewForcedBackend(t *testing.T) {
	d, err := New(&Config{Backend: "fallback"})
	require.NoError(t, err)
	assert.Equal(t, "fallback", d.Backend())

	_, err = New(&Config{Backend: "bogus"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownBackend)
}

func TestIsInstalledDelegates(t *testing.T) {
	fake := &fakeBackend{label: "Test", installed: true}
	d := NewWithBackend(fake, nil)

	ok, err := d.IsInstalled(context.Background(), Selection{ID: "package:test:x:1:*"})
	require.NoError(t, err)
	assert.True(t, ok)
}
