// pkg/nixos/backend_test.go
package nixos

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arc-language/hostpkg/pkg/quicktest"
)

const (
	testManifest = "/home/user/.nix-profile/manifest.json"
	// A digest is 32 characters of nix's base32 alphabet.
	digest = "0123456789abcdfghijklmnpqrsvwxyz"
)

func writeManifest(t *testing.T, fs afero.Fs, content string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, testManifest, []byte(content), 0o644))
}

func TestCandidatesFromListManifest(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeManifest(t, fs, `{
	  "version": 1,
	  "elements": [
	    {"active": true, "storePaths": ["/nix/store/`+digest+`-ffmpeg-full-6.1.1"]},
	    {"active": false, "storePaths": ["/nix/store/`+digest+`-vlc-3.0.20"]},
	    {"storePaths": ["/nix/store/`+digest+`-hello-2.12.1"]}
	  ]
	}`)

	b := New(&Config{ManifestPath: testManifest, Fs: fs})

	cands, err := b.Candidates(context.Background(), "ffmpeg-full")
	require.NoError(t, err)
	require.Len(t, cands, 1)
	c := cands[0]
	assert.Equal(t, "package:nixos:ffmpeg-full:6.1.1:*", c.ID)
	assert.True(t, c.Installed)
	assert.Equal(t, quicktest.KindExists, c.QuickTest.Kind)
	assert.Equal(t, "/nix/store/"+digest+"-ffmpeg-full-6.1.1", c.QuickTest.Path)

	// The entry point probes the store object's bin directory.
	assert.Equal(t, "", b.EntryPoint(c))
	launcher := "/nix/store/" + digest + "-ffmpeg-full-6.1.1/bin/ffmpeg-full"
	require.NoError(t, afero.WriteFile(fs, launcher, []byte{}, 0o755))
	assert.Equal(t, launcher, b.EntryPoint(c))

	// Inactive elements are not installed.
	cands, err = b.Candidates(context.Background(), "vlc")
	require.NoError(t, err)
	assert.Empty(t, cands)

	// Absent "active" means active.
	cands, err = b.Candidates(context.Background(), "hello")
	require.NoError(t, err)
	assert.Len(t, cands, 1)
}

func TestCandidatesFromKeyedManifest(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeManifest(t, fs, `{
	  "version": 3,
	  "elements": {
	    "hello": {"active": true, "storePaths": ["/nix/store/`+digest+`-hello-2.12.1"]}
	  }
	}`)

	b := New(&Config{ManifestPath: testManifest, Fs: fs})
	cands, err := b.Candidates(context.Background(), "hello")
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Equal(t, "2.12.1", cands[0].Version.String())
}

func TestMalformedStorePathsAreSkipped(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeManifest(t, fs, `{
	  "version": 1,
	  "elements": [
	    {"storePaths": ["/nix/store/short-hello-2.12.1"]},
	    {"storePaths": ["/nix/store/`+digest+`-hello-2.12.1"]}
	  ]
	}`)

	b := New(&Config{ManifestPath: testManifest, Fs: fs})
	cands, err := b.Candidates(context.Background(), "hello")
	require.NoError(t, err)
	assert.Len(t, cands, 1)
}

func TestNoManifest(t *testing.T) {
	b := New(&Config{ManifestPath: testManifest, Fs: afero.NewMemMapFs()})
	cands, err := b.Candidates(context.Background(), "anything")
	require.NoError(t, err)
	assert.Empty(t, cands)
}

func TestSplitNameVersion(t *testing.T) {
	cases := map[string][2]string{
		"ffmpeg-full-6.1.1": {"ffmpeg-full", "6.1.1"},
		"python3-3.11.8":    {"python3", "3.11.8"},
		"hello-2.12.1":      {"hello", "2.12.1"},
		"no-version-here":   {"no-version-here", ""},
	}
	for full, want := range cases {
		name, ver := splitNameVersion(full)
		assert.Equal(t, want[0], name, full)
		assert.Equal(t, want[1], ver, full)
	}
}
