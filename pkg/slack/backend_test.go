// pkg/slack/backend_test.go
package slack

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arc-language/hostpkg/pkg/quicktest"
)

func installPackage(t *testing.T, fs afero.Fs, entry string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fs, DefaultPackagesDir+"/"+entry, []byte("PACKAGE NAME: "+entry), 0o644))
}

func TestCandidatesFromPackageLog(t *testing.T) {
	fs := afero.NewMemMapFs()
	installPackage(t, fs, "ffmpeg-4.4.1-x86_64-1_SBo")
	installPackage(t, fs, "xfce4-terminal-1.1.3-x86_64-1")
	installPackage(t, fs, "aspell-en-2020.12.07-noarch-1")

	b := New(&Config{Fs: fs})

	cands, err := b.Candidates(context.Background(), "ffmpeg")
	require.NoError(t, err)
	require.Len(t, cands, 1)
	c := cands[0]
	assert.Equal(t, "package:slack:ffmpeg:4.4.1-1:x86_64", c.ID, "build tag noise is dropped")
	assert.True(t, c.Installed)
	assert.Equal(t, quicktest.KindExists, c.QuickTest.Kind)
	assert.Equal(t, DefaultPackagesDir+"/ffmpeg-4.4.1-x86_64-1_SBo", c.QuickTest.Path)

	// Dashed names split from the right.
	cands, err = b.Candidates(context.Background(), "xfce4-terminal")
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Equal(t, "1.1.3-1", cands[0].Version.String())
	assert.Equal(t, "x86_64", cands[0].Machine)

	cands, err = b.Candidates(context.Background(), "aspell-en")
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Equal(t, "", cands[0].Machine)

	cands, err = b.Candidates(context.Background(), "absent")
	require.NoError(t, err)
	assert.Empty(t, cands)
}

func TestNoPackageLog(t *testing.T) {
	b := New(&Config{Fs: afero.NewMemMapFs()})
	cands, err := b.Candidates(context.Background(), "anything")
	require.NoError(t, err)
	assert.Empty(t, cands)
	require.NoError(t, b.Refresh(context.Background(), []string{"anything"}))
}
