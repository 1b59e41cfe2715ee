// pkg/rpm/archive.go
package rpm

import (
	"os"
	"strings"

	"github.com/sassoftware/go-rpmutils"
	"github.com/spf13/afero"

	"github.com/arc-language/hostpkg/pkg/distro"
	"github.com/arc-language/hostpkg/pkg/quicktest"
)

// archiveCandidates walks the package-manager download cache for .rpm files
// matching pkg and reads their headers. dnf keeps per-repository
// subdirectories, so the walk is recursive.
func (b *Backend) archiveCandidates(pkg string) []distro.Candidate {
	if ok, _ := afero.DirExists(b.base.Fs(), b.archivesDir); !ok {
		return nil
	}

	var cands []distro.Candidate
	seen := make(map[string]bool)
	_ = afero.Walk(b.base.Fs(), b.archivesDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		name := info.Name()
		// File names look like "<name>-<version>-<release>.<arch>.rpm".
		if !strings.HasSuffix(name, ".rpm") || !strings.HasPrefix(name, pkg+"-") {
			return nil
		}
		cand, ok := b.scanRpm(path, info.Size())
		if ok && cand.Name == pkg && !seen[cand.ID] {
			seen[cand.ID] = true
			cands = append(cands, cand)
		}
		return nil
	})
	return cands
}

// scanRpm reads one .rpm header and builds an installable candidate.
func (b *Backend) scanRpm(path string, size int64) (distro.Candidate, bool) {
	f, err := b.base.Fs().Open(path)
	if err != nil {
		return distro.Candidate{}, false
	}
	defer f.Close()

	pkg, err := rpmutils.ReadRpm(f)
	if err != nil {
		logger := b.base.Logger()
		logger.Warn().Err(err).Str("rpm", path).Msg("skipping unreadable rpm")
		return distro.Candidate{}, false
	}
	nevra, err := pkg.Header.GetNEVRA()
	if err != nil {
		logger := b.base.Logger()
		logger.Warn().Err(err).Str("rpm", path).Msg("rpm header has no NEVRA")
		return distro.Candidate{}, false
	}

	cand, ok := b.base.NewCandidate(nevra.Name, nevra.Version+"-"+nevra.Release, nevra.Arch, false, quicktest.T{})
	if !ok {
		return distro.Candidate{}, false
	}
	cand.Size = size
	return cand, true
}
