// pkg/debian/archive.go
package debian

import (
	"archive/tar"
	"bufio"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/blakesmith/ar"
	"github.com/spf13/afero"

	"github.com/arc-language/hostpkg/pkg/distro"
	"github.com/arc-language/hostpkg/pkg/quicktest"
)

// archiveCandidates inspects .deb files already fetched into the apt
// archive directory. A downloaded but not yet installed package is still a
// usable candidate, and its control stanza is authoritative.
func (b *Backend) archiveCandidates(pkg string) []distro.Candidate {
	infos, err := afero.ReadDir(b.base.Fs(), b.archivesDir)
	if err != nil {
		return nil
	}

	var cands []distro.Candidate
	for _, info := range infos {
		name := info.Name()
		// Archive names look like "<package>_<version>_<arch>.deb".
		if info.IsDir() || !strings.HasSuffix(name, ".deb") || !strings.HasPrefix(name, pkg+"_") {
			continue
		}
		path := filepath.Join(b.archivesDir, name)
		ctrl, err := b.scanDeb(path)
		if err != nil {
			logger := b.base.Logger()
			logger.Warn().Err(err).Str("deb", path).Msg("skipping unreadable archive")
			continue
		}
		if ctrl.name != pkg {
			continue
		}
		if cand, ok := b.base.NewCandidate(pkg, ctrl.version, ctrl.arch, false, quicktest.T{}); ok {
			cand.Size = info.Size()
			cands = append(cands, cand)
		}
	}
	return cands
}

type debControl struct {
	name    string
	version string
	arch    string
}

// scanDeb extracts the control stanza from a .deb, which is an ar archive
// holding a compressed control tarball.
func (b *Backend) scanDeb(path string) (debControl, error) {
	f, err := b.base.Fs().Open(path)
	if err != nil {
		return debControl{}, err
	}
	defer f.Close()

	reader := ar.NewReader(f)
	for {
		header, err := reader.Next()
		if err == io.EOF {
			return debControl{}, fmt.Errorf("no control member in %s", path)
		}
		if err != nil {
			return debControl{}, fmt.Errorf("reading ar archive: %w", err)
		}
		member := strings.TrimSuffix(strings.TrimSpace(header.Name), "/")
		if !strings.HasPrefix(member, "control.tar") {
			continue
		}
		return parseControlTar(reader, member)
	}
}

func parseControlTar(r io.Reader, member string) (debControl, error) {
	dr, closeReader, err := decompress(r, member)
	if err != nil {
		return debControl{}, err
	}
	defer closeReader()

	tr := tar.NewReader(dr)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			return debControl{}, fmt.Errorf("control tarball has no control file")
		}
		if err != nil {
			return debControl{}, fmt.Errorf("reading control tarball: %w", err)
		}
		if filepath.Clean(header.Name) != "control" {
			continue
		}
		return parseControl(tr)
	}
}

func parseControl(r io.Reader) (debControl, error) {
	var ctrl debControl
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "Package: "):
			ctrl.name = strings.TrimSpace(line[len("Package: "):])
		case strings.HasPrefix(line, "Version: "):
			ctrl.version = strings.TrimSpace(line[len("Version: "):])
		case strings.HasPrefix(line, "Architecture: "):
			ctrl.arch = strings.TrimSpace(line[len("Architecture: "):])
		}
	}
	if err := scanner.Err(); err != nil {
		return debControl{}, err
	}
	if ctrl.name == "" || ctrl.version == "" {
		return debControl{}, fmt.Errorf("incomplete control stanza")
	}
	return ctrl, nil
}
