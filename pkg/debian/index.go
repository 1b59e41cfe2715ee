// pkg/debian/index.go
package debian

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/spf13/afero"
	"github.com/ulikunitz/xz"

	"github.com/arc-language/hostpkg/pkg/distro"
	"github.com/arc-language/hostpkg/pkg/quicktest"
)

// indexCandidates reads the downloaded apt package indices directly. It is
// the refresh path for hosts where dpkg is installed but apt-cache is not,
// such as minimal containers.
func (b *Backend) indexCandidates(pkg string) []distro.Candidate {
	infos, err := afero.ReadDir(b.base.Fs(), b.listsDir)
	if err != nil {
		logger := b.base.Logger()
		logger.Debug().Err(err).Str("dir", b.listsDir).Msg("no apt indices")
		return nil
	}

	seen := make(map[string]bool)
	var cands []distro.Candidate
	for _, info := range infos {
		if info.IsDir() || !isPackagesIndex(info.Name()) {
			continue
		}
		path := filepath.Join(b.listsDir, info.Name())
		found, err := b.scanIndex(path, pkg)
		if err != nil {
			logger := b.base.Logger()
			logger.Warn().Err(err).Str("index", path).Msg("skipping unreadable apt index")
			continue
		}
		for _, c := range found {
			if !seen[c.ID] {
				seen[c.ID] = true
				cands = append(cands, c)
			}
		}
	}
	return cands
}

// isPackagesIndex matches apt index names like
// "deb.debian.org_..._binary-amd64_Packages.xz".
func isPackagesIndex(name string) bool {
	for _, suffix := range []string{".gz", ".xz", ".zst"} {
		name = strings.TrimSuffix(name, suffix)
	}
	return strings.HasSuffix(name, "_Packages")
}

func (b *Backend) scanIndex(path, pkg string) ([]distro.Candidate, error) {
	f, err := b.base.Fs().Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r, closeReader, err := decompress(f, path)
	if err != nil {
		return nil, err
	}
	defer closeReader()

	var cands []distro.Candidate
	var name, ver, arch string
	var size int64
	flush := func() {
		if name == pkg && ver != "" {
			if cand, ok := b.base.NewCandidate(pkg, ver, arch, false, quicktest.T{}); ok {
				cand.Size = size
				cands = append(cands, cand)
			}
		}
		name, ver, arch, size = "", "", "", 0
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			flush()
		case strings.HasPrefix(line, "Package: "):
			name = strings.TrimSpace(line[len("Package: "):])
		case strings.HasPrefix(line, "Version: "):
			ver = strings.TrimSpace(line[len("Version: "):])
		case strings.HasPrefix(line, "Architecture: "):
			arch = strings.TrimSpace(line[len("Architecture: "):])
		case strings.HasPrefix(line, "Size: "):
			size, _ = strconv.ParseInt(strings.TrimSpace(line[len("Size: "):]), 10, 64)
		}
	}
	flush()
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return cands, nil
}

// decompress wraps r according to the file extension. Apt compresses its
// indices with gzip, xz or zstd depending on the repository.
func decompress(r io.Reader, path string) (io.Reader, func() error, error) {
	noop := func() error { return nil }
	switch {
	case strings.HasSuffix(path, ".gz"):
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("gzip %s: %w", path, err)
		}
		return gz, gz.Close, nil
	case strings.HasSuffix(path, ".xz"):
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("xz %s: %w", path, err)
		}
		return xr, noop, nil
	case strings.HasSuffix(path, ".zst"):
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("zstd %s: %w", path, err)
		}
		return zr.IOReadCloser(), func() error { zr.Close(); return nil }, nil
	}
	return r, noop, nil
}
