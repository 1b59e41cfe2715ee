// pkg/arch/backend.go
package arch

import (
	"bufio"
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/arc-language/hostpkg/pkg/distro"
	"github.com/arc-language/hostpkg/pkg/quicktest"
)

const (
	// DefaultPackagesDir is pacman's local package database: one directory
	// per installed package, named "<name>-<version>-<release>".
	DefaultPackagesDir = "/var/lib/pacman/local"

	pacmanCommand = "pacman"
)

// Config holds the Arch backend settings.
type Config struct {
	// PackagesDir overrides the pacman local database directory.
	PackagesDir string
	// Timeout bounds one pacman invocation.
	Timeout time.Duration

	Runner distro.Runner
	Meta   distro.MetaPackageManager
	Fs     afero.Fs
	Logger *zerolog.Logger
}

// Backend answers package queries on Arch Linux. The local database is a
// plain directory tree, so installed packages are read straight from the
// filesystem; the listing is memoized against the directory's mtime, which
// pacman updates on every install and removal.
type Backend struct {
	base        *distro.Base
	packagesDir string

	mu       sync.Mutex
	dirMTime int64
	packages map[string][]pkgEntry
}

type pkgEntry struct {
	dir     string
	version string
}

// New creates an Arch backend. Zero config fields get defaults.
func New(cfg *Config) *Backend {
	if cfg == nil {
		cfg = &Config{}
	}
	runner := cfg.Runner
	if runner == nil {
		runner = distro.NewExecRunner(cfg.Timeout)
	}
	base := distro.NewBase("Arch", "package:arch", distro.Options{
		Runner: runner,
		Meta:   cfg.Meta,
		Fs:     cfg.Fs,
		Logger: cfg.Logger,
	})
	b := &Backend{
		base:        base,
		packagesDir: cfg.PackagesDir,
	}
	if b.packagesDir == "" {
		b.packagesDir = DefaultPackagesDir
	}
	return b
}

func (b *Backend) Label() string { return b.base.Label() }

func (b *Backend) IsInstalled(ctx context.Context, sel distro.Selection) (bool, error) {
	return b.base.IsInstalled(ctx, sel, b.Candidates)
}

func (b *Backend) EntryPoint(c distro.Candidate) string {
	return b.base.EntryPoint(c)
}

// Candidates lists refresh results followed by installed versions from the
// local database directory.
func (b *Backend) Candidates(_ context.Context, pkg string) ([]distro.Candidate, error) {
	out := b.base.Available(pkg)
	for _, entry := range b.listing()[pkg] {
		descPath := filepath.Join(b.packagesDir, entry.dir, "desc")
		machine := b.descMachine(descPath)
		cand, ok := b.base.NewCandidate(pkg, entry.version, machine, true, quicktest.Exists(descPath))
		if !ok {
			continue
		}
		out = append(out, cand)
	}
	return out, nil
}

// listing returns the name → entries map for the local database, rebuilding
// it only when the directory mtime moved.
func (b *Backend) listing() map[string][]pkgEntry {
	info, err := b.base.Fs().Stat(b.packagesDir)
	if err != nil {
		logger := b.base.Logger()
		logger.Debug().Err(err).Str("dir", b.packagesDir).Msg("no pacman database")
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.packages != nil && b.dirMTime == info.ModTime().Unix() {
		return b.packages
	}

	infos, err := afero.ReadDir(b.base.Fs(), b.packagesDir)
	if err != nil {
		logger := b.base.Logger()
		logger.Warn().Err(err).Str("dir", b.packagesDir).Msg("cannot list pacman database")
		return nil
	}
	packages := make(map[string][]pkgEntry)
	for _, fi := range infos {
		if !fi.IsDir() {
			continue // ALPM_DB_VERSION and friends
		}
		name, ver, ok := splitEntry(fi.Name())
		if !ok {
			continue
		}
		packages[name] = append(packages[name], pkgEntry{dir: fi.Name(), version: ver})
	}
	b.packages = packages
	b.dirMTime = info.ModTime().Unix()
	return packages
}

// splitEntry decomposes "<name>-<version>-<release>". Names may themselves
// contain dashes, so the split runs from the right.
func splitEntry(dir string) (name, version string, ok bool) {
	i := strings.LastIndex(dir, "-")
	if i <= 0 {
		return "", "", false
	}
	j := strings.LastIndex(dir[:i], "-")
	if j <= 0 {
		return "", "", false
	}
	return dir[:j], dir[j+1:], true
}

// descMachine extracts the %ARCH% entry from a desc file.
func (b *Backend) descMachine(path string) string {
	f, err := b.base.Fs().Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	inArch := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "%ARCH%":
			inArch = true
		case strings.HasPrefix(line, "%"):
			inArch = false
		case inArch && line != "":
			return line
		}
	}
	return ""
}

// Refresh defers to the meta package manager when reachable, otherwise asks
// pacman's sync database per name.
func (b *Backend) Refresh(ctx context.Context, pkgs []string) error {
	if len(pkgs) == 0 {
		return nil
	}
	if b.base.RefreshMeta(ctx, pkgs) {
		return nil
	}
	if !b.base.Runner().Available(pacmanCommand) {
		return nil
	}
	for _, pkg := range pkgs {
		if err := ctx.Err(); err != nil {
			return err
		}
		b.base.SetToolCandidates(pkg, b.syncCandidates(ctx, pkg))
	}
	return nil
}

// syncCandidates parses "pacman -Si" output: "Key : Value" lines, one
// stanza per repository carrying the package.
func (b *Backend) syncCandidates(ctx context.Context, pkg string) []distro.Candidate {
	out, err := b.base.Runner().Run(ctx, pacmanCommand, "-Si", "--", pkg)
	if err != nil {
		logger := b.base.Logger()
		logger.Debug().Err(err).Str("package", pkg).Msg("pacman sync database knows nothing")
		return nil
	}

	var cands []distro.Candidate
	var ver, machine string
	flush := func() {
		if ver == "" {
			return
		}
		if cand, ok := b.base.NewCandidate(pkg, ver, machine, false, quicktest.T{}); ok {
			cands = append(cands, cand)
		}
		ver, machine = "", ""
	}
	for _, line := range strings.Split(string(out), "\n") {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		switch strings.TrimSpace(key) {
		case "Version":
			ver = strings.TrimSpace(value)
		case "Architecture":
			machine = strings.TrimSpace(value)
		}
	}
	flush()
	return cands
}
