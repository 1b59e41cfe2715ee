// pkg/gentoo/backend.go
package gentoo

import (
	"context"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/arc-language/hostpkg/pkg/distro"
	"github.com/arc-language/hostpkg/pkg/quicktest"
)

// DefaultPackagesDir is portage's database of installed packages, laid out
// as <category>/<name>-<version>/.
const DefaultPackagesDir = "/var/db/pkg"

// Config holds the Gentoo backend settings.
type Config struct {
	// PackagesDir overrides the portage database directory.
	PackagesDir string

	Meta   distro.MetaPackageManager
	Fs     afero.Fs
	Logger *zerolog.Logger
}

// Backend answers package queries on Gentoo. Package names are qualified
// with their portage category, e.g. "media-video/ffmpeg".
type Backend struct {
	base        *distro.Base
	packagesDir string
}

// New creates a Gentoo backend. Zero config fields get defaults.
func New(cfg *Config) *Backend {
	if cfg == nil {
		cfg = &Config{}
	}
	base := distro.NewBase("Gentoo", "package:gentoo", distro.Options{
		Meta:   cfg.Meta,
		Fs:     cfg.Fs,
		Logger: cfg.Logger,
	})
	base.FixVersion = fixVersion

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

func (b *Backend) Candidates(_ context.Context, pkg string) ([]distro.Candidate, error) {
	out := b.base.Available(pkg)

	category, leaf, ok := strings.Cut(pkg, "/")
	if !ok {
		// Unqualified names cannot match a portage entry.
		return out, nil
	}
	categoryDir := filepath.Join(b.packagesDir, category)
	infos, err := afero.ReadDir(b.base.Fs(), categoryDir)
	if err != nil {
		logger := b.base.Logger()
		logger.Debug().Err(err).Str("dir", categoryDir).Msg("no such portage category")
		return out, nil
	}

	prefix := leaf + "-"
	for _, fi := range infos {
		name := fi.Name()
		if !fi.IsDir() || !strings.HasPrefix(name, prefix) {
			continue
		}
		ver := name[len(prefix):]
		// "mesa-demos" must not match prefix "mesa-": a version starts
		// with a digit.
		if ver == "" || ver[0] < '0' || ver[0] > '9' {
			continue
		}
		entryDir := filepath.Join(categoryDir, name)
		cand, ok := b.base.NewCandidate(pkg, ver, b.chostMachine(entryDir), true, quicktest.Exists(entryDir))
		if !ok {
			continue
		}
		out = append(out, cand)
	}
	return out, nil
}

// chostMachine reads the package's CHOST file, e.g. "x86_64-pc-linux-gnu",
// and keeps the machine component.
func (b *Backend) chostMachine(entryDir string) string {
	data, err := afero.ReadFile(b.base.Fs(), filepath.Join(entryDir, "CHOST"))
	if err != nil {
		return ""
	}
	chost := strings.TrimSpace(string(data))
	if i := strings.Index(chost, "-"); i > 0 {
		chost = chost[:i]
	}
	return chost
}

var revisionRe = regexp.MustCompile(`-r([0-9]+)$`)

// fixVersion maps portage revision suffixes ("-r3") onto plain release
// parts so they stay ordered after the unrevised version.
func fixVersion(_, raw string) string {
	return revisionRe.ReplaceAllString(raw, "-$1")
}

// Refresh can only consult the meta package manager on Gentoo.
func (b *Backend) Refresh(ctx context.Context, pkgs []string) error {
	if len(pkgs) == 0 {
		return nil
	}
	b.base.RefreshMeta(ctx, pkgs)
	return nil
}
