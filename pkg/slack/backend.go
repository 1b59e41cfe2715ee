// pkg/slack/backend.go
package slack

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/arc-language/hostpkg/pkg/distro"
	"github.com/arc-language/hostpkg/pkg/quicktest"
)

// DefaultPackagesDir is Slackware's package log: one file per installed
// package, named "<name>-<version>-<arch>-<build>".
const DefaultPackagesDir = "/var/log/packages"

// Config holds the Slackware backend settings.
type Config struct {
	// PackagesDir overrides the package log directory.
	PackagesDir string

	Meta   distro.MetaPackageManager
	Fs     afero.Fs
	Logger *zerolog.Logger
}

// Backend answers package queries on Slackware, straight from the package
// log directory. There is no native remote tooling.
type Backend struct {
	base        *distro.Base
	packagesDir string
}

// New creates a Slackware backend. Zero config fields get defaults.
func New(cfg *Config) *Backend {
	if cfg == nil {
		cfg = &Config{}
	}
	base := distro.NewBase("Slack", "package:slack", distro.Options{
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

func (b *Backend) Candidates(_ context.Context, pkg string) ([]distro.Candidate, error) {
	out := b.base.Available(pkg)

	infos, err := afero.ReadDir(b.base.Fs(), b.packagesDir)
	if err != nil {
		logger := b.base.Logger()
		logger.Debug().Err(err).Str("dir", b.packagesDir).Msg("no package log")
		return out, nil
	}
	for _, fi := range infos {
		if fi.IsDir() {
			continue
		}
		name, ver, machine, build, ok := splitEntry(fi.Name())
		if !ok || name != pkg {
			continue
		}
		entryPath := filepath.Join(b.packagesDir, fi.Name())
		// The build number acts as the release part of the version.
		cand, ok := b.base.NewCandidate(pkg, ver+"-"+build, machine, true, quicktest.Exists(entryPath))
		if !ok {
			continue
		}
		out = append(out, cand)
	}
	return out, nil
}

// splitEntry decomposes "<name>-<version>-<arch>-<build>"; names may
// contain dashes, so the three fixed fields split from the right.
func splitEntry(entry string) (name, version, machine, build string, ok bool) {
	rest := entry
	var fields [3]string
	for i := 2; i >= 0; i-- {
		j := strings.LastIndex(rest, "-")
		if j <= 0 {
			return "", "", "", "", false
		}
		fields[i] = rest[j+1:]
		rest = rest[:j]
	}
	return rest, fields[0], fields[1], fields[2], true
}

// Refresh can only consult the meta package manager on Slackware.
func (b *Backend) Refresh(ctx context.Context, pkgs []string) error {
	if len(pkgs) == 0 {
		return nil
	}
	b.base.RefreshMeta(ctx, pkgs)
	return nil
}
