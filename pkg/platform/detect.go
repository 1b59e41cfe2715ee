// pkg/platform/detect.go
package platform

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/arc-language/hostpkg/pkg/arch"
	"github.com/arc-language/hostpkg/pkg/debian"
	"github.com/arc-language/hostpkg/pkg/distro"
	"github.com/arc-language/hostpkg/pkg/gentoo"
	"github.com/arc-language/hostpkg/pkg/nixos"
	"github.com/arc-language/hostpkg/pkg/rpm"
	"github.com/arc-language/hostpkg/pkg/slack"
	"github.com/arc-language/hostpkg/pkg/windows"
)

// ErrUnknownBackend reports a forced backend name that matches no family.
var ErrUnknownBackend = errors.New("unknown backend")

// Config holds the selector settings.
type Config struct {
	// Root prefixes every probed path; tests and chroot inspections point
	// it at a staged tree.
	Root string
	// Backend forces a family by name instead of probing.
	Backend string
	// CacheDir overrides where family caches are written.
	CacheDir string
	// Timeout bounds external tool invocations.
	Timeout time.Duration

	Runner distro.Runner
	Meta   distro.MetaPackageManager
	Fs     afero.Fs
	Logger *zerolog.Logger
}

// Detect picks the backend for this host by probing the well-known package
// database locations, most specific family first. Hosts with none of them
// get the fallback backend.
func Detect(cfg *Config) (distro.Backend, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	fs := cfg.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}

	if cfg.Backend != "" {
		build, ok := families[cfg.Backend]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
		}
		return build(cfg), nil
	}

	if runtime.GOOS == "windows" {
		return newWindows(cfg), nil
	}
	for _, p := range probes {
		if ok, _ := afero.Exists(fs, cfg.rooted(p.path)); ok {
			return p.build(cfg), nil
		}
	}
	return newFallback(cfg), nil
}

// Names lists the backend names accepted by Config.Backend.
func Names() []string {
	return []string{"windows", "nixos", "gentoo", "slack", "arch", "debian", "rpm", "fallback"}
}

func (c *Config) rooted(path string) string {
	if c.Root == "" {
		return path
	}
	return filepath.Join(c.Root, path)
}

func (c *Config) cachePath(name string) string {
	if c.CacheDir == "" {
		return ""
	}
	return filepath.Join(c.CacheDir, name)
}

func (c *Config) options() distro.Options {
	return distro.Options{
		Runner: c.Runner,
		Meta:   c.Meta,
		Fs:     c.Fs,
		Logger: c.Logger,
	}
}

var probes = []struct {
	path  string
	build func(*Config) distro.Backend
}{
	{"/nix/store", newNixOS},
	{"/var/db/pkg", newGentoo},
	{"/var/log/packages", newSlack},
	{"/var/lib/pacman", newArch},
	{"/var/lib/dpkg/status", newDebian},
	{"/var/lib/rpm", newRPM},
}

var families = map[string]func(*Config) distro.Backend{
	"windows":  newWindows,
	"nixos":    newNixOS,
	"gentoo":   newGentoo,
	"slack":    newSlack,
	"arch":     newArch,
	"debian":   newDebian,
	"rpm":      newRPM,
	"fallback": newFallback,
}

func newDebian(cfg *Config) distro.Backend {
	return debian.New(&debian.Config{
		StatusFile:  cfg.rooted(debian.DefaultStatusFile),
		ListsDir:    cfg.rooted(debian.DefaultListsDir),
		ArchivesDir: cfg.rooted(debian.DefaultArchivesDir),
		CachePath:   cfg.cachePath("dpkg-status.cache"),
		Timeout:     cfg.Timeout,
		Runner:      cfg.Runner,
		Meta:        cfg.Meta,
		Fs:          cfg.Fs,
		Logger:      cfg.Logger,
	})
}

func newRPM(cfg *Config) distro.Backend {
	return rpm.New(&rpm.Config{
		DBPath:      cfg.rpmDBPath(),
		ArchivesDir: cfg.rooted("/var/cache/dnf"),
		CachePath:   cfg.cachePath("rpm-status.cache"),
		Timeout:     cfg.Timeout,
		Runner:      cfg.Runner,
		Meta:        cfg.Meta,
		Fs:          cfg.Fs,
		Logger:      cfg.Logger,
	})
}

func (c *Config) rpmDBPath() string {
	if c.Root == "" {
		return "" // the backend probes the live layouts itself
	}
	fs := c.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	sqlite := c.rooted("/var/lib/rpm/rpmdb.sqlite")
	if ok, _ := afero.Exists(fs, sqlite); ok {
		return sqlite
	}
	return c.rooted("/var/lib/rpm/Packages")
}

func newArch(cfg *Config) distro.Backend {
	return arch.New(&arch.Config{
		PackagesDir: cfg.rooted(arch.DefaultPackagesDir),
		Timeout:     cfg.Timeout,
		Runner:      cfg.Runner,
		Meta:        cfg.Meta,
		Fs:          cfg.Fs,
		Logger:      cfg.Logger,
	})
}

func newSlack(cfg *Config) distro.Backend {
	return slack.New(&slack.Config{
		PackagesDir: cfg.rooted(slack.DefaultPackagesDir),
		Meta:        cfg.Meta,
		Fs:          cfg.Fs,
		Logger:      cfg.Logger,
	})
}

func newGentoo(cfg *Config) distro.Backend {
	return gentoo.New(&gentoo.Config{
		PackagesDir: cfg.rooted(gentoo.DefaultPackagesDir),
		Meta:        cfg.Meta,
		Fs:          cfg.Fs,
		Logger:      cfg.Logger,
	})
}

func newNixOS(cfg *Config) distro.Backend {
	return nixos.New(&nixos.Config{
		Meta:   cfg.Meta,
		Fs:     cfg.Fs,
		Logger: cfg.Logger,
	})
}

func newWindows(cfg *Config) distro.Backend {
	return windows.New(&windows.Config{
		Meta:   cfg.Meta,
		Fs:     cfg.Fs,
		Logger: cfg.Logger,
	})
}

func newFallback(cfg *Config) distro.Backend {
	return distro.NewFallback(cfg.options())
}
