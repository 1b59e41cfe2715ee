// hostpkg.go

// Package hostpkg discovers packages managed by the host operating system's
// own package manager. It answers three questions about a distribution
// package: which versions exist (installed or installable), whether a
// previously selected version is still present, and where its main
// executable lives. One backend per distribution family speaks the native
// tooling; Discovery wraps the detected backend behind a uniform API.
package hostpkg

import (
	"context"

	"github.com/arc-language/hostpkg/pkg/alias"
	"github.com/arc-language/hostpkg/pkg/core"
	"github.com/arc-language/hostpkg/pkg/distro"
	"github.com/arc-language/hostpkg/pkg/platform"
	"github.com/arc-language/hostpkg/pkg/quicktest"
)

// Re-export the main types so embedders need only this package.
type (
	Backend    = distro.Backend
	Candidate  = distro.Candidate
	Selection  = distro.Selection
	QuickTest  = quicktest.T
	Config     = core.Config
	AliasEntry = alias.Entry
)

// DefaultConfig returns a configuration with host defaults filled in.
func DefaultConfig() *Config {
	return core.DefaultConfig()
}

// LoadConfig loads a configuration file, falling back to defaults when
// none exists.
func LoadConfig(path string) (*Config, error) {
	return core.LoadConfig(path)
}

// Discovery is the entry point: one detected backend plus the alias
// registry that maps canonical component names to native package names.
type Discovery struct {
	backend distro.Backend
	aliases *alias.Registry
}

// New detects the host's distribution family and returns a Discovery over
// it. A nil config means defaults: probe the live host.
func New(cfg *Config) (*Discovery, error) {
	if cfg == nil {
		cfg = core.DefaultConfig()
	}
	b, err := platform.Detect(&platform.Config{
		Root:     cfg.Root,
		Backend:  cfg.Backend,
		CacheDir: cfg.CacheDir,
		Timeout:  cfg.Timeout(),
	})
	if err != nil {
		return nil, &Error{Op: "detect", Err: err}
	}
	return &Discovery{
		backend: b,
		aliases: alias.New(cfg.AliasDir, nil),
	}, nil
}

// NewWithBackend wraps an explicit backend, for callers that did their own
// detection. A nil registry disables alias resolution.
func NewWithBackend(b distro.Backend, aliases *alias.Registry) *Discovery {
	if aliases == nil {
		aliases = alias.New("", nil)
	}
	return &Discovery{backend: b, aliases: aliases}
}

// Backend returns the label of the active distribution family.
func (d *Discovery) Backend() string {
	return d.backend.Label()
}

// Resolve maps a canonical component name to the active family's native
// package name. Names without an alias resolve to themselves.
func (d *Discovery) Resolve(name string) (string, error) {
	return d.aliases.Resolve(name, d.backend.Label())
}

// Candidates lists every known version of the named package, installed and
// installable. The name is alias-resolved first; an empty result means the
// family simply has no such package.
func (d *Discovery) Candidates(ctx context.Context, name string) ([]Candidate, error) {
	native, err := d.aliases.Resolve(name, d.backend.Label())
	if err != nil {
		return nil, &Error{Op: "resolve alias", Package: name, Err: err}
	}
	cands, err := d.backend.Candidates(ctx, native)
	if err != nil {
		return nil, &Error{Op: "enumerate", Package: native, Err: err}
	}
	return cands, nil
}

// Refresh asks the family's remote-capable tooling about the given names so
// that later Candidates calls include installable versions.
func (d *Discovery) Refresh(ctx context.Context, names ...string) error {
	resolved := make([]string, 0, len(names))
	for _, name := range names {
		native, err := d.aliases.Resolve(name, d.backend.Label())
		if err != nil {
			return &Error{Op: "resolve alias", Package: name, Err: err}
		}
		resolved = append(resolved, native)
	}
	if err := d.backend.Refresh(ctx, resolved); err != nil {
		return &Error{Op: "refresh", Err: err}
	}
	return nil
}

// IsInstalled reports whether a previously selected candidate is still
// present on the host.
func (d *Discovery) IsInstalled(ctx context.Context, sel Selection) (bool, error) {
	ok, err := d.backend.IsInstalled(ctx, sel)
	if err != nil {
		return false, &Error{Op: "is-installed", Package: sel.ID, Err: err}
	}
	return ok, nil
}

// EntryPoint returns the corrected path of the candidate's main executable.
func (d *Discovery) EntryPoint(c Candidate) string {
	return d.backend.EntryPoint(c)
}
