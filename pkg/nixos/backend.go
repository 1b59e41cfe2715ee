// pkg/nixos/backend.go
package nixos

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"zombiezen.com/go/nix"

	"github.com/arc-language/hostpkg/pkg/distro"
	"github.com/arc-language/hostpkg/pkg/quicktest"
)

// Config holds the NixOS backend settings.
type Config struct {
	// ManifestPath overrides the profile manifest; the default is the
	// user's ~/.nix-profile/manifest.json.
	ManifestPath string

	Meta   distro.MetaPackageManager
	Fs     afero.Fs
	Logger *zerolog.Logger
}

// Backend answers package queries from a nix profile manifest. Every
// profile element points at store paths whose names carry the package name
// and version.
type Backend struct {
	base         *distro.Base
	manifestPath string
}

// New creates a NixOS backend. Zero config fields get defaults.
func New(cfg *Config) *Backend {
	if cfg == nil {
		cfg = &Config{}
	}
	base := distro.NewBase("NixOS", "package:nixos", distro.Options{
		Meta:   cfg.Meta,
		Fs:     cfg.Fs,
		Logger: cfg.Logger,
	})
	b := &Backend{
		base:         base,
		manifestPath: cfg.ManifestPath,
	}
	if b.manifestPath == "" {
		if home, err := os.UserHomeDir(); err == nil {
			b.manifestPath = filepath.Join(home, ".nix-profile", "manifest.json")
		}
	}
	base.FixMain = b.storeMain
	return b
}

func (b *Backend) Label() string { return b.base.Label() }

func (b *Backend) IsInstalled(ctx context.Context, sel distro.Selection) (bool, error) {
	return b.base.IsInstalled(ctx, sel, b.Candidates)
}

func (b *Backend) EntryPoint(c distro.Candidate) string {
	return b.base.EntryPoint(c)
}

// manifest models nix profile manifests. Depending on the writer's version
// the elements are a list or a map keyed by element name.
type manifest struct {
	Elements json.RawMessage `json:"elements"`
}

type element struct {
	Active     *bool    `json:"active"`
	StorePaths []string `json:"storePaths"`
}

func (b *Backend) Candidates(_ context.Context, pkg string) ([]distro.Candidate, error) {
	out := b.base.Available(pkg)

	elements, err := b.readManifest()
	if err != nil {
		logger := b.base.Logger()
		logger.Debug().Err(err).Str("manifest", b.manifestPath).Msg("no profile manifest")
		return out, nil
	}
	for _, el := range elements {
		if el.Active != nil && !*el.Active {
			continue
		}
		for _, raw := range el.StorePaths {
			sp, err := nix.ParseStorePath(raw)
			if err != nil {
				logger := b.base.Logger()
				logger.Warn().Err(err).Str("path", raw).Msg("skipping malformed store path")
				continue
			}
			name, ver := splitNameVersion(sp.Name())
			if name != pkg || ver == "" {
				continue
			}
			// The store object itself can be garbage-collected away, so
			// that is what the quick test watches.
			cand, ok := b.base.NewCandidate(pkg, ver, "", true, quicktest.Exists(string(sp)))
			if !ok {
				continue
			}
			out = append(out, cand)
		}
	}
	return out, nil
}

func (b *Backend) readManifest() ([]element, error) {
	data, err := afero.ReadFile(b.base.Fs(), b.manifestPath)
	if err != nil {
		return nil, err
	}
	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	var list []element
	if err := json.Unmarshal(m.Elements, &list); err == nil {
		return list, nil
	}
	var keyed map[string]element
	if err := json.Unmarshal(m.Elements, &keyed); err != nil {
		return nil, err
	}
	list = make([]element, 0, len(keyed))
	for _, el := range keyed {
		list = append(list, el)
	}
	return list, nil
}

// storeMain probes the store object for a launcher named after the package.
// The quick test already carries the store path of an installed candidate.
func (b *Backend) storeMain(c distro.Candidate) string {
	if c.QuickTest.Kind != quicktest.KindExists || c.QuickTest.Path == "" {
		return ""
	}
	launcher := filepath.Join(c.QuickTest.Path, "bin", c.Name)
	if ok, _ := afero.Exists(b.base.Fs(), launcher); ok {
		return launcher
	}
	return ""
}

// splitNameVersion separates "ffmpeg-full-6.1.1" into name and version: the
// version begins at the first dash followed by a digit.
func splitNameVersion(full string) (name, ver string) {
	for i := 0; i+1 < len(full); i++ {
		if full[i] == '-' && full[i+1] >= '0' && full[i+1] <= '9' {
			return full[:i], full[i+1:]
		}
	}
	return full, ""
}

// Refresh can only consult the meta package manager here; asking a nix
// channel about candidates would mean evaluating expressions.
func (b *Backend) Refresh(ctx context.Context, pkgs []string) error {
	if len(pkgs) == 0 {
		return nil
	}
	b.base.RefreshMeta(ctx, pkgs)
	return nil
}
