// pkg/windows/backend.go
package windows

import (
	"context"
	"fmt"
	"regexp"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/arc-language/hostpkg/pkg/distro"
	"github.com/arc-language/hostpkg/pkg/quicktest"
)

// View selects a registry view: 32-bit and 64-bit software registers
// separately under WOW64.
type View int

const (
	View32 View = iota
	View64
)

func (v View) machine() string {
	if v == View64 {
		return "x86_64"
	}
	return "i486"
}

// Registry reads values from the Windows registry under HKEY_LOCAL_MACHINE.
// It is an interface so the backend stays testable off-Windows.
type Registry interface {
	// StringValue reads a REG_SZ value.
	StringValue(view View, path, name string) (string, error)
	// IntValue reads a REG_DWORD value.
	IntValue(view View, path, name string) (uint64, error)
}

// Config holds the Windows backend settings.
type Config struct {
	// Registry overrides the registry reader; the default reads the real
	// registry and is only functional on Windows builds.
	Registry Registry

	Meta   distro.MetaPackageManager
	Fs     afero.Fs
	Logger *zerolog.Logger
}

// Backend knows the well-known registry locations of runtimes that Windows
// has no package database for: the Java runtimes and the .NET framework.
type Backend struct {
	base *distro.Base
	reg  Registry
}

// New creates a Windows backend. Zero config fields get defaults.
func New(cfg *Config) *Backend {
	if cfg == nil {
		cfg = &Config{}
	}
	base := distro.NewBase("Windows", "package:windows", distro.Options{
		Meta:   cfg.Meta,
		Fs:     cfg.Fs,
		Logger: cfg.Logger,
	})
	reg := cfg.Registry
	if reg == nil {
		reg = systemRegistry()
	}
	return &Backend{base: base, reg: reg}
}

func (b *Backend) Label() string { return b.base.Label() }

func (b *Backend) IsInstalled(ctx context.Context, sel distro.Selection) (bool, error) {
	return b.base.IsInstalled(ctx, sel, b.Candidates)
}

func (b *Backend) EntryPoint(c distro.Candidate) string {
	return b.base.EntryPoint(c)
}

var javaNameRe = regexp.MustCompile(`^java-([0-9]+)-(jre|jdk)$`)

func (b *Backend) Candidates(_ context.Context, pkg string) ([]distro.Candidate, error) {
	out := b.base.Available(pkg)
	if b.reg == nil {
		return out, nil
	}
	if m := javaNameRe.FindStringSubmatch(pkg); m != nil {
		return append(out, b.javaCandidates(pkg, m[1], m[2])...), nil
	}
	switch pkg {
	case "netfx":
		return append(out, b.netfxCandidates(pkg, netfxKeys)...), nil
	case "netfx-client":
		return append(out, b.netfxCandidates(pkg, netfxClientKeys)...), nil
	}
	return out, nil
}

// javaCandidates probes JavaSoft registry keys in both views. The JavaHome
// value names the installation root; the launcher below it must exist.
func (b *Backend) javaCandidates(pkg, release, kind string) []distro.Candidate {
	keyName := "Java Runtime Environment"
	if kind == "jdk" {
		keyName = "Java Development Kit"
	}
	path := fmt.Sprintf(`SOFTWARE\JavaSoft\%s\1.%s`, keyName, release)

	var cands []distro.Candidate
	for _, view := range []View{View32, View64} {
		home, err := b.reg.StringValue(view, path, "JavaHome")
		if err != nil || home == "" {
			continue
		}
		launcher := home + `\bin\java.exe`
		if ok, _ := afero.Exists(b.base.Fs(), launcher); !ok {
			continue
		}
		cand, ok := b.base.NewCandidate(pkg, release, view.machine(), true, quicktest.Exists(launcher))
		if !ok {
			continue
		}
		cand.Main = launcher
		cands = append(cands, cand)
	}
	return cands
}

type netfxKey struct {
	subkey  string
	version string
}

// Installed .NET releases register under NET Framework Setup with an
// Install flag per version key.
var (
	netfxKeys = []netfxKey{
		{`v2.0.50727`, "2.0"},
		{`v3.0`, "3.0"},
		{`v3.5`, "3.5"},
		{`v4\Full`, "4.0"},
	}
	netfxClientKeys = []netfxKey{
		{`v2.0.50727`, "2.0"},
		{`v3.0`, "3.0"},
		{`v3.5`, "3.5"},
		{`v4\Client`, "4.0"},
	}
)

func (b *Backend) netfxCandidates(pkg string, keys []netfxKey) []distro.Candidate {
	var cands []distro.Candidate
	for _, view := range []View{View32, View64} {
		for _, key := range keys {
			path := `SOFTWARE\Microsoft\NET Framework Setup\NDP\` + key.subkey
			installed, err := b.reg.IntValue(view, path, "Install")
			if err != nil || installed != 1 {
				continue
			}
			cand, ok := b.base.NewCandidate(pkg, key.version, view.machine(), true, quicktest.T{})
			if !ok {
				continue
			}
			cands = append(cands, cand)
		}
	}
	return cands
}

// Refresh can only consult the meta package manager here.
func (b *Backend) Refresh(ctx context.Context, pkgs []string) error {
	if len(pkgs) == 0 {
		return nil
	}
	b.base.RefreshMeta(ctx, pkgs)
	return nil
}
