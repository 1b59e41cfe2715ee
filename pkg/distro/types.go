// pkg/distro/types.go
package distro

import (
	"context"
	"fmt"
	"strings"

	"github.com/arc-language/hostpkg/pkg/quicktest"
	"github.com/arc-language/hostpkg/pkg/version"
)

// Candidate is one concrete package version known to the host's package
// manager, either installed or installable.
type Candidate struct {
	// ID is the canonical identity string,
	// "package:<family>:<name>:<version>:<machine>", with "*" standing for
	// a machine-independent package.
	ID string `yaml:"id"`
	// Name is the distribution-native package name.
	Name string `yaml:"name"`
	// Version is the canonical form of the distribution version.
	Version version.Version `yaml:"version"`
	// Machine is the canonical machine type; empty matches any machine.
	Machine string `yaml:"machine,omitempty"`
	// Installed distinguishes present packages from merely installable ones.
	Installed bool `yaml:"installed"`
	// QuickTest tells how long an installed answer stays trustworthy. It is
	// always zero for uninstalled candidates.
	QuickTest quicktest.T `yaml:"quick_test,omitempty"`
	// Main is the absolute path of the package's primary executable, when
	// the backend can name one.
	Main string `yaml:"main,omitempty"`
	// Size is the download size in bytes for installable candidates, when
	// the source reports one.
	Size int64 `yaml:"size,omitempty"`
	// Distro is the label of the backend that produced this candidate.
	Distro string `yaml:"distro"`
}

// Selection identifies a previously chosen candidate, as recorded in a saved
// selections document.
type Selection struct {
	// ID is the identity string the candidate carried when selected.
	ID string
	// QuickTest, when non-zero, answers IsInstalled without re-querying the
	// package database.
	QuickTest quicktest.T
}

// Backend is the uniform contract between the resolver and one
// package-manager family.
type Backend interface {
	// Label names the distribution family, e.g. "Debian".
	Label() string
	// IsInstalled reports whether the selected candidate is still present.
	IsInstalled(ctx context.Context, sel Selection) (bool, error)
	// Candidates lists every version of pkg the backend knows about,
	// installed and installable, in source order.
	Candidates(ctx context.Context, pkg string) ([]Candidate, error)
	// Refresh asks remote-capable tooling about the given package names so
	// that later Candidates calls include installable versions. It is a
	// no-op for families without such tooling.
	Refresh(ctx context.Context, pkgs []string) error
	// EntryPoint returns the corrected path of the candidate's primary
	// executable, or c.Main unchanged when no correction applies.
	EntryPoint(c Candidate) string
}

// EncodeID builds the canonical identity string for a candidate.
func EncodeID(prefix, name, ver, machine string) string {
	if machine == "" {
		machine = "*"
	}
	return fmt.Sprintf("%s:%s:%s:%s", prefix, name, ver, machine)
}

// SplitID decomposes an identity string produced by EncodeID.
func SplitID(id string) (prefix, name, ver, machine string, err error) {
	fields := strings.SplitN(id, ":", 5)
	if len(fields) != 5 || fields[0] != "package" {
		return "", "", "", "", fmt.Errorf("malformed package id %q", id)
	}
	machine = fields[4]
	if machine == "*" {
		machine = ""
	}
	return fields[0] + ":" + fields[1], fields[2], fields[3], machine, nil
}
