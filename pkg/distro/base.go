// pkg/distro/base.go
package distro

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/arc-language/hostpkg/pkg/cache"
	"github.com/arc-language/hostpkg/pkg/quicktest"
	"github.com/arc-language/hostpkg/pkg/version"
)

// Options carries the collaborators shared by every backend. Zero fields
// get working defaults, so tests can fill in only what they fake.
type Options struct {
	Runner Runner
	Meta   MetaPackageManager
	Fs     afero.Fs
	Logger *zerolog.Logger
}

// Base implements the parts of a backend that are the same across families:
// candidate construction with version normalization, identity encoding, the
// memo of installable candidates gathered by Refresh, and the generic
// IsInstalled walk. Family backends embed a *Base and plug in behavior
// through the two strategy hooks instead of overriding methods.
type Base struct {
	label  string
	prefix string
	run    Runner
	meta   MetaPackageManager
	fs     afero.Fs
	log    zerolog.Logger

	// FixVersion, when set, rewrites a raw distribution version string
	// before normalization. Families use it for vocabulary quirks such as
	// Debian's "6b22" JDK versions.
	FixVersion func(pkg, raw string) string
	// FixMain, when set, maps a candidate to a corrected entry-point path.
	// Returning "" keeps the candidate's recorded path.
	FixMain func(c Candidate) string

	mu        sync.Mutex
	metaCands map[string][]Candidate
	toolCands map[string][]Candidate
}

// NewBase builds the shared scaffolding for one family.
func NewBase(label, prefix string, opts Options) *Base {
	b := &Base{
		label:  label,
		prefix: prefix,
		run:    opts.Runner,
		meta:   opts.Meta,
		fs:     opts.Fs,
	}
	if b.run == nil {
		b.run = NewExecRunner(0)
	}
	if b.meta == nil {
		b.meta = NoMeta{}
	}
	if b.fs == nil {
		b.fs = afero.NewOsFs()
	}
	logger := log.Logger
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	b.log = logger.With().Str("distro", label).Logger()
	return b
}

func (b *Base) Label() string          { return b.label }
func (b *Base) Prefix() string         { return b.prefix }
func (b *Base) Runner() Runner         { return b.run }
func (b *Base) Fs() afero.Fs           { return b.fs }
func (b *Base) Logger() zerolog.Logger { return b.log }

// NewCandidate normalizes the raw version and machine strings and builds a
// fully encoded candidate. It returns false, with a warning logged, when the
// version has no canonical form; such packages are skipped rather than
// failing the whole query. Uninstalled candidates never keep a quick test.
func (b *Base) NewCandidate(name, rawVersion, rawMachine string, installed bool, qt quicktest.T) (Candidate, bool) {
	raw := rawVersion
	if b.FixVersion != nil {
		raw = b.FixVersion(name, raw)
	}
	v, ok := version.Clean(raw)
	if !ok {
		b.log.Warn().
			Str("package", name).
			Str("version", rawVersion).
			Msg("ignoring candidate with unparseable version")
		return Candidate{}, false
	}
	machine := CanonicalMachine(rawMachine)
	if !installed {
		qt = quicktest.T{}
	}
	return Candidate{
		ID:        EncodeID(b.prefix, name, v.String(), machine),
		Name:      name,
		Version:   v,
		Machine:   machine,
		Installed: installed,
		QuickTest: qt,
		Distro:    b.label,
	}, true
}

// EncodeEntry renders the cache value for one candidate: the canonical
// version and machine joined by a tab.
func EncodeEntry(c Candidate) string {
	machine := c.Machine
	if machine == "" {
		machine = "*"
	}
	return c.Version.String() + "\t" + machine
}

// DecodeEntry rebuilds an installed candidate from a cache value written by
// EncodeEntry, attaching the cache's quick test.
func (b *Base) DecodeEntry(pkg, value string, qt quicktest.T) (Candidate, bool) {
	ver, machine, ok := strings.Cut(value, "\t")
	if !ok {
		b.log.Debug().Str("package", pkg).Str("value", value).Msg("skipping malformed cache entry")
		return Candidate{}, false
	}
	v, err := version.Parse(ver)
	if err != nil {
		b.log.Debug().Str("package", pkg).Str("value", value).Msg("skipping cache entry with bad version")
		return Candidate{}, false
	}
	if machine == "*" {
		machine = ""
	}
	return Candidate{
		ID:        EncodeID(b.prefix, pkg, v.String(), machine),
		Name:      pkg,
		Version:   v,
		Machine:   machine,
		Installed: true,
		QuickTest: qt,
		Distro:    b.label,
	}, true
}

// CachedCandidates reads pkg's installed candidates through a cache,
// invoking miss for keys the cache cannot answer. Sentinel and malformed
// values are skipped.
func (b *Base) CachedCandidates(c *cache.Cache, pkg string, miss cache.MissFunc) ([]Candidate, error) {
	values, qt, err := c.Get(pkg, miss)
	if err != nil {
		return nil, err
	}
	var out []Candidate
	for _, v := range values {
		if v == cache.Missing {
			continue
		}
		if cand, ok := b.DecodeEntry(pkg, v, qt); ok {
			out = append(out, cand)
		}
	}
	return out, nil
}

// Available returns the installable candidates gathered for pkg by earlier
// Refresh calls: meta-manager results first, then native tool results.
func (b *Base) Available(pkg string) []Candidate {
	b.mu.Lock()
	defer b.mu.Unlock()
	meta, tool := b.metaCands[pkg], b.toolCands[pkg]
	if len(meta)+len(tool) == 0 {
		return nil
	}
	out := make([]Candidate, 0, len(meta)+len(tool))
	out = append(out, meta...)
	return append(out, tool...)
}

// SetToolCandidates replaces the native-tool refresh results for one name.
func (b *Base) SetToolCandidates(pkg string, cands []Candidate) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.toolCands == nil {
		b.toolCands = make(map[string][]Candidate)
	}
	b.toolCands[pkg] = sanitize(cands)
}

func (b *Base) setMetaCandidates(pkg string, cands []Candidate) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.metaCands == nil {
		b.metaCands = make(map[string][]Candidate)
	}
	b.metaCands[pkg] = sanitize(cands)
}

// sanitize enforces the uninstalled-candidates-carry-no-quick-test rule on
// candidates crossing the meta boundary.
func sanitize(cands []Candidate) []Candidate {
	for i := range cands {
		if !cands[i].Installed {
			cands[i].QuickTest = quicktest.T{}
		}
	}
	return cands
}

// RefreshMeta offers the names to the meta package manager. It reports true
// when the meta layer was reachable and has taken over the refresh, in which
// case the native tools must not be consulted.
func (b *Base) RefreshMeta(ctx context.Context, names []string) bool {
	if !b.meta.IsAvailable(ctx) {
		return false
	}
	found, err := b.meta.QueryAvailable(ctx, names)
	if err != nil {
		b.log.Warn().Err(err).Msg("meta package manager query failed")
		return false
	}
	for _, name := range names {
		b.setMetaCandidates(name, found[name])
	}
	return true
}

// IsInstalled answers the generic installation check: an attached quick test
// decides directly, otherwise the family's candidates are re-enumerated and
// matched by identity.
func (b *Base) IsInstalled(ctx context.Context, sel Selection, enumerate func(context.Context, string) ([]Candidate, error)) (bool, error) {
	if !sel.QuickTest.IsZero() {
		return sel.QuickTest.Valid(b.fs), nil
	}
	_, name, _, _, err := SplitID(sel.ID)
	if err != nil {
		return false, err
	}
	cands, err := enumerate(ctx, name)
	if err != nil {
		return false, err
	}
	for _, c := range cands {
		if c.Installed && c.ID == sel.ID {
			return true, nil
		}
	}
	return false, nil
}

// EntryPoint applies the family's entry-point correction, if any.
func (b *Base) EntryPoint(c Candidate) string {
	if b.FixMain != nil {
		if m := b.FixMain(c); m != "" {
			return m
		}
	}
	return c.Main
}
