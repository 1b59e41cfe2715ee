// pkg/debian/backend.go
package debian

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/arc-language/hostpkg/pkg/cache"
	"github.com/arc-language/hostpkg/pkg/distro"
	"github.com/arc-language/hostpkg/pkg/quicktest"
)

const (
	// DefaultStatusFile is the dpkg database of installed packages.
	DefaultStatusFile = "/var/lib/dpkg/status"
	// DefaultListsDir holds the downloaded apt package indices.
	DefaultListsDir = "/var/lib/apt/lists"
	// DefaultArchivesDir holds .deb files fetched by apt.
	DefaultArchivesDir = "/var/cache/apt/archives"

	dpkgQueryCommand = "dpkg-query"
	aptCacheCommand  = "apt-cache"

	statusFormat = "${Version}\t${Architecture}\t${Status}\n"

	cacheFormat        = 1
	defaultMaxParallel = 4
)

// Config holds the Debian backend settings.
type Config struct {
	// StatusFile overrides the dpkg status database path.
	StatusFile string
	// ListsDir overrides the apt package index directory.
	ListsDir string
	// ArchivesDir overrides the apt archive directory.
	ArchivesDir string
	// CachePath overrides where the installed-package cache is written.
	CachePath string
	// Timeout bounds one external tool invocation.
	Timeout time.Duration
	// MaxParallel bounds concurrent apt-cache lookups during Refresh.
	MaxParallel int

	Runner distro.Runner
	Meta   distro.MetaPackageManager
	Fs     afero.Fs
	Logger *zerolog.Logger
}

// Backend answers package queries on dpkg/apt systems. Installed versions
// come from dpkg-query, shadowed by a persistent cache keyed on the status
// file; installable versions come from apt-cache, the apt indices or .deb
// files already fetched into the archive directory.
type Backend struct {
	base        *distro.Base
	cache       *cache.Cache
	statusFile  string
	listsDir    string
	archivesDir string
	maxParallel int
}

// New creates a Debian backend. Zero config fields get defaults.
func New(cfg *Config) *Backend {
	if cfg == nil {
		cfg = &Config{}
	}
	runner := cfg.Runner
	if runner == nil {
		runner = distro.NewExecRunner(cfg.Timeout)
	}
	base := distro.NewBase("Debian", "package:deb", distro.Options{
		Runner: runner,
		Meta:   cfg.Meta,
		Fs:     cfg.Fs,
		Logger: cfg.Logger,
	})
	base.FixVersion = fixVersion

	b := &Backend{
		base:        base,
		statusFile:  cfg.StatusFile,
		listsDir:    cfg.ListsDir,
		archivesDir: cfg.ArchivesDir,
		maxParallel: cfg.MaxParallel,
	}
	if b.statusFile == "" {
		b.statusFile = DefaultStatusFile
	}
	if b.listsDir == "" {
		b.listsDir = DefaultListsDir
	}
	if b.archivesDir == "" {
		b.archivesDir = DefaultArchivesDir
	}
	if b.maxParallel <= 0 {
		b.maxParallel = defaultMaxParallel
	}
	base.FixMain = b.fixJavaMain

	cachePath := cfg.CachePath
	if cachePath == "" {
		cachePath = filepath.Join(cache.DefaultDir(), "dpkg-status.cache")
	}
	b.cache = cache.New(&cache.Config{
		Path:       cachePath,
		Source:     b.statusFile,
		Format:     cacheFormat,
		Separators: cache.SeparatorsTab,
		Fs:         base.Fs(),
		Logger:     cfg.Logger,
	})
	return b
}

func (b *Backend) Label() string { return b.base.Label() }

func (b *Backend) IsInstalled(ctx context.Context, sel distro.Selection) (bool, error) {
	return b.base.IsInstalled(ctx, sel, b.Candidates)
}

func (b *Backend) EntryPoint(c distro.Candidate) string {
	return b.base.EntryPoint(c)
}

// Candidates lists installable candidates gathered by Refresh followed by
// the installed versions according to dpkg.
func (b *Backend) Candidates(ctx context.Context, pkg string) ([]distro.Candidate, error) {
	out := b.base.Available(pkg)
	installed, err := b.base.CachedCandidates(b.cache, pkg, b.statusMiss(ctx))
	if err != nil {
		return nil, fmt.Errorf("querying dpkg status for %s: %w", pkg, err)
	}
	return append(out, installed...), nil
}

// statusMiss asks dpkg-query about one package and renders cache values. A
// failing query means dpkg does not know the package; the sentinel records
// that so the next lookup is answered from the cache.
func (b *Backend) statusMiss(ctx context.Context) cache.MissFunc {
	return func(pkg string) []string {
		out, err := b.base.Runner().Run(ctx, dpkgQueryCommand,
			"-W", "--showformat="+statusFormat, "--", pkg)
		if err != nil {
			logger := b.base.Logger()
			logger.Debug().Err(err).Str("package", pkg).Msg("dpkg-query returned nothing")
			return []string{cache.Missing}
		}

		var values []string
		for _, line := range strings.Split(string(out), "\n") {
			if line == "" {
				continue
			}
			fields := strings.SplitN(line, "\t", 3)
			if len(fields) != 3 || !strings.HasSuffix(fields[2], " installed") {
				continue
			}
			machine := fields[1]
			// Multiarch qualifiers like "kfreebsd-amd64" keep only the
			// final component.
			if i := strings.LastIndex(machine, "-"); i >= 0 {
				machine = machine[i+1:]
			}
			if cand, ok := b.base.NewCandidate(pkg, fields[0], machine, true, quicktest.T{}); ok {
				values = append(values, distro.EncodeEntry(cand))
			}
		}
		if len(values) == 0 {
			return []string{cache.Missing}
		}
		return values
	}
}

// Refresh gathers installable candidates. The meta package manager takes
// precedence; otherwise apt-cache is asked per name, or the apt indices are
// read directly when apt-cache is missing. Packages already downloaded into
// the archive directory are merged in either way.
func (b *Backend) Refresh(ctx context.Context, pkgs []string) error {
	if len(pkgs) == 0 {
		return nil
	}
	if b.base.RefreshMeta(ctx, pkgs) {
		return nil
	}

	useApt := b.base.Runner().Available(aptCacheCommand)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.maxParallel)
	for _, pkg := range pkgs {
		pkg := pkg
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			var cands []distro.Candidate
			if useApt {
				cands = b.aptCacheCandidates(ctx, pkg)
			} else {
				cands = b.indexCandidates(pkg)
			}
			cands = append(cands, b.archiveCandidates(pkg)...)
			b.base.SetToolCandidates(pkg, cands)
			return nil
		})
	}
	return g.Wait()
}

// aptCacheCandidates parses "apt-cache show --no-all-versions" output: one
// stanza per source with Version, Architecture and Size fields.
func (b *Backend) aptCacheCandidates(ctx context.Context, pkg string) []distro.Candidate {
	out, err := b.base.Runner().Run(ctx, aptCacheCommand,
		"show", "--no-all-versions", "--", pkg)
	if err != nil {
		logger := b.base.Logger()
		logger.Debug().Err(err).Str("package", pkg).Msg("apt-cache knows nothing")
		return nil
	}

	var cands []distro.Candidate
	var ver, arch string
	var size int64
	flush := func() {
		if ver == "" {
			return
		}
		if cand, ok := b.base.NewCandidate(pkg, ver, arch, false, quicktest.T{}); ok {
			cand.Size = size
			cands = append(cands, cand)
		}
		ver, arch, size = "", "", 0
	}
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimRight(line, "\r")
		switch {
		case line == "":
			flush()
		case strings.HasPrefix(line, "Version: "):
			ver = strings.TrimSpace(line[len("Version: "):])
		case strings.HasPrefix(line, "Architecture: "):
			arch = strings.TrimSpace(line[len("Architecture: "):])
		case strings.HasPrefix(line, "Size: "):
			size, _ = strconv.ParseInt(strings.TrimSpace(line[len("Size: "):]), 10, 64)
		}
	}
	flush()
	return cands
}

// fixVersion rewrites Debian's JDK versioning: a leading "6b22" means
// "6.0 beta 22" and must read as "6.22" to stay comparable.
var javaBetaRe = regexp.MustCompile(`^(\d+)b(\d+)`)

func fixVersion(_, raw string) string {
	return javaBetaRe.ReplaceAllString(raw, "$1.$2")
}

// fixJavaMain locates the JVM launcher for openjdk/sun JRE packages, whose
// feeds record a bare "java" command. Multiarch installations hide it under
// an architecture-qualified directory.
var javaPkgRe = regexp.MustCompile(`^(?:openjdk-(\d+)-jre|sun-java(\d+)-jre)$`)

func (b *Backend) fixJavaMain(c distro.Candidate) string {
	m := javaPkgRe.FindStringSubmatch(c.Name)
	if m == nil {
		return ""
	}
	release, flavor := m[1], "openjdk"
	if release == "" {
		release, flavor = m[2], "sun"
	}

	var paths []string
	if deb := debianMachine(c.Machine); deb != "" {
		paths = append(paths, fmt.Sprintf("/usr/lib/jvm/java-%s-%s-%s/jre/bin/java", release, flavor, deb))
	}
	paths = append(paths, fmt.Sprintf("/usr/lib/jvm/java-%s-%s/jre/bin/java", release, flavor))

	for _, p := range paths {
		if ok, _ := afero.Exists(b.base.Fs(), p); ok {
			return p
		}
	}
	return ""
}

// debianMachine maps a canonical machine type back to Debian's architecture
// vocabulary.
func debianMachine(canon string) string {
	switch canon {
	case "x86_64":
		return "amd64"
	case "i386", "i486", "i586", "i686":
		return "i386"
	case "aarch64":
		return "arm64"
	case "armv7l":
		return "armhf"
	case "ppc64le":
		return "ppc64el"
	}
	return canon
}
