// pkg/rpm/backend.go
package rpm

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/arc-language/hostpkg/pkg/cache"
	"github.com/arc-language/hostpkg/pkg/distro"
	"github.com/arc-language/hostpkg/pkg/quicktest"
)

const (
	rpmCommand = "rpm"

	// queryFormat dumps the whole installed set in one pass; per-package
	// rpm invocations are too slow to be the miss path.
	queryFormat = "%{NAME}\t%{VERSION}-%{RELEASE}\t%{ARCH}\n"

	cacheFormat = 1
)

// rpmDBPaths lists known locations of the rpm database, newest layout
// first.
var rpmDBPaths = []string{
	"/var/lib/rpm/rpmdb.sqlite",
	"/var/lib/rpm/Packages",
}

// Config holds the RPM backend settings.
type Config struct {
	// DBPath overrides the rpm database file watched for staleness.
	DBPath string
	// ArchivesDir is scanned recursively for downloaded .rpm files.
	ArchivesDir string
	// CachePath overrides where the installed-package cache is written.
	CachePath string
	// Timeout bounds one rpm invocation.
	Timeout time.Duration

	Runner distro.Runner
	Meta   distro.MetaPackageManager
	Fs     afero.Fs
	Logger *zerolog.Logger
}

// Backend answers package queries on rpm systems (Fedora, RHEL, openSUSE).
// Unlike dpkg there is no cheap per-package query, so the cache is rebuilt
// from one "rpm -qa" dump whenever the rpm database changes.
type Backend struct {
	base        *distro.Base
	cache       *cache.Cache
	archivesDir string
}

// New creates an RPM backend. Zero config fields get defaults.
func New(cfg *Config) *Backend {
	if cfg == nil {
		cfg = &Config{}
	}
	runner := cfg.Runner
	if runner == nil {
		runner = distro.NewExecRunner(cfg.Timeout)
	}
	base := distro.NewBase("RPM", "package:rpm", distro.Options{
		Runner: runner,
		Meta:   cfg.Meta,
		Fs:     cfg.Fs,
		Logger: cfg.Logger,
	})
	base.FixVersion = fixVersion
	base.FixMain = fixJavaMain(base.Fs())

	b := &Backend{
		base:        base,
		archivesDir: cfg.ArchivesDir,
	}
	if b.archivesDir == "" {
		b.archivesDir = "/var/cache/dnf"
	}

	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = detectDBPath(base.Fs())
	}
	cachePath := cfg.CachePath
	if cachePath == "" {
		cachePath = filepath.Join(cache.DefaultDir(), "rpm-status.cache")
	}
	b.cache = cache.New(&cache.Config{
		Path:       cachePath,
		Source:     dbPath,
		Format:     cacheFormat,
		Separators: cache.SeparatorsTab,
		Regenerate: b.regenerate,
		Fs:         base.Fs(),
		Logger:     cfg.Logger,
	})
	return b
}

func detectDBPath(fs afero.Fs) string {
	for _, p := range rpmDBPaths {
		if ok, _ := afero.Exists(fs, p); ok {
			return p
		}
	}
	return rpmDBPaths[len(rpmDBPaths)-1]
}

func (b *Backend) Label() string { return b.base.Label() }

func (b *Backend) IsInstalled(ctx context.Context, sel distro.Selection) (bool, error) {
	return b.base.IsInstalled(ctx, sel, b.Candidates)
}

func (b *Backend) EntryPoint(c distro.Candidate) string {
	return b.base.EntryPoint(c)
}

// Candidates lists refresh results followed by installed versions from the
// cache. There is no per-package miss handler: the regeneration dump is the
// only writer, so an absent key simply means "not installed".
func (b *Backend) Candidates(ctx context.Context, pkg string) ([]distro.Candidate, error) {
	out := b.base.Available(pkg)
	installed, err := b.base.CachedCandidates(b.cache, pkg, nil)
	if err != nil {
		return nil, fmt.Errorf("querying rpm database for %s: %w", pkg, err)
	}
	return append(out, installed...), nil
}

// regenerate refills the cache from one bulk query of the rpm database.
func (b *Backend) regenerate(put func(key string, values []string)) {
	out, err := b.base.Runner().Run(context.Background(), rpmCommand, "-qa", "--qf", queryFormat)
	if err != nil {
		logger := b.base.Logger()
		logger.Warn().Err(err).Msg("rpm -qa failed; cache stays empty")
		return
	}
	for _, line := range strings.Split(string(out), "\n") {
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, "\t", 3)
		if len(fields) != 3 {
			continue
		}
		name := fields[0]
		// Imported signing keys show up as pseudo-packages.
		if name == "gpg-pubkey" {
			continue
		}
		if cand, ok := b.base.NewCandidate(name, fields[1], fields[2], true, quicktest.T{}); ok {
			put(name, []string{distro.EncodeEntry(cand)})
		}
	}
}

// Refresh defers to the meta package manager when reachable; otherwise the
// only extra source is .rpm files already downloaded by dnf or yum.
func (b *Backend) Refresh(ctx context.Context, pkgs []string) error {
	if len(pkgs) == 0 {
		return nil
	}
	if b.base.RefreshMeta(ctx, pkgs) {
		return nil
	}
	for _, pkg := range pkgs {
		if err := ctx.Err(); err != nil {
			return err
		}
		b.base.SetToolCandidates(pkg, b.archiveCandidates(pkg))
	}
	return nil
}

// fixVersion rewrites JDK-style versions such as "1.7.0_45", where the
// underscore separates an update number, not a release part.
var jdkUpdateRe = regexp.MustCompile(`^[0-9]+\.[^_]*_`)

func fixVersion(_, raw string) string {
	if jdkUpdateRe.MatchString(raw) {
		return strings.ReplaceAll(raw, "_", ".")
	}
	return raw
}

// fixJavaMain points openjdk JRE packages at the real launcher, e.g.
// /usr/lib/jvm/jre-1.7.0-openjdk/bin/java for java-1.7.0-openjdk.
func fixJavaMain(fs afero.Fs) func(distro.Candidate) string {
	return func(c distro.Candidate) string {
		if !strings.HasPrefix(c.Name, "java-") || !strings.Contains(c.Name, "-openjdk") {
			return ""
		}
		p := "/usr/lib/jvm/jre-" + strings.TrimPrefix(c.Name, "java-") + "/bin/java"
		if ok, _ := afero.Exists(fs, p); ok {
			return p
		}
		return ""
	}
}
