// pkg/cache/cache.go
package cache

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/arc-language/hostpkg/pkg/quicktest"
)

// Missing is the sentinel value recorded when a query completed but found
// nothing. It distinguishes "checked, empty" from "never checked" so that
// negative answers are cached too. Callers must skip it when reading values.
const Missing = "-"

// Separators selects the key/value delimiters of a cache file. The header
// always uses '='; older file formats also used '=' in the body, newer ones
// use a tab so that values may themselves contain '='.
type Separators struct {
	Header string
	Body   string
}

var (
	SeparatorsTab    = Separators{Header: "=", Body: "\t"}
	SeparatorsEquals = Separators{Header: "=", Body: "="}
)

// MissFunc computes the values for a key that has no cache entry yet. The
// returned values are persisted and handed back to the caller; returning nil
// records nothing, so the key stays unanswered.
type MissFunc func(key string) []string

// RegenerateFunc pre-populates a freshly invalidated cache in one pass. put
// appends values for a key exactly like Cache.Put.
type RegenerateFunc func(put func(key string, values []string))

// Config describes one cache file and the source of truth it shadows.
type Config struct {
	// Path is the cache file location. Parent directories are created on
	// first write.
	Path string
	// Source is the package-database file whose mtime and size decide
	// staleness. The cache is only ever valid for one exact state of it.
	Source string
	// Format is the writer's schema version. A mismatch invalidates the
	// whole file.
	Format int
	// Separators defaults to SeparatorsTab.
	Separators Separators
	// Regenerate, when set, refills the cache in bulk right after an
	// invalidation, before per-key miss handlers run.
	Regenerate RegenerateFunc
	// Fs defaults to the real filesystem.
	Fs afero.Fs
	// Logger defaults to the global logger.
	Logger *zerolog.Logger
}

// Cache is a persistent string-list store bound to a source file. All reads
// revalidate against the source first, so a cached answer is never served
// across a package-database change. A Cache is safe for concurrent use
// within one process; cross-process writers are not coordinated.
type Cache struct {
	path       string
	source     string
	format     int
	seps       Separators
	regenerate RegenerateFunc
	fs         afero.Fs
	log        zerolog.Logger

	mu            sync.Mutex
	loaded        bool
	corrupt       bool
	warnedMissing bool
	head          header
	entries       map[string][]string
}

type header struct {
	mtime  int64
	size   int64
	format int
}

// New creates a cache for cfg. Nothing is read from disk until the first
// access.
func New(cfg *Config) *Cache {
	if cfg == nil {
		cfg = &Config{}
	}
	c := &Cache{
		path:       cfg.Path,
		source:     cfg.Source,
		format:     cfg.Format,
		seps:       cfg.Separators,
		regenerate: cfg.Regenerate,
		fs:         cfg.Fs,
		log:        log.Logger,
	}
	if c.seps == (Separators{}) {
		c.seps = SeparatorsTab
	}
	if c.fs == nil {
		c.fs = afero.NewOsFs()
	}
	if cfg.Logger != nil {
		c.log = *cfg.Logger
	}
	return c
}

// Source returns the bound source-of-truth path.
func (c *Cache) Source() string {
	return c.source
}

// Get returns the values recorded for key, revalidating the whole cache
// against the source file first. When no entry exists and miss is non-nil,
// miss is invoked once, its non-empty result persisted, and that result
// returned. The quick test describes how long the answer stays trustworthy.
func (c *Cache) Get(key string, miss MissFunc) ([]string, quicktest.T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sourceOK, err := c.ensureFresh()
	if err != nil {
		return nil, quicktest.T{}, err
	}

	values, ok := c.entries[key]
	if !ok && miss != nil {
		values = miss(key)
		if len(values) > 0 {
			if !sourceOK {
				// No header binds the file to a source state right now, so
				// the result is only mirrored in memory.
				c.entries[key] = append(c.entries[key], values...)
			} else if err := c.append(key, values); err != nil {
				return nil, quicktest.T{}, err
			}
		}
	}

	var qt quicktest.T
	if sourceOK {
		qt = c.quickTest()
	}
	return values, qt, nil
}

// Put appends values under key and mirrors them in memory. Existing values
// for the key are kept; an invalidation is the only way entries disappear.
// Appending no values is a no-op.
func (c *Cache) Put(key string, values []string) error {
	if len(values) == 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.ensureFresh(); err != nil {
		return err
	}
	return c.append(key, values)
}

// QuickTest returns the revalidation rule for answers served from the cache
// in its current state.
func (c *Cache) QuickTest() quicktest.T {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loaded {
		if _, err := c.ensureFresh(); err != nil {
			return quicktest.T{}
		}
	}
	return c.quickTest()
}

func (c *Cache) quickTest() quicktest.T {
	if c.head.mtime == 0 {
		return quicktest.T{}
	}
	return quicktest.UnchangedSince(c.source, time.Unix(c.head.mtime, 0))
}

// ensureFresh loads the cache lazily and rebuilds it whenever the source
// file no longer matches the stored header. It reports whether the source
// was statable; when it is not, whatever is on disk is served as-is.
func (c *Cache) ensureFresh() (bool, error) {
	info, err := c.fs.Stat(c.source)
	if err != nil {
		if !c.warnedMissing {
			c.log.Warn().Str("source", c.source).Msg("package database missing; serving stale cache")
			c.warnedMissing = true
		}
		if !c.loaded {
			if err := c.load(); err != nil {
				return false, err
			}
		}
		return false, nil
	}
	c.warnedMissing = false

	if !c.loaded {
		if err := c.load(); err != nil {
			return true, err
		}
	}
	if c.corrupt || c.head.mtime != info.ModTime().Unix() || c.head.size != info.Size() || c.head.format != c.format {
		if err := c.rebuild(info.ModTime().Unix(), info.Size()); err != nil {
			return true, err
		}
	}
	return true, nil
}

// load parses the cache file into memory. A missing file loads as empty with
// a zero header, which the staleness check then treats as a rebuild trigger.
func (c *Cache) load() error {
	c.entries = make(map[string][]string)
	c.head = header{}
	c.corrupt = false
	c.loaded = true

	f, err := c.fs.Open(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("opening cache %s: %w", c.path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	inHeader := true
	for scanner.Scan() {
		line := scanner.Text()
		if inHeader {
			if line == "" {
				inHeader = false
				continue
			}
			k, v, ok := strings.Cut(line, c.seps.Header)
			if !ok {
				c.corrupt = true
				return nil
			}
			switch k {
			case "mtime":
				c.head.mtime, err = strconv.ParseInt(v, 10, 64)
			case "size":
				c.head.size, err = strconv.ParseInt(v, 10, 64)
			case "format":
				c.head.format, err = strconv.Atoi(v)
			default:
				// Unknown header fields from newer writers are ignored.
			}
			if err != nil {
				c.corrupt = true
				return nil
			}
			continue
		}
		k, v, ok := strings.Cut(line, c.seps.Body)
		if !ok {
			c.corrupt = true
			return nil
		}
		c.entries[k] = append(c.entries[k], v)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading cache %s: %w", c.path, err)
	}
	if inHeader {
		// Never reached the blank line: truncated file.
		c.corrupt = true
	}
	return nil
}

// rebuild discards the cache, writes a fresh header for the current source
// state, runs the regeneration hook and reloads the result from disk.
func (c *Cache) rebuild(mtime, size int64) error {
	c.log.Debug().
		Str("cache", c.path).
		Str("source", c.source).
		Msg("cache out of date; rebuilding")

	if dir := filepath.Dir(c.path); dir != "." {
		if err := c.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating cache dir: %w", err)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "mtime%s%d\n", c.seps.Header, mtime)
	fmt.Fprintf(&b, "size%s%d\n", c.seps.Header, size)
	fmt.Fprintf(&b, "format%s%d\n", c.seps.Header, c.format)
	b.WriteString("\n")
	if err := afero.WriteFile(c.fs, c.path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("writing cache %s: %w", c.path, err)
	}

	c.entries = make(map[string][]string)
	c.head = header{mtime: mtime, size: size, format: c.format}
	c.corrupt = false

	if c.regenerate != nil {
		var regenErr error
		c.regenerate(func(key string, values []string) {
			if regenErr == nil && len(values) > 0 {
				regenErr = c.append(key, values)
			}
		})
		if regenErr != nil {
			return regenErr
		}
	}
	return c.load()
}

// append writes one line per value and mirrors the entry in memory. The
// lines go out in a single write so a crash cannot leave a partial record
// behind a complete one.
func (c *Cache) append(key string, values []string) error {
	var b strings.Builder
	for _, v := range values {
		b.WriteString(key)
		b.WriteString(c.seps.Body)
		b.WriteString(v)
		b.WriteString("\n")
	}

	f, err := c.fs.OpenFile(c.path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening cache %s for append: %w", c.path, err)
	}
	defer f.Close()
	if _, err := f.WriteString(b.String()); err != nil {
		return fmt.Errorf("appending to cache %s: %w", c.path, err)
	}

	c.entries[key] = append(c.entries[key], values...)
	return nil
}
