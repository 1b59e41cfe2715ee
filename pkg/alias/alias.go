// pkg/alias/alias.go
package alias

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/afero"
)

// ErrNotFound reports that no alias file exists for a name.
var ErrNotFound = errors.New("alias not found")

// Entry is one aliases/<name>.toml file. It maps a canonical component name
// to the native package name of each distribution family.
//
//	name = "sqlite3"
//	[families]
//	debian = "libsqlite3-0"
//	rpm    = "sqlite-libs"
type Entry struct {
	Name     string            `toml:"name"`
	Families map[string]string `toml:"families"`
}

// Registry looks up alias entries in a directory of per-name TOML files.
type Registry struct {
	dir string
	fs  afero.Fs
}

// New creates a Registry over dir. A nil fs means the host filesystem.
func New(dir string, fs afero.Fs) *Registry {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Registry{dir: dir, fs: fs}
}

// DefaultDir is where the CLI keeps alias files.
func DefaultDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(base, "hostpkg", "aliases")
}

// Load reads and parses aliases/<name>.toml. A missing file is ErrNotFound.
func (r *Registry) Load(name string) (*Entry, error) {
	if r.dir == "" {
		return nil, ErrNotFound
	}
	path := filepath.Join(r.dir, name+".toml")
	data, err := afero.ReadFile(r.fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("alias: reading %s: %w", path, err)
	}
	var entry Entry
	if _, err := toml.Decode(string(data), &entry); err != nil {
		return nil, fmt.Errorf("alias: parsing %s: %w", path, err)
	}
	return &entry, nil
}

// Resolve maps a canonical name to the family's native package name. A name
// with no alias file, or an entry without that family, resolves to itself.
// Family matching is case-insensitive so backend labels work directly.
func (r *Registry) Resolve(name, family string) (string, error) {
	entry, err := r.Load(name)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return name, nil
		}
		return "", err
	}
	family = strings.ToLower(family)
	for key, native := range entry.Families {
		if strings.ToLower(key) == family && native != "" {
			return native, nil
		}
	}
	return name, nil
}
