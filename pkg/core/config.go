// pkg/core/config.go
package core

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/arc-language/hostpkg/pkg/alias"
	"github.com/arc-language/hostpkg/pkg/cache"
)

// Config holds hostpkg configuration.
type Config struct {
	// Backend forces a distribution family instead of probing the host.
	Backend string `yaml:"backend"`
	// Root prefixes the probed package-database paths, for inspecting a
	// mounted or staged tree.
	Root string `yaml:"root"`
	// CacheDir is where parsed package databases are cached.
	CacheDir string `yaml:"cache_dir"`
	// AliasDir holds per-name package alias files.
	AliasDir string `yaml:"alias_dir"`
	// TimeoutSeconds bounds each package-manager tool invocation.
	TimeoutSeconds int  `yaml:"timeout_seconds"`
	Debug          bool `yaml:"debug"`
}

// DefaultConfig returns a configuration with host defaults filled in.
func DefaultConfig() *Config {
	return &Config{
		Backend:        "", // probe
		CacheDir:       cache.DefaultDir(),
		AliasDir:       alias.DefaultDir(),
		TimeoutSeconds: 0, // the runner's default applies
	}
}

// Timeout converts TimeoutSeconds to a duration. Zero means unset.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// LoadConfig loads configuration from path. An empty path means
// $HOSTPKG_CONFIG, then ~/.config/hostpkg/config.yaml. A missing file
// yields the defaults.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = defaultPath()
		if path == "" {
			return DefaultConfig(), nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// SaveConfig writes the configuration to path, creating parent directories.
// An empty path picks the same default location LoadConfig reads.
func SaveConfig(cfg *Config, path string) error {
	if path == "" {
		path = defaultPath()
		if path == "" {
			return fmt.Errorf("no config location: home directory unknown")
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

func defaultPath() string {
	if path := os.Getenv("HOSTPKG_CONFIG"); path != "" {
		return path
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(base, "hostpkg", "config.yaml")
}
