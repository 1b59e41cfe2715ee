// pkg/cache/dir.go
package cache

import (
	"os"
	"path/filepath"
)

// DefaultDir returns the per-user directory for cache files, following the
// platform convention (XDG on Linux).
func DefaultDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "hostpkg")
	}
	return filepath.Join(os.TempDir(), "hostpkg-cache")
}
