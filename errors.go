// errors.go
package hostpkg

import (
	"fmt"

	"github.com/arc-language/hostpkg/pkg/alias"
	"github.com/arc-language/hostpkg/pkg/distro"
	"github.com/arc-language/hostpkg/pkg/platform"
)

var (
	// ErrUnknownBackend indicates a forced backend name matched no family.
	ErrUnknownBackend = platform.ErrUnknownBackend

	// ErrToolUnavailable indicates the family's query tool is not on PATH
	// or timed out.
	ErrToolUnavailable = distro.ErrToolUnavailable

	// ErrAliasNotFound indicates a name has no alias file.
	ErrAliasNotFound = alias.ErrNotFound
)

// Error wraps an error with the failed operation and package name.
type Error struct {
	Op      string // Operation that failed
	Package string // Package name if applicable
	Err     error  // Underlying error
}

func (e *Error) Error() string {
	if e.Package != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Package, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
