// pkg/quicktest/quicktest.go
package quicktest

import (
	"fmt"
	"time"

	"github.com/spf13/afero"
)

// Kind selects the revalidation rule attached to a cached answer.
type Kind int

const (
	// KindNone marks an answer that can only be revalidated by a full
	// re-query.
	KindNone Kind = iota
	// KindExists holds while the named path exists.
	KindExists
	// KindUnchanged holds while the named path exists and its modification
	// time still matches, at second granularity.
	KindUnchanged
)

func (k Kind) String() string {
	switch k {
	case KindExists:
		return "exists"
	case KindUnchanged:
		return "unchanged-since"
	}
	return "none"
}

// T describes how long a previously computed answer may be trusted without
// asking the package database again. The zero value means "never".
type T struct {
	Kind  Kind
	Path  string
	MTime time.Time
}

// Exists returns a test that holds while path exists.
func Exists(path string) T {
	return T{Kind: KindExists, Path: path}
}

// UnchangedSince returns a test that holds while path exists with the given
// modification time. Comparison is at second granularity: recorded times
// travel through text formats that keep whole seconds only.
func UnchangedSince(path string, mtime time.Time) T {
	return T{Kind: KindUnchanged, Path: path, MTime: mtime}
}

// IsZero reports whether t carries no revalidation rule.
func (t T) IsZero() bool {
	return t.Kind == KindNone && t.Path == "" && t.MTime.IsZero()
}

// Valid checks the rule against fs. A zero test is never valid.
func (t T) Valid(fs afero.Fs) bool {
	switch t.Kind {
	case KindExists:
		ok, err := afero.Exists(fs, t.Path)
		return err == nil && ok
	case KindUnchanged:
		info, err := fs.Stat(t.Path)
		if err != nil {
			return false
		}
		return info.ModTime().Unix() == t.MTime.Unix()
	}
	return false
}

func (t T) String() string {
	switch t.Kind {
	case KindExists:
		return fmt.Sprintf("exists(%s)", t.Path)
	case KindUnchanged:
		return fmt.Sprintf("unchanged-since(%s, %d)", t.Path, t.MTime.Unix())
	}
	return "none"
}

// MarshalYAML renders the test as a short human-readable scalar, matching the
// String form.
func (t T) MarshalYAML() (interface{}, error) {
	return t.String(), nil
}
