// pkg/distro/meta.go
package distro

import "context"

// MetaPackageManager is the boundary to a distribution-neutral package
// manager layered over the native one, in the manner of PackageKit. When it
// is reachable it takes over candidate refreshing for the whole family; the
// native tools are only consulted when it is not.
type MetaPackageManager interface {
	// IsAvailable probes reachability. It must be cheap and never block
	// beyond the context deadline.
	IsAvailable(ctx context.Context) bool
	// QueryAvailable resolves installable candidates for the given package
	// names, keyed by name. Names with no match are simply absent from the
	// result.
	QueryAvailable(ctx context.Context, names []string) (map[string][]Candidate, error)
}

// NoMeta is the stub used when no meta package manager is wired in.
type NoMeta struct{}

func (NoMeta) IsAvailable(context.Context) bool { return false }

func (NoMeta) QueryAvailable(context.Context, []string) (map[string][]Candidate, error) {
	return nil, nil
}
