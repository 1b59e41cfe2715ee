// pkg/distro/fallback.go
package distro

import "context"

// Fallback is the backend for hosts whose package manager is not supported.
// It never claims anything is installed and only surfaces candidates the
// meta package manager can offer, so resolution continues with other
// implementation sources instead of failing.
type Fallback struct {
	base *Base
}

// NewFallback builds the fallback backend.
func NewFallback(opts Options) *Fallback {
	return &Fallback{base: NewBase("fallback", "package:fallback", opts)}
}

func (f *Fallback) Label() string { return f.base.Label() }

func (f *Fallback) IsInstalled(ctx context.Context, sel Selection) (bool, error) {
	return f.base.IsInstalled(ctx, sel, f.Candidates)
}

func (f *Fallback) Candidates(_ context.Context, pkg string) ([]Candidate, error) {
	return f.base.Available(pkg), nil
}

func (f *Fallback) Refresh(ctx context.Context, pkgs []string) error {
	f.base.RefreshMeta(ctx, pkgs)
	return nil
}

func (f *Fallback) EntryPoint(c Candidate) string {
	return f.base.EntryPoint(c)
}
