// pkg/windows/registry_other.go
//go:build !windows

package windows

// systemRegistry returns nil off-Windows; the backend then only surfaces
// meta-manager candidates. Tests inject a fake Registry instead.
func systemRegistry() Registry { return nil }
