// pkg/windows/registry_windows.go
//go:build windows

package windows

import (
	"golang.org/x/sys/windows/registry"
)

// winRegistry reads the live registry through the Windows API.
type winRegistry struct{}

func systemRegistry() Registry { return winRegistry{} }

func (winRegistry) open(view View, path string) (registry.Key, error) {
	access := uint32(registry.QUERY_VALUE)
	if view == View64 {
		access |= registry.WOW64_64KEY
	} else {
		access |= registry.WOW64_32KEY
	}
	return registry.OpenKey(registry.LOCAL_MACHINE, path, access)
}

func (r winRegistry) StringValue(view View, path, name string) (string, error) {
	k, err := r.open(view, path)
	if err != nil {
		return "", err
	}
	defer k.Close()
	v, _, err := k.GetStringValue(name)
	return v, err
}

func (r winRegistry) IntValue(view View, path, name string) (uint64, error) {
	k, err := r.open(view, path)
	if err != nil {
		return 0, err
	}
	defer k.Close()
	v, _, err := k.GetIntegerValue(name)
	return v, err
}
