// pkg/distro/machine.go
package distro

import (
	"runtime"
	"strings"
)

// machineAliases maps the architecture vocabulary of the various package
// managers onto the uname-style canonical names used in candidate IDs.
var machineAliases = map[string]string{
	"all":     "",
	"any":     "",
	"noarch":  "",
	"(none)":  "",
	"amd64":   "x86_64",
	"x64":     "x86_64",
	"x86-64":  "x86_64",
	"x86":     "i386",
	"i86pc":   "i686",
	"arm64":   "aarch64",
	"armhf":   "armv7l",
	"armel":   "armv5tel",
	"ppc":     "ppc",
	"ppc64el": "ppc64le",
	"powerpc": "ppc",
}

// CanonicalMachine normalizes a machine-type string. The empty result means
// the package runs on any machine.
func CanonicalMachine(raw string) string {
	m := strings.ToLower(strings.TrimSpace(raw))
	if canon, ok := machineAliases[m]; ok {
		return canon
	}
	return m
}

// HostMachine returns the canonical machine type of the running system.
func HostMachine() string {
	switch runtime.GOARCH {
	case "amd64":
		return "x86_64"
	case "386":
		return "i486"
	case "arm64":
		return "aarch64"
	case "arm":
		return "armv7l"
	}
	return runtime.GOARCH
}
