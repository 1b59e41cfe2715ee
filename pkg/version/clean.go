// pkg/version/clean.go
package version

import (
	"regexp"
	"strings"
)

// Distribution version strings are messier than the canonical grammar:
// Debian and RPM prepend "epoch:", RPM joins version and release with "_",
// and suffixes like "+b1" or "~git20240101" carry packaging noise. CleanDistro
// reduces such a string to its longest canonical prefix.
var (
	epochRe   = regexp.MustCompile(`^[0-9]+:`)
	versionRe = regexp.MustCompile(`^[0-9]+(?:\.[0-9]+)*` +
		`(?:-(?:pre|rc|post)?[0-9]+(?:\.[0-9]+)*|-(?:pre|rc|post))*`)
)

// CleanDistro maps a distribution-native version string to canonical syntax:
// the numeric epoch prefix is dropped, underscores become dashes, and the
// longest leading match of the canonical grammar is kept. It returns "" when
// no canonical prefix exists.
func CleanDistro(raw string) string {
	s := strings.TrimSpace(raw)
	s = epochRe.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "_", "-")
	return versionRe.FindString(s)
}

// Clean runs CleanDistro and parses the result. The boolean is false when
// nothing canonical could be extracted.
func Clean(raw string) (Version, bool) {
	cleaned := CleanDistro(raw)
	if cleaned == "" {
		return Version{}, false
	}
	v, err := Parse(cleaned)
	if err != nil {
		return Version{}, false
	}
	return v, true
}
