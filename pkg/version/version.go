// pkg/version/version.go
package version

import (
	"fmt"
	"strconv"
	"strings"
)

// Modifier tags one dash-separated part of a version. Release parts carry no
// tag; pre-release tags sort before a release and post-release tags after.
type Modifier int

const (
	ModPre     Modifier = -2
	ModRC      Modifier = -1
	ModRelease Modifier = 0
	ModPost    Modifier = 1
)

func (m Modifier) String() string {
	switch m {
	case ModPre:
		return "pre"
	case ModRC:
		return "rc"
	case ModPost:
		return "post"
	}
	return ""
}

// part is one dash-separated element: an optional modifier word followed by
// an optional dotted integer list. The first part of a version is always a
// plain dotted list.
type part struct {
	mod  Modifier
	nums []int64
}

// Version is a canonical, totally ordered version value.
//
// Grammar: Version := DottedList ("-" Part)*
//          Part    := ("pre"|"rc"|"post")? DottedList?
//          DottedList := Integer ("." Integer)*
//
// Ordering compares part by part; a missing part behaves like an empty
// release part, so "1.0-pre1" < "1.0" < "1.0-1" < "1.0-post".
type Version struct {
	parts []part
}

// Parse converts a version string to its canonical value.
func Parse(s string) (Version, error) {
	if s == "" {
		return Version{}, fmt.Errorf("empty version string")
	}
	tokens := strings.Split(s, "-")
	if len(tokens) > 1 && tokens[len(tokens)-1] == "" {
		tokens = tokens[:len(tokens)-1] // trailing dash carries no information
	}

	parts := make([]part, 0, len(tokens))
	for i, tok := range tokens {
		p, err := parsePart(tok, i == 0)
		if err != nil {
			return Version{}, fmt.Errorf("version %q: %w", s, err)
		}
		parts = append(parts, p)
	}
	return Version{parts: parts}, nil
}

// MustParse is Parse for statically known strings; it panics on error.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

func parsePart(tok string, first bool) (part, error) {
	if tok == "" {
		return part{}, fmt.Errorf("empty part")
	}
	mod := ModRelease
	rest := tok
	if !first {
		switch {
		case strings.HasPrefix(tok, "pre"):
			mod, rest = ModPre, tok[3:]
		case strings.HasPrefix(tok, "rc"):
			mod, rest = ModRC, tok[2:]
		case strings.HasPrefix(tok, "post"):
			mod, rest = ModPost, tok[4:]
		}
	}
	nums, err := parseDotted(rest)
	if err != nil {
		return part{}, err
	}
	return part{mod: mod, nums: nums}, nil
}

func parseDotted(s string) ([]int64, error) {
	if s == "" {
		return nil, nil
	}
	fields := strings.Split(s, ".")
	nums := make([]int64, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.ParseInt(f, 10, 64)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("bad component %q", f)
		}
		nums = append(nums, n)
	}
	return nums, nil
}

// IsZero reports whether v is the zero Version (no value, not even "0").
func (v Version) IsZero() bool {
	return len(v.parts) == 0
}

// String renders the canonical form. Parse(v.String()) always succeeds and
// compares equal to v.
func (v Version) String() string {
	var b strings.Builder
	for i, p := range v.parts {
		if i > 0 {
			b.WriteByte('-')
		}
		b.WriteString(p.mod.String())
		for j, n := range p.nums {
			if j > 0 {
				b.WriteByte('.')
			}
			b.WriteString(strconv.FormatInt(n, 10))
		}
	}
	return b.String()
}

// MarshalYAML renders the canonical form.
func (v Version) MarshalYAML() (interface{}, error) {
	return v.String(), nil
}

// Compare returns -1, 0 or 1 as v sorts before, equal to or after o.
func (v Version) Compare(o Version) int {
	n := len(v.parts)
	if len(o.parts) > n {
		n = len(o.parts)
	}
	for i := 0; i < n; i++ {
		var a, b part
		if i < len(v.parts) {
			a = v.parts[i]
		}
		if i < len(o.parts) {
			b = o.parts[i]
		}
		if c := comparePart(a, b); c != 0 {
			return c
		}
	}
	return 0
}

func comparePart(a, b part) int {
	if a.mod != b.mod {
		if a.mod < b.mod {
			return -1
		}
		return 1
	}
	n := len(a.nums)
	if len(b.nums) > n {
		n = len(b.nums)
	}
	for i := 0; i < n; i++ {
		var x, y int64 = -1, -1 // absent components sort first
		if i < len(a.nums) {
			x = a.nums[i]
		}
		if i < len(b.nums) {
			y = b.nums[i]
		}
		if x != y {
			if x < y {
				return -1
			}
			return 1
		}
	}
	return 0
}
