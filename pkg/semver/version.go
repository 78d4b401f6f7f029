// Package semver checks host protocol versions against a configured range.
package semver

import (
	"fmt"
	"regexp"
	"strings"

	masterminds "github.com/Masterminds/semver/v3"
)

const logPrefix = "semver:version"

var (
	majorOnlyRegex    = regexp.MustCompile(`^\d+$`)
	exactVersionRegex = regexp.MustCompile(`^v?\d+\.\d+\.\d+(-[\w.]+)?(\+[\w.]+)?$`)
)

// IsMajorOnly checks if a range is a major-only specifier (e.g., "3").
func IsMajorOnly(rangeStr string) bool {
	return majorOnlyRegex.MatchString(rangeStr)
}

// IsExactVersion checks if a string is an exact version (e.g., "3.2.1").
func IsExactVersion(v string) bool {
	return exactVersionRegex.MatchString(v)
}

// Constraint is a parsed host version range.
type Constraint struct {
	raw string
	c   *masterminds.Constraints
}

// ParseConstraint parses a range such as "^1.2.0", ">=1.0.0 <3.0.0" or a bare
// major "1" (meaning any 1.x.y). An empty range returns nil, which allows any version.
func ParseConstraint(rangeStr string) (*Constraint, error) {
	raw := strings.TrimSpace(rangeStr)
	if raw == "" {
		return nil, nil
	}
	expr := raw
	if IsMajorOnly(raw) {
		expr = fmt.Sprintf(">=%s.0.0-0, <%s", raw, nextMajor(raw))
	}
	c, err := masterminds.NewConstraint(expr)
	if err != nil {
		return nil, fmt.Errorf("%s - invalid version range %q: %w", logPrefix, raw, err)
	}
	return &Constraint{raw: raw, c: c}, nil
}

// Allows reports whether version satisfies the constraint. A nil constraint allows everything.
func (c *Constraint) Allows(version string) (bool, error) {
	if c == nil {
		return true, nil
	}
	v, err := masterminds.NewVersion(strings.TrimSpace(version))
	if err != nil {
		return false, fmt.Errorf("%s - invalid version %q: %w", logPrefix, version, err)
	}
	return c.c.Check(v), nil
}

// String returns the range as configured.
func (c *Constraint) String() string {
	if c == nil {
		return "*"
	}
	return c.raw
}

func nextMajor(major string) string {
	var n int
	fmt.Sscanf(major, "%d", &n)
	return fmt.Sprintf("%d.0.0-0", n+1)
}
