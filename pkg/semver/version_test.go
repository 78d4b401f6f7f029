package semver

import "testing"

const versionTestPrefix = "semver:version_test"

func TestParseConstraint_Allows(t *testing.T) {
	tests := []struct {
		name    string
		rng     string
		version string
		want    bool
	}{
		{name: "caret match", rng: "^1.2.0", version: "1.4.0", want: true},
		{name: "caret below", rng: "^1.2.0", version: "1.1.9", want: false},
		{name: "caret next major", rng: "^1.2.0", version: "2.0.0", want: false},
		{name: "tilde", rng: "~1.2.0", version: "1.2.7", want: true},
		{name: "tilde minor bump", rng: "~1.2.0", version: "1.3.0", want: false},
		{name: "major only", rng: "2", version: "2.9.1", want: true},
		{name: "major only other", rng: "2", version: "3.0.0", want: false},
		{name: "comparison", rng: ">=1.0.0", version: "4.0.0", want: true},
		{name: "exact", rng: "1.0.0", version: "1.0.0", want: true},
		{name: "v prefix", rng: "^1.0.0", version: "v1.0.3", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := ParseConstraint(tt.rng)
			if err != nil {
				t.Fatalf("%s - ParseConstraint(%q) failed: %v", versionTestPrefix, tt.rng, err)
			}
			got, err := c.Allows(tt.version)
			if err != nil {
				t.Fatalf("%s - Allows(%q) failed: %v", versionTestPrefix, tt.version, err)
			}
			if got != tt.want {
				t.Errorf("%s - %q allows %q = %v, want %v", versionTestPrefix, tt.rng, tt.version, got, tt.want)
			}
		})
	}
}

func TestParseConstraint_Empty(t *testing.T) {
	c, err := ParseConstraint("  ")
	if err != nil {
		t.Fatalf("%s - unexpected error: %v", versionTestPrefix, err)
	}
	if c != nil {
		t.Fatalf("%s - expected nil constraint for empty range", versionTestPrefix)
	}
	ok, err := c.Allows("0.0.1")
	if err != nil || !ok {
		t.Errorf("%s - nil constraint should allow anything, got (%v, %v)", versionTestPrefix, ok, err)
	}
	if c.String() != "*" {
		t.Errorf("%s - String() = %q, want *", versionTestPrefix, c.String())
	}
}

func TestParseConstraint_Invalid(t *testing.T) {
	if _, err := ParseConstraint("not a range!"); err == nil {
		t.Errorf("%s - expected error for invalid range", versionTestPrefix)
	}
}

func TestAllows_InvalidVersion(t *testing.T) {
	c, _ := ParseConstraint("^1.0.0")
	if _, err := c.Allows("banana"); err == nil {
		t.Errorf("%s - expected error for invalid version", versionTestPrefix)
	}
}

func TestIsMajorOnly(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"3", true},
		{"10", true},
		{"3.0", false},
		{"^3", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsMajorOnly(tt.input); got != tt.want {
			t.Errorf("%s - IsMajorOnly(%q) = %v, want %v", versionTestPrefix, tt.input, got, tt.want)
		}
	}
}

func TestIsExactVersion(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"1.2.3", true},
		{"v1.2.3", true},
		{"1.2.3-beta.1", true},
		{"1.2", false},
		{"^1.2.3", false},
	}
	for _, tt := range tests {
		if got := IsExactVersion(tt.input); got != tt.want {
			t.Errorf("%s - IsExactVersion(%q) = %v, want %v", versionTestPrefix, tt.input, got, tt.want)
		}
	}
}
