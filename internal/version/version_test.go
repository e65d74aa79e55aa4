package version

import (
	"strings"
	"testing"
)

func TestPrettyPlain(t *testing.T) {
	orig := Version
	defer func() { Version = orig }()

	Version = "1.2.3-rc1"
	if got := Pretty(false); got != "1.2.3-rc1" {
		t.Fatalf("Pretty(false) = %q", got)
	}
	Version = "  "
	if got := Pretty(false); got != "dev" {
		t.Fatalf("blank version = %q", got)
	}
}

func TestPrettyColored(t *testing.T) {
	orig := Version
	defer func() { Version = orig }()

	Version = "1.2.3-rc1"
	got := Pretty(true)
	if !strings.Contains(got, "\x1b[") || !strings.HasSuffix(got, "-rc1") {
		t.Fatalf("Pretty(true) = %q", got)
	}
	for _, part := range []string{"1", "2", "3"} {
		if !strings.Contains(got, part) {
			t.Fatalf("missing %s in %q", part, got)
		}
	}

	Version = "nightly"
	if got := Pretty(true); got != "nightly" {
		t.Fatalf("non-semver versions are left alone, got %q", got)
	}
}

func TestOptionalFieldsDefaultEmpty(t *testing.T) {
	if Version == "" {
		t.Fatalf("Version should have a default value")
	}
	if GitCommit != "" || BuildDate != "" {
		t.Fatalf("optional fields are set only through ldflags")
	}
}
