package version

import (
	"strings"
	"testing"
)

func TestGetDefaults(t *testing.T) {
	orig := Version
	defer func() { Version = orig }()

	Version = "dev"
	info := Get()
	if info.Version != "dev" {
		t.Errorf("expected dev, got %s", info.Version)
	}
	if len(info.Commit) > 7 {
		t.Errorf("expected commit truncated to 7 chars, got %q", info.Commit)
	}
}

func TestShortContainsVersion(t *testing.T) {
	orig := Version
	defer func() { Version = orig }()

	Version = "1.2.3"
	if s := Short(); !strings.HasPrefix(s, "1.2.3") {
		t.Errorf("expected short string to start with version, got %q", s)
	}
}
