package admission

import (
	"strings"
	"testing"
)

func TestGetVersion(t *testing.T) {
	info := GetVersion()

	if info.Version != Version {
		t.Errorf("version = %q, want %q", info.Version, Version)
	}
	if info.GoVersion == "" {
		t.Errorf("expected go version to be populated")
	}
	if !strings.Contains(info.Platform, "/") {
		t.Errorf("platform = %q, want GOOS/GOARCH", info.Platform)
	}
	if !strings.Contains(info.String(), info.Version) {
		t.Errorf("string %q does not contain version", info.String())
	}
}

func TestVersionOverridableAtLinkTime(t *testing.T) {
	// -ldflags -X can only patch package-level string variables, so the
	// defaults must stay addressable.
	for name, v := range map[string]*string{
		"Version":   &Version,
		"BuildDate": &BuildDate,
		"GitCommit": &GitCommit,
	} {
		if *v == "" {
			t.Errorf("%s default must not be empty", name)
		}
	}
}
