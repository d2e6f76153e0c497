package version

import (
	"strings"
	"testing"
)

func TestSetInfo(t *testing.T) {
	originalVersion := Version
	originalBuildTime := BuildTime
	originalGitCommit := GitCommit
	originalGoVersion := GoVersion

	defer func() {
		Version = originalVersion
		BuildTime = originalBuildTime
		GitCommit = originalGitCommit
		GoVersion = originalGoVersion
	}()

	SetInfo("1.0.0", "2024-01-01T00:00:00Z", "abc123", "go1.24")

	if Version != "1.0.0" {
		t.Errorf("Version = %s, want 1.0.0", Version)
	}
	if BuildTime != "2024-01-01T00:00:00Z" {
		t.Errorf("BuildTime = %s, want 2024-01-01T00:00:00Z", BuildTime)
	}
	if GitCommit != "abc123" {
		t.Errorf("GitCommit = %s, want abc123", GitCommit)
	}
	if GoVersion != "go1.24" {
		t.Errorf("GoVersion = %s, want go1.24", GoVersion)
	}
}

func TestSetInfoEmptyValues(t *testing.T) {
	originalVersion := Version

	defer func() { Version = originalVersion }()

	Version = "test-version"
	SetInfo("", "", "", "")

	if Version != "test-version" {
		t.Errorf("Version should not change with empty value, got %s", Version)
	}
}

func TestString(t *testing.T) {
	originalVersion := Version
	defer func() { Version = originalVersion }()

	Version = "1.2.3"
	s := String()

	if !strings.Contains(s, "pagewatch") {
		t.Errorf("String should contain the program name, got: %s", s)
	}
	if !strings.Contains(s, "1.2.3") {
		t.Errorf("String should contain the version, got: %s", s)
	}
}
