package version

import (
	"runtime/debug"
	"strings"
	"testing"
)

func TestFromBuildInfo(t *testing.T) {
	tests := []struct {
		name        string
		settings    []debug.BuildSetting
		wantVersion string
		wantCommit  string
	}{
		{
			name: "clean checkout",
			settings: []debug.BuildSetting{
				{Key: "vcs.revision", Value: "0123456789abcdef"},
				{Key: "vcs.time", Value: "2025-03-04T10:00:00Z"},
				{Key: "vcs.modified", Value: "false"},
			},
			wantVersion: "dev-20250304",
			wantCommit:  "0123456",
		},
		{
			name: "dirty tree",
			settings: []debug.BuildSetting{
				{Key: "vcs.revision", Value: "abc"},
				{Key: "vcs.modified", Value: "true"},
			},
			wantVersion: "",
			wantCommit:  "abc-dirty",
		},
		{
			name: "no vcs stamp",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			oldVersion, oldCommit := Version, Commit
			defer func() { Version, Commit = oldVersion, oldCommit }()
			Version, Commit = "", ""

			fromBuildInfo(func() (*debug.BuildInfo, bool) {
				return &debug.BuildInfo{Settings: tt.settings}, true
			})

			if Version != tt.wantVersion {
				t.Errorf("Version = %q, want %q", Version, tt.wantVersion)
			}
			if Commit != tt.wantCommit {
				t.Errorf("Commit = %q, want %q", Commit, tt.wantCommit)
			}
		})
	}
}

func TestFromBuildInfo_KeepsLinkerValues(t *testing.T) {
	oldVersion, oldCommit := Version, Commit
	defer func() { Version, Commit = oldVersion, oldCommit }()
	Version, Commit = "v1.2.0", "feedbee"

	fromBuildInfo(func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "0000000000"}}}, true
	})

	if Full() != "v1.2.0 (commit: feedbee)" {
		t.Errorf("Full() = %q", Full())
	}
	if !strings.HasPrefix(Full(), Version) {
		t.Error("Full() should start with Version")
	}
}
