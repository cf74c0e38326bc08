// Package version exposes build metadata injected at link time.
package version

import (
	"runtime/debug"
	"strings"
)

const (
	unsetCommit    = "none"
	unsetBuildTime = "unknown"
	dirtySuffix    = "-dirty"
	shortCommitLen = 12
)

//nolint:gochecknoglobals // Values are overridden with -ldflags at build time.
var (
	// Version is the semantic version of the build.
	Version = "0.3.0"
	// Commit is the VCS revision of the build.
	Commit = unsetCommit
	// BuildTime is the time the binary was built.
	BuildTime = unsetBuildTime
)

// Short returns the semantic version only.
func Short() string {
	return Version
}

// Full returns the version together with the commit and build time.
// Values not set at link time are taken from the VCS stamp of the Go toolchain when present.
func Full() string {
	commit, buildTime := Commit, BuildTime

	if info, ok := debug.ReadBuildInfo(); ok {
		commit, buildTime = fromSettings(commit, buildTime, info.Settings)
	}

	return format(Version, commit, buildTime)
}

func format(version, commit, buildTime string) string {
	return "version: " + version + ", commit: " + commit + ", built at: " + buildTime
}

func fromSettings(commit, buildTime string, settings []debug.BuildSetting) (string, string) {
	var (
		revision, revisionTime string
		modified               bool
	)

	for _, setting := range settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.time":
			revisionTime = setting.Value
		case "vcs.modified":
			modified = setting.Value == "true"
		}
	}

	if commit == unsetCommit && revision != "" {
		commit = revision[:min(len(revision), shortCommitLen)]
		if modified && !strings.HasSuffix(commit, dirtySuffix) {
			commit += dirtySuffix
		}
	}

	if buildTime == unsetBuildTime && revisionTime != "" {
		buildTime = revisionTime
	}

	return commit, buildTime
}
