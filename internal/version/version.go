// Package version holds the build version of da.
package version

import (
	"runtime"
	"runtime/debug"
)

// These variables can be overridden at build time using ldflags:
// go build -ldflags "-X da/internal/version.Version=1.0.0 -X da/internal/version.Commit=abc123"
var (
	// Version is the semantic version of da
	Version = "1.0.0"

	// Commit is the git commit hash (set at build time)
	Commit = "unknown"

	// BuildDate is the build timestamp (set at build time)
	BuildDate = "unknown"
)

// Info returns a formatted version string
func Info() string {
	commit := resolvedCommit()
	if commit != "unknown" && len(commit) > 7 {
		return Version + " (" + commit[:7] + ")"
	}
	return Version
}

// Full returns complete version information
func Full() string {
	return "da version " + Version + "\n" +
		"Commit: " + resolvedCommit() + "\n" +
		"Built: " + BuildDate + "\n" +
		"Go: " + runtime.Version()
}

// Fields returns the version information as a map for structured output.
func Fields() map[string]string {
	return map[string]string{
		"version":   Version,
		"commit":    resolvedCommit(),
		"buildDate": BuildDate,
		"go":        runtime.Version(),
	}
}

// resolvedCommit falls back to the VCS revision stamped by the go tool when no
// commit was injected with ldflags.
func resolvedCommit() string {
	if Commit != "unknown" {
		return Commit
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" && s.Value != "" {
				return s.Value
			}
		}
	}
	return Commit
}
