// Package version reports the build metadata of the signalscore binaries.
//
// Release builds inject the values with:
//
//	-ldflags "-X signalscore/internal/version.version=v1.0.0 -X signalscore/internal/version.commit=abc123 -X signalscore/internal/version.buildTime=2025-01-01T00:00:00Z"
package version

import (
	"fmt"
	"io"
)

//nolint:gochecknoglobals // Set through ldflags.
var version, commit, buildTime string

// ApplicationName heads the full version output.
const ApplicationName = "SignalScore"

// Placeholders reported by builds without ldflags.
const (
	DefaultVersion   = "dev"
	DefaultCommit    = "unknown"
	DefaultBuildTime = "unknown"
)

// Info is the build metadata of the running binary.
type Info struct {
	Version   string
	Commit    string
	BuildTime string
}

// GetVersion returns the injected build metadata, with placeholders for unset values.
func GetVersion() Info {
	return Info{
		Version:   orDefault(version, DefaultVersion),
		Commit:    orDefault(commit, DefaultCommit),
		BuildTime: orDefault(buildTime, DefaultBuildTime),
	}
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

// Write prints the version alone when short is set, otherwise the name, version, commit and
// build time on separate lines.
func (i Info) Write(w io.Writer, short bool) error {
	var err error
	if short {
		_, err = fmt.Fprintln(w, i.Version)
	} else {
		_, err = fmt.Fprintf(w, "%s\nVersion: %s\nCommit: %s\nBuilt: %s\n",
			ApplicationName, i.Version, i.Commit, i.BuildTime)
	}
	return err
}

// SetBuildVars overrides the injected values. Tests use it in place of ldflags.
func SetBuildVars(ver, com, built string) {
	version, commit, buildTime = ver, com, built
}

// ResetBuildVars clears the values set by SetBuildVars.
func ResetBuildVars() {
	SetBuildVars("", "", "")
}
