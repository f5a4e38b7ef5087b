package meta

import (
	"fmt"
	"runtime"
)

// Info describes the build context of a palrcon binary. It is filled in at
// build time by the Go linker, see the vars below.
type Info struct {
	Version   string
	Build     string
	Branch    string
	BuildTime string
	Platform  string
	GoVersion string
	GoTag     string
}

// These will be filled in using the linker -X flag
var (
	// Version as an arbitrary string
	Version string

	// Build is the Git sha from when we are building
	Build string

	// Branch is the Git branch that we are building from
	Branch string

	// BuildTimeUTC is the build time in UTC (year/month/day hour:min:sec)
	BuildTimeUTC string

	// GoTag is the set of build tags, see
	// https://golang.org/pkg/go/build/#hdr-Build_Constraints
	GoTag string

	platform = fmt.Sprintf("%s %s", runtime.GOOS, runtime.GOARCH)
)

// GetInfo returns an Info struct populated with the build information.
func GetInfo() Info {
	return Info{
		GoVersion: runtime.Version(),
		Version:   Version,
		Build:     Build,
		Branch:    Branch,
		BuildTime: BuildTimeUTC,
		GoTag:     GoTag,
		Platform:  platform,
	}
}

// String renders the build info on one line.
func (i Info) String() string {
	version := i.Version
	if version == "" {
		version = "dev"
	}

	s := fmt.Sprintf("palrcon %s", version)
	if i.Build != "" {
		s += fmt.Sprintf(" (%s@%s)", i.Build, i.Branch)
	}
	if i.BuildTime != "" {
		s += " built " + i.BuildTime
	}
	if i.GoTag != "" {
		s += " tags " + i.GoTag
	}

	return s + fmt.Sprintf(", %s %s", i.GoVersion, i.Platform)
}
