// SPDX-License-Identifier: MIT
//
// Package build reports what binary is running. Release builds inject the
// values with linker flags:
//
//	go build -ldflags "-X leafpipe/pkg/build.buildVersion=v0.3.0 -X leafpipe/pkg/build.buildCommit=$(git rev-parse HEAD) ..."
//
// Development builds fall back to the module and VCS data the Go toolchain
// embeds.
package build

import (
	"fmt"
	"runtime/debug"
)

// DefaultName is used when no name was injected.
const DefaultName = "leafpipe"

const unknown = "unknown"

// Info describes the running binary.
type Info struct {
	Name        string
	Description string
	Time        string
	Commit      string
	Version     string
}

// String formats Info for --version output.
func (i Info) String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", i.Version, i.Commit, i.Time)
}

// Populated by -ldflags.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
)

var info = Info{
	Name:        DefaultName,
	Description: "Stream audio spectra to light panels",
	Time:        unknown,
	Commit:      unknown,
	Version:     unknown,
}

// readBuildInfo is replaced in tests.
var readBuildInfo = debug.ReadBuildInfo

// Initialize resolves the build information. A release build must inject
// all of version, commit and time; injecting only some of them is an error.
func Initialize() error {
	injected := 0
	for _, v := range []string{buildTime, buildCommit, buildVersion} {
		if v != "" {
			injected++
		}
	}

	switch injected {
	case 0:
		fromModule(&info)
	case 3:
		info.Time = buildTime
		info.Commit = buildCommit
		info.Version = buildVersion
	default:
		return fmt.Errorf("incomplete build flags: version %q, commit %q, time %q", buildVersion, buildCommit, buildTime)
	}

	if buildName != "" {
		info.Name = buildName
	}
	return nil
}

// fromModule fills in what the toolchain recorded about the build.
func fromModule(i *Info) {
	bi, ok := readBuildInfo()
	if !ok {
		return
	}
	if v := bi.Main.Version; v != "" {
		i.Version = v
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			i.Commit = s.Value
		case "vcs.time":
			i.Time = s.Value
		}
	}
}

// Get returns the build information. Call Initialize first.
func Get() Info {
	return info
}
