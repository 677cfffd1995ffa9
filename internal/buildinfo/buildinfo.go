// Package buildinfo reports the version the binaries were built from.
//
// Version, Date and Commit are meant to be set with -ldflags "-X ...".
// When Version is unset, the module or VCS information embedded by the Go
// toolchain is used instead.
package buildinfo

import (
	"fmt"
	"io"
	"runtime/debug"
)

var (
	Version = ""
	Date    = ""
	Commit  = ""
)

// readBuildInfo is a test seam for debug.ReadBuildInfo.
var readBuildInfo = debug.ReadBuildInfo

const notAvailable = "N/A"

// ResolvedVersion returns Version, or the VCS revision (short form) or
// module version recorded by the toolchain, or "N/A".
func ResolvedVersion() string {
	if Version != "" {
		return Version
	}
	info, ok := readBuildInfo()
	if !ok {
		return notAvailable
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && s.Value != "" {
			if len(s.Value) > 7 {
				return s.Value[:7]
			}
			return s.Value
		}
	}
	if info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return notAvailable
}

func orNA(s string) string {
	if s == "" {
		return notAvailable
	}
	return s
}

// PrintBuildData writes the version banner to w.
func PrintBuildData(w io.Writer) {
	fmt.Fprintf(w, "Build version: %s\n", ResolvedVersion())
	fmt.Fprintf(w, "Build date: %s\n", orNA(Date))
	fmt.Fprintf(w, "Build commit: %s\n", orNA(Commit))
}
