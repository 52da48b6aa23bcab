// Package version holds the build version reported by get_version.
package version

import "runtime"

// Version is overridden at build time:
//
//	go build -ldflags "-X reqsender/internal/version.Version=1.4.0"
var Version = "dev"

// String returns the version with the Go runtime it was built with
func String() string {
	return Version + " (" + runtime.Version() + ")"
}
