// Package version holds build metadata injected with -ldflags -X.
package version

// Version is the release version of forestgate.
var Version = "0.1.0-dev"

// GitCommit is the commit the binary was built from.
var GitCommit = "unknown"

// BuildDate is the UTC build timestamp.
var BuildDate = "unknown"
