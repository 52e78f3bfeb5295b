package system

// Version and Commit are set at build time via -ldflags.
var (
	Version = "0.0.0-dev"
	Commit  = ""
)
