package version

import (
	"fmt"
	"runtime"
)

// Set via ldflags at build time:
//
//	go build -ldflags "-X github.com/meetai/meetai/internal/version.Version=1.0.0
//	  -X github.com/meetai/meetai/internal/version.Commit=abc123
//	  -X github.com/meetai/meetai/internal/version.Date=2026-01-01"
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// Info returns a formatted version string.
func Info() string {
	return fmt.Sprintf("meetai %s (commit: %s, built: %s, %s/%s)",
		Version, Short(), Date, runtime.GOOS, runtime.GOARCH)
}

// Short returns the abbreviated commit hash.
func Short() string {
	return short(Commit)
}

// UserAgent is the identifier the CLI client sends to the server.
func UserAgent() string {
	return fmt.Sprintf("meetai-cli/%s (%s/%s)", Version, runtime.GOOS, runtime.GOARCH)
}

func short(s string) string {
	if len(s) > 7 {
		return s[:7]
	}
	return s
}
