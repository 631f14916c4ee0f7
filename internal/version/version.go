// Package version carries build metadata reported by /healthz and the
// startup log. Release builds set it with
//
//	-ldflags "-X github.com/MrSnakeDoc/marks/internal/version.Version=v1.2.0 ..."
package version

import (
	"runtime"
	"time"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = time.Now().UTC().Format(time.RFC3339)
	GoVersion = runtime.Version()
)
