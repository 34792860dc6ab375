// cmd/emailwriter/main.go
package main

import (
	cmd "github.com/mwiater/emailwriter/internal/cli"
)

// Set at build time with -ldflags "-X main.version=... -X main.commit=... -X main.date=...".
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	setVersionInfo = cmd.SetVersionInfo
	executeCmd     = cmd.Execute
)

// main starts the emailwriter CLI application by delegating to the
// cobra root command defined in the emailwriter package.
func main() {
	setVersionInfo(version, commit, date)
	executeCmd()
}
