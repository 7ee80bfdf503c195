// Command bridgegen generates capability bridge registries and runtime
// descriptors from annotated Go packages.
//
// Typical use is a go:generate line in the annotated package:
//
//	//go:generate go run github.com/democracycraft/bridge/cmd/bridgegen generate .
package main

import (
	"os"

	"github.com/democracycraft/bridge/internal/cli/commands"
)

var (
	// Version information - will be set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = "unknown"
)

func main() {
	commands.Version = Version
	commands.GitCommit = GitCommit
	commands.BuildDate = BuildDate
	commands.GoVersion = GoVersion

	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
