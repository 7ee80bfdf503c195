package commands

import (
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/democracycraft/bridge/contract"
	"github.com/democracycraft/bridge/internal/cli/ui"
	"github.com/democracycraft/bridge/internal/logging"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = "unknown"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configFile string
	verbose    bool
	json       bool
	noColor    bool
}

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	g := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "bridgegen",
		Short: "Generate bridge registries from annotated Go packages",
		Long: color.CyanString(`bridgegen - compile-time capability bridge generator

bridgegen scans Go packages for bridge markers, validates the declared
capabilities and generates a typed registry plus a runtime descriptor
stamped with the protocol version.

Markers:
  //bridge:capability [id=<id>] [since=<n>] [side=follower|leader|both] [signature=full|arity]
  //bridge:api <NAMESPACE>
  //bridge:anchor
  //bridge:version <n>`),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if g.noColor {
				color.NoColor = true
			}
			logger, err := logging.New(g.verbose)
			if err != nil {
				return err
			}
			logging.SetLogger(logger)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logging.Logger().Sync()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&g.configFile, "config", "c", "", "Config file (default: bridge.yaml in the working directory or a parent)")
	flags.BoolVarP(&g.verbose, "verbose", "v", false, "Show debug logging")
	flags.BoolVar(&g.json, "json", false, "Output in JSON format")
	flags.BoolVar(&g.noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(newGenerateCommand(g))
	rootCmd.AddCommand(newCheckCommand(g))
	rootCmd.AddCommand(newListCommand(g))
	rootCmd.AddCommand(newVerifyCommand(g))
	rootCmd.AddCommand(newWatchCommand(g))
	rootCmd.AddCommand(newInitCommand(g))
	rootCmd.AddCommand(NewVersionCommand())
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display the bridgegen version, Git commit, build date, Go version and default protocol version",
		Run: func(cmd *cobra.Command, args []string) {
			goVer := GoVersion
			if goVer == "unknown" {
				goVer = runtime.Version()
			}

			table := ui.NewKeyValueTable(cmd.OutOrStdout(), color.NoColor)
			table.AddRow("bridgegen version", Version)
			table.AddRow("Git commit", GitCommit)
			table.AddRow("Build date", BuildDate)
			table.AddRow("Go version", goVer)
			table.AddRow("Default protocol", itoa(contract.DefaultProtocolVersion))
			table.Render()
		},
	}
}

// Execute runs the root command
func Execute() error {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		errorColor := color.New(color.FgRed, color.Bold)
		errorColor.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
		return err
	}
	return nil
}
