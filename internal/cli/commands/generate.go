package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/democracycraft/bridge/internal/cli/config"
	"github.com/democracycraft/bridge/internal/cli/ui"
	"github.com/democracycraft/bridge/internal/compiler/pipeline"
)

// newGenerateCommand creates the generate command
func newGenerateCommand(g *globalOptions) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:     "generate [packages]",
		Aliases: []string{"gen", "g"},
		Short:   "Generate bridge registries and descriptors",
		Long: `Scan the given packages (default: the configured patterns, ./...) for bridge
markers, validate them and write a registry and a runtime descriptor next to
every package that declares capabilities.

Nothing is written for a package whose diagnostics contain errors. Files whose
content did not change are left untouched.`,
		Example: `  # Generate for every package of the module
  bridgegen generate

  # Generate for protocol 3 and fail on warnings
  bridgegen generate --protocol-version 3 --strict ./vote/...

  # Show what would be generated, as JSON diagnostics
  bridgegen generate --dry-run --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig(cmd)
			if err != nil {
				return err
			}
			results, err := g.run(cmd, cfg, args, dryRun)
			if err != nil || g.json || results == nil {
				return err
			}
			written := 0
			for _, r := range results {
				written += len(r.Artifacts.Written)
			}
			msg := fmt.Sprintf("%s generated for protocol %d, %s written",
				plural(len(results), "package"), cfg.ProtocolVersion, plural(written, "file"))
			if dryRun {
				msg = fmt.Sprintf("%s checked for protocol %d, nothing written",
					plural(len(results), "package"), cfg.ProtocolVersion)
			}
			ui.WriteSuccess(cmd.OutOrStdout(), msg, g.noColor)
			return nil
		},
	}

	addBuildFlags(cmd.Flags())
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Run every phase but write nothing")

	return cmd
}

// run executes the pipeline over the packages named by args and reports
// diagnostics. Results are nil when no package carries bridge markers.
func (g *globalOptions) run(cmd *cobra.Command, cfg *config.Config, args []string, dryRun bool) ([]*pipeline.Result, error) {
	pkgs, err := g.loadPackages(cmd, cfg, args)
	if err != nil {
		return nil, err
	}
	units, err := cfg.Units(pkgs)
	if err != nil {
		if !g.json {
			ui.ConfigProblem(err).Write(cmd.ErrOrStderr(), g.noColor)
		}
		return nil, err
	}
	if len(units) == 0 {
		if !g.json {
			ui.Problem{Level: ui.LevelInfo, Subject: "No bridge markers found."}.Write(cmd.ErrOrStderr(), g.noColor)
		}
		return nil, nil
	}

	opts := cfg.Options()
	opts.DryRun = dryRun
	results, runErr := pipeline.RunAll(cmd.Context(), units, opts)
	if err := g.report(cmd.OutOrStdout(), results); err != nil {
		return results, err
	}
	if errors.Is(runErr, pipeline.ErrRejected) && !g.json {
		ui.Rejected(rejectedUnits(results)).Write(cmd.ErrOrStderr(), g.noColor)
	}
	return results, runErr
}
