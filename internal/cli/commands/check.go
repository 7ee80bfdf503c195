package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/democracycraft/bridge/internal/cli/ui"
	"github.com/democracycraft/bridge/internal/compiler/cache"
	"github.com/democracycraft/bridge/internal/compiler/pipeline"
)

// errStale is returned by check when generated files are out of date.
var errStale = errors.New("generated artifacts are out of date")

func newCheckCommand(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [packages]",
		Short: "Validate bridge markers without writing",
		Long: `Run the scanner, validator and generator without writing anything, then
compare the would-be artifacts with the files on disk. Fails when diagnostics
contain errors or when a registry or descriptor is missing or out of date.`,
		Example: `  bridgegen check
  bridgegen check --json --protocol-version 2`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig(cmd)
			if err != nil {
				return err
			}
			results, err := g.run(cmd, cfg, args, true)
			if err != nil || results == nil {
				return err
			}

			stale, err := staleArtifacts(results)
			if err != nil {
				return err
			}
			if len(stale) > 0 {
				if !g.json {
					ui.Stale(stale).Write(cmd.ErrOrStderr(), g.noColor)
				}
				return errStale
			}
			if !g.json {
				ui.WriteSuccess(cmd.OutOrStdout(), fmt.Sprintf("%s up to date", plural(len(results), "package")), g.noColor)
			}
			return nil
		},
	}
	addBuildFlags(cmd.Flags())
	return cmd
}

// staleArtifacts lists the rendered files that differ from the disk.
func staleArtifacts(results []*pipeline.Result) ([]string, error) {
	hasher := cache.NewFileHasher()
	var stale []string
	for _, r := range results {
		art := r.Artifacts
		for _, f := range []struct {
			path    string
			content []byte
		}{
			{art.RegistryPath, art.Registry},
			{art.DescriptorPath, art.Descriptor},
		} {
			same, err := hasher.Unchanged(f.path, f.content)
			if err != nil {
				return nil, err
			}
			if !same {
				stale = append(stale, f.path+" is missing or out of date")
			}
		}
	}
	return stale, nil
}
