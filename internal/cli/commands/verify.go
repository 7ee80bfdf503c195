package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	bridgeerrors "github.com/democracycraft/bridge/compiler/errors"
	"github.com/democracycraft/bridge/internal/cli/config"
	"github.com/democracycraft/bridge/internal/cli/ui"
	"github.com/democracycraft/bridge/internal/compiler/stamp"
	"github.com/democracycraft/bridge/internal/utils"
	"github.com/democracycraft/bridge/pkg/descriptor"
)

// errDisagreement is returned by verify when artifacts disagree.
var errDisagreement = errors.New("generated artifacts disagree")

// verified is the stamp found in one output directory.
type verified struct {
	Dir          string `json:"dir"`
	Protocol     int    `json:"protocolVersion"`
	Version      string `json:"version"`
	Capabilities int    `json:"capabilities"`
	Fingerprint  string `json:"fingerprint"`
}

func newVerifyCommand(g *globalOptions) *cobra.Command {
	var expectProtocol int

	cmd := &cobra.Command{
		Use:   "verify [directories]",
		Short: "Check that committed registries and descriptors agree",
		Long: `Read every generated registry and the descriptor next to it and check that
both carry the same protocol version, library version, fingerprint and
capability count. Packages are not loaded, so verify also works on checkouts
that do not build.

Without arguments every directory under the module holding a registry is
verified.`,
		Example: `  bridgegen verify
  bridgegen verify ./vote --expect-protocol 3`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig(cmd)
			if err != nil {
				return err
			}
			dirs := args
			if len(dirs) == 0 {
				if dirs, err = artifactDirs(cfg, root(cfg, nil)); err != nil {
					return err
				}
			}

			var (
				found []verified
				diags bridgeerrors.List
			)
			for _, dir := range dirs {
				v, d, err := verifyDir(cfg, dir, expectProtocol)
				if err != nil {
					return err
				}
				found = append(found, v)
				diags = append(diags, d...)
			}

			if err := g.renderVerified(cmd, found, diags); err != nil {
				return err
			}
			if diags.HasErrors() {
				return errDisagreement
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&expectProtocol, "expect-protocol", 0, "Also require this protocol version (0 skips the check)")
	cmd.Flags().String("output-file", "", "Registry file name (default bridge_registry.gen.go)")
	cmd.Flags().String("descriptor-file", "", "Descriptor file name (default bridge.properties)")
	return cmd
}

// artifactDirs finds the directories under root holding a registry.
func artifactDirs(cfg *config.Config, root string) ([]string, error) {
	dirs, err := utils.FindSourceDirs(root)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, dir := range dirs {
		if _, err := os.Stat(filepath.Join(dir, cfg.Output.File)); err == nil {
			out = append(out, dir)
		}
	}
	return out, nil
}

func verifyDir(cfg *config.Config, dir string, expectProtocol int) (verified, bridgeerrors.List, error) {
	regPath := filepath.Join(dir, cfg.Output.File)
	descPath := filepath.Join(dir, cfg.Descriptor.File)
	v := verified{Dir: dir}

	src, err := os.ReadFile(regPath)
	if err != nil {
		return v, nil, fmt.Errorf("failed to read registry: %w", err)
	}
	reg, err := stamp.ReadRegistry(src)
	if err != nil {
		return v, bridgeerrors.List{disagreement(regPath, err.Error())}, nil
	}
	v.Protocol, v.Version, v.Capabilities, v.Fingerprint = reg.ProtocolVersion, reg.Version, reg.Capabilities, reg.Fingerprint

	desc, err := descriptor.Load(descPath)
	if err != nil {
		return v, bridgeerrors.List{disagreement(descPath, err.Error())}, nil
	}

	var diags bridgeerrors.List
	mismatches, err := stamp.CrossCheck(src, desc)
	if err != nil {
		return v, nil, err
	}
	for _, m := range mismatches {
		diags = append(diags, disagreement(descPath, m.String()))
	}
	if expectProtocol > 0 {
		if err := desc.CheckProtocol(expectProtocol); err != nil {
			diags = append(diags, bridgeerrors.New(bridgeerrors.ErrVersionMismatch, err.Error(),
				bridgeerrors.SourceLocation{File: descPath}, bridgeerrors.Error))
		}
	}
	return v, diags, nil
}

func disagreement(file, msg string) bridgeerrors.Diagnostic {
	return bridgeerrors.New(bridgeerrors.ErrStampDisagreement, msg,
		bridgeerrors.SourceLocation{File: file}, bridgeerrors.Error)
}

func (g *globalOptions) renderVerified(cmd *cobra.Command, found []verified, diags bridgeerrors.List) error {
	out := cmd.OutOrStdout()
	if g.json {
		if found == nil {
			found = []verified{}
		}
		if diags == nil {
			diags = bridgeerrors.List{}
		}
		return writeJSON(out, struct {
			Artifacts   []verified        `json:"artifacts"`
			Diagnostics bridgeerrors.List `json:"diagnostics"`
		}{found, diags})
	}

	if len(found) == 0 {
		ui.Problem{Level: ui.LevelInfo, Subject: "No generated registries found."}.Write(out, g.noColor)
		return nil
	}
	table := ui.NewTable(out, g.noColor, "DIRECTORY", "PROTOCOL", "VERSION", "CAPABILITIES", "FINGERPRINT")
	for _, v := range found {
		table.AddRow(v.Dir, itoa(v.Protocol), v.Version, itoa(v.Capabilities), v.Fingerprint)
	}
	table.Render()
	fmt.Fprintln(out)

	if len(diags) > 0 {
		fmt.Fprint(out, diags.FormatForTerminal())
		return nil
	}
	ui.WriteSuccess(out, fmt.Sprintf("%s verified", plural(len(found), "package")), g.noColor)
	return nil
}
