package commands

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"github.com/democracycraft/bridge/internal/cli/config"
	"github.com/democracycraft/bridge/internal/cli/ui"
	"github.com/democracycraft/bridge/internal/compiler/stamp"
)

type initAnswers struct {
	ProtocolVersion string
	Version         string
	OutputDir       string
	Strict          bool
}

// newInitCommand creates the init command
func newInitCommand(g *globalOptions) *cobra.Command {
	var (
		yes   bool
		force bool
		dir   string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a bridge.yaml configuration",
		Long: `Write a bridge.yaml with the build settings. Without --yes the settings
are asked for interactively; flags provide the defaults.`,
		Example: `  bridgegen init
  bridgegen init --yes --protocol-version 3`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			flags := cmd.Flags()
			if flags.Changed("protocol-version") {
				cfg.ProtocolVersion, _ = flags.GetInt("protocol-version")
			}
			if flags.Changed("lib-version") {
				cfg.Version, _ = flags.GetString("lib-version")
			}
			if flags.Changed("output-dir") {
				cfg.Output.Dir, _ = flags.GetString("output-dir")
			}
			if flags.Changed("strict") {
				cfg.Strict, _ = flags.GetBool("strict")
			}

			if !yes {
				if err := askConfig(cfg); err != nil {
					return err
				}
			}
			if err := cfg.Validate(); err != nil {
				ui.ConfigProblem(err).Write(cmd.ErrOrStderr(), g.noColor)
				return err
			}

			file := g.configFile
			if file == "" {
				file = filepath.Join(dir, config.FileNames[0])
			}
			if err := cfg.WriteFile(file, force); err != nil {
				return fmt.Errorf("failed to write config: %w (use --force to overwrite)", err)
			}
			ui.WriteSuccess(cmd.OutOrStdout(), "Created "+file, g.noColor)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Accept defaults without prompting")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")
	cmd.Flags().StringVar(&dir, "dir", ".", "Directory to write bridge.yaml into")
	cmd.Flags().Int("protocol-version", 0, "Protocol version (default 1)")
	cmd.Flags().String("lib-version", "", "Library version (default 1.0.0)")
	cmd.Flags().String("output-dir", "", "Generate into this directory, relative to each package")
	cmd.Flags().Bool("strict", false, "Treat warnings as errors")

	return cmd
}

// askConfig prompts for the main settings, offering cfg as defaults.
func askConfig(cfg *config.Config) error {
	questions := []*survey.Question{
		{
			Name:   "ProtocolVersion",
			Prompt: &survey.Input{Message: "Protocol version:", Default: strconv.Itoa(cfg.ProtocolVersion)},
			Validate: func(ans interface{}) error {
				n, err := strconv.Atoi(fmt.Sprint(ans))
				if err != nil || n < 1 {
					return fmt.Errorf("protocol version must be a positive integer")
				}
				return nil
			},
		},
		{
			Name:   "Version",
			Prompt: &survey.Input{Message: "Library version:", Default: cfg.Version},
			Validate: func(ans interface{}) error {
				return stamp.ValidateVersion(fmt.Sprint(ans))
			},
		},
		{
			Name: "OutputDir",
			Prompt: &survey.Input{
				Message: "Output directory (empty generates into each package):",
				Default: cfg.Output.Dir,
			},
		},
		{
			Name:   "Strict",
			Prompt: &survey.Confirm{Message: "Treat warnings as errors?", Default: cfg.Strict},
		},
	}

	var answers initAnswers
	if err := survey.Ask(questions, &answers); err != nil {
		return err
	}
	n, err := strconv.Atoi(answers.ProtocolVersion)
	if err != nil {
		return err
	}
	cfg.ProtocolVersion = n
	cfg.Version = answers.Version
	cfg.Output.Dir = answers.OutputDir
	cfg.Strict = answers.Strict
	return nil
}
