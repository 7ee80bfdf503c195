package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/democracycraft/bridge/compiler/errors"
	"github.com/democracycraft/bridge/internal/cli/config"
	"github.com/democracycraft/bridge/internal/cli/ui"
	"github.com/democracycraft/bridge/internal/compiler/loader"
	"github.com/democracycraft/bridge/internal/compiler/pipeline"
)

// addBuildFlags registers the flags that override build settings.
func addBuildFlags(flags *pflag.FlagSet) {
	flags.Int("protocol-version", 0, "Protocol version to generate for (default 1)")
	flags.String("lib-version", "", "Library version written to the stamp (default 1.0.0)")
	flags.Bool("strict", false, "Treat warnings as errors")
	flags.String("output-dir", "", "Generate into this directory, relative to each package")
	flags.String("output-file", "", "Registry file name (default bridge_registry.gen.go)")
	flags.String("import-path", "", "Import path of the output directory")
	flags.String("package", "", "Package name of the generated registry")
	flags.String("descriptor-file", "", "Descriptor file name (default bridge.properties)")
}

// loadConfig reads the configuration, reporting problems the way every
// command does.
func (g *globalOptions) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(g.configFile, cmd.Flags())
	if err != nil {
		if !g.json {
			ui.ConfigProblem(err).Write(cmd.ErrOrStderr(), g.noColor || color.NoColor)
		}
		return nil, err
	}
	return cfg, nil
}

// root is the directory patterns are resolved against: the directory of
// the config file when patterns come from it, otherwise the working
// directory.
func root(cfg *config.Config, args []string) string {
	if len(args) == 0 && cfg.File != "" {
		return filepath.Dir(cfg.File)
	}
	return "."
}

// loadPackages type-checks the packages named by args, or by the
// configured patterns when args is empty.
func (g *globalOptions) loadPackages(cmd *cobra.Command, cfg *config.Config, args []string) ([]*loader.Package, error) {
	patterns := args
	if len(patterns) == 0 {
		patterns = cfg.Patterns
	}

	var pkgs []*loader.Package
	err := ui.WithSpinner(cmd.ErrOrStderr(), "Loading packages", g.interactive(cmd), g.noColor, func() error {
		var err error
		pkgs, err = loader.Load(cmd.Context(), root(cfg, args), patterns...)
		return err
	})
	return pkgs, err
}

// interactive reports whether progress output should be drawn.
func (g *globalOptions) interactive(cmd *cobra.Command) bool {
	if g.json || g.verbose {
		return false
	}
	f, ok := cmd.ErrOrStderr().(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}

// report prints the diagnostics of every result. In JSON mode all
// diagnostics are written as one document.
func (g *globalOptions) report(w io.Writer, results []*pipeline.Result) error {
	var all errors.List
	for _, r := range results {
		if r != nil {
			all = append(all, r.Diagnostics...)
		}
	}
	if g.json {
		out, err := all.FormatAsJSON()
		if err != nil {
			return err
		}
		fmt.Fprintln(w, out)
		return nil
	}

	for _, r := range results {
		if r == nil || len(r.Diagnostics) == 0 {
			continue
		}
		color.New(color.Bold).Fprintf(w, "%s\n", r.Unit)
		fmt.Fprintln(w, r.Diagnostics.FormatForTerminal())
	}
	return nil
}

// rejectedUnits lists the packages whose generation was rejected.
func rejectedUnits(results []*pipeline.Result) []string {
	var out []string
	for _, r := range results {
		if r != nil && r.State == pipeline.Rejected {
			out = append(out, r.Unit)
		}
	}
	return out
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func itoa(n int) string {
	return fmt.Sprintf("%d", n)
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
