package commands

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/democracycraft/bridge/internal/cli/ui"
	"github.com/democracycraft/bridge/internal/compiler/scanner"
)

// errUnknownCapability is returned by list when the requested id does not
// exist.
var errUnknownCapability = errors.New("unknown capability")

// capabilityInfo is the listed view of one scanned capability.
type capabilityInfo struct {
	ID          string   `json:"id"`
	Declaration string   `json:"declaration"`
	Kind        string   `json:"kind"`
	Namespace   string   `json:"namespace"`
	Package     string   `json:"package"`
	Params      []string `json:"params"`
	Results     []string `json:"results"`
	Side        string   `json:"side"`
	Since       int      `json:"since"`
	Stable      bool     `json:"stable"`
	Location    string   `json:"location"`
}

type anchorInfo struct {
	Name     string `json:"name"`
	Value    string `json:"value"`
	Package  string `json:"package"`
	Location string `json:"location"`
}

type listing struct {
	Capabilities []capabilityInfo `json:"capabilities"`
	Anchors      []anchorInfo     `json:"anchors"`
}

func newListCommand(g *globalOptions) *cobra.Command {
	var pkgArgs []string

	cmd := &cobra.Command{
		Use:   "list [capability-id]",
		Short: "List the capabilities declared by the scanned packages",
		Long: `List every capability marker found in the scanned packages, sorted by id.
With an id, show the details of that capability. Markers are listed as
declared; run check to validate them.`,
		Example: `  bridgegen list
  bridgegen list vote.cast
  bridgegen list --packages ./vote/... --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig(cmd)
			if err != nil {
				return err
			}
			pkgs, err := g.loadPackages(cmd, cfg, pkgArgs)
			if err != nil {
				return err
			}

			var l listing
			for _, pkg := range pkgs {
				if !pkg.HasDirectives() {
					continue
				}
				res := scanner.Scan(pkg)
				for _, e := range res.Elements {
					l.Capabilities = append(l.Capabilities, describe(e))
				}
				for _, a := range res.Anchors {
					l.Anchors = append(l.Anchors, anchorInfo{
						Name:     a.Name,
						Value:    a.Value,
						Package:  pkg.Path,
						Location: a.Location.String(),
					})
				}
			}
			sort.SliceStable(l.Capabilities, func(i, j int) bool { return l.Capabilities[i].ID < l.Capabilities[j].ID })

			if len(args) == 1 {
				return g.showCapability(cmd, l.Capabilities, args[0])
			}
			if g.json {
				if l.Capabilities == nil {
					l.Capabilities = []capabilityInfo{}
				}
				if l.Anchors == nil {
					l.Anchors = []anchorInfo{}
				}
				return writeJSON(cmd.OutOrStdout(), l)
			}
			g.renderListing(cmd, l)
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&pkgArgs, "packages", "p", nil, "Package patterns to scan (default: the configured patterns)")
	return cmd
}

func describe(e *scanner.Element) capabilityInfo {
	return capabilityInfo{
		ID:          e.ID(),
		Declaration: e.Ref(),
		Kind:        string(e.Kind),
		Namespace:   e.Namespace,
		Package:     e.Package.Path(),
		Params:      e.ParamStrings(),
		Results:     e.ResultStrings(),
		Side:        string(e.Marker.Side),
		Since:       e.Marker.MinProtocolVersion(),
		Stable:      e.Marker.Explicit,
		Location:    e.Location.String(),
	}
}

func (g *globalOptions) renderListing(cmd *cobra.Command, l listing) {
	out := cmd.OutOrStdout()
	if len(l.Capabilities) == 0 {
		ui.Problem{Level: ui.LevelInfo, Subject: "No capabilities found."}.Write(out, g.noColor)
		return
	}

	table := ui.NewTable(out, g.noColor, "ID", "DECLARATION", "KIND", "SIDE", "SINCE")
	for _, c := range l.Capabilities {
		table.AddRow(c.ID, c.Declaration, c.Kind, c.Side, itoa(c.Since))
	}
	table.Render()

	if len(l.Anchors) > 0 {
		fmt.Fprintln(out)
		anchors := ui.NewTable(out, g.noColor, "ANCHOR", "VALUE", "PACKAGE")
		for _, a := range l.Anchors {
			anchors.AddRow(a.Name, fmt.Sprintf("%q", a.Value), a.Package)
		}
		anchors.Render()
	}
}

func (g *globalOptions) showCapability(cmd *cobra.Command, caps []capabilityInfo, id string) error {
	ids := make([]string, len(caps))
	for i, c := range caps {
		if c.ID == id {
			if g.json {
				return writeJSON(cmd.OutOrStdout(), c)
			}
			kv := ui.NewKeyValueTable(cmd.OutOrStdout(), g.noColor)
			kv.AddRow("ID", c.ID)
			kv.AddRow("Declaration", c.Declaration)
			kv.AddRow("Kind", c.Kind)
			kv.AddRow("Namespace", c.Namespace)
			kv.AddRow("Package", c.Package)
			kv.AddRow("Params", "("+strings.Join(c.Params, ", ")+")")
			kv.AddRow("Results", "("+strings.Join(c.Results, ", ")+")")
			kv.AddRow("Side", c.Side)
			kv.AddRow("Since", itoa(c.Since))
			kv.AddRow("Stable id", fmt.Sprintf("%t", c.Stable))
			kv.AddRow("Location", c.Location)
			kv.Render()
			return nil
		}
		ids[i] = c.ID
	}

	if !g.json {
		ui.UnknownCapability(id, ui.FindSimilar(id, ids)).Write(cmd.ErrOrStderr(), g.noColor)
	}
	return fmt.Errorf("%w: %s", errUnknownCapability, id)
}
