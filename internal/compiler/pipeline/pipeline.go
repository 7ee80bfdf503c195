// Package pipeline drives one bridge generation run per package:
// Scanning, then Validating, then either Generating or Rejected.
//
// A rejected run writes nothing and removes the artifacts of earlier runs.
// A generating run writes exactly one registry file and one descriptor,
// both rendered from the same stamp and cross-checked before they reach the
// disk.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	bridgeerrors "github.com/democracycraft/bridge/compiler/errors"
	"github.com/democracycraft/bridge/internal/compiler/codegen"
	"github.com/democracycraft/bridge/internal/compiler/loader"
	"github.com/democracycraft/bridge/internal/compiler/scanner"
	"github.com/democracycraft/bridge/internal/compiler/stamp"
	"github.com/democracycraft/bridge/internal/compiler/validator"
	"github.com/democracycraft/bridge/internal/logging"
	"github.com/democracycraft/bridge/pkg/descriptor"
)

// ErrRejected is returned when diagnostics prevent generation.
var ErrRejected = errors.New("bridge generation rejected")

// State is the phase a run is in, or ended in.
type State int

const (
	Scanning State = iota
	Validating
	Generating
	Rejected
)

func (s State) String() string {
	switch s {
	case Scanning:
		return "scanning"
	case Validating:
		return "validating"
	case Generating:
		return "generating"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// DefaultRegistryFile is the name of the generated registry.
const DefaultRegistryFile = "bridge_registry.gen.go"

// Output says where a unit's artifacts go.
type Output struct {
	Dir            string
	RegistryFile   string
	DescriptorFile string
	// ImportPath and PackageName of the registry; empty means the scanned
	// package itself.
	ImportPath  string
	PackageName string
}

// RegistryPath is the full path of the registry file.
func (o Output) RegistryPath() string {
	return filepath.Join(o.Dir, o.RegistryFile)
}

// DescriptorPath is the full path of the descriptor file.
func (o Output) DescriptorPath() string {
	return filepath.Join(o.Dir, o.DescriptorFile)
}

// Unit is one package and the place its artifacts are written to.
type Unit struct {
	Package *loader.Package
	Output  Output
}

// Options apply to every unit of a run.
type Options struct {
	ProtocolVersion int
	Version         string
	// Strict makes warnings block generation.
	Strict bool
	// DryRun runs every phase but writes nothing.
	DryRun bool
}

// Artifacts are the rendered outputs of a generating run.
type Artifacts struct {
	Stamp          stamp.Stamp
	Registry       []byte
	Descriptor     []byte
	RegistryPath   string
	DescriptorPath string
	// Written lists the files that changed on disk.
	Written []string
}

// Result is the outcome of one unit.
type Result struct {
	Unit        string
	State       State
	Scan        *scanner.Result
	Diagnostics bridgeerrors.List
	Artifacts   *Artifacts
	// Removed lists artifacts of an earlier run deleted by a rejection.
	Removed []string
}

// Run executes the pipeline for one unit. Diagnostics that block generation
// produce a Rejected result and ErrRejected; any other error is a failure of
// the tool itself.
func Run(ctx context.Context, unit Unit, opts Options) (*Result, error) {
	log := logging.Logger().With(zap.String("unit", unit.Package.Path))
	result := &Result{Unit: unit.Package.Path, State: Scanning}

	if err := ctx.Err(); err != nil {
		return result, err
	}
	scan := scanner.Scan(unit.Package)
	result.Scan = scan
	result.Diagnostics = append(result.Diagnostics, scan.Diagnostics...)
	log.Debug("scanned",
		zap.Int("capabilities", len(scan.Elements)),
		zap.Int("anchors", len(scan.Anchors)),
		zap.Int("diagnostics", len(scan.Diagnostics)))

	result.State = Validating
	if err := ctx.Err(); err != nil {
		return result, err
	}
	result.Diagnostics = append(result.Diagnostics,
		validator.Validate(scan, validator.Options{ProtocolVersion: opts.ProtocolVersion})...)
	if blocked(result.Diagnostics, opts.Strict) {
		return reject(log, result, unit, opts)
	}

	result.State = Generating
	if err := ctx.Err(); err != nil {
		return result, err
	}
	st, err := stamp.New(opts.ProtocolVersion, opts.Version, stamp.FromElements(scan.Elements))
	if err != nil {
		return result, fmt.Errorf("invalid build stamp: %w", err)
	}

	gen := codegen.NewGenerator(codegen.Options{
		ImportPath:  unit.Output.ImportPath,
		PackageName: unit.Output.PackageName,
	})
	src, diags, err := gen.Generate(scan, st)
	if err != nil {
		return result, fmt.Errorf("failed to generate registry for %s: %w", unit.Package.Path, err)
	}
	if len(diags) > 0 {
		result.Diagnostics = append(result.Diagnostics, diags...)
		return reject(log, result, unit, opts)
	}

	art := &Artifacts{
		Stamp:          st,
		Registry:       src,
		Descriptor:     st.EncodeDescriptor(),
		RegistryPath:   unit.Output.RegistryPath(),
		DescriptorPath: unit.Output.DescriptorPath(),
	}
	if diag, ok := crossCheck(art); !ok {
		result.Diagnostics = append(result.Diagnostics, diag)
		return reject(log, result, unit, opts)
	}
	result.Artifacts = art
	result.Diagnostics = result.Diagnostics.Sorted()

	if opts.DryRun {
		log.Debug("dry run, nothing written")
		return result, nil
	}
	if err := ctx.Err(); err != nil {
		return result, err
	}
	written, err := writeArtifacts([]artifact{
		{path: art.RegistryPath, content: art.Registry},
		{path: art.DescriptorPath, content: art.Descriptor},
	})
	if err != nil {
		return result, err
	}
	art.Written = written
	log.Info("generated",
		zap.String("registry", art.RegistryPath),
		zap.Int("capabilities", st.Capabilities),
		zap.Int("protocol", st.ProtocolVersion),
		zap.Int("written", len(written)))
	return result, nil
}

// RunAll runs independent units in parallel. Units sharing an output file
// are refused before anything runs. Results keep the order of units; the
// returned error wraps ErrRejected when any unit was rejected.
func RunAll(ctx context.Context, units []Unit, opts Options) ([]*Result, error) {
	if err := checkOutputs(units); err != nil {
		return nil, err
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.GOMAXPROCS(0))

	results := make([]*Result, len(units))
	for i, unit := range units {
		eg.Go(func() error {
			r, err := Run(ctx, unit, opts)
			results[i] = r
			if errors.Is(err, ErrRejected) {
				return nil
			}
			return err
		})
	}
	if err := eg.Wait(); err != nil {
		return results, err
	}

	rejected := 0
	for _, r := range results {
		if r.State == Rejected {
			rejected++
		}
	}
	if rejected > 0 {
		return results, fmt.Errorf("%w: %d of %d packages", ErrRejected, rejected, len(units))
	}
	return results, nil
}

func checkOutputs(units []Unit) error {
	owners := make(map[string]string)
	for _, u := range units {
		for _, path := range []string{u.Output.RegistryPath(), u.Output.DescriptorPath()} {
			clean := filepath.Clean(path)
			if owner, ok := owners[clean]; ok && owner != u.Package.Path {
				return fmt.Errorf("packages %s and %s both write %s", owner, u.Package.Path, clean)
			}
			owners[clean] = u.Package.Path
		}
	}
	return nil
}

func blocked(diags bridgeerrors.List, strict bool) bool {
	return diags.HasErrors() || (strict && len(diags.Warnings()) > 0)
}

// reject ends a run without artifacts. Outside a dry run, a registry and
// descriptor left by an earlier run are removed so the package does not
// build against a stale stamp.
func reject(log *zap.Logger, result *Result, unit Unit, opts Options) (*Result, error) {
	result.State = Rejected
	result.Artifacts = nil
	result.Diagnostics = result.Diagnostics.Sorted()
	log.Warn("rejected",
		zap.Int("errors", len(result.Diagnostics.Errors())),
		zap.Int("warnings", len(result.Diagnostics.Warnings())))

	if opts.DryRun {
		return result, ErrRejected
	}
	removed, err := removeGenerated(unit.Output.RegistryPath(), unit.Output.DescriptorPath())
	result.Removed = removed
	if len(removed) > 0 {
		log.Info("removed stale artifacts", zap.Strings("files", removed))
	}
	if err != nil {
		return result, err
	}
	return result, ErrRejected
}

// crossCheck re-reads both rendered artifacts and compares them with the
// stamp they were rendered from.
func crossCheck(art *Artifacts) (bridgeerrors.Diagnostic, bool) {
	loc := bridgeerrors.SourceLocation{File: art.DescriptorPath}
	reg, err := stamp.ReadRegistry(art.Registry)
	if err != nil {
		return bridgeerrors.New(bridgeerrors.ErrStampDisagreement, err.Error(), loc, bridgeerrors.Fatal), false
	}
	desc, err := descriptor.Parse(bytes.NewReader(art.Descriptor))
	if err != nil {
		return bridgeerrors.New(bridgeerrors.ErrStampDisagreement, err.Error(), loc, bridgeerrors.Fatal), false
	}
	mismatches := stamp.Compare(art.Stamp, reg, desc)
	if len(mismatches) == 0 {
		return bridgeerrors.Diagnostic{}, true
	}
	d := bridgeerrors.New(bridgeerrors.ErrStampDisagreement, mismatches[0].String(), loc, bridgeerrors.Fatal)
	for _, m := range mismatches[1:] {
		d = d.WithRelated(bridgeerrors.New(bridgeerrors.ErrStampDisagreement, m.String(), loc, bridgeerrors.Info))
	}
	return d, false
}
