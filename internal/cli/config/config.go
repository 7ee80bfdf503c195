// Package config loads bridgegen settings from bridge.yaml, BRIDGE_*
// environment variables and command line flags, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"go/token"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/democracycraft/bridge/internal/compiler/loader"
	"github.com/democracycraft/bridge/internal/compiler/pipeline"
	"github.com/democracycraft/bridge/internal/compiler/stamp"
	"github.com/democracycraft/bridge/pkg/descriptor"
)

// Config file names, in lookup order.
var FileNames = []string{"bridge.yaml", "bridge.yml"}

// EnvPrefix prefixes every environment variable, e.g. BRIDGE_PROTOCOL_VERSION.
const EnvPrefix = "BRIDGE"

// Config represents the bridgegen configuration
type Config struct {
	ProtocolVersion int              `mapstructure:"protocol_version" yaml:"protocol_version"`
	Version         string           `mapstructure:"version" yaml:"version"`
	Strict          bool             `mapstructure:"strict" yaml:"strict"`
	Patterns        []string         `mapstructure:"patterns" yaml:"patterns"`
	Output          OutputConfig     `mapstructure:"output" yaml:"output"`
	Descriptor      DescriptorConfig `mapstructure:"descriptor" yaml:"descriptor"`
	Watch           WatchConfig      `mapstructure:"watch" yaml:"watch"`

	// File is the config file that was read, empty when none was found.
	File string `mapstructure:"-" yaml:"-"`
}

// OutputConfig says where registries are generated.
type OutputConfig struct {
	// Dir is relative to each package directory. Empty generates into the
	// package itself.
	Dir        string `mapstructure:"dir" yaml:"dir,omitempty"`
	File       string `mapstructure:"file" yaml:"file"`
	ImportPath string `mapstructure:"import_path" yaml:"import_path,omitempty"`
	Package    string `mapstructure:"package" yaml:"package,omitempty"`
}

// DescriptorConfig names the runtime descriptor file.
type DescriptorConfig struct {
	File string `mapstructure:"file" yaml:"file"`
}

// WatchConfig tunes the watch command.
type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce"`
}

// flagKeys maps command line flags to config keys. Flags a command does
// not define are skipped.
var flagKeys = map[string]string{
	"protocol-version": "protocol_version",
	"lib-version":      "version",
	"strict":           "strict",
	"output-dir":       "output.dir",
	"output-file":      "output.file",
	"import-path":      "output.import_path",
	"package":          "output.package",
	"descriptor-file":  "descriptor.file",
	"debounce":         "watch.debounce",
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		ProtocolVersion: descriptor.DefaultProtocolVersion,
		Version:         "1.0.0",
		Patterns:        []string{"./..."},
		Output:          OutputConfig{File: pipeline.DefaultRegistryFile},
		Descriptor:      DescriptorConfig{File: descriptor.DefaultFile},
		Watch:           WatchConfig{Debounce: 200 * time.Millisecond},
	}
}

// Load reads the configuration. An empty file searches the working
// directory and its parents for bridge.yaml; flags may be nil.
func Load(file string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	def := Default()
	v.SetDefault("protocol_version", def.ProtocolVersion)
	v.SetDefault("version", def.Version)
	v.SetDefault("strict", def.Strict)
	v.SetDefault("patterns", def.Patterns)
	v.SetDefault("output.dir", "")
	v.SetDefault("output.file", def.Output.File)
	v.SetDefault("output.import_path", "")
	v.SetDefault("output.package", "")
	v.SetDefault("descriptor.file", def.Descriptor.File)
	v.SetDefault("watch.debounce", def.Watch.Debounce)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("failed to bind flag --%s: %w", name, err)
				}
			}
		}
	}

	if file == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		if file, err = Find(wd); err != nil {
			return nil, err
		}
	}
	if file != "" {
		v.SetConfigFile(file)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.File = file

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Find looks for a config file in dir and its parents. It returns an empty
// path when there is none.
func Find(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		for _, name := range FileNames {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}
		// Stop at the module root.
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return "", nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

// Validate checks every setting and names the offending key.
func (c *Config) Validate() error {
	var errs []error
	if c.ProtocolVersion < 1 {
		errs = append(errs, fmt.Errorf("protocol_version must be >= 1, got %d", c.ProtocolVersion))
	}
	if err := stamp.ValidateVersion(c.Version); err != nil {
		errs = append(errs, fmt.Errorf("version: %w", err))
	}
	if len(c.Patterns) == 0 {
		errs = append(errs, errors.New("patterns must not be empty"))
	}
	if !isBaseName(c.Output.File) || filepath.Ext(c.Output.File) != ".go" || strings.HasSuffix(c.Output.File, "_test.go") {
		errs = append(errs, fmt.Errorf("output.file must be a .go file name without directories, got %q", c.Output.File))
	}
	if filepath.IsAbs(c.Output.Dir) {
		errs = append(errs, fmt.Errorf("output.dir must be relative to the package directory, got %q", c.Output.Dir))
	}
	if c.Output.Package != "" && !token.IsIdentifier(c.Output.Package) {
		errs = append(errs, fmt.Errorf("output.package must be a Go identifier, got %q", c.Output.Package))
	}
	if c.Output.Dir == "" && (c.Output.ImportPath != "" || c.Output.Package != "") {
		errs = append(errs, errors.New("output.import_path and output.package require output.dir"))
	}
	if !isBaseName(c.Descriptor.File) {
		errs = append(errs, fmt.Errorf("descriptor.file must be a file name without directories, got %q", c.Descriptor.File))
	}
	if c.Watch.Debounce <= 0 {
		errs = append(errs, fmt.Errorf("watch.debounce must be positive, got %s", c.Watch.Debounce))
	}
	return errors.Join(errs...)
}

func isBaseName(name string) bool {
	return name != "" && name != "." && name != ".." && filepath.Base(name) == name
}

// Options converts the settings that apply to every pipeline unit.
func (c *Config) Options() pipeline.Options {
	return pipeline.Options{
		ProtocolVersion: c.ProtocolVersion,
		Version:         c.Version,
		Strict:          c.Strict,
	}
}

// OutputFor resolves where the artifacts of pkg are written.
func (c *Config) OutputFor(pkg *loader.Package) pipeline.Output {
	out := pipeline.Output{
		Dir:            pkg.Dir,
		RegistryFile:   c.Output.File,
		DescriptorFile: c.Descriptor.File,
	}
	if c.Output.Dir == "" {
		return out
	}
	rel := filepath.Clean(c.Output.Dir)
	out.Dir = filepath.Join(pkg.Dir, rel)
	out.ImportPath = c.Output.ImportPath
	if out.ImportPath == "" {
		out.ImportPath = path.Join(pkg.Path, filepath.ToSlash(rel))
	}
	out.PackageName = c.Output.Package
	return out
}

// Units pairs each package that carries bridge directives with its output.
// An explicit output.import_path names one package, so it is refused when
// more than one package carries directives.
func (c *Config) Units(pkgs []*loader.Package) ([]pipeline.Unit, error) {
	var units []pipeline.Unit
	for _, pkg := range pkgs {
		if !pkg.HasDirectives() {
			continue
		}
		units = append(units, pipeline.Unit{Package: pkg, Output: c.OutputFor(pkg)})
	}
	if c.Output.ImportPath != "" && len(units) > 1 {
		paths := make([]string, len(units))
		for i, u := range units {
			paths[i] = u.Package.Path
		}
		return nil, fmt.Errorf("output.import_path %q applies to a single package, but %d packages carry bridge markers: %s; leave it empty to derive one per package",
			c.Output.ImportPath, len(units), strings.Join(paths, ", "))
	}
	return units, nil
}

// WriteFile writes the configuration as YAML. It refuses to replace an
// existing file unless overwrite is set.
func (c *Config) WriteFile(file string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(file); err == nil {
			return fmt.Errorf("%s already exists", file)
		}
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return os.WriteFile(file, data, 0o644)
}

// MarshalYAML writes the debounce as a duration string.
func (w WatchConfig) MarshalYAML() (interface{}, error) {
	return map[string]string{"debounce": w.Debounce.String()}, nil
}
