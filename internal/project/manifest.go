package project

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"ffigen/internal/diag"
	"ffigen/internal/emit"
)

// DefaultOutputDir is used when [output].dir is empty.
const DefaultOutputDir = "bindings"

// Manifest is a loaded ffigen.toml.
type Manifest struct {
	Path   string
	Root   string
	Config Config
}

// Config mirrors the tables of ffigen.toml.
type Config struct {
	Project ProjectConfig `toml:"project"`
	Output  OutputConfig  `toml:"output"`
	C       TargetConfig  `toml:"c"`
	Python  TargetConfig  `toml:"python"`
	CSharp  TargetConfig  `toml:"csharp"`
	Go      TargetConfig  `toml:"go"`
}

type ProjectConfig struct {
	Name string `toml:"name"`
	// IR is the interface document, relative to the manifest.
	IR string `toml:"ir"`
	// Layout is the ABI triple; empty means the host default.
	Layout string `toml:"layout"`
}

type OutputConfig struct {
	Dir     string   `toml:"dir"`
	Targets []string `toml:"targets"`
}

// TargetConfig holds the per-target overrides. Only the keys a target
// understands are read by its emitter.
type TargetConfig struct {
	Library     string `toml:"library"`
	Module      string `toml:"module"`
	Namespace   string `toml:"namespace"`
	Class       string `toml:"class"`
	HeaderGuard string `toml:"header_guard"`
}

// Load finds ffigen.toml above startDir and decodes it. ok is false when
// there is no manifest.
func Load(startDir string) (*Manifest, bool, error) {
	return LoadFor("", startDir)
}

// LoadFor decodes the manifest governing the IR document at irPath; see
// FindManifestFor.
func LoadFor(irPath, startDir string) (*Manifest, bool, error) {
	manifestPath, ok, err := FindManifestFor(irPath, startDir)
	if err != nil || !ok {
		return nil, ok, err
	}
	cfg, err := LoadConfig(manifestPath)
	if err != nil {
		return nil, true, err
	}
	return &Manifest{
		Path:   manifestPath,
		Root:   filepath.Dir(manifestPath),
		Config: cfg,
	}, true, nil
}

// LoadConfig decodes the manifest at path. Unknown keys are rejected.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, diag.NewErrorf(diag.ProjectManifest, diag.NodeRef{}, "%s: failed to parse TOML: %v", path, err)
	}
	if keys := meta.Undecoded(); len(keys) > 0 {
		names := make([]string, len(keys))
		for i, k := range keys {
			names[i] = k.String()
		}
		return Config{}, diag.NewErrorf(diag.ProjectManifest, diag.NodeRef{}, "%s: unknown keys: %s", path, strings.Join(names, ", "))
	}
	if !meta.IsDefined("project") {
		return Config{}, diag.NewErrorf(diag.ProjectManifest, diag.NodeRef{}, "%s: missing [project]", path)
	}
	if !meta.IsDefined("project", "name") || strings.TrimSpace(cfg.Project.Name) == "" {
		return Config{}, diag.NewErrorf(diag.ProjectManifest, diag.NodeRef{}, "%s: missing [project].name", path)
	}
	return cfg, nil
}

// IRPath returns the absolute path of [project].ir, or "" when unset.
func (m *Manifest) IRPath() string {
	if m == nil || m.Config.Project.IR == "" {
		return ""
	}
	return m.resolve(m.Config.Project.IR)
}

// OutputDir returns the absolute output directory.
func (m *Manifest) OutputDir() string {
	if m == nil {
		return DefaultOutputDir
	}
	dir := m.Config.Output.Dir
	if dir == "" {
		dir = DefaultOutputDir
	}
	return m.resolve(dir)
}

// Targets returns [output].targets without duplicates.
func (m *Manifest) Targets() []string {
	if m == nil {
		return nil
	}
	var out []string
	for _, t := range m.Config.Output.Targets {
		t = strings.TrimSpace(t)
		if t != "" && !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	return out
}

// Options builds the emitter options of every target. The library name
// defaults to the project name.
func (m *Manifest) Options() map[string]emit.Options {
	if m == nil {
		return nil
	}
	out := make(map[string]emit.Options, 4)
	for target, tc := range map[string]TargetConfig{
		"c":      m.Config.C,
		"python": m.Config.Python,
		"csharp": m.Config.CSharp,
		"go":     m.Config.Go,
	} {
		opts := tc.Options()
		if opts.Library == "" {
			opts.Library = m.Config.Project.Name
		}
		out[target] = opts
	}
	return out
}

func (tc TargetConfig) Options() emit.Options {
	return emit.Options{
		Library:     tc.Library,
		Module:      tc.Module,
		Namespace:   tc.Namespace,
		Class:       tc.Class,
		HeaderGuard: tc.HeaderGuard,
	}
}

func (m *Manifest) resolve(p string) string {
	p = filepath.FromSlash(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.Root, p)
}

// Template returns the manifest written by `ffigen init`. Module, header
// and class names default to the project name.
func Template(name, ir string) string {
	return fmt.Sprintf(`# ffigen project manifest
[project]
name = %q
ir = %q

[output]
dir = %q
targets = ["c", "python", "csharp", "go"]

[csharp]
namespace = "Interop"
`, name, ir, DefaultOutputDir)
}
