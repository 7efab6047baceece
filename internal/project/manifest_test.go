package project

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ffigen/internal/diag"
)

func writeManifest(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, ManifestName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestFindManifestWalksUp(t *testing.T) {
	root := t.TempDir()
	path := writeManifest(t, root, Template("demo", "api.yaml"))
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	got, ok, err := FindManifest(nested)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, path, got)

	dir, ok, err := FindProjectRoot(nested)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, root, dir)
}

func TestManifestNamePrecedence(t *testing.T) {
	root := t.TempDir()
	hidden := filepath.Join(root, HiddenManifestName)
	require.NoError(t, os.WriteFile(hidden, []byte(Template("hidden", "api.yaml")), 0o600))

	got, ok, err := FindManifest(root)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, hidden, got)

	visible := writeManifest(t, root, Template("visible", "api.yaml"))
	got, _, err = FindManifest(root)
	require.NoError(t, err)
	assert.Equal(t, visible, got)

	require.NoError(t, os.Remove(visible))
	require.NoError(t, os.Mkdir(visible, 0o755))
	got, _, err = FindManifest(root)
	require.NoError(t, err)
	assert.Equal(t, hidden, got, "a directory named like the manifest is skipped")
}

func TestManifestNearestTheIRWins(t *testing.T) {
	work := t.TempDir()
	writeManifest(t, work, Template("work", "api.yaml"))
	other := filepath.Join(t.TempDir(), "other")
	require.NoError(t, os.MkdirAll(filepath.Join(other, "api"), 0o755))
	otherManifest := writeManifest(t, other, Template("other", "api/other.yaml"))
	ir := filepath.Join(other, "api", "other.yaml")

	got, ok, err := FindManifestFor(ir, work)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, otherManifest, got)

	m, ok, err := LoadFor(ir, work)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "other", m.Config.Project.Name)
	assert.Equal(t, other, m.Root)

	bare := filepath.Join(t.TempDir(), "api.yaml")
	m, ok, err = LoadFor(bare, work)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "work", m.Config.Project.Name, "falls back to the working directory")

	m, _, err = LoadFor("", work)
	require.NoError(t, err)
	assert.Equal(t, "work", m.Config.Project.Name)
}

func TestLoadTemplate(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, Template("demo", "api/demo.yaml"))

	m, ok, err := Load(root)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "demo", m.Config.Project.Name)
	assert.Equal(t, filepath.Join(root, "api", "demo.yaml"), m.IRPath())
	assert.Equal(t, filepath.Join(root, DefaultOutputDir), m.OutputDir())
	assert.Equal(t, []string{"c", "python", "csharp", "go"}, m.Targets())

	opts := m.Options()
	require.Len(t, opts, 4)
	assert.Equal(t, "demo", opts["c"].Library)
	assert.Equal(t, "Interop", opts["csharp"].Namespace)
}

func TestLoadOverrides(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, `
[project]
name = "demo"

[output]
dir = "/tmp/out"
targets = ["go", "go", " c "]

[c]
header_guard = "DEMO_API_H"

[go]
library = "demo_native"
module = "demoapi"
`)
	m, ok, err := Load(root)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Empty(t, m.IRPath())
	assert.Equal(t, filepath.FromSlash("/tmp/out"), m.OutputDir())
	assert.Equal(t, []string{"go", "c"}, m.Targets())
	assert.Equal(t, "DEMO_API_H", m.Options()["c"].HeaderGuard)
	assert.Equal(t, "demo_native", m.Options()["go"].Library)
	assert.Equal(t, "demoapi", m.Options()["go"].Module)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"syntax", "[project\n", "failed to parse TOML"},
		{"no project", "[output]\ndir = \"x\"\n", "missing [project]"},
		{"no name", "[project]\nir = \"a.yaml\"\n", "missing [project].name"},
		{"unknown key", "[project]\nname = \"x\"\nentry = \"y\"\n", "unknown keys: project.entry"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeManifest(t, t.TempDir(), tt.content)
			_, err := LoadConfig(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			var de *diag.Error
			require.True(t, errors.As(err, &de))
			assert.Equal(t, diag.ProjectManifest, de.Code)
		})
	}
}

func TestNilManifest(t *testing.T) {
	var m *Manifest
	assert.Empty(t, m.IRPath())
	assert.Equal(t, DefaultOutputDir, m.OutputDir())
	assert.Nil(t, m.Targets())
	assert.Nil(t, m.Options())
}
