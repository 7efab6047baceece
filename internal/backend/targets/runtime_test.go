package targets

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ffigen/internal/backend/backendtest"
	"ffigen/internal/emit"
)

// The tests below compile and load the generated bindings. They need a C
// compiler and, per target, python3 or go; missing tools skip the test.

func requireTools(t *testing.T, tools ...string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("runtime checks load a shared object through dlopen")
	}
	for _, tool := range tools {
		if _, err := exec.LookPath(tool); err != nil {
			t.Skipf("%s not installed; skipping runtime check", tool)
		}
	}
}

// writeTarget renders the reference library for target into dir.
func writeTarget(t *testing.T, target, dir string) {
	t.Helper()
	e, err := Default().New(target)
	require.NoError(t, err)
	out, err := emit.Generate(e, backendtest.Input(t, emit.Options{Library: "reference"}))
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for _, f := range out.Files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, f.Path), f.Content, 0o644))
	}
}

func command(t *testing.T, dir string, env []string, name string, args ...string) string {
	t.Helper()
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), env...)
	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf
	if err := cmd.Run(); err != nil {
		t.Fatalf("%s %s: %v\nstdout:\n%s\nstderr:\n%s", name, strings.Join(args, " "), err, outBuf.String(), errBuf.String())
	}
	return outBuf.String()
}

// buildStub compiles the native side of the reference library against the
// generated C header and returns the shared object's path.
func buildStub(t *testing.T, dir string) string {
	t.Helper()
	writeTarget(t, "c", dir)
	stub, err := filepath.Abs(filepath.Join("testdata", "runtime", "reference_stub.c"))
	require.NoError(t, err)
	lib := filepath.Join(dir, "libreference.so")
	command(t, dir, nil, "cc", "-std=c11", "-Wall", "-shared", "-fPIC", "-I", dir, "-o", lib, stub)
	return lib
}

func readEvents(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestGeneratedHeadersCompile(t *testing.T) {
	requireTools(t, "cc")
	dir := t.TempDir()
	writeTarget(t, "c", dir)
	writeTarget(t, "go", dir)
	for _, h := range []string{"reference.h", "reference_types.h"} {
		command(t, dir, nil, "cc", "-std=c11", "-Wall", "-Werror", "-fsyntax-only", "-x", "c", h)
	}
}

func TestGeneratedPythonParses(t *testing.T) {
	requireTools(t, "python3")
	dir := t.TempDir()
	writeTarget(t, "python", dir)
	command(t, dir, nil, "python3", "-c", "import ast, sys; ast.parse(open(sys.argv[1]).read(), sys.argv[1])", "reference.py")
}

func TestPythonBindingsAgainstNativeStub(t *testing.T) {
	requireTools(t, "cc", "python3")
	dir := t.TempDir()
	lib := buildStub(t, dir)
	writeTarget(t, "python", dir)
	script, err := filepath.Abs(filepath.Join("testdata", "runtime", "check_reference.py"))
	require.NoError(t, err)
	events := filepath.Join(dir, "events.log")

	out := command(t, dir, []string{"FFIGEN_EVENTS=" + events, "PYTHONDONTWRITEBYTECODE=1"}, "python3", script, dir, lib)
	assert.Equal(t, "ok\n", out)
	assert.Equal(t, "destroy 1\ndestroy 2\n", readEvents(t, events), "each service is destroyed exactly once")
}

func TestGoBindingsAgainstNativeStub(t *testing.T) {
	requireTools(t, "cc", "go")
	if testing.Short() {
		t.Skip("builds a cgo program")
	}
	dir := t.TempDir()
	lib := buildStub(t, filepath.Join(dir, "native"))
	writeTarget(t, "go", filepath.Join(dir, "reference"))
	main, err := os.ReadFile(filepath.Join("testdata", "runtime", "check_reference.go.txt"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), main, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "go.mod"), []byte("module refcheck\n\ngo 1.23\n"), 0o644))
	events := filepath.Join(dir, "events.log")

	env := []string{"FFIGEN_EVENTS=" + events, "CGO_ENABLED=1", "GOWORK=off", "GOFLAGS=-mod=mod", "GOTOOLCHAIN=local"}
	out := command(t, dir, env, "go", "run", ".", lib, events)
	assert.Equal(t, "ok\n", out)
	assert.Equal(t, "destroy 1\ndestroy 2\n", readEvents(t, events), "each service is destroyed exactly once")
}
