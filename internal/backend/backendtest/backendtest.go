// Package backendtest runs emitters over the reference library for backend
// tests.
package backendtest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"ffigen/internal/emit"
	"ffigen/internal/layout"
	"ffigen/internal/mono"
	"ffigen/internal/naming"
	"ffigen/internal/pattern"
	"ffigen/internal/testkit"
	"ffigen/internal/types"
)

// Input prepares the classified reference graph for a target run.
func Input(t testing.TB, opts emit.Options) emit.Input {
	t.Helper()
	return InputFor(t, testkit.Reference(), opts)
}

// InputFor prepares the graph of b for a target run.
func InputFor(t testing.TB, b *types.Builder, opts emit.Options) emit.Input {
	t.Helper()
	g, err := b.Finalize()
	require.NoError(t, err)
	res, err := mono.Monomorphize(g)
	require.NoError(t, err)
	require.NoError(t, pattern.Classify(res.Graph, nil))
	return emit.Input{
		Graph:   res.Graph,
		Logical: naming.NewLogical(res.Graph),
		Layout:  layout.X86_64LinuxGNU(),
		Options: opts,
	}
}

// Generate runs e over the reference library and fails the test on error.
func Generate(t testing.TB, e emit.Emitter, opts emit.Options) *emit.Output {
	t.Helper()
	out, err := emit.Generate(e, Input(t, opts))
	require.NoError(t, err)
	return out
}

// File returns the content of the generated file at path.
func File(t testing.TB, out *emit.Output, path string) string {
	t.Helper()
	for _, f := range out.Files {
		if f.Path == path {
			return string(f.Content)
		}
	}
	paths := make([]string, len(out.Files))
	for i, f := range out.Files {
		paths[i] = f.Path
	}
	require.Failf(t, "missing file", "%s not in [%s]", path, strings.Join(paths, ", "))
	return ""
}

// Before asserts that first occurs in src and precedes second.
func Before(t testing.TB, src, first, second string) {
	t.Helper()
	i := strings.Index(src, first)
	j := strings.Index(src, second)
	require.GreaterOrEqual(t, i, 0, "missing %q", first)
	require.GreaterOrEqual(t, j, 0, "missing %q", second)
	require.Less(t, i, j, "%q must precede %q", first, second)
}

// Section returns the text from the first occurrence of start up to the
// next occurrence of end after it.
func Section(t testing.TB, src, start, end string) string {
	t.Helper()
	i := strings.Index(src, start)
	require.GreaterOrEqual(t, i, 0, "missing %q", start)
	rest := src[i:]
	j := strings.Index(rest[len(start):], end)
	if j < 0 {
		return rest
	}
	return rest[:len(start)+j]
}
