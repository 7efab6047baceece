package targets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ffigen/internal/backend/backendtest"
	"ffigen/internal/emit"
)

func TestDefault(t *testing.T) {
	r := Default()
	assert.Equal(t, []string{"c", "csharp", "go", "python"}, r.Targets())
	require.Error(t, Register(r), "targets register once")
}

func TestEveryTargetRendersTheReferenceLibrary(t *testing.T) {
	r := Default()
	for _, target := range r.Targets() {
		t.Run(target, func(t *testing.T) {
			e, err := r.New(target)
			require.NoError(t, err)
			out, err := emit.Generate(e, backendtest.Input(t, emit.Options{Library: "reference"}))
			require.NoError(t, err)
			assert.Equal(t, target, out.Target)
			assert.NotEmpty(t, out.Files)
			assert.NotEmpty(t, out.Manifest.Structs)
			for _, f := range out.Files {
				assert.NotEmpty(t, f.Content, f.Path)
			}
		})
	}
}
