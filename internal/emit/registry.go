package emit

import (
	"fmt"
	"slices"
	"sync"

	"ffigen/internal/diag"
)

// Factory creates a fresh emitter. Emitters carry per-run state, so every
// run gets its own instance.
type Factory func() Emitter

// Registry maps target ids ("c", "python", "csharp", "go") to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a target. Registering an id twice is an error.
func (r *Registry) Register(target string, f Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.factories[target]; ok {
		return fmt.Errorf("emit: target %q registered twice", target)
	}
	r.factories[target] = f
	return nil
}

// New instantiates the emitter for target.
func (r *Registry) New(target string) (Emitter, error) {
	r.mu.RLock()
	f, ok := r.factories[target]
	r.mu.RUnlock()
	if !ok {
		return nil, diag.NewErrorf(diag.UnknownTarget, diag.NodeRef{}, "unknown target %q (known: %v)", target, r.Targets())
	}
	return f(), nil
}

// Targets lists registered ids in sorted order.
func (r *Registry) Targets() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for k := range r.factories {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
