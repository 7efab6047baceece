// Package targets registers the built-in emitters.
package targets

import (
	"ffigen/internal/backend/c"
	"ffigen/internal/backend/csharp"
	"ffigen/internal/backend/gocgo"
	"ffigen/internal/backend/python"
	"ffigen/internal/emit"
)

// Register adds every built-in target to r.
func Register(r *emit.Registry) error {
	for target, f := range map[string]emit.Factory{
		c.Target:      c.New,
		python.Target: python.New,
		csharp.Target: csharp.New,
		gocgo.Target:  gocgo.New,
	} {
		if err := r.Register(target, f); err != nil {
			return err
		}
	}
	return nil
}

// Default returns a registry holding the built-in targets.
func Default() *emit.Registry {
	r := emit.NewRegistry()
	if err := Register(r); err != nil {
		panic(err)
	}
	return r
}
