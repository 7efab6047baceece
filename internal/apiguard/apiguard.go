// Package apiguard computes the fingerprint bindings compare against the
// loaded library. Any change to a type layout, a function signature or a
// constant changes the hash; documentation does not.
package apiguard

import (
	"fmt"
	"hash/fnv"
	"io"
	"strings"

	"ffigen/internal/types"
)

var guardSuffixes = []string{"api_guard", "api_version"}

// Find returns the index of the guard function: a function named with an
// api_guard/api_version suffix, taking no parameters and returning u64.
func Find(g *types.Graph) (int, bool) {
	for i, fn := range g.Functions() {
		if len(fn.Params) != 0 || !g.IsPrimitive(fn.Ret, types.PrimU64) {
			continue
		}
		for _, s := range guardSuffixes {
			if strings.HasSuffix(fn.Name, s) {
				return i, true
			}
		}
	}
	return -1, false
}

// Hash returns the FNV-64a fingerprint of the exported surface. The guard
// function itself is left out so the native side can embed the value.
func Hash(g *types.Graph) uint64 {
	h := fnv.New64a()
	Write(h, g)
	return h.Sum64()
}

// Write streams the canonical surface description used by Hash.
func Write(w io.Writer, g *types.Graph) {
	for _, id := range g.IDs() {
		if !g.Emittable(id) {
			continue
		}
		switch g.Kind(id) {
		case types.KindStruct:
			s, _ := g.Struct(id)
			fmt.Fprintf(w, "struct %s %s{", g.TypeString(id), s.Repr)
			for _, f := range s.Fields {
				fmt.Fprintf(w, "%s:%s;", f.Name, g.TypeString(f.Type))
			}
			fmt.Fprintln(w, "}")
		case types.KindEnum:
			e, _ := g.Enum(id)
			fmt.Fprintf(w, "enum %s %s{", g.TypeString(id), e.BaseOrDefault())
			for _, v := range e.Variants {
				fmt.Fprintf(w, "%s=%d;", v.Name, v.Value)
			}
			fmt.Fprintln(w, "}")
		case types.KindOpaque:
			fmt.Fprintf(w, "opaque %s\n", g.TypeString(id))
		case types.KindFnPointer:
			fi, _ := g.FnPointer(id)
			fmt.Fprintf(w, "callback %s(", fi.Name)
			for _, p := range fi.Params {
				fmt.Fprintf(w, "%s,", g.TypeString(p))
			}
			fmt.Fprintf(w, ")%s\n", g.TypeString(fi.Ret))
		}
	}
	guard, hasGuard := Find(g)
	for i, fn := range g.Functions() {
		if hasGuard && i == guard {
			continue
		}
		fmt.Fprintf(w, "fn %s(", fn.Name)
		for _, p := range fn.Params {
			fmt.Fprintf(w, "%s:%s,", p.Name, g.TypeString(p.Type))
		}
		fmt.Fprintf(w, ")%s\n", g.TypeString(fn.Ret))
	}
	for _, c := range g.Constants() {
		fmt.Fprintf(w, "const %s:%s=%s\n", c.Name, g.TypeString(c.Type), c.Value)
	}
}
