package layout

import (
	"fmt"
	"slices"
)

// Target describes the ABI target triple and its scalar alignment rules.
type Target struct {
	Triple   string // e.g. "x86_64-linux-gnu"
	PtrSize  int    // bytes
	PtrAlign int    // bytes
	// I64Align is the alignment of 64-bit integers and doubles inside
	// structs; 4 on i686 System V, 8 elsewhere.
	I64Align int
}

func X86_64LinuxGNU() Target {
	return Target{
		Triple:   "x86_64-linux-gnu",
		PtrSize:  8,
		PtrAlign: 8,
		I64Align: 8,
	}
}

func AArch64LinuxGNU() Target {
	return Target{
		Triple:   "aarch64-linux-gnu",
		PtrSize:  8,
		PtrAlign: 8,
		I64Align: 8,
	}
}

func I686LinuxGNU() Target {
	return Target{
		Triple:   "i686-linux-gnu",
		PtrSize:  4,
		PtrAlign: 4,
		I64Align: 4,
	}
}

func Wasm32() Target {
	return Target{
		Triple:   "wasm32-unknown-unknown",
		PtrSize:  4,
		PtrAlign: 4,
		I64Align: 8,
	}
}

var knownTargets = map[string]func() Target{
	"x86_64-linux-gnu":       X86_64LinuxGNU,
	"aarch64-linux-gnu":      AArch64LinuxGNU,
	"i686-linux-gnu":         I686LinuxGNU,
	"wasm32-unknown-unknown": Wasm32,
}

// Default is the target used when nothing else is configured.
func Default() Target { return X86_64LinuxGNU() }

// ByTriple resolves a known target triple.
func ByTriple(triple string) (Target, error) {
	if triple == "" {
		return Default(), nil
	}
	mk, ok := knownTargets[triple]
	if !ok {
		return Target{}, fmt.Errorf("unknown layout target %q (known: %v)", triple, Triples())
	}
	return mk(), nil
}

// Triples lists the known target triples in sorted order.
func Triples() []string {
	out := make([]string, 0, len(knownTargets))
	for k := range knownTargets {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
