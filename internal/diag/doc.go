// Package diag defines the diagnostic model shared by every generation stage.
//
// # Purpose
//
//   - Provide deterministic data structures for findings produced while the IR
//     is decoded, the type graph is finalized, patterns are classified, names
//     are assigned, bindings are emitted and layouts are cross-checked.
//   - Offer light-weight utilities (Reporter, Bag) that let producers emit
//     diagnostics without coupling to storage or formatting.
//   - Bridge diagnostics and Go errors: every error diagnostic converts to an
//     *Error that matches the package sentinels under errors.Is.
//
// # Data model
//
// Diagnostic is the central record. It contains:
//
//   - Severity – Info, Warning or Error.
//   - Code – compact numeric identifier (see codes.go) with a stable ID such as
//     GRF2001. Ranges: IR 1000, graph 2000, pattern 3000, emission 4000,
//     layout 5000, project 6000.
//   - Message – human oriented text; keep it short and actionable.
//   - Node – the offending IR node (kind, TypeID or function index, name).
//   - Target – set for findings that only concern one output language.
//   - Notes – related nodes, e.g. the second matching predicate of an
//     ambiguous pattern or the other declaration of a duplicate symbol.
//
// # Failure policy
//
// Every generation error is fatal: a stage collects all of its findings into a
// Bag and returns Bag.Err(), which is nil when only warnings were recorded.
// The CLI prints the diagnostics and writes no output files. Callers branch on
// the taxonomy with errors.Is:
//
//	if errors.Is(err, diag.ErrAmbiguousPattern) { ... }
//
// Rendering with colors lives in cmd/ffigen; FormatShort provides the plain,
// single-line-per-entry form used by tests and non-terminal output.
package diag
