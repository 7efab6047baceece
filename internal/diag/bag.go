package diag

import (
	"fmt"
	"math"
	"sort"

	"fortio.org/safecast"
)

// DefaultMax is the diagnostic limit used when callers pass a non-positive max.
const DefaultMax = 256

type Bag struct {
	items   []Diagnostic
	max     uint16
	dropped int
}

func NewBag(max int) *Bag {
	if max <= 0 {
		max = DefaultMax
	}
	capped, err := safecast.Conv[uint16](max)
	if err != nil {
		capped = math.MaxUint16
	}
	return &Bag{
		items: make([]Diagnostic, 0, min(int(capped), 64)),
		max:   capped,
	}
}

// Add appends d unless the limit is reached. Dropped diagnostics are counted
// so HasErrors stays truthful.
func (b *Bag) Add(d Diagnostic) bool {
	if len(b.items) >= int(b.max) {
		if d.Severity >= SevError {
			b.dropped++
		}
		return false
	}
	b.items = append(b.items, d)
	return true
}

// Errorf adds an error diagnostic.
func (b *Bag) Errorf(code Code, node NodeRef, format string, args ...any) {
	b.Add(Errorf(code, node, format, args...))
}

func (b *Bag) Cap() uint16 {
	return b.max
}

// Dropped returns the number of error diagnostics discarded by the limit.
func (b *Bag) Dropped() int { return b.dropped }

func (b *Bag) HasErrors() bool {
	if b == nil {
		return false
	}
	if b.dropped > 0 {
		return true
	}
	for i := range b.items {
		if b.items[i].Severity >= SevError {
			return true
		}
	}
	return false
}

func (b *Bag) HasWarnings() bool {
	for i := range b.items {
		if b.items[i].Severity == SevWarning {
			return true
		}
	}
	return false
}

func (b *Bag) Len() int {
	if b == nil {
		return 0
	}
	return len(b.items)
}

// Items returns the backing slice; callers must not modify it.
func (b *Bag) Items() []Diagnostic {
	if b == nil {
		return nil
	}
	return b.items
}

// Merge appends the diagnostics of other, growing the limit when needed.
func (b *Bag) Merge(other *Bag) {
	if other == nil {
		return
	}
	newTotal := len(b.items) + len(other.items)
	if newTotal > int(b.max) {
		grown, err := safecast.Conv[uint16](newTotal)
		if err != nil {
			grown = math.MaxUint16
		}
		b.max = grown
	}
	for _, d := range other.items {
		b.Add(d)
	}
	b.dropped += other.dropped
}

// Sort orders diagnostics by severity (desc), code, target, node and message
// for deterministic output.
func (b *Bag) Sort() {
	sort.SliceStable(b.items, func(i, j int) bool {
		di, dj := b.items[i], b.items[j]
		if di.Severity != dj.Severity {
			return di.Severity > dj.Severity
		}
		if di.Code != dj.Code {
			return di.Code < dj.Code
		}
		if di.Target != dj.Target {
			return di.Target < dj.Target
		}
		if di.Node.ID != dj.Node.ID {
			return di.Node.ID < dj.Node.ID
		}
		if di.Node.Name != dj.Node.Name {
			return di.Node.Name < dj.Node.Name
		}
		return di.Message < dj.Message
	})
}

// Dedup drops repeated diagnostics with the same code, target, node and message.
func (b *Bag) Dedup() {
	seen := make(map[string]bool)
	newitems := make([]Diagnostic, 0, len(b.items))
	for _, d := range b.items {
		key := fmt.Sprintf("%s|%s|%s|%s", d.Code.ID(), d.Target, d.Node.String(), d.Message)
		if seen[key] {
			continue
		}
		seen[key] = true
		newitems = append(newitems, d)
	}
	b.items = newitems
}

// Err returns nil when the bag holds no errors, otherwise an *Errors value
// carrying every error diagnostic in insertion order.
func (b *Bag) Err() error {
	if !b.HasErrors() {
		return nil
	}
	errs := &Errors{}
	for _, d := range b.items {
		if d.Severity >= SevError {
			errs.Items = append(errs.Items, d)
		}
	}
	if b.dropped > 0 {
		errs.Items = append(errs.Items, NewError(UnknownCode, NodeRef{}, fmt.Sprintf("%d more errors suppressed", b.dropped)))
	}
	return errs
}
