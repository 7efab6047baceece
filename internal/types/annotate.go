package types

import "errors"

// Annotation is the complete output of pattern classification.
type Annotation struct {
	Patterns []Pattern // indexed by TypeID
	Roles    []FunctionRoles
	Services []ServiceInfo
}

var errAlreadyClassified = errors.New("types: graph already classified")

// Annotate attaches classification results. It may be called once per graph;
// structure stays untouched.
func (g *Graph) Annotate(a Annotation) error {
	if g.classified {
		return errAlreadyClassified
	}
	if len(a.Patterns) != len(g.types) || len(a.Roles) != len(g.funcs) {
		return errors.New("types: annotation does not match graph size")
	}
	g.patterns = a.Patterns
	g.roles = a.Roles
	g.services = a.Services
	g.classified = true
	return nil
}

// Classified reports whether Annotate has run.
func (g *Graph) Classified() bool { return g != nil && g.classified }

// Pattern returns the cached classification of id.
func (g *Graph) Pattern(id TypeID) Pattern {
	if g == nil || int(id) >= len(g.patterns) {
		return Pattern{}
	}
	return g.patterns[id]
}

// FunctionRoles returns the cached classification of function i.
func (g *Graph) FunctionRoles(i int) *FunctionRoles {
	if g == nil || i < 0 || i >= len(g.roles) {
		return &FunctionRoles{Service: -1}
	}
	return &g.roles[i]
}

// Services returns every recognized service in discovery order.
func (g *Graph) Services() []ServiceInfo {
	if g == nil {
		return nil
	}
	return g.services
}

// Service returns service i.
func (g *Graph) Service(i int) (*ServiceInfo, bool) {
	if g == nil || i < 0 || i >= len(g.services) {
		return nil, false
	}
	return &g.services[i], true
}

// ServiceOf returns the service built around the opaque type id.
func (g *Graph) ServiceOf(id TypeID) (*ServiceInfo, bool) {
	p := g.Pattern(id)
	if p.Kind != PatternService {
		return nil, false
	}
	return g.Service(p.Service)
}
