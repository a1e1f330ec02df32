package corridor

import (
	"fmt"
	"sort"
)

// #region registry
// Registry holds typed parameter definitions. Registration validates every
// required field; lookups of unregistered names fail rather than default.
type Registry struct {
	params map[string]Parameter
}

// NewRegistry creates an empty parameter registry.
func NewRegistry() *Registry {
	return &Registry{params: make(map[string]Parameter)}
}

// #endregion registry

// #region register
// Register validates and stores a parameter definition. Re-registering the
// same name fails: definitions are immutable for the life of the registry.
func (g *Registry) Register(p Parameter) error {
	if p.Name == "" {
		return fmt.Errorf("%w: empty parameter name", ErrValidation)
	}
	if p.Unit == "" {
		return fmt.Errorf("%w: parameter %q: empty unit", ErrValidation, p.Name)
	}
	if p.Direction != HigherWorse && p.Direction != LowerWorse {
		return fmt.Errorf("%w: parameter %q: direction %q", ErrValidation, p.Name, p.Direction)
	}
	if p.NormMin >= p.NormMax {
		return domainErr(p.Name, fmt.Sprintf("normalization bounds [%g, %g] invalid", p.NormMin, p.NormMax))
	}
	if p.Weight < 0 {
		return fmt.Errorf("%w: parameter %q: negative weight %g", ErrValidation, p.Name, p.Weight)
	}
	if p.Channel < 0 {
		return fmt.Errorf("%w: parameter %q: negative channel %d", ErrValidation, p.Name, p.Channel)
	}
	if _, ok := g.params[p.Name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateParameter, p.Name)
	}
	g.params[p.Name] = p
	return nil
}

// #endregion register

// #region lookup

// Get returns the registered parameter, or ErrDomain if unknown.
func (g *Registry) Get(name string) (Parameter, error) {
	p, ok := g.params[name]
	if !ok {
		return Parameter{}, domainErr(name, "not registered")
	}
	return p, nil
}

// Names returns all registered parameter names in sorted order.
func (g *Registry) Names() []string {
	names := make([]string, 0, len(g.params))
	for n := range g.params {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered parameters.
func (g *Registry) Len() int {
	return len(g.params)
}

// #endregion lookup
