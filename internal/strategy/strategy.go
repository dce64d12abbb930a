// Package strategy defines the signal-generation capability the backtest
// engine drives, and a Registry for running several strategy variants under
// comparison.
package strategy

import (
	"sort"
	"time"

	"equisim/internal/domain"
	"equisim/internal/market"
	"equisim/internal/portfolio"
)

// Strategy maps one trading day to desired trade deltas. Implementations
// carry their own private state across calls within a run; a fresh instance
// is required per run. The engine depends only on this capability, never on
// a concrete variant.
type Strategy interface {
	// Name returns the unique identifier for this strategy.
	Name() string

	// GenerateSignals returns the trade deltas desired on the given day:
	// positive quantities buy, negative quantities sell. Returned signals
	// never contain zero entries; an empty or nil signal means no trades.
	GenerateSignals(on time.Time, hist *market.History, view portfolio.View) domain.Signal
}

// Registry holds a named collection of strategies for lookup and enumeration.
type Registry struct {
	strategies map[string]Strategy
}

// NewRegistry creates an empty strategy Registry.
func NewRegistry() *Registry {
	return &Registry{
		strategies: make(map[string]Strategy),
	}
}

// Register adds a strategy to the registry, keyed by its Name().
func (r *Registry) Register(s Strategy) {
	r.strategies[s.Name()] = s
}

// Get retrieves a strategy by name. The second return value indicates whether
// the strategy was found.
func (r *Registry) Get(name string) (Strategy, bool) {
	s, ok := r.strategies[name]
	return s, ok
}

// List returns a sorted slice of all registered strategy names.
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
