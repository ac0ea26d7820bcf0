// Package source defines the contract of external data providers: discovery of new
// candidates and enrichment of existing ones, with a shared error taxonomy and rate guard.
package source

import (
	"context"
	"fmt"

	"memecoin-scout/internal/domain"
)

// Discoverer finds newly listed tokens on a chain.
type Discoverer interface {
	// Name identifies the adapter in logs, metrics and provenance.
	Name() string

	// Chains lists the chains the adapter can discover on.
	Chains() []domain.Chain

	// Discover returns candidates listed within maxAgeMinutes, deduplicated by key.
	// Market and volume attributes are set; enrichment attributes are absent.
	Discover(ctx context.Context, chain domain.Chain, maxAgeMinutes int64) ([]*domain.Candidate, error)
}

// Enricher adds the attributes it owns to a candidate.
type Enricher interface {
	Name() string
	Chains() []domain.Chain

	// Fields lists the attributes the enricher owns. ApplyTo ignores anything else.
	Fields() domain.FieldSet

	// Enrich fetches attributes for c. It must not mutate c. On a partial failure it may
	// return the attributes it did fetch together with the error.
	Enrich(ctx context.Context, c *domain.Candidate) (*Attributes, error)
}

// Resolver looks up market data for known addresses. On a partial failure it returns the
// candidates it did resolve together with the error.
type Resolver interface {
	Resolve(ctx context.Context, chain domain.Chain, addresses []string) ([]*domain.Candidate, error)
}

// Supports reports whether chains contains chain.
func Supports(chains []domain.Chain, chain domain.Chain) bool {
	for _, c := range chains {
		if c == chain {
			return true
		}
	}
	return false
}

// Registry holds the configured adapters and enforces field ownership.
type Registry struct {
	discoverers []Discoverer
	enrichers   []Enricher
	resolver    Resolver
}

// NewRegistry validates that no two enrichers own the same field on the same chain.
func NewRegistry(discoverers []Discoverer, enrichers []Enricher, resolver Resolver) (*Registry, error) {
	owners := make(map[domain.Chain]map[string]domain.FieldSet)
	for _, e := range enrichers {
		for _, chain := range e.Chains() {
			if owners[chain] == nil {
				owners[chain] = make(map[string]domain.FieldSet)
			}
			for name, fs := range owners[chain] {
				if overlap := fs.Overlap(e.Fields()); overlap != 0 {
					return nil, fmt.Errorf("enrichers %s and %s both own %s on %s", name, e.Name(), overlap, chain)
				}
			}
			owners[chain][e.Name()] = e.Fields()
		}
	}

	return &Registry{
		discoverers: discoverers,
		enrichers:   enrichers,
		resolver:    resolver,
	}, nil
}

// Discoverers returns the discoverers that support chain.
func (r *Registry) Discoverers(chain domain.Chain) []Discoverer {
	var out []Discoverer
	for _, d := range r.discoverers {
		if Supports(d.Chains(), chain) {
			out = append(out, d)
		}
	}
	return out
}

// Enrichers returns the enrichers that support chain.
func (r *Registry) Enrichers(chain domain.Chain) []Enricher {
	var out []Enricher
	for _, e := range r.enrichers {
		if Supports(e.Chains(), chain) {
			out = append(out, e)
		}
	}
	return out
}

// Resolver returns the market resolver, or nil.
func (r *Registry) Resolver() Resolver {
	return r.resolver
}

// Empty reports whether no discoverer is configured.
func (r *Registry) Empty() bool {
	return len(r.discoverers) == 0
}
