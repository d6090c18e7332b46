// Package registry holds the catalogue of generation backends. The registry
// is an explicit value passed into the policy and dispatcher; there is no
// package-level catalogue. Availability is written by an external health
// signal and only read here.
package registry

import (
	"sort"
	"sync"

	"github.com/pagecraft/ai-router/internal/domain"
)

// Capability tags used by the routing policy to pick models by trait.
const (
	CapFast            = "fast"
	CapCheap           = "cheap"
	CapHighFidelity    = "high-fidelity"
	CapStyleFlexible   = "style-flexible"
	CapReasoning       = "reasoning"
	CapAlwaysAvailable = "always-available"
)

// CostFunc prices one request in whole cents given the caller's size and
// quality hints. Implementations must be total: unknown hints fall back to
// the model's default pricing.
type CostFunc func(sizeHint, qualityHint string) int

// Profile describes one backend model. Static configuration except for
// Availability, which tracks the external health signal.
type Profile struct {
	ID           string
	RequestType  domain.RequestType
	Provider     string // adapter id, e.g. "openai"
	Capabilities []string
	Default      bool // baseline model a naive integration would always call
	Cost         CostFunc

	availability domain.ModelAvailability
}

// HasCapability reports whether the profile carries the given tag.
func (p *Profile) HasCapability(cap string) bool {
	for _, c := range p.Capabilities {
		if c == cap {
			return true
		}
	}
	return false
}

// Availability returns the profile's current health state.
func (p *Profile) Availability() domain.ModelAvailability {
	if p.availability == "" {
		return domain.AvailabilityAvailable
	}
	return p.availability
}

// Registry is the catalogue for both request types. Safe for concurrent use;
// Reload swaps the whole table for hot-reload from configuration.
type Registry struct {
	mu        sync.RWMutex
	models    map[string]*Profile
	fallbacks map[domain.RequestType]string
}

// New builds a registry from profiles plus the per-type dispatch fallback
// model ids.
func New(profiles []Profile, fallbacks map[domain.RequestType]string) *Registry {
	r := &Registry{}
	r.Reload(profiles, fallbacks)
	return r
}

// Reload replaces the catalogue atomically.
func (r *Registry) Reload(profiles []Profile, fallbacks map[domain.RequestType]string) {
	models := make(map[string]*Profile, len(profiles))
	for i := range profiles {
		p := profiles[i]
		if p.availability == "" {
			p.availability = domain.AvailabilityAvailable
		}
		models[p.ID] = &p
	}

	fb := make(map[domain.RequestType]string, len(fallbacks))
	for rt, id := range fallbacks {
		fb[rt] = id
	}

	r.mu.Lock()
	r.models = models
	r.fallbacks = fb
	r.mu.Unlock()
}

// Lookup returns the profile registered under id for the given request type.
// A miss, including an id registered only for the other type, is
// ErrModelNotFound: the registry never invents a model.
func (r *Registry) Lookup(requestType domain.RequestType, id string) (Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.models[id]
	if !ok || p.RequestType != requestType {
		return Profile{}, domain.NewModelNotFound(id, requestType)
	}
	return *p, nil
}

// ListByType returns all profiles for a request type, ordered by id for
// deterministic iteration.
func (r *Registry) ListByType(requestType domain.RequestType) []Profile {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Profile
	for _, p := range r.models {
		if p.RequestType == requestType {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SetAvailability records the external health signal for a model. Unknown
// ids are ignored: health probes may race a catalogue reload.
func (r *Registry) SetAvailability(id string, availability domain.ModelAvailability) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.models[id]; ok {
		p.availability = availability
	}
}

// Baseline returns the cheapest default-flagged model for a request type,
// priced with the given hints. Savings estimates are computed against it.
func (r *Registry) Baseline(requestType domain.RequestType, sizeHint, qualityHint string) (Profile, error) {
	var best *Profile
	bestCost := 0

	for _, p := range r.ListByType(requestType) {
		if !p.Default {
			continue
		}
		c := p.Cost(sizeHint, qualityHint)
		if best == nil || c < bestCost {
			cp := p
			best = &cp
			bestCost = c
		}
	}

	if best == nil {
		return Profile{}, domain.NewModelNotFound("default", requestType)
	}
	return *best, nil
}

// DispatchFallback returns the predefined runtime fallback model for a
// request type.
func (r *Registry) DispatchFallback(requestType domain.RequestType) (Profile, error) {
	r.mu.RLock()
	id, ok := r.fallbacks[requestType]
	r.mu.RUnlock()

	if !ok {
		return Profile{}, domain.NewModelNotFound("fallback", requestType)
	}
	return r.Lookup(requestType, id)
}
