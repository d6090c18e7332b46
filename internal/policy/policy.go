// Package policy chooses a backend model for one generation request. It is
// pure: the same request and registry state always yield the same decision.
package policy

import (
	"fmt"
	"sort"

	"github.com/pagecraft/ai-router/internal/analyzer"
	"github.com/pagecraft/ai-router/internal/domain"
	"github.com/pagecraft/ai-router/internal/registry"
)

type Policy struct {
	registry *registry.Registry
	tables   Tables
}

func New(reg *registry.Registry) *Policy {
	return NewWithTables(reg, DefaultTables())
}

func NewWithTables(reg *registry.Registry, tables Tables) *Policy {
	return &Policy{registry: reg, tables: tables}
}

// Decide produces the routing decision for one request. It never dispatches
// anything and reads only the registry.
func (p *Policy) Decide(req domain.GenerationRequest) (domain.RoutingDecision, error) {
	if override := req.Preference.ModelOverride; override != "" && override != domain.ModelAuto {
		return p.decideOverride(req, override)
	}

	a := analyzer.Analyze(req.RequestType, req.Prompt)
	rec := p.tables.recommend(req.RequestType, a)
	a.RecommendedModel = rec.Model
	a.Reasoning = rec.Reasoning

	selected, reasoning, err := p.applyStylePreference(req, a, rec)
	if err != nil {
		return domain.RoutingDecision{}, err
	}

	// Planning-time substitution: a model the health signal marks down is
	// never selected when an alternative exists.
	if selected.Availability() == domain.AvailabilityDown {
		if alt, ok := p.substitute(req, a, selected.ID); ok {
			reasoning = fmt.Sprintf("%s (substituted %s: %s is down)", reasoning, alt.ID, selected.ID)
			selected = alt
		}
	}

	cost := selected.Cost(req.SizeHint, req.QualityHint)

	return domain.RoutingDecision{
		SelectedModel:         selected.ID,
		Analysis:              a,
		WasAutoRouted:         true,
		EstimatedCostCents:    cost,
		EstimatedSavingsCents: p.savings(req, cost),
		Reasoning:             reasoning,
	}, nil
}

func (p *Policy) decideOverride(req domain.GenerationRequest, override string) (domain.RoutingDecision, error) {
	profile, err := p.registry.Lookup(req.RequestType, override)
	if err != nil {
		return domain.RoutingDecision{}, err
	}

	cost := profile.Cost(req.SizeHint, req.QualityHint)

	return domain.RoutingDecision{
		SelectedModel:         profile.ID,
		Analysis:              analyzer.Analyze(req.RequestType, req.Prompt),
		WasAutoRouted:         false,
		OverrideReason:        fmt.Sprintf("user pinned model %s", profile.ID),
		EstimatedCostCents:    cost,
		EstimatedSavingsCents: p.savings(req, cost),
		Reasoning:             fmt.Sprintf("model override honored: %s", profile.ID),
	}, nil
}

// applyStylePreference is the tenant-level secondary override on top of the
// table recommendation.
func (p *Policy) applyStylePreference(req domain.GenerationRequest, a domain.PromptAnalysis, rec recommendation) (registry.Profile, string, error) {
	switch req.Preference.StylePreference {
	case domain.PreferSpeed:
		// Speed never degrades a prompt that genuinely needs detail.
		if !a.RequiresDetail {
			if profile, ok := p.pickByCapability(req, registry.CapFast); ok {
				return profile, fmt.Sprintf("tenant prefers speed, using %s", profile.ID), nil
			}
		}
	case domain.PreferQuality:
		if profile, ok := p.pickByCapability(req, registry.CapHighFidelity); ok {
			return profile, fmt.Sprintf("tenant prefers quality, using %s", profile.ID), nil
		}
	case domain.PreferCreative:
		if profile, ok := p.pickByCapability(req, registry.CapStyleFlexible); ok {
			return profile, fmt.Sprintf("tenant prefers creative output, using %s", profile.ID), nil
		}
	}

	// Balanced, or no model carries the wanted capability: keep the table's
	// recommendation.
	profile, err := p.registry.Lookup(req.RequestType, rec.Model)
	if err != nil {
		// The table references a model absent from this registry; fall back
		// to the cheapest registered model rather than inventing an id.
		if alt, ok := p.cheapestAvailable(req, ""); ok {
			return alt, fmt.Sprintf("recommended model unavailable, using %s", alt.ID), nil
		}
		return registry.Profile{}, "", err
	}
	return profile, rec.Reasoning, nil
}

// pickByCapability selects the cheapest non-down model carrying cap.
// Equal-cost candidates tie-break on id for determinism.
func (p *Policy) pickByCapability(req domain.GenerationRequest, cap string) (registry.Profile, bool) {
	candidates := p.candidates(req, func(prof registry.Profile) bool {
		return prof.HasCapability(cap) && prof.Availability() != domain.AvailabilityDown
	})
	if len(candidates) == 0 {
		return registry.Profile{}, false
	}
	return candidates[0], true
}

func (p *Policy) cheapestAvailable(req domain.GenerationRequest, excludeID string) (registry.Profile, bool) {
	candidates := p.candidates(req, func(prof registry.Profile) bool {
		return prof.ID != excludeID && prof.Availability() != domain.AvailabilityDown
	})
	if len(candidates) == 0 {
		return registry.Profile{}, false
	}
	return candidates[0], true
}

// candidates returns matching profiles ordered by (cost, id).
func (p *Policy) candidates(req domain.GenerationRequest, match func(registry.Profile) bool) []registry.Profile {
	var out []registry.Profile
	for _, prof := range p.registry.ListByType(req.RequestType) {
		if match(prof) {
			out = append(out, prof)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ci := out[i].Cost(req.SizeHint, req.QualityHint)
		cj := out[j].Cost(req.SizeHint, req.QualityHint)
		if ci != cj {
			return ci < cj
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// substitute finds the planning-time replacement for a down model: the best
// available model for the same style/tier preference, cheapest first.
func (p *Policy) substitute(req domain.GenerationRequest, a domain.PromptAnalysis, downID string) (registry.Profile, bool) {
	preferredCap := registry.CapCheap
	if a.RequiresDetail {
		preferredCap = registry.CapHighFidelity
	} else if a.NeedsSpeed {
		preferredCap = registry.CapFast
	}

	candidates := p.candidates(req, func(prof registry.Profile) bool {
		return prof.ID != downID && prof.HasCapability(preferredCap) && prof.Availability() != domain.AvailabilityDown
	})
	if len(candidates) > 0 {
		return candidates[0], true
	}
	return p.cheapestAvailable(req, downID)
}

// savings compares the selected cost against the cheapest default model for
// the request type. Never negative.
func (p *Policy) savings(req domain.GenerationRequest, selectedCost int) int {
	baseline, err := p.registry.Baseline(req.RequestType, req.SizeHint, req.QualityHint)
	if err != nil {
		return 0
	}
	s := baseline.Cost(req.SizeHint, req.QualityHint) - selectedCost
	if s < 0 {
		return 0
	}
	return s
}
