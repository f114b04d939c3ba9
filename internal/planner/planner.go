// Package planner buckets a selected set of entities into ordered migration
// phases based on the reference fields that point inside the set.
//
// The planner is deliberately a three-bucket heuristic rather than a full
// topological sort: entities whose dependencies reach beyond phase 1 all land
// in the terminal phase together. Cycles are detected and reported as
// warnings but do not change bucket assignment.
package planner

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/desertthunder/relo/internal/models"
	"github.com/desertthunder/relo/internal/shared"
)

// RefResolver reads reference-field metadata for an entity. The sqlite store
// implements it; tests substitute fakes.
type RefResolver interface {
	Refs(ctx context.Context, namespace, entity string) ([]models.RefField, error)
}

// Phase is one ordered batch of entities safe to migrate together.
type Phase struct {
	Number   int      `json:"number"`
	Entities []string `json:"entities"`
}

// Estimate is a coarse duration guess derived from entity count, not a
// measured cost model.
type Estimate struct {
	Bucket   string        `json:"bucket"` // small, medium, large
	Duration time.Duration `json:"duration"`
}

// Plan is an ordered list of phases plus planning diagnostics.
type Plan struct {
	Target   string   `json:"target_namespace"`
	Phases   []Phase  `json:"phases"`
	Warnings []string `json:"warnings,omitempty"`
	Estimate Estimate `json:"estimate"`
}

// TotalEntities returns the number of entities across all phases.
func (p *Plan) TotalEntities() int {
	n := 0
	for _, ph := range p.Phases {
		n += len(ph.Entities)
	}
	return n
}

// PhaseOf returns the phase number an entity was assigned to, or 0 if the
// entity is not in the plan.
func (p *Plan) PhaseOf(entity string) int {
	for _, ph := range p.Phases {
		for _, e := range ph.Entities {
			if e == entity {
				return ph.Number
			}
		}
	}
	return 0
}

// Entity count thresholds for the duration estimate.
const (
	smallMax  = 20
	mediumMax = 100
)

// Build produces a migration plan for the selected entities targeting the
// named namespace.
//
// Internal dependencies are reference-field targets that are themselves in
// the selected set. Phase 1 holds entities with no internal dependencies and
// all child records; phase 2 holds entities whose dependencies are a subset
// of phase 1; phase 3 holds everything else. An entity lands in exactly one
// phase, the earliest it qualifies for. When reference metadata for an
// entity cannot be read its dependency list is treated as empty and a
// warning is attached instead of failing the plan.
func Build(ctx context.Context, entities []models.Entity, target string, resolver RefResolver) (*Plan, error) {
	if target == "" {
		return nil, fmt.Errorf("%w: target namespace is required", shared.ErrMissingArgument)
	}
	if resolver == nil {
		return nil, fmt.Errorf("%w: reference resolver is required", shared.ErrMissingArgument)
	}

	plan := &Plan{Target: target}

	selected := make(map[string]models.Entity, len(entities))
	for _, e := range entities {
		selected[e.Name] = e
	}

	// Internal dependency map: entity -> set of selected targets.
	deps := make(map[string]map[string]bool, len(entities))
	for _, e := range entities {
		refs, err := resolver.Refs(ctx, e.Namespace, e.Name)
		if err != nil {
			// Degrade toward phase 1 rather than failing the plan.
			plan.Warnings = append(plan.Warnings,
				fmt.Sprintf("%s: %v, treating dependencies as empty", e.Name, shared.ErrPlanningDegraded))
			deps[e.Name] = map[string]bool{}
			continue
		}

		internal := map[string]bool{}
		for _, ref := range refs {
			if ref.Target == e.Name {
				continue
			}
			if _, ok := selected[ref.Target]; ok {
				internal[ref.Target] = true
			}
		}
		deps[e.Name] = internal
	}

	phase1 := map[string]bool{}
	var first, second, third []string

	for _, e := range entities {
		if e.Child || len(deps[e.Name]) == 0 {
			phase1[e.Name] = true
			first = append(first, e.Name)
		}
	}

	for _, e := range entities {
		if phase1[e.Name] {
			continue
		}
		if subset(deps[e.Name], phase1) {
			second = append(second, e.Name)
		} else {
			third = append(third, e.Name)
		}
	}

	sort.Strings(first)
	sort.Strings(second)
	sort.Strings(third)

	// Bucket numbers are stable: 3 is always the terminal "complex" phase
	// even when phase 2 is empty.
	for i, members := range [][]string{first, second, third} {
		if len(members) == 0 {
			continue
		}
		plan.Phases = append(plan.Phases, Phase{Number: i + 1, Entities: members})
	}

	for _, cycle := range findCycles(third, deps) {
		plan.Warnings = append(plan.Warnings, fmt.Sprintf("dependency cycle: %s", cycle))
	}

	plan.Estimate = estimate(len(entities))

	return plan, nil
}

// subset reports whether every member of set appears in within.
func subset(set map[string]bool, within map[string]bool) bool {
	for k := range set {
		if !within[k] {
			return false
		}
	}
	return true
}

// findCycles walks the internal dependency edges among terminal-phase
// entities and reports each cycle once, anchored at its smallest member.
func findCycles(members []string, deps map[string]map[string]bool) []string {
	inSet := make(map[string]bool, len(members))
	for _, m := range members {
		inSet[m] = true
	}

	var cycles []string
	seen := map[string]bool{}

	for _, start := range members {
		if seen[start] {
			continue
		}

		// Iterative DFS tracking the current path.
		path := []string{start}
		onPath := map[string]int{start: 0}

		var walk func(node string)
		walk = func(node string) {
			seen[node] = true
			for next := range deps[node] {
				if !inSet[next] {
					continue
				}
				if idx, ok := onPath[next]; ok {
					// Record the cycle and keep walking so sibling
					// edges still surface their own cycles.
					cycle := append([]string{}, path[idx:]...)
					sort.Strings(cycle)
					cycles = append(cycles, fmt.Sprintf("%v", cycle))
					continue
				}
				if seen[next] {
					continue
				}
				onPath[next] = len(path)
				path = append(path, next)
				walk(next)
				path = path[:len(path)-1]
				delete(onPath, next)
			}
		}
		walk(start)
	}

	sort.Strings(cycles)
	return dedupe(cycles)
}

func dedupe(list []string) []string {
	var out []string
	for i, v := range list {
		if i == 0 || v != list[i-1] {
			out = append(out, v)
		}
	}
	return out
}

// estimate buckets total entity count into a coarse duration guess.
func estimate(total int) Estimate {
	switch {
	case total <= smallMax:
		return Estimate{Bucket: "small", Duration: 15 * time.Minute}
	case total <= mediumMax:
		return Estimate{Bucket: "medium", Duration: time.Hour}
	default:
		return Estimate{Bucket: "large", Duration: 4 * time.Hour}
	}
}
