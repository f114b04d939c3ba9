// Package matcher finds the best replacement container for entities whose
// assigned container is missing, near-empty, or otherwise suspect.
//
// The matcher is pure analysis: it proposes, the orchestrator applies.
package matcher

import (
	"fmt"
	"sort"

	"github.com/desertthunder/relo/internal/models"
	"github.com/desertthunder/relo/internal/naming"
	"github.com/desertthunder/relo/internal/shared"
)

// DefaultThreshold is the minimum confidence score before a candidate is
// proposed.
const DefaultThreshold = 0.6

// Matcher scores candidate containers for entities with naming drift.
type Matcher struct {
	threshold float64
	reserved  map[string]bool
}

// New creates a Matcher with the given confidence threshold. A non-positive
// threshold falls back to DefaultThreshold. Reserved containers are excluded
// from candidacy entirely.
func New(threshold float64, reserved []string) *Matcher {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	m := &Matcher{threshold: threshold, reserved: map[string]bool{}}
	for _, name := range reserved {
		m.reserved[name] = true
	}
	return m
}

// Threshold returns the configured confidence threshold.
func (m *Matcher) Threshold() float64 { return m.threshold }

// Reserved reports whether the container name is platform-reserved.
func (m *Matcher) Reserved(container string) bool {
	return m.reserved[container]
}

// Match searches stats for the best replacement container for the entity.
//
// The entity's current container, orphan-suspect containers (to avoid
// chaining a bad match to another bad container), and reserved containers
// are excluded from candidacy. siblings are the names of entities sharing
// the entity's current container; their names are scanned for systemic
// naming issues which are attached to the result.
//
// Returns ErrPlatformOwned for custom=false entities, which are never
// candidates for change, and ErrAmbiguousMatch when no candidate clears the
// threshold. Candidates are scored in the stable order given; on ties the
// first highest wins.
func (m *Matcher) Match(entity models.Entity, stats []models.ContainerStat, siblings []string) (*models.MatchResult, error) {
	if !entity.Custom {
		return nil, fmt.Errorf("%w: %s", shared.ErrPlatformOwned, entity.Name)
	}

	issues := m.scanIssues(entity.Name, siblings)

	best := models.MatchResult{Entity: entity.Name, Rule: string(naming.RuleNone)}
	for _, stat := range stats {
		if stat.Name == entity.Container {
			continue
		}
		if stat.OrphanSuspect() {
			continue
		}
		if m.reserved[stat.Name] {
			continue
		}

		score, rule := naming.Similarity(entity.Container, stat.Name)
		if score > best.Confidence {
			best.Container = stat.Name
			best.Confidence = score
			best.Rule = string(rule)
		}
	}

	best.Issues = issues

	if best.Container == "" || best.Confidence < m.threshold {
		return nil, fmt.Errorf("%w: %s (best %.2f)", shared.ErrAmbiguousMatch, entity.Name, best.Confidence)
	}

	return &best, nil
}

// scanIssues classifies the entity name and every sibling name, collecting
// distinct issues. Issues appearing across several siblings point at
// systemic drift (double-spaced titles, case churn) rather than a one-off
// typo.
func (m *Matcher) scanIssues(name string, siblings []string) []string {
	found := map[string]bool{}
	for _, n := range append([]string{name}, siblings...) {
		for _, issue := range naming.Classify(n).Issues {
			found[issue] = true
		}
	}
	if len(found) == 0 {
		return nil
	}
	issues := make([]string, 0, len(found))
	for issue := range found {
		issues = append(issues, issue)
	}
	sort.Strings(issues)
	return issues
}

// DuplicateTwin implements the duplicate-resolution policy: a custom entity
// may be removed only when a platform-owned (custom=false) entity with the
// same normalized name exists in the same container. Returns the twin, or
// nil when the policy does not apply.
func DuplicateTwin(entity models.Entity, others []models.Entity) *models.Entity {
	if !entity.Custom {
		return nil
	}
	key := naming.Normalize(entity.Name)
	for i := range others {
		o := others[i]
		if o.Custom || o.Name == entity.Name {
			continue
		}
		if o.Container != entity.Container {
			continue
		}
		if naming.Normalize(o.Name) == key {
			return &o
		}
	}
	return nil
}
