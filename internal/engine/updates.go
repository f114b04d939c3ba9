package engine

import (
	"fmt"

	"github.com/desertthunder/relo/internal/planner"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Stage   Stage  // Operation stage
	Step    int    // Current step number within stage
	Total   int    // Total steps in this stage
	Message string // Human-readable message for display
	Data    any    // Optional stage-specific data for advanced UIs
}

// Stage enumerates the orchestrator's operation stages.
type Stage int

const (
	CollectEntities Stage = iota
	BuildPlan
	ExecutePhase
	MatchContainer
	CopyEntity
	ResolveDuplicates
	AuditOrphans
	Finalize
)

func (s Stage) String() string {
	switch s {
	case CollectEntities:
		return "collect_entities"
	case BuildPlan:
		return "build_plan"
	case ExecutePhase:
		return "execute_phase"
	case MatchContainer:
		return "match_container"
	case CopyEntity:
		return "copy_entity"
	case ResolveDuplicates:
		return "resolve_duplicates"
	case AuditOrphans:
		return "audit_orphans"
	case Finalize:
		return "finalize"
	default:
		return ""
	}
}

func collectingUpdate(namespace string) ProgressUpdate {
	return ProgressUpdate{
		Stage:   CollectEntities,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Collecting entities from %s...", namespace),
	}
}

func planBuiltUpdate(plan *planner.Plan) ProgressUpdate {
	return ProgressUpdate{
		Stage:   BuildPlan,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Plan ready: %d entities in %d phases (%s)", plan.TotalEntities(), len(plan.Phases), plan.Estimate.Bucket),
		Data:    plan,
	}
}

func phaseUpdate(number, total int) ProgressUpdate {
	return ProgressUpdate{
		Stage:   ExecutePhase,
		Step:    number,
		Total:   total,
		Message: fmt.Sprintf("Executing phase %d of %d...", number, total),
	}
}

func copyUpdate(step, total int, entity, container string) ProgressUpdate {
	return ProgressUpdate{
		Stage:   CopyEntity,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s → %s", step, total, entity, container),
	}
}

func matchUpdate(entity, from, to string, confidence float64) ProgressUpdate {
	return ProgressUpdate{
		Stage:   MatchContainer,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Matched %s: %q → %q (%.2f)", entity, from, to, confidence),
	}
}

func finalizeUpdate(result *Result) ProgressUpdate {
	return ProgressUpdate{
		Stage:   Finalize,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Done: %d copied, %d reassigned, %d skipped, %d failed", result.Copied, result.Reassigned, result.Skipped, result.Failed),
		Data:    result,
	}
}
