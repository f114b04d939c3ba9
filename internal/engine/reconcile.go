package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/desertthunder/relo/internal/matcher"
	"github.com/desertthunder/relo/internal/models"
	"github.com/desertthunder/relo/internal/shared"
)

// OrphanEntity is the matcher's verdict for one entity in an orphan-suspect
// container.
type OrphanEntity struct {
	Entity   string              `json:"entity"`
	Proposal *models.MatchResult `json:"proposal,omitempty"`
	Reason   string              `json:"reason,omitempty"` // set when no proposal
}

// OrphanReport covers one orphan-suspect container.
type OrphanReport struct {
	Container   string         `json:"container"`
	EntityCount int            `json:"entity_count"`
	Entities    []OrphanEntity `json:"entities"`
}

// Orphans audits a namespace for orphan-suspect containers and reports the
// matcher's best proposal for every entity in them. Pure analysis; applying
// a proposal goes through a migration run.
func (e *Engine) Orphans(ctx context.Context, progress chan<- ProgressUpdate, namespace string) ([]OrphanReport, error) {
	if e.store == nil {
		return nil, fmt.Errorf("%w: record store not initialized", shared.ErrStoreUnavailable)
	}

	stats, err := e.store.ContainerStats(ctx, namespace)
	if err != nil {
		return nil, err
	}

	var reports []OrphanReport
	for _, stat := range stats {
		if !stat.OrphanSuspect() || stat.EntityCount == 0 {
			continue
		}
		if e.matcher.Reserved(stat.Name) {
			continue
		}

		e.sendProgress(progress, ProgressUpdate{
			Stage:   AuditOrphans,
			Step:    1,
			Total:   1,
			Message: fmt.Sprintf("Auditing orphan-suspect container %q (%d entities)", stat.Name, stat.EntityCount),
		})

		entities, err := e.store.ListEntities(ctx, namespace, stat.Name)
		if err != nil {
			return nil, err
		}

		report := OrphanReport{Container: stat.Name, EntityCount: stat.EntityCount}
		var siblings []string
		for _, entity := range entities {
			siblings = append(siblings, entity.Name)
		}

		for _, entity := range entities {
			var others []string
			for _, s := range siblings {
				if s != entity.Name {
					others = append(others, s)
				}
			}

			match, err := e.matcher.Match(entity, stats, others)
			oe := OrphanEntity{Entity: entity.Name}
			switch {
			case err == nil:
				oe.Proposal = match
			case errors.Is(err, shared.ErrAmbiguousMatch), errors.Is(err, shared.ErrPlatformOwned):
				oe.Reason = err.Error()
			default:
				return nil, err
			}
			report.Entities = append(report.Entities, oe)
		}

		reports = append(reports, report)
	}

	return reports, nil
}

// DuplicateReport records one custom entity shadowed by a platform-owned
// twin with the same normalized name in the same container.
type DuplicateReport struct {
	Entity    string `json:"entity"`
	Twin      string `json:"twin"`
	Container string `json:"container"`
	Removed   bool   `json:"removed"`
}

// Duplicates applies the duplicate-resolution policy to a container: a
// custom=true entity is removed only when a custom=false twin with the same
// normalized name exists in the same container. With apply false the report
// lists what would be removed.
func (e *Engine) Duplicates(ctx context.Context, progress chan<- ProgressUpdate, namespace, container string, apply bool) ([]DuplicateReport, error) {
	if e.store == nil {
		return nil, fmt.Errorf("%w: record store not initialized", shared.ErrStoreUnavailable)
	}
	if container == "" {
		return nil, fmt.Errorf("%w: container", shared.ErrMissingArgument)
	}

	entities, err := e.store.ListEntities(ctx, namespace, container)
	if err != nil {
		return nil, err
	}

	var reports []DuplicateReport
	for _, entity := range entities {
		twin := matcher.DuplicateTwin(entity, entities)
		if twin == nil {
			continue
		}

		report := DuplicateReport{
			Entity:    entity.Name,
			Twin:      twin.Name,
			Container: container,
		}

		e.sendProgress(progress, ProgressUpdate{
			Stage:   ResolveDuplicates,
			Step:    1,
			Total:   1,
			Message: fmt.Sprintf("Duplicate: %s shadows %s in %s", entity.Name, twin.Name, container),
		})

		if apply {
			name := entity.Name
			err := e.guard.Run(ctx, func(ctx context.Context) error {
				err := e.store.DeleteEntity(ctx, namespace, name)
				if errors.Is(err, shared.ErrEntityNotFound) {
					// Retry after a half-applied delete converges.
					return nil
				}
				return err
			})
			if err != nil {
				return reports, err
			}
			report.Removed = true
		}

		reports = append(reports, report)
	}

	return reports, nil
}
