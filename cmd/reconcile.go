package main

import (
	"context"

	"github.com/urfave/cli/v3"
)

// ReconcileOrphans audits orphan-suspect containers in a namespace and
// prints the matcher's rehoming proposals.
func (r *Runner) ReconcileOrphans(ctx context.Context, cmd *cli.Command) error {
	namespace := cmd.String("namespace")

	r.logger.Info("auditing orphan-suspect containers", "namespace", namespace)

	reports, err := r.engine.Orphans(ctx, nil, namespace)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(reports, true)
	}

	if len(reports) == 0 {
		r.writePlain("No orphan-suspect containers in %s.\n", namespace)
		return nil
	}

	r.writePlainHeader("Orphan Audit")
	for _, report := range reports {
		r.writePlain("Container %s (%d entities):\n", report.Container, report.EntityCount)
		for _, entity := range report.Entities {
			if entity.Proposal != nil {
				r.writePlain("  %s → %s (%.2f, %s)\n",
					entity.Entity, entity.Proposal.Container, entity.Proposal.Confidence, entity.Proposal.Rule)
			} else {
				r.writePlain("  %s: no proposal (%s)\n", entity.Entity, entity.Reason)
			}
		}
	}

	return nil
}

// ReconcileDuplicates removes custom entities shadowed by a platform-owned
// twin with the same normalized name.
func (r *Runner) ReconcileDuplicates(ctx context.Context, cmd *cli.Command) error {
	namespace := cmd.String("namespace")
	container := cmd.String("container")
	apply := cmd.Bool("apply")

	r.logger.Info("resolving duplicates", "namespace", namespace, "container", container, "apply", apply)

	reports, err := r.engine.Duplicates(ctx, nil, namespace, container, apply)
	if err != nil {
		return err
	}

	if len(reports) == 0 {
		r.writePlain("No shadowed duplicates in %s/%s.\n", namespace, container)
		return nil
	}

	r.writePlainHeader("Duplicate Resolution")
	for _, report := range reports {
		verb := "would remove"
		if report.Removed {
			verb = "removed"
		}
		r.writePlain("%s %s (shadowed by %s in %s)\n", verb, report.Entity, report.Twin, report.Container)
	}

	if !apply {
		r.writePlain("\nRun with --apply to delete the shadowed entities.\n")
	}

	return nil
}
