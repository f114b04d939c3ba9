package main

import (
	"context"

	"github.com/desertthunder/relo/internal/engine"
	"github.com/urfave/cli/v3"
)

// PlanBuild builds and prints the phase plan for a migration without
// recording a session or writing to the store.
func (r *Runner) PlanBuild(ctx context.Context, cmd *cli.Command) error {
	opts := engine.Options{
		Sources:    cmd.StringSlice("source"),
		Target:     cmd.String("target"),
		Containers: cmd.StringSlice("container"),
	}

	r.logger.Info("building plan", "sources", opts.Sources, "target", opts.Target)

	plan, err := r.engine.Plan(ctx, nil, opts)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(plan, cmd.Bool("pretty"))
	}

	r.writePlainHeader("Migration Plan")
	r.writePlain("Target: %s\n", plan.Target)
	r.writePlain("Entities: %d\n", plan.TotalEntities())
	r.writePlain("Estimate: %s (%s)\n", plan.Estimate.Bucket, plan.Estimate.Duration)

	for _, phase := range plan.Phases {
		r.writePlainln("Phase %d (%d entities):", phase.Number, len(phase.Entities))
		for _, entity := range phase.Entities {
			r.writePlain("  - %s\n", entity)
		}
	}

	if len(plan.Warnings) > 0 {
		r.writePlainln("Warnings:")
		for _, warning := range plan.Warnings {
			r.writePlain("  ! %s\n", warning)
		}
	}

	return nil
}
