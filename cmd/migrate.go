package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/relo/internal/engine"
	"github.com/desertthunder/relo/internal/formatter"
	"github.com/desertthunder/relo/internal/models"
	"github.com/desertthunder/relo/internal/services"
	"github.com/desertthunder/relo/internal/shared"
	"github.com/urfave/cli/v3"
)

// MigrateRun plans and executes a migration run.
func (r *Runner) MigrateRun(ctx context.Context, cmd *cli.Command) error {
	opts := engine.Options{
		Sources:     cmd.StringSlice("source"),
		Target:      cmd.String("target"),
		Containers:  cmd.StringSlice("container"),
		Apply:       cmd.Bool("apply"),
		SessionName: cmd.String("name"),
	}

	manifest, err := r.loadManifest(cmd.String("manifest"))
	if err != nil {
		return err
	}
	opts.Manifest = manifest

	mode := "dry-run"
	if opts.Apply {
		mode = "apply"
	}
	r.logger.Info("starting migration", "sources", opts.Sources, "target", opts.Target, "mode", mode)
	r.writePlain("Starting migration (%s)...\n", mode)
	r.writePlain("Target: %s\n\n", opts.Target)

	progressCh := make(chan engine.ProgressUpdate, 50)
	printerDone := make(chan struct{})
	go func() {
		r.printProgress(progressCh)
		close(printerDone)
	}()

	result, err := r.engine.Run(ctx, progressCh, opts)
	close(progressCh)
	<-printerDone

	if err != nil {
		return err
	}

	r.printResult(result)
	return r.writeReport(cmd, result)
}

// MigrateResume continues an interrupted migration session, skipping
// operations its ledger already records as completed.
func (r *Runner) MigrateResume(ctx context.Context, cmd *cli.Command) error {
	sessionID := cmd.StringArg("session")
	if sessionID == "" {
		return fmt.Errorf("%w: session id", shared.ErrMissingArgument)
	}

	opts := engine.Options{
		Apply: cmd.Bool("apply"),
	}

	manifest, err := r.loadManifest(cmd.String("manifest"))
	if err != nil {
		return err
	}
	opts.Manifest = manifest

	r.logger.Info("resuming migration", "session", sessionID)
	r.writePlain("Resuming session %s...\n\n", sessionID)

	progressCh := make(chan engine.ProgressUpdate, 50)
	printerDone := make(chan struct{})
	go func() {
		r.printProgress(progressCh)
		close(printerDone)
	}()

	result, err := r.engine.Resume(ctx, progressCh, sessionID, opts)
	close(progressCh)
	<-printerDone

	if err != nil {
		return err
	}

	r.printResult(result)
	return nil
}

func (r *Runner) loadManifest(path string) (*models.Namespace, error) {
	if path == "" {
		return nil, nil
	}
	manifest, err := services.LoadManifest(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load manifest: %w", err)
	}
	r.logger.Info("manifest loaded", "namespace", manifest.Name, "containers", len(manifest.Containers))
	return manifest, nil
}

func (r *Runner) printProgress(progressCh <-chan engine.ProgressUpdate) {
	for update := range progressCh {
		switch update.Stage {
		case engine.CollectEntities:
			r.writePlain("📥 %s\n", update.Message)
		case engine.BuildPlan:
			r.writePlain("🗺  %s\n", update.Message)
		case engine.ExecutePhase:
			r.writePlain("\n▶ %s\n", update.Message)
		case engine.MatchContainer:
			r.writePlain("   🔍 %s\n", update.Message)
		case engine.CopyEntity:
			r.writePlain("   %s\n", update.Message)
		case engine.Finalize:
			r.writePlain("\n%s\n", update.Message)
		}
	}
}

func (r *Runner) printResult(result *engine.Result) {
	title := "Migration Complete!"
	if result.DryRun {
		title = "Dry Run Complete!"
	}

	r.writePlain("\n")
	r.writePlainHeader(title)
	r.writePlain("Session: %s\n", result.SessionID)
	r.writePlain("Copied: %d  Reassigned: %d  Skipped: %d  Failed: %d\n", result.Copied, result.Reassigned, result.Skipped, result.Failed)

	for _, phase := range result.PerPhase {
		r.writePlain("Phase %d: %d copied, %d reassigned, %d skipped, %d failed\n",
			phase.Phase, phase.Copied, phase.Reassigned, phase.Skipped, phase.Failed)
	}

	if result.Failed > 0 {
		r.writePlain("\nFailed entities:\n")
		for _, outcome := range result.Outcomes {
			if outcome.Action == engine.ActionFailed {
				r.writePlain("  - %s: %s\n", outcome.Entity, outcome.Reason)
			}
		}
	}
}

func (r *Runner) writeReport(cmd *cli.Command, result *engine.Result) error {
	report := cmd.String("report")
	if report == "" {
		return nil
	}

	output := cmd.String("output")

	switch report {
	case "csv":
		files, err := formatter.WriteCSVExport(result, output)
		if err != nil {
			return err
		}
		r.writePlain("\nReport written: %s, %s\n", files.OutcomesFile, files.SummaryFile)
	case "markdown", "md":
		file, err := formatter.WriteMarkdownExport(result, output)
		if err != nil {
			return err
		}
		r.writePlain("\nReport written: %s\n", file)
	case "text", "txt":
		file, err := formatter.WriteTextExport(result, output)
		if err != nil {
			return err
		}
		r.writePlain("\nReport written: %s\n", file)
	default:
		return fmt.Errorf("%w: report format '%s' (must be csv, markdown, or text)", shared.ErrInvalidFlag, report)
	}

	return nil
}
