package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/relo/internal/shared"
	"github.com/urfave/cli/v3"
)

// SessionsList lists recorded migration sessions, newest first.
func (r *Runner) SessionsList(ctx context.Context, cmd *cli.Command) error {
	if r.sessionStore == nil {
		return fmt.Errorf("%w: session store not initialized", shared.ErrStoreUnavailable)
	}

	sessions, err := r.sessionStore.List()
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(sessions, cmd.Bool("pretty"))
	}

	if len(sessions) == 0 {
		r.writePlain("No sessions recorded.\n")
		return nil
	}

	r.writePlainHeader("Migration Sessions")
	for _, session := range sessions {
		r.writePlain("%s  %-10s  %s → %s  (%d ops, %d failed)\n",
			session.ID(), session.Status(), session.Source(), session.Target(),
			session.TotalOps(), session.FailedOps())
	}

	return nil
}

// SessionsShow prints one session's state and full ledger.
func (r *Runner) SessionsShow(ctx context.Context, cmd *cli.Command) error {
	if r.sessionStore == nil {
		return fmt.Errorf("%w: session store not initialized", shared.ErrStoreUnavailable)
	}

	sessionID := cmd.StringArg("session")
	if sessionID == "" {
		return fmt.Errorf("%w: session id", shared.ErrMissingArgument)
	}

	session, err := r.sessionStore.Get(sessionID)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(session, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("Session %s", session.ID()))
	r.writePlain("Name: %s\n", session.Name())
	r.writePlain("Status: %s\n", session.Status())
	r.writePlain("Phase: %s\n", session.Phase())
	r.writePlain("Source: %s\n", session.Source())
	r.writePlain("Target: %s\n", session.Target())
	r.writePlain("Operations: %d total, %d completed, %d failed\n",
		session.TotalOps(), session.CompletedOps(), session.FailedOps())

	if pending := session.PendingEntities(); len(pending) > 0 {
		r.writePlain("Pending entities: %d\n", len(pending))
	}
	if migrated := session.MigratedEntities(); len(migrated) > 0 {
		r.writePlain("Migrated entities: %d\n", len(migrated))
	}

	r.writePlainln("Ledger:")
	for _, entry := range session.Ledger() {
		line := fmt.Sprintf("  %s  %-9s  %s", entry.Timestamp.Format("15:04:05"), entry.Status, entry.Operation)
		if entry.Detail != "" {
			line += fmt.Sprintf("  (%s)", entry.Detail)
		}
		r.writePlain("%s\n", line)
	}

	return nil
}
