// Package sessions persists migration session state so long-running runs can
// be inspected and resumed after interruption.
//
// The resumability contract: every ledger append is flushed to the store
// before the tracked operation is considered complete, so a reader recovering
// from a crash always sees the last attempted operation and its outcome.
package sessions

import (
	"fmt"
	"time"

	"github.com/desertthunder/relo/internal/models"
	"github.com/desertthunder/relo/internal/shared"
)

// Store is the persistence interface for sessions. Implementations must make
// Put durable before returning; that durability is what the tracker's
// guarantees rest on.
type Store interface {
	Put(session *models.Session) error
	Get(id string) (*models.Session, error)
	List() ([]*models.Session, error)
}

// Tracker mutates one session and flushes it on every change.
type Tracker struct {
	store   Store
	session *models.Session
}

// NewTracker creates a session named name and persists its initial state.
func NewTracker(store Store, name, source, target string) (*Tracker, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: session store is required", shared.ErrMissingArgument)
	}
	if name == "" {
		return nil, fmt.Errorf("%w: session name is required", shared.ErrMissingArgument)
	}

	session := models.NewSession(name, source, target)
	session.SetID(shared.SessionID(name, session.CreatedAt()))

	if err := store.Put(session); err != nil {
		return nil, fmt.Errorf("failed to persist new session: %w", err)
	}

	return &Tracker{store: store, session: session}, nil
}

// Resume reopens an existing session by id. The session keeps whatever
// status it had; callers decide whether to continue an active session or
// audit a closed one.
func Resume(store Store, id string) (*Tracker, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: session store is required", shared.ErrMissingArgument)
	}

	session, err := store.Get(id)
	if err != nil {
		return nil, err
	}

	return &Tracker{store: store, session: session}, nil
}

// Session returns the tracked session.
func (t *Tracker) Session() *models.Session { return t.session }

// ID returns the tracked session's id.
func (t *Tracker) ID() string { return t.session.ID() }

// Record appends a ledger entry and flushes immediately. The operation is
// not considered recorded until the store write returns.
func (t *Tracker) Record(operation string, status models.StepStatus, detail string) error {
	if !status.Valid() {
		return fmt.Errorf("%w: step status %q", shared.ErrInvalidArgument, status)
	}

	t.session.AppendProgress(operation, status, detail)

	if err := t.store.Put(t.session); err != nil {
		return fmt.Errorf("failed to flush progress: %w", err)
	}
	return nil
}

// SetPhase updates the session's current phase and flushes.
func (t *Tracker) SetPhase(phase string) error {
	t.session.SetPhase(phase)
	t.session.SetUpdatedAt(time.Now())
	return t.flush()
}

// SetStatus updates the session's status and flushes.
func (t *Tracker) SetStatus(status models.SessionStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: session status %q", shared.ErrInvalidArgument, status)
	}
	t.session.SetStatus(status)
	t.session.SetUpdatedAt(time.Now())
	return t.flush()
}

// Complete marks the session completed.
func (t *Tracker) Complete() error {
	return t.SetStatus(models.SessionCompleted)
}

// Fail marks the session failed, recording the reason in the ledger first.
func (t *Tracker) Fail(reason string) error {
	t.session.AppendProgress("session", models.StepFailed, reason)
	t.session.SetStatus(models.SessionFailed)
	return t.flush()
}

// MarkEntityMigrated records entity completion in the session's bookkeeping
// lists and flushes.
func (t *Tracker) MarkEntityMigrated(name string) error {
	t.session.MarkEntityMigrated(name)
	return t.flush()
}

// MarkContainerMigrated records container completion and flushes.
func (t *Tracker) MarkContainerMigrated(name string) error {
	t.session.MarkContainerMigrated(name)
	return t.flush()
}

// SetPending seeds the pending container and entity lists and flushes.
func (t *Tracker) SetPending(containers, entities []string) error {
	t.session.SetPendingContainers(containers)
	t.session.SetPendingEntities(entities)
	return t.flush()
}

// CompletedOperations returns the set of operations whose most recent ledger
// entry is completed. Used on resume to skip work that already finished.
func (t *Tracker) CompletedOperations() map[string]bool {
	latest := map[string]models.StepStatus{}
	for _, entry := range t.session.Ledger() {
		latest[entry.Operation] = entry.Status
	}
	done := map[string]bool{}
	for op, status := range latest {
		if status == models.StepCompleted {
			done[op] = true
		}
	}
	return done
}

func (t *Tracker) flush() error {
	if err := t.store.Put(t.session); err != nil {
		return fmt.Errorf("failed to flush session: %w", err)
	}
	return nil
}
