package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/desertthunder/relo/internal/matcher"
	"github.com/desertthunder/relo/internal/models"
	"github.com/desertthunder/relo/internal/sessions"
	"github.com/desertthunder/relo/internal/shared"
	tu "github.com/desertthunder/relo/internal/testing"
)

// memSessions is an in-memory sessions.Store that counts Put calls.
type memSessions struct {
	sessions map[string]*models.Session
	puts     int
}

func newMemSessions() *memSessions {
	return &memSessions{sessions: map[string]*models.Session{}}
}

func (m *memSessions) Put(session *models.Session) error {
	m.puts++
	data, err := session.MarshalJSON()
	if err != nil {
		return err
	}
	var copied models.Session
	if err := copied.UnmarshalJSON(data); err != nil {
		return err
	}
	m.sessions[session.ID()] = &copied
	return nil
}

func (m *memSessions) Get(id string) (*models.Session, error) {
	session, ok := m.sessions[id]
	if !ok {
		return nil, shared.ErrSessionNotFound
	}
	data, err := session.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var copied models.Session
	if err := copied.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return &copied, nil
}

func (m *memSessions) List() ([]*models.Session, error) {
	var list []*models.Session
	for _, session := range m.sessions {
		list = append(list, session)
	}
	return list, nil
}

// targetEntities seeds the target namespace with established containers so
// none of them read as orphan suspects.
func targetEntities() []models.Entity {
	var out []models.Entity
	for _, name := range []string{"Invoice A", "Invoice B", "Invoice C"} {
		out = append(out, models.Entity{Name: name, Namespace: "dst", Container: "Invoices", Custom: false})
	}
	for _, name := range []string{"Amb A", "Amb B", "Amb C"} {
		out = append(out, models.Entity{Name: name, Namespace: "dst", Container: "Amb W Tds2", Custom: false})
	}
	return out
}

func sourceEntities() []models.Entity {
	return []models.Entity{
		{Name: "Sales Invoice Ext", Namespace: "src", Container: "Invoices", Custom: true},
		{Name: "Amb Record", Namespace: "src", Container: "amb_w_tds2", Custom: true},
		{Name: "Core Patch", Namespace: "src", Container: "core", Custom: true},
		{Name: "Standard Doc", Namespace: "src", Container: "Invoices", Custom: false},
	}
}

func newTestEngine(store *tu.MockStore, sessionStore sessions.Store) *Engine {
	return New(Deps{
		Store:    store,
		Sessions: sessionStore,
		Matcher:  matcher.New(0, []string{"core"}),
	})
}

func findOutcome(t *testing.T, result *Result, entity string) Outcome {
	t.Helper()
	for _, outcome := range result.Outcomes {
		if outcome.Entity == entity {
			return outcome
		}
	}
	t.Fatalf("No outcome recorded for %s", entity)
	return Outcome{}
}

func TestRun(t *testing.T) {
	ctx := context.Background()
	opts := Options{Sources: []string{"src"}, Target: "dst"}

	t.Run("dry run decides without writing", func(t *testing.T) {
		store := tu.NewMockStore(append(sourceEntities(), targetEntities()...)...)
		sessionStore := newMemSessions()
		e := newTestEngine(store, sessionStore)

		result, err := e.Run(ctx, nil, opts)
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}

		if !result.DryRun {
			t.Error("Expected dry-run result")
		}
		if len(result.Outcomes) != 3 {
			t.Fatalf("Expected 3 outcomes (platform entity excluded), got %d", len(result.Outcomes))
		}

		direct := findOutcome(t, result, "Sales Invoice Ext")
		if direct.Action != ActionCopied || direct.ToContainer != "Invoices" {
			t.Errorf("Expected direct copy to Invoices, got %s to %s", direct.Action, direct.ToContainer)
		}

		reassigned := findOutcome(t, result, "Amb Record")
		if reassigned.Action != ActionReassigned || reassigned.ToContainer != "Amb W Tds2" {
			t.Errorf("Expected reassignment to Amb W Tds2, got %s to %s", reassigned.Action, reassigned.ToContainer)
		}
		if reassigned.Match == nil || reassigned.Match.Confidence != 0.9 {
			t.Errorf("Expected normalized match at 0.9, got %+v", reassigned.Match)
		}

		skipped := findOutcome(t, result, "Core Patch")
		if skipped.Action != ActionSkipped {
			t.Errorf("Expected reserved container skip, got %s", skipped.Action)
		}

		if store.WritesIssued != 0 {
			t.Errorf("Dry run issued %d writes", store.WritesIssued)
		}

		session, err := sessionStore.Get(result.SessionID)
		if err != nil {
			t.Fatalf("Session not persisted: %v", err)
		}
		if session.Status() != models.SessionCompleted {
			t.Errorf("Expected completed session, got %s", session.Status())
		}
	})

	t.Run("apply writes decided copies", func(t *testing.T) {
		store := tu.NewMockStore(append(sourceEntities(), targetEntities()...)...)
		e := newTestEngine(store, newMemSessions())

		applyOpts := opts
		applyOpts.Apply = true
		result, err := e.Run(ctx, nil, applyOpts)
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}

		if result.Copied != 1 || result.Reassigned != 1 || result.Skipped != 1 {
			t.Errorf("Expected 1 copied, 1 reassigned, 1 skipped; got %d/%d/%d",
				result.Copied, result.Reassigned, result.Skipped)
		}

		moved, err := store.GetEntity(ctx, "dst", "Amb Record")
		if err != nil {
			t.Fatalf("Reassigned entity not written: %v", err)
		}
		if moved.Container != "Amb W Tds2" {
			t.Errorf("Expected Amb W Tds2, got %s", moved.Container)
		}

		if _, err := store.GetEntity(ctx, "dst", "Sales Invoice Ext"); err != nil {
			t.Errorf("Copied entity not written: %v", err)
		}
		if _, err := store.GetEntity(ctx, "dst", "Core Patch"); err == nil {
			t.Error("Reserved-container entity should not have been written")
		}
	})

	t.Run("apply and dry run decide identically", func(t *testing.T) {
		dryStore := tu.NewMockStore(append(sourceEntities(), targetEntities()...)...)
		applyStore := tu.NewMockStore(append(sourceEntities(), targetEntities()...)...)

		dry, err := newTestEngine(dryStore, newMemSessions()).Run(ctx, nil, opts)
		if err != nil {
			t.Fatalf("Dry run failed: %v", err)
		}
		applyOpts := opts
		applyOpts.Apply = true
		applied, err := newTestEngine(applyStore, newMemSessions()).Run(ctx, nil, applyOpts)
		if err != nil {
			t.Fatalf("Apply run failed: %v", err)
		}

		if len(dry.Outcomes) != len(applied.Outcomes) {
			t.Fatalf("Outcome counts diverge: %d vs %d", len(dry.Outcomes), len(applied.Outcomes))
		}
		for i := range dry.Outcomes {
			d, a := dry.Outcomes[i], applied.Outcomes[i]
			if d.Entity != a.Entity || d.Action != a.Action || d.ToContainer != a.ToContainer {
				t.Errorf("Decision %d diverges: dry %+v apply %+v", i, d, a)
			}
		}
	})

	t.Run("transient write failure converges via guard retry", func(t *testing.T) {
		entities := append([]models.Entity{
			{Name: "Sales Invoice Ext", Namespace: "src", Container: "Invoices", Custom: true},
		}, targetEntities()...)
		store := tu.NewMockStore(entities...)
		store.FailWrites = 1
		e := newTestEngine(store, newMemSessions())

		result, err := e.Run(ctx, nil, Options{Sources: []string{"src"}, Target: "dst", Apply: true})
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if result.Failed != 0 || result.Copied != 1 {
			t.Fatalf("Expected retried copy to succeed, got %+v", result)
		}
		if store.Reconnected != 1 {
			t.Errorf("Expected exactly one reconnect, got %d", store.Reconnected)
		}

		listed, err := store.ListEntities(ctx, "dst", "Invoices")
		if err != nil {
			t.Fatal(err)
		}
		count := 0
		for _, entity := range listed {
			if entity.Name == "Sales Invoice Ext" {
				count++
			}
		}
		if count != 1 {
			t.Errorf("Expected exactly one copy after retry, found %d", count)
		}
	})

	t.Run("already migrated entity converges without writes", func(t *testing.T) {
		entities := append([]models.Entity{
			{Name: "Sales Invoice Ext", Namespace: "src", Container: "Invoices", Custom: true},
			{Name: "Sales Invoice Ext", Namespace: "dst", Container: "Invoices", Custom: true},
		}, targetEntities()...)
		store := tu.NewMockStore(entities...)
		e := newTestEngine(store, newMemSessions())

		result, err := e.Run(ctx, nil, Options{Sources: []string{"src"}, Target: "dst", Apply: true})
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if result.Copied != 1 {
			t.Fatalf("Expected convergent copy outcome, got %+v", result)
		}
		if store.WritesIssued != 0 {
			t.Errorf("Convergent copy should issue no writes, issued %d", store.WritesIssued)
		}
	})

	t.Run("requires sources and target", func(t *testing.T) {
		e := newTestEngine(tu.NewMockStore(), newMemSessions())

		if _, err := e.Run(ctx, nil, Options{Target: "dst"}); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("Expected ErrMissingArgument for empty sources, got %v", err)
		}
		if _, err := e.Run(ctx, nil, Options{Sources: []string{"src"}}); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("Expected ErrMissingArgument for empty target, got %v", err)
		}
		if _, err := e.Run(ctx, nil, Options{Sources: []string{"src"}, Target: "src"}); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("Expected ErrInvalidArgument for source equal to target, got %v", err)
		}
	})

	t.Run("requires both stores", func(t *testing.T) {
		noStore := New(Deps{Sessions: newMemSessions()})
		if _, err := noStore.Run(ctx, nil, opts); !errors.Is(err, shared.ErrStoreUnavailable) {
			t.Errorf("Expected ErrStoreUnavailable without record store, got %v", err)
		}

		noSessions := New(Deps{Store: tu.NewMockStore()})
		if _, err := noSessions.Run(ctx, nil, opts); !errors.Is(err, shared.ErrStoreUnavailable) {
			t.Errorf("Expected ErrStoreUnavailable without session store, got %v", err)
		}
	})

	t.Run("empty source namespace fails", func(t *testing.T) {
		e := newTestEngine(tu.NewMockStore(targetEntities()...), newMemSessions())
		if _, err := e.Run(ctx, nil, opts); !errors.Is(err, shared.ErrNamespaceUnknown) {
			t.Errorf("Expected ErrNamespaceUnknown, got %v", err)
		}
	})
}

func TestResume(t *testing.T) {
	ctx := context.Background()

	t.Run("skips operations the ledger records as completed", func(t *testing.T) {
		store := tu.NewMockStore(append(sourceEntities(), targetEntities()...)...)
		sessionStore := newMemSessions()

		tracker, err := sessions.NewTracker(sessionStore, "interrupted", "src", "dst")
		if err != nil {
			t.Fatal(err)
		}
		tracker.Record("copy:Sales Invoice Ext", models.StepStarted, "")
		tracker.Record("copy:Sales Invoice Ext", models.StepCompleted, "copied to Invoices")

		e := newTestEngine(store, sessionStore)
		result, err := e.Resume(ctx, nil, tracker.ID(), Options{Apply: true})
		if err != nil {
			t.Fatalf("Resume failed: %v", err)
		}

		if result.SessionID != tracker.ID() {
			t.Errorf("Resume opened a new session: %s", result.SessionID)
		}

		skipped := findOutcome(t, result, "Sales Invoice Ext")
		if skipped.Action != ActionSkipped || skipped.Reason != "completed in earlier run" {
			t.Errorf("Expected earlier-run skip, got %s (%s)", skipped.Action, skipped.Reason)
		}
		if _, err := store.GetEntity(ctx, "dst", "Sales Invoice Ext"); err == nil {
			t.Error("Skipped entity should not have been re-copied")
		}

		remaining := findOutcome(t, result, "Amb Record")
		if remaining.Action != ActionReassigned {
			t.Errorf("Expected remaining entity to migrate, got %s", remaining.Action)
		}
	})

	t.Run("apply after an interrupted dry run migrates everything", func(t *testing.T) {
		store := tu.NewMockStore(append(sourceEntities(), targetEntities()...)...)
		sessionStore := newMemSessions()
		e := newTestEngine(store, sessionStore)

		dry, err := e.Run(ctx, nil, Options{Sources: []string{"src"}, Target: "dst"})
		if err != nil {
			t.Fatalf("Dry run failed: %v", err)
		}

		// Reopen the session the way an interrupt leaves it.
		session, err := sessionStore.Get(dry.SessionID)
		if err != nil {
			t.Fatal(err)
		}
		session.SetStatus(models.SessionActive)
		if err := sessionStore.Put(session); err != nil {
			t.Fatal(err)
		}

		applied, err := e.Resume(ctx, nil, dry.SessionID, Options{Apply: true})
		if err != nil {
			t.Fatalf("Resume failed: %v", err)
		}

		if applied.Copied != 1 || applied.Reassigned != 1 {
			t.Fatalf("Previewed entities were not applied: %+v", applied)
		}
		for _, outcome := range applied.Outcomes {
			if outcome.Reason == "completed in earlier run" {
				t.Errorf("Dry-run decision for %s mistaken for applied work", outcome.Entity)
			}
		}
		if _, err := store.GetEntity(ctx, "dst", "Sales Invoice Ext"); err != nil {
			t.Errorf("Copy not applied on resume: %v", err)
		}
		if _, err := store.GetEntity(ctx, "dst", "Amb Record"); err != nil {
			t.Errorf("Reassignment not applied on resume: %v", err)
		}
	})

	t.Run("reuses sources and target from the session", func(t *testing.T) {
		store := tu.NewMockStore(append(sourceEntities(), targetEntities()...)...)
		sessionStore := newMemSessions()

		tracker, err := sessions.NewTracker(sessionStore, "interrupted", "src", "dst")
		if err != nil {
			t.Fatal(err)
		}

		result, err := newTestEngine(store, sessionStore).Resume(ctx, nil, tracker.ID(), Options{})
		if err != nil {
			t.Fatalf("Resume failed: %v", err)
		}
		if result.Target != "dst" || len(result.Sources) != 1 || result.Sources[0] != "src" {
			t.Errorf("Expected session scope, got %v -> %s", result.Sources, result.Target)
		}
	})

	t.Run("rejects closed sessions", func(t *testing.T) {
		sessionStore := newMemSessions()
		tracker, err := sessions.NewTracker(sessionStore, "done", "src", "dst")
		if err != nil {
			t.Fatal(err)
		}
		if err := tracker.Complete(); err != nil {
			t.Fatal(err)
		}

		e := newTestEngine(tu.NewMockStore(), sessionStore)
		if _, err := e.Resume(ctx, nil, tracker.ID(), Options{}); !errors.Is(err, shared.ErrSessionClosed) {
			t.Errorf("Expected ErrSessionClosed, got %v", err)
		}
	})

	t.Run("unknown session fails", func(t *testing.T) {
		e := newTestEngine(tu.NewMockStore(), newMemSessions())
		if _, err := e.Resume(ctx, nil, "missing", Options{}); !errors.Is(err, shared.ErrSessionNotFound) {
			t.Errorf("Expected ErrSessionNotFound, got %v", err)
		}
	})
}

func TestPlan(t *testing.T) {
	ctx := context.Background()

	t.Run("builds a plan without recording a session", func(t *testing.T) {
		store := tu.NewMockStore(append(sourceEntities(), targetEntities()...)...)
		sessionStore := newMemSessions()
		e := newTestEngine(store, sessionStore)

		plan, err := e.Plan(ctx, nil, Options{Sources: []string{"src"}, Target: "dst"})
		if err != nil {
			t.Fatalf("Plan failed: %v", err)
		}
		if plan.TotalEntities() != 3 {
			t.Errorf("Expected 3 planned entities, got %d", plan.TotalEntities())
		}
		if sessionStore.puts != 0 {
			t.Errorf("Plan persisted %d sessions", sessionStore.puts)
		}
	})

	t.Run("requires target", func(t *testing.T) {
		e := newTestEngine(tu.NewMockStore(), newMemSessions())
		if _, err := e.Plan(ctx, nil, Options{Sources: []string{"src"}}); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("Expected ErrMissingArgument, got %v", err)
		}
	})
}

func TestOrphans(t *testing.T) {
	ctx := context.Background()

	store := tu.NewMockStore(
		models.Entity{Name: "Amb Record", Namespace: "dst", Container: "amb_w_tds2", Custom: true},
		models.Entity{Name: "Vendor Doc", Namespace: "dst", Container: "Tiny", Custom: false},
		models.Entity{Name: "Core Patch", Namespace: "dst", Container: "core", Custom: true},
	)
	for _, entity := range targetEntities() {
		if err := store.CreateEntity(ctx, entity); err != nil {
			t.Fatal(err)
		}
	}
	e := newTestEngine(store, newMemSessions())

	reports, err := e.Orphans(ctx, nil, "dst")
	if err != nil {
		t.Fatalf("Orphans failed: %v", err)
	}
	if len(reports) != 2 {
		t.Fatalf("Expected 2 suspect containers (reserved excluded), got %d", len(reports))
	}

	t.Run("platform-owned entities get a reason, not a proposal", func(t *testing.T) {
		tiny := reports[0]
		if tiny.Container != "Tiny" || len(tiny.Entities) != 1 {
			t.Fatalf("Unexpected report %+v", tiny)
		}
		if tiny.Entities[0].Proposal != nil || tiny.Entities[0].Reason == "" {
			t.Errorf("Expected reason for platform-owned entity, got %+v", tiny.Entities[0])
		}
	})

	t.Run("custom entities get the best container proposal", func(t *testing.T) {
		suspect := reports[1]
		if suspect.Container != "amb_w_tds2" || len(suspect.Entities) != 1 {
			t.Fatalf("Unexpected report %+v", suspect)
		}
		proposal := suspect.Entities[0].Proposal
		if proposal == nil {
			t.Fatalf("Expected proposal, got reason %q", suspect.Entities[0].Reason)
		}
		if proposal.Container != "Amb W Tds2" || proposal.Confidence != 0.9 {
			t.Errorf("Expected Amb W Tds2 at 0.9, got %+v", proposal)
		}
	})
}

func TestDuplicates(t *testing.T) {
	ctx := context.Background()

	seed := func() *tu.MockStore {
		return tu.NewMockStore(
			models.Entity{Name: "Sales Invoice", Namespace: "dst", Container: "Invoices", Custom: false},
			models.Entity{Name: "sales invoice", Namespace: "dst", Container: "Invoices", Custom: true},
			models.Entity{Name: "Payment Entry", Namespace: "dst", Container: "Invoices", Custom: true},
		)
	}

	t.Run("preview reports without deleting", func(t *testing.T) {
		store := seed()
		e := newTestEngine(store, newMemSessions())

		reports, err := e.Duplicates(ctx, nil, "dst", "Invoices", false)
		if err != nil {
			t.Fatalf("Duplicates failed: %v", err)
		}
		if len(reports) != 1 {
			t.Fatalf("Expected 1 duplicate, got %d", len(reports))
		}
		report := reports[0]
		if report.Entity != "sales invoice" || report.Twin != "Sales Invoice" || report.Removed {
			t.Errorf("Unexpected report %+v", report)
		}
		if _, err := store.GetEntity(ctx, "dst", "sales invoice"); err != nil {
			t.Errorf("Preview deleted the entity: %v", err)
		}
	})

	t.Run("apply removes the shadowed entity", func(t *testing.T) {
		store := seed()
		e := newTestEngine(store, newMemSessions())

		reports, err := e.Duplicates(ctx, nil, "dst", "Invoices", true)
		if err != nil {
			t.Fatalf("Duplicates failed: %v", err)
		}
		if len(reports) != 1 || !reports[0].Removed {
			t.Fatalf("Expected removal, got %+v", reports)
		}
		if _, err := store.GetEntity(ctx, "dst", "sales invoice"); !errors.Is(err, shared.ErrEntityNotFound) {
			t.Errorf("Shadowed entity still present: %v", err)
		}
		if _, err := store.GetEntity(ctx, "dst", "Sales Invoice"); err != nil {
			t.Errorf("Platform twin should survive: %v", err)
		}
	})

	t.Run("requires a container", func(t *testing.T) {
		e := newTestEngine(seed(), newMemSessions())
		if _, err := e.Duplicates(ctx, nil, "dst", "", false); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("Expected ErrMissingArgument, got %v", err)
		}
	})
}
