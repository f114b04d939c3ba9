package sessions

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/desertthunder/relo/internal/models"
	"github.com/desertthunder/relo/internal/shared"
)

// memStore is an in-memory Store that counts Put calls and can fail on
// demand.
type memStore struct {
	sessions map[string]*models.Session
	puts     int
	putErr   error
}

func newMemStore() *memStore {
	return &memStore{sessions: map[string]*models.Session{}}
}

func (m *memStore) Put(session *models.Session) error {
	m.puts++
	if m.putErr != nil {
		return m.putErr
	}
	data, err := session.MarshalJSON()
	if err != nil {
		return err
	}
	copied := &models.Session{}
	if err := copied.UnmarshalJSON(data); err != nil {
		return err
	}
	m.sessions[session.ID()] = copied
	return nil
}

func (m *memStore) Get(id string) (*models.Session, error) {
	session, ok := m.sessions[id]
	if !ok {
		return nil, shared.ErrSessionNotFound
	}
	return session, nil
}

func (m *memStore) List() ([]*models.Session, error) {
	var out []*models.Session
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out, nil
}

func TestTracker(t *testing.T) {
	t.Run("NewTracker persists the initial state", func(t *testing.T) {
		store := newMemStore()

		tracker, err := NewTracker(store, "migrate-prod", "legacy", "prod")
		if err != nil {
			t.Fatalf("NewTracker failed: %v", err)
		}

		if tracker.ID() == "" {
			t.Error("expected an assigned session id")
		}
		if store.puts != 1 {
			t.Errorf("expected 1 flush, got %d", store.puts)
		}

		persisted, err := store.Get(tracker.ID())
		if err != nil {
			t.Fatalf("persisted session missing: %v", err)
		}
		if persisted.Status() != models.SessionActive {
			t.Errorf("status = %s, want active", persisted.Status())
		}
		if persisted.Source() != "legacy" || persisted.Target() != "prod" {
			t.Errorf("namespaces not persisted: %s → %s", persisted.Source(), persisted.Target())
		}
	})

	t.Run("requires a store and a name", func(t *testing.T) {
		if _, err := NewTracker(nil, "x", "a", "b"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
		if _, err := NewTracker(newMemStore(), "", "a", "b"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("Record flushes before returning", func(t *testing.T) {
		store := newMemStore()
		tracker, _ := NewTracker(store, "run", "a", "b")
		before := store.puts

		if err := tracker.Record("copy:Widget", models.StepStarted, ""); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
		if store.puts != before+1 {
			t.Error("Record must flush the session")
		}

		persisted, _ := store.Get(tracker.ID())
		ledger := persisted.Ledger()
		if len(ledger) != 1 || ledger[0].Operation != "copy:Widget" {
			t.Fatalf("ledger not persisted: %+v", ledger)
		}
	})

	t.Run("Record rejects unknown statuses", func(t *testing.T) {
		tracker, _ := NewTracker(newMemStore(), "run", "a", "b")
		if err := tracker.Record("op", models.StepStatus("bogus"), ""); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("Record surfaces store failures", func(t *testing.T) {
		store := newMemStore()
		tracker, _ := NewTracker(store, "run", "a", "b")
		store.putErr = errors.New("disk full")

		if err := tracker.Record("op", models.StepCompleted, ""); err == nil {
			t.Error("expected flush failure to propagate")
		}
	})

	t.Run("ledger is monotonic", func(t *testing.T) {
		store := newMemStore()
		tracker, _ := NewTracker(store, "run", "a", "b")

		tracker.Record("copy:A", models.StepStarted, "")
		tracker.Record("copy:A", models.StepCompleted, "copied to Invoices")
		tracker.Record("copy:B", models.StepStarted, "")
		tracker.Record("copy:B", models.StepFailed, "connection lost")

		session := tracker.Session()
		if got := len(session.Ledger()); got != 4 {
			t.Errorf("ledger length %d, want 4", got)
		}
		if session.TotalOps() != 4 {
			t.Errorf("total ops %d, want 4", session.TotalOps())
		}
		if session.CompletedOps() != 1 || session.FailedOps() != 1 {
			t.Errorf("counters = %d completed, %d failed", session.CompletedOps(), session.FailedOps())
		}
	})

	t.Run("CompletedOperations uses the latest entry per op", func(t *testing.T) {
		tracker, _ := NewTracker(newMemStore(), "run", "a", "b")

		tracker.Record("copy:A", models.StepStarted, "")
		tracker.Record("copy:A", models.StepCompleted, "")
		tracker.Record("copy:B", models.StepStarted, "")
		tracker.Record("copy:C", models.StepCompleted, "")
		tracker.Record("copy:C", models.StepFailed, "retry wiped it")

		done := tracker.CompletedOperations()
		if !done["copy:A"] {
			t.Error("copy:A should be complete")
		}
		if done["copy:B"] {
			t.Error("copy:B is only started")
		}
		if done["copy:C"] {
			t.Error("copy:C failed after completing; latest status wins")
		}
	})

	t.Run("Resume reopens persisted state", func(t *testing.T) {
		store := newMemStore()
		tracker, _ := NewTracker(store, "run", "a", "b")
		tracker.Record("copy:A", models.StepCompleted, "")
		tracker.SetPhase("phase_2")

		resumed, err := Resume(store, tracker.ID())
		if err != nil {
			t.Fatalf("Resume failed: %v", err)
		}
		if resumed.Session().Phase() != "phase_2" {
			t.Errorf("phase = %s, want phase_2", resumed.Session().Phase())
		}
		if !resumed.CompletedOperations()["copy:A"] {
			t.Error("completed op lost across resume")
		}
	})

	t.Run("Resume of unknown id fails", func(t *testing.T) {
		if _, err := Resume(newMemStore(), "missing"); !errors.Is(err, shared.ErrSessionNotFound) {
			t.Errorf("expected ErrSessionNotFound, got %v", err)
		}
	})

	t.Run("Complete and Fail close the session", func(t *testing.T) {
		store := newMemStore()
		tracker, _ := NewTracker(store, "run", "a", "b")
		tracker.Complete()
		persisted, _ := store.Get(tracker.ID())
		if persisted.Status() != models.SessionCompleted {
			t.Errorf("status = %s, want completed", persisted.Status())
		}

		tracker2, _ := NewTracker(store, "run2", "a", "b")
		tracker2.Fail("store went away")
		persisted2, _ := store.Get(tracker2.ID())
		if persisted2.Status() != models.SessionFailed {
			t.Errorf("status = %s, want failed", persisted2.Status())
		}
		ledger := persisted2.Ledger()
		if len(ledger) != 1 || ledger[0].Detail != "store went away" {
			t.Errorf("failure reason not recorded: %+v", ledger)
		}
	})

	t.Run("bookkeeping lists move pending to migrated", func(t *testing.T) {
		store := newMemStore()
		tracker, _ := NewTracker(store, "run", "a", "b")

		tracker.SetPending([]string{"Invoices"}, []string{"A", "B"})
		tracker.MarkEntityMigrated("A")

		persisted, _ := store.Get(tracker.ID())
		if got := persisted.PendingEntities(); len(got) != 1 || got[0] != "B" {
			t.Errorf("pending entities = %v, want [B]", got)
		}
		if got := persisted.MigratedEntities(); len(got) != 1 || got[0] != "A" {
			t.Errorf("migrated entities = %v, want [A]", got)
		}
	})
}

func TestFileStore(t *testing.T) {
	newSession := func(t *testing.T, name string) *models.Session {
		t.Helper()
		session := models.NewSession(name, "legacy", "prod")
		session.SetID(shared.SessionID(name, session.CreatedAt()))
		return session
	}

	t.Run("Put then Get round-trips", func(t *testing.T) {
		store, err := NewFileStore(t.TempDir())
		if err != nil {
			t.Fatalf("NewFileStore failed: %v", err)
		}

		session := newSession(t, "roundtrip")
		session.AppendProgress("plan", models.StepCompleted, "3 entities")

		if err := store.Put(session); err != nil {
			t.Fatalf("Put failed: %v", err)
		}

		loaded, err := store.Get(session.ID())
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if loaded.Name() != "roundtrip" || loaded.TotalOps() != 1 {
			t.Errorf("loaded session mismatch: %s, %d ops", loaded.Name(), loaded.TotalOps())
		}
	})

	t.Run("Put rejects invalid sessions", func(t *testing.T) {
		store, _ := NewFileStore(t.TempDir())
		session := models.NewSession("no-id", "a", "b")

		if err := store.Put(session); err == nil {
			t.Error("expected validation failure for session without id")
		}
	})

	t.Run("Get of missing id returns ErrSessionNotFound", func(t *testing.T) {
		store, _ := NewFileStore(t.TempDir())
		if _, err := store.Get("nope"); !errors.Is(err, shared.ErrSessionNotFound) {
			t.Errorf("expected ErrSessionNotFound, got %v", err)
		}
	})

	t.Run("Put replaces the previous document", func(t *testing.T) {
		store, _ := NewFileStore(t.TempDir())
		session := newSession(t, "replace")
		store.Put(session)

		session.AppendProgress("copy:A", models.StepCompleted, "")
		if err := store.Put(session); err != nil {
			t.Fatalf("second Put failed: %v", err)
		}

		loaded, _ := store.Get(session.ID())
		if loaded.TotalOps() != 1 {
			t.Errorf("ops = %d, want 1", loaded.TotalOps())
		}
	})

	t.Run("List returns newest first", func(t *testing.T) {
		store, _ := NewFileStore(t.TempDir())

		older := newSession(t, "older")
		store.Put(older)

		time.Sleep(10 * time.Millisecond)

		newer := newSession(t, "newer")
		store.Put(newer)

		listed, err := store.List()
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(listed) != 2 {
			t.Fatalf("listed %d sessions, want 2", len(listed))
		}
		if listed[0].Name() != "newer" || listed[1].Name() != "older" {
			t.Errorf("order wrong: %s, %s", listed[0].Name(), listed[1].Name())
		}
	})

	t.Run("List skips unreadable documents", func(t *testing.T) {
		dir := t.TempDir()
		store, _ := NewFileStore(dir)
		store.Put(newSession(t, "good"))

		if err := writeGarbage(dir + "/garbage.json"); err != nil {
			t.Fatalf("failed to write garbage: %v", err)
		}

		listed, err := store.List()
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(listed) != 1 {
			t.Errorf("listed %d sessions, want 1", len(listed))
		}
	})

	t.Run("empty dir is rejected", func(t *testing.T) {
		if _, err := NewFileStore(""); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})
}

func writeGarbage(path string) error {
	return os.WriteFile(path, []byte("{not json"), 0644)
}
