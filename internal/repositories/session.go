package repositories

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/desertthunder/relo/internal/models"
	"github.com/desertthunder/relo/internal/sessions"
	"github.com/desertthunder/relo/internal/shared"
)

// SessionRepository implements models.Repository[*models.Session] on sqlite.
// The progress ledger and bookkeeping lists are stored as JSON columns; the
// session row is replaced wholesale on every update, which satisfies the
// flush-on-every-update contract because sqlite commits before Exec returns.
type SessionRepository struct {
	db *sql.DB
}

var _ models.Repository[*models.Session] = (*SessionRepository)(nil)

// NewSessionRepository creates a new SessionRepository with the given database connection
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Store adapts the repository to the sessions.Store interface.
func (r *SessionRepository) Store() sessions.Store {
	return &repositoryStore{repo: r}
}

// Create inserts a new session with a generated sequence number.
func (r *SessionRepository) Create(session *models.Session) error {
	sequence, err := NextSequence(r.db, "sessions")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}
	session.SetSequence(sequence)

	if err := session.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	cols, err := encodeColumns(session)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO sessions (
			id, sequence, name, status, phase, source_namespace,
			target_namespace, ledger, total_ops, completed_ops, failed_ops,
			migrated_containers, pending_containers, migrated_entities,
			pending_entities, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		session.ID(),
		session.Sequence(),
		session.Name(),
		string(session.Status()),
		session.Phase(),
		session.Source(),
		session.Target(),
		cols.ledger,
		session.TotalOps(),
		session.CompletedOps(),
		session.FailedOps(),
		cols.migratedContainers,
		cols.pendingContainers,
		cols.migratedEntities,
		cols.pendingEntities,
		session.CreatedAt(),
		session.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}

	return nil
}

// Get retrieves a session by ID.
func (r *SessionRepository) Get(id string) (*models.Session, error) {
	query := `
		SELECT
			id, sequence, name, status, phase, source_namespace,
			target_namespace, ledger, total_ops, completed_ops, failed_ops,
			migrated_containers, pending_containers, migrated_entities,
			pending_entities, created_at, updated_at
		FROM sessions
		WHERE id = ?
	`

	session, err := scanSession(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", shared.ErrSessionNotFound, id)
	}
	return session, err
}

// Update replaces an existing session row.
func (r *SessionRepository) Update(session *models.Session) error {
	if err := session.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	cols, err := encodeColumns(session)
	if err != nil {
		return err
	}

	query := `
		UPDATE sessions
		SET status = ?, phase = ?, source_namespace = ?, target_namespace = ?,
			ledger = ?, total_ops = ?, completed_ops = ?, failed_ops = ?,
			migrated_containers = ?, pending_containers = ?,
			migrated_entities = ?, pending_entities = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.Exec(query,
		string(session.Status()),
		session.Phase(),
		session.Source(),
		session.Target(),
		cols.ledger,
		session.TotalOps(),
		session.CompletedOps(),
		session.FailedOps(),
		cols.migratedContainers,
		cols.pendingContainers,
		cols.migratedEntities,
		cols.pendingEntities,
		session.UpdatedAt(),
		session.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrSessionNotFound, session.ID())
	}

	return nil
}

// Delete removes a session by ID. Sessions are an audit trail; deletion is
// exposed for operators cleaning up abandoned dry runs, never called by the
// engine.
func (r *SessionRepository) Delete(id string) error {
	result, err := r.db.Exec("DELETE FROM sessions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrSessionNotFound, id)
	}

	return nil
}

// List retrieves all sessions matching the given criteria, newest first.
func (r *SessionRepository) List(criteria map[string]any) ([]*models.Session, error) {
	query := `
		SELECT
			id, sequence, name, status, phase, source_namespace,
			target_namespace, ledger, total_ops, completed_ops, failed_ops,
			migrated_containers, pending_containers, migrated_entities,
			pending_entities, created_at, updated_at
		FROM sessions
		WHERE 1 = 1
	`

	args := []any{}

	if status, ok := criteria["status"].(string); ok && status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}

	if name, ok := criteria["name"].(string); ok && name != "" {
		query += " AND name = ?"
		args = append(args, name)
	}

	if target, ok := criteria["target_namespace"].(string); ok && target != "" {
		query += " AND target_namespace = ?"
		args = append(args, target)
	}

	query += " ORDER BY sequence DESC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var list []*models.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return list, nil
}

// repositoryStore narrows SessionRepository to sessions.Store. Put upserts:
// new sessions are inserted, existing ones replaced.
type repositoryStore struct {
	repo *SessionRepository
}

func (s *repositoryStore) Put(session *models.Session) error {
	if session.Sequence() == 0 {
		return s.repo.Create(session)
	}
	return s.repo.Update(session)
}

func (s *repositoryStore) Get(id string) (*models.Session, error) {
	return s.repo.Get(id)
}

func (s *repositoryStore) List() ([]*models.Session, error) {
	return s.repo.List(map[string]any{})
}

type jsonColumns struct {
	ledger             string
	migratedContainers string
	pendingContainers  string
	migratedEntities   string
	pendingEntities    string
}

func encodeColumns(session *models.Session) (*jsonColumns, error) {
	ledger, err := json.Marshal(session.Ledger())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ledger: %w", err)
	}

	lists := [][]string{
		session.MigratedContainers(),
		session.PendingContainers(),
		session.MigratedEntities(),
		session.PendingEntities(),
	}
	encoded := make([]string, len(lists))
	for i, list := range lists {
		if list == nil {
			list = []string{}
		}
		data, err := json.Marshal(list)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal session lists: %w", err)
		}
		encoded[i] = string(data)
	}

	return &jsonColumns{
		ledger:             string(ledger),
		migratedContainers: encoded[0],
		pendingContainers:  encoded[1],
		migratedEntities:   encoded[2],
		pendingEntities:    encoded[3],
	}, nil
}

// scanner abstracts *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*models.Session, error) {
	var (
		id                 string
		sequence           int
		name               string
		status             string
		phase              sql.NullString
		source             sql.NullString
		target             sql.NullString
		ledger             string
		totalOps           int
		completedOps       int
		failedOps          int
		migratedContainers string
		pendingContainers  string
		migratedEntities   string
		pendingEntities    string
		createdAt          time.Time
		updatedAt          time.Time
	)

	err := row.Scan(
		&id, &sequence, &name, &status, &phase, &source, &target, &ledger,
		&totalOps, &completedOps, &failedOps, &migratedContainers,
		&pendingContainers, &migratedEntities, &pendingEntities,
		&createdAt, &updatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan session: %w", err)
	}

	// Reassemble the serialized session document and let the model decode
	// it, so column values and in-memory state cannot drift apart.
	doc := struct {
		ID                 string          `json:"id"`
		Sequence           int             `json:"sequence"`
		Name               string          `json:"name"`
		Status             string          `json:"status"`
		Phase              string          `json:"phase,omitempty"`
		Source             string          `json:"source_namespace,omitempty"`
		Target             string          `json:"target_namespace,omitempty"`
		Ledger             json.RawMessage `json:"ledger"`
		TotalOps           int             `json:"total_ops"`
		CompletedOps       int             `json:"completed_ops"`
		FailedOps          int             `json:"failed_ops"`
		MigratedContainers json.RawMessage `json:"migrated_containers"`
		PendingContainers  json.RawMessage `json:"pending_containers"`
		MigratedEntities   json.RawMessage `json:"migrated_entities"`
		PendingEntities    json.RawMessage `json:"pending_entities"`
		CreatedAt          time.Time       `json:"created_at"`
		UpdatedAt          time.Time       `json:"updated_at"`
	}{
		ID:                 id,
		Sequence:           sequence,
		Name:               name,
		Status:             status,
		Phase:              phase.String,
		Source:             source.String,
		Target:             target.String,
		Ledger:             json.RawMessage(ledger),
		TotalOps:           totalOps,
		CompletedOps:       completedOps,
		FailedOps:          failedOps,
		MigratedContainers: json.RawMessage(migratedContainers),
		PendingContainers:  json.RawMessage(pendingContainers),
		MigratedEntities:   json.RawMessage(migratedEntities),
		PendingEntities:    json.RawMessage(pendingEntities),
		CreatedAt:          createdAt,
		UpdatedAt:          updatedAt,
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to rebuild session: %w", err)
	}

	var session models.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("failed to rebuild session: %w", err)
	}

	return &session, nil
}
