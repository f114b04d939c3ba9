package services

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/desertthunder/relo/internal/models"
	"github.com/desertthunder/relo/internal/shared"
)

// SQLiteStore is the sqlite-backed record store. It holds a single shared
// connection handle per run; Reconnect closes and reopens it.
type SQLiteStore struct {
	mu   sync.Mutex
	db   *sql.DB
	path string
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens the database at path and verifies the connection.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := shared.NewDatabase(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrStoreUnavailable, err)
	}
	return &SQLiteStore{db: db, path: path}, nil
}

// NewSQLiteStoreFromDB wraps an already-open database handle. Reconnect
// reopens from the original path when one is known, otherwise it only
// re-pings.
func NewSQLiteStoreFromDB(db *sql.DB, path string) *SQLiteStore {
	return &SQLiteStore{db: db, path: path}
}

// DB exposes the underlying handle for session repositories sharing the
// database.
func (s *SQLiteStore) DB() *sql.DB {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db
}

// Name identifies the store implementation.
func (s *SQLiteStore) Name() string { return "sqlite" }

// Ping verifies the connection is live.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.DB().PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrConnectionLost, err)
	}
	return nil
}

// Reconnect closes the current handle and opens a fresh one.
func (s *SQLiteStore) Reconnect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// In-memory databases lose their contents on close; re-ping instead.
	if s.path == "" || s.path == ":memory:" {
		if err := s.db.PingContext(ctx); err != nil {
			return fmt.Errorf("%w: %v", shared.ErrConnectionLost, err)
		}
		return nil
	}

	s.db.Close()
	db, err := shared.NewDatabase(s.path)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrStoreUnavailable, err)
	}
	s.db = db
	return nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.DB().Close()
}

// ListContainers returns a namespace's containers ordered by name.
func (s *SQLiteStore) ListContainers(ctx context.Context, namespace string) ([]models.Container, error) {
	rows, err := s.DB().QueryContext(ctx,
		"SELECT namespace, name, custom FROM containers WHERE namespace = ? ORDER BY name", namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to query containers: %w", err)
	}
	defer rows.Close()

	var containers []models.Container
	for rows.Next() {
		var c models.Container
		if err := rows.Scan(&c.Namespace, &c.Name, &c.Custom); err != nil {
			return nil, fmt.Errorf("failed to scan container: %w", err)
		}
		containers = append(containers, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return containers, nil
}

// ContainerStats returns each container with its entity count, ordered by
// name so matcher candidate discovery is deterministic.
func (s *SQLiteStore) ContainerStats(ctx context.Context, namespace string) ([]models.ContainerStat, error) {
	query := `
		SELECT c.name, COUNT(e.name)
		FROM containers c
		LEFT JOIN entities e ON e.namespace = c.namespace AND e.container = c.name
		WHERE c.namespace = ?
		GROUP BY c.name
		ORDER BY c.name
	`

	rows, err := s.DB().QueryContext(ctx, query, namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to query container stats: %w", err)
	}
	defer rows.Close()

	var stats []models.ContainerStat
	for rows.Next() {
		var st models.ContainerStat
		if err := rows.Scan(&st.Name, &st.EntityCount); err != nil {
			return nil, fmt.Errorf("failed to scan container stat: %w", err)
		}
		stats = append(stats, st)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return stats, nil
}

// ListEntities returns entities in a container, or the whole namespace when
// container is empty. Reference fields are loaded with each entity.
func (s *SQLiteStore) ListEntities(ctx context.Context, namespace, container string) ([]models.Entity, error) {
	query := "SELECT namespace, name, container, custom, child FROM entities WHERE namespace = ?"
	args := []any{namespace}
	if container != "" {
		query += " AND container = ?"
		args = append(args, container)
	}
	query += " ORDER BY name"

	rows, err := s.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entities: %w", err)
	}
	defer rows.Close()

	var entities []models.Entity
	for rows.Next() {
		var e models.Entity
		if err := rows.Scan(&e.Namespace, &e.Name, &e.Container, &e.Custom, &e.Child); err != nil {
			return nil, fmt.Errorf("failed to scan entity: %w", err)
		}
		entities = append(entities, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	for i := range entities {
		refs, err := s.Refs(ctx, entities[i].Namespace, entities[i].Name)
		if err != nil {
			return nil, err
		}
		entities[i].Refs = refs
	}

	return entities, nil
}

// GetEntity retrieves one entity by name.
func (s *SQLiteStore) GetEntity(ctx context.Context, namespace, name string) (*models.Entity, error) {
	var e models.Entity
	err := s.DB().QueryRowContext(ctx,
		"SELECT namespace, name, container, custom, child FROM entities WHERE namespace = ? AND name = ?",
		namespace, name).Scan(&e.Namespace, &e.Name, &e.Container, &e.Custom, &e.Child)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s/%s", shared.ErrEntityNotFound, namespace, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan entity: %w", err)
	}

	refs, err := s.Refs(ctx, namespace, name)
	if err != nil {
		return nil, err
	}
	e.Refs = refs

	return &e, nil
}

// Refs reads reference-field metadata for an entity.
func (s *SQLiteStore) Refs(ctx context.Context, namespace, entity string) ([]models.RefField, error) {
	rows, err := s.DB().QueryContext(ctx,
		"SELECT field, target FROM entity_refs WHERE namespace = ? AND entity = ? ORDER BY field",
		namespace, entity)
	if err != nil {
		return nil, fmt.Errorf("failed to query refs: %w", err)
	}
	defer rows.Close()

	var refs []models.RefField
	for rows.Next() {
		var r models.RefField
		if err := rows.Scan(&r.Field, &r.Target); err != nil {
			return nil, fmt.Errorf("failed to scan ref: %w", err)
		}
		refs = append(refs, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return refs, nil
}

// CreateContainer declares a container. A duplicate name within the
// namespace is rejected by the primary key.
func (s *SQLiteStore) CreateContainer(ctx context.Context, container models.Container) error {
	_, err := s.DB().ExecContext(ctx,
		"INSERT INTO containers (namespace, name, custom) VALUES (?, ?, ?)",
		container.Namespace, container.Name, container.Custom)
	if err != nil {
		return fmt.Errorf("failed to insert container %s: %w", container.Name, err)
	}
	return nil
}

// CreateEntity inserts an entity and its reference fields in one
// transaction.
func (s *SQLiteStore) CreateEntity(ctx context.Context, entity models.Entity) error {
	tx, err := s.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	_, err = tx.ExecContext(ctx,
		"INSERT INTO entities (namespace, name, container, custom, child, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		entity.Namespace, entity.Name, entity.Container, entity.Custom, entity.Child, now, now)
	if err != nil {
		return fmt.Errorf("failed to insert entity %s: %w", entity.Name, err)
	}

	for _, ref := range entity.Refs {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO entity_refs (namespace, entity, field, target) VALUES (?, ?, ?, ?)",
			entity.Namespace, entity.Name, ref.Field, ref.Target)
		if err != nil {
			return fmt.Errorf("failed to insert ref %s.%s: %w", entity.Name, ref.Field, err)
		}
	}

	return tx.Commit()
}

// SetEntityContainer reassigns an entity to another container.
func (s *SQLiteStore) SetEntityContainer(ctx context.Context, namespace, name, container string) error {
	result, err := s.DB().ExecContext(ctx,
		"UPDATE entities SET container = ?, updated_at = ? WHERE namespace = ? AND name = ?",
		container, time.Now(), namespace, name)
	if err != nil {
		return fmt.Errorf("failed to update entity %s: %w", name, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s/%s", shared.ErrEntityNotFound, namespace, name)
	}

	return nil
}

// DeleteEntity removes an entity and its reference fields.
func (s *SQLiteStore) DeleteEntity(ctx context.Context, namespace, name string) error {
	tx, err := s.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM entity_refs WHERE namespace = ? AND entity = ?", namespace, name); err != nil {
		return fmt.Errorf("failed to delete refs for %s: %w", name, err)
	}

	result, err := tx.ExecContext(ctx,
		"DELETE FROM entities WHERE namespace = ? AND name = ?", namespace, name)
	if err != nil {
		return fmt.Errorf("failed to delete entity %s: %w", name, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s/%s", shared.ErrEntityNotFound, namespace, name)
	}

	return tx.Commit()
}
