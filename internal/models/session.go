package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// SessionStatus enumerates the lifecycle states of a migration session.
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
	SessionFailed    SessionStatus = "failed"
)

// Valid reports whether s is a known session status.
func (s SessionStatus) Valid() bool {
	switch s {
	case SessionActive, SessionCompleted, SessionFailed:
		return true
	}
	return false
}

// StepStatus enumerates the states of a single tracked operation.
type StepStatus string

const (
	StepStarted   StepStatus = "started"
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
)

// Valid reports whether s is a known step status.
func (s StepStatus) Valid() bool {
	switch s {
	case StepStarted, StepCompleted, StepFailed:
		return true
	}
	return false
}

// ProgressEntry is one line of a session's progress ledger.
type ProgressEntry struct {
	Operation string     `json:"operation"`
	Status    StepStatus `json:"status"`
	Detail    string     `json:"detail,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// Session is the durable record of a migration run. It implements [Model].
//
// A session is created active, mutated by every tracked operation, and moved
// to completed or failed at the end of a run. Interrupted runs stay active on
// disk and are resumable by id.
type Session struct {
	id        string
	sequence  int
	name      string
	status    SessionStatus
	phase     string
	source    string
	target    string
	ledger    []ProgressEntry
	total     int
	completed int
	failed    int

	migratedContainers []string
	pendingContainers  []string
	migratedEntities   []string
	pendingEntities    []string

	createdAt time.Time
	updatedAt time.Time
}

// NewSession creates an active session with an empty ledger. The caller
// assigns the id before persisting.
func NewSession(name, source, target string) *Session {
	now := time.Now()
	return &Session{
		name:      name,
		status:    SessionActive,
		source:    source,
		target:    target,
		createdAt: now,
		updatedAt: now,
	}
}

func (s *Session) ID() string            { return s.id }
func (s *Session) Sequence() int         { return s.sequence }
func (s *Session) Name() string          { return s.name }
func (s *Session) Status() SessionStatus { return s.status }
func (s *Session) Phase() string         { return s.phase }
func (s *Session) Source() string        { return s.source }
func (s *Session) Target() string        { return s.target }
func (s *Session) CreatedAt() time.Time  { return s.createdAt }
func (s *Session) UpdatedAt() time.Time  { return s.updatedAt }
func (s *Session) TotalOps() int         { return s.total }
func (s *Session) CompletedOps() int     { return s.completed }
func (s *Session) FailedOps() int        { return s.failed }

func (s *Session) SetID(id string)            { s.id = id }
func (s *Session) SetSequence(seq int)        { s.sequence = seq }
func (s *Session) SetStatus(st SessionStatus) { s.status = st }
func (s *Session) SetPhase(phase string)      { s.phase = phase }
func (s *Session) SetUpdatedAt(t time.Time)   { s.updatedAt = t }
func (s *Session) SetSource(ns string)        { s.source = ns }
func (s *Session) SetTarget(ns string)        { s.target = ns }

func (s *Session) MigratedContainers() []string { return append([]string(nil), s.migratedContainers...) }
func (s *Session) PendingContainers() []string  { return append([]string(nil), s.pendingContainers...) }
func (s *Session) MigratedEntities() []string   { return append([]string(nil), s.migratedEntities...) }
func (s *Session) PendingEntities() []string    { return append([]string(nil), s.pendingEntities...) }

func (s *Session) SetPendingContainers(names []string) {
	s.pendingContainers = append([]string(nil), names...)
}

func (s *Session) SetPendingEntities(names []string) {
	s.pendingEntities = append([]string(nil), names...)
}

// MarkContainerMigrated moves a container from the pending list to the
// migrated list.
func (s *Session) MarkContainerMigrated(name string) {
	s.pendingContainers = remove(s.pendingContainers, name)
	s.migratedContainers = appendUnique(s.migratedContainers, name)
}

// MarkEntityMigrated moves an entity from the pending list to the migrated
// list.
func (s *Session) MarkEntityMigrated(name string) {
	s.pendingEntities = remove(s.pendingEntities, name)
	s.migratedEntities = appendUnique(s.migratedEntities, name)
}

// Ledger returns a copy of the progress ledger in append order.
func (s *Session) Ledger() []ProgressEntry {
	return append([]ProgressEntry(nil), s.ledger...)
}

// AppendProgress records one operation attempt and bumps the counters. The
// ledger only ever grows; completed and failed steps each count once.
func (s *Session) AppendProgress(operation string, status StepStatus, detail string) ProgressEntry {
	entry := ProgressEntry{
		Operation: operation,
		Status:    status,
		Detail:    detail,
		Timestamp: time.Now(),
	}
	s.ledger = append(s.ledger, entry)
	s.total++
	switch status {
	case StepCompleted:
		s.completed++
	case StepFailed:
		s.failed++
	}
	s.updatedAt = entry.Timestamp
	return entry
}

// Validate checks that the session has an id, a name, and a known status.
func (s *Session) Validate() error {
	if s.id == "" {
		return fmt.Errorf("session id is required")
	}
	if s.name == "" {
		return fmt.Errorf("session name is required")
	}
	if !s.status.Valid() {
		return fmt.Errorf("invalid session status: %s", s.status)
	}
	return nil
}

// sessionDoc is the serialized form of a Session. One document per session is
// the on-disk contract for the file-backed store.
type sessionDoc struct {
	ID                 string          `json:"id"`
	Sequence           int             `json:"sequence,omitempty"`
	Name               string          `json:"name"`
	Status             SessionStatus   `json:"status"`
	Phase              string          `json:"phase,omitempty"`
	Source             string          `json:"source_namespace,omitempty"`
	Target             string          `json:"target_namespace,omitempty"`
	Ledger             []ProgressEntry `json:"ledger"`
	TotalOps           int             `json:"total_ops"`
	CompletedOps       int             `json:"completed_ops"`
	FailedOps          int             `json:"failed_ops"`
	MigratedContainers []string        `json:"migrated_containers,omitempty"`
	PendingContainers  []string        `json:"pending_containers,omitempty"`
	MigratedEntities   []string        `json:"migrated_entities,omitempty"`
	PendingEntities    []string        `json:"pending_entities,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// MarshalJSON serializes the session as a flat JSON document.
func (s *Session) MarshalJSON() ([]byte, error) {
	doc := sessionDoc{
		ID:                 s.id,
		Sequence:           s.sequence,
		Name:               s.name,
		Status:             s.status,
		Phase:              s.phase,
		Source:             s.source,
		Target:             s.target,
		Ledger:             s.ledger,
		TotalOps:           s.total,
		CompletedOps:       s.completed,
		FailedOps:          s.failed,
		MigratedContainers: s.migratedContainers,
		PendingContainers:  s.pendingContainers,
		MigratedEntities:   s.migratedEntities,
		PendingEntities:    s.pendingEntities,
		CreatedAt:          s.createdAt,
		UpdatedAt:          s.updatedAt,
	}
	if doc.Ledger == nil {
		doc.Ledger = []ProgressEntry{}
	}
	return json.Marshal(doc)
}

// UnmarshalJSON restores a session from its serialized document.
func (s *Session) UnmarshalJSON(data []byte) error {
	var doc sessionDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	s.id = doc.ID
	s.sequence = doc.Sequence
	s.name = doc.Name
	s.status = doc.Status
	s.phase = doc.Phase
	s.source = doc.Source
	s.target = doc.Target
	s.ledger = doc.Ledger
	s.total = doc.TotalOps
	s.completed = doc.CompletedOps
	s.failed = doc.FailedOps
	s.migratedContainers = doc.MigratedContainers
	s.pendingContainers = doc.PendingContainers
	s.migratedEntities = doc.MigratedEntities
	s.pendingEntities = doc.PendingEntities
	s.createdAt = doc.CreatedAt
	s.updatedAt = doc.UpdatedAt
	return nil
}

func remove(list []string, name string) []string {
	out := list[:0]
	for _, v := range list {
		if v != name {
			out = append(out, v)
		}
	}
	return out
}

func appendUnique(list []string, name string) []string {
	for _, v := range list {
		if v == name {
			return list
		}
	}
	return append(list, name)
}
