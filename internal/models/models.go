package models

import (
	"time"
)

// Model defines the base interface for persistent models.
// Implementations include Session.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	UpdatedAt() time.Time // UpdatedAt returns when this model was last updated
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// Repository defines the interface for data access operations.
// Implementations handle database interactions for specific model types.
type Repository[T Model] interface {
	Create(model T) error                      // Create inserts a new model into the database
	Get(id string) (T, error)                  // Get retrieves a model by its ID
	Update(model T) error                      // Update modifies an existing model in the database
	Delete(id string) error                    // Delete removes a model from the database by its ID
	List(criteria map[string]any) ([]T, error) // List retrieves all models matching the given criteria
}

// RefField is a reference field on an entity: Field names the column, Target
// names the entity the field points at.
type RefField struct {
	Field  string `json:"field"`
	Target string `json:"target"`
}

// Entity is a typed record, the migratable unit. Name is its stable
// identifier within a namespace. Custom distinguishes user-defined records
// from platform-owned ones; the engine never mutates platform-owned records.
type Entity struct {
	Name      string     `json:"name"`
	Namespace string     `json:"namespace"`
	Container string     `json:"container"`
	Custom    bool       `json:"custom"`
	Child     bool       `json:"child"` // child/table-only record, always embedded in a parent
	Refs      []RefField `json:"refs,omitempty"`
}

// Container is a named grouping of entities owned by a namespace.
type Container struct {
	Name      string `json:"name"`
	Namespace string `json:"namespace"`
	Custom    bool   `json:"custom"`
}

// ContainerStat pairs a container with its entity count, the shape the
// reconciliation matcher consumes. Containers holding very few entities are
// orphan suspects and excluded from candidacy.
type ContainerStat struct {
	Name        string `json:"name"`
	EntityCount int    `json:"entity_count"`
}

// OrphanSuspectMax is the entity count at or below which a container is
// treated as an orphan suspect.
const OrphanSuspectMax = 2

// OrphanSuspect reports whether the container's entity count marks it as
// unreliable for matching.
func (c ContainerStat) OrphanSuspect() bool {
	return c.EntityCount <= OrphanSuspectMax
}

// Namespace is the installable unit being migrated. Containers is its
// manifest: the container names the namespace legitimately declares.
type Namespace struct {
	Name       string   `toml:"name" json:"name"`
	Path       string   `toml:"-" json:"path,omitempty"`
	Containers []string `toml:"containers" json:"containers"`
}

// Declares reports whether the namespace manifest lists the container.
func (n Namespace) Declares(container string) bool {
	for _, c := range n.Containers {
		if c == container {
			return true
		}
	}
	return false
}

// MatchResult is the reconciliation matcher's verdict for one entity:
// the proposed container, the confidence score, and the scoring rule that
// fired. Ephemeral, never persisted.
type MatchResult struct {
	Entity     string   `json:"entity"`
	Container  string   `json:"container"`
	Confidence float64  `json:"confidence"`
	Rule       string   `json:"rule"`
	Issues     []string `json:"issues,omitempty"`
}
