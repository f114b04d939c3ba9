// Package services defines the record store abstraction the engine migrates
// against, plus the sqlite reference implementation and namespace manifest
// loading.
package services

import (
	"context"

	"github.com/desertthunder/relo/internal/models"
)

// Store is the query/write interface the engine consumes from the record
// platform. Implementations own connection state; Ping and Reconnect are the
// liveness hooks the connection guardian drives.
type Store interface {
	// Ping verifies the connection is live.
	Ping(ctx context.Context) error

	// Reconnect re-establishes the connection after a failed probe.
	Reconnect(ctx context.Context) error

	// ListContainers returns the containers owned by a namespace in stable
	// name order.
	ListContainers(ctx context.Context, namespace string) ([]models.Container, error)

	// ContainerStats returns container entity counts for a namespace in
	// stable name order.
	ContainerStats(ctx context.Context, namespace string) ([]models.ContainerStat, error)

	// ListEntities returns the entities in a container. An empty container
	// selects the whole namespace.
	ListEntities(ctx context.Context, namespace, container string) ([]models.Entity, error)

	// GetEntity retrieves one entity by name, or shared.ErrEntityNotFound.
	GetEntity(ctx context.Context, namespace, name string) (*models.Entity, error)

	// Refs reads the reference-field metadata for an entity.
	Refs(ctx context.Context, namespace, entity string) ([]models.RefField, error)

	// CreateContainer declares a container in a namespace. Creating an
	// existing container is an error.
	CreateContainer(ctx context.Context, container models.Container) error

	// CreateEntity inserts an entity with its reference fields.
	CreateEntity(ctx context.Context, entity models.Entity) error

	// SetEntityContainer reassigns an entity to another container.
	SetEntityContainer(ctx context.Context, namespace, name, container string) error

	// DeleteEntity removes an entity and its reference fields.
	DeleteEntity(ctx context.Context, namespace, name string) error

	// Name identifies the store implementation for logs and reports.
	Name() string
}
