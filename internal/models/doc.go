// Package models defines the data model for the namespace migration engine:
// entities, containers, namespace manifests, match results, and migration
// sessions, plus the Model and Repository interfaces implemented by the
// persistence layer.
package models
