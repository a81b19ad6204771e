package internment

import (
	"context"
	"time"
)

// MutateFunc loads, mutates and returns an aggregate inside a single
// repository transaction. Returning an error rolls the transaction back.
type MutateFunc func(in *Internment) error

// Repository persists internment aggregates together with their extension
// requests, audit requests and events.
type Repository interface {
	// Create persists a new aggregate.
	Create(ctx context.Context, in *Internment) error

	// GetByID loads an aggregate with all of its children.
	GetByID(ctx context.Context, id string) (*Internment, error)

	// ListByProvider lists aggregates reported by a provider, newest first.
	ListByProvider(ctx context.Context, providerID string, limit, offset int) ([]*Internment, error)

	// Mutate loads the aggregate under a row lock, applies fn and persists
	// the resulting state atomically.
	Mutate(ctx context.Context, id string, fn MutateFunc) (*Internment, error)

	// ListInactivationCandidates returns INICIADA internments admitted at or
	// before the cutoff, up to limit records.
	ListInactivationCandidates(ctx context.Context, cutoff time.Time, limit int) ([]*Internment, error)

	// ListFinalizationCandidates returns ACTIVA internments without extension
	// requests admitted at or before the cutoff, up to limit records.
	ListFinalizationCandidates(ctx context.Context, cutoff time.Time, limit int) ([]*Internment, error)
}
