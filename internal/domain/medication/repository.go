package medication

import (
	"context"
	"time"
)

// MutateFunc loads, mutates and returns an aggregate inside a single
// repository transaction. Returning an error rolls the transaction back.
type MutateFunc func(r *Request) error

// Repository persists medication requests with their items and quotations.
type Repository interface {
	// Create persists a new aggregate.
	Create(ctx context.Context, r *Request) error

	// GetByID loads an aggregate with all of its children.
	GetByID(ctx context.Context, id string) (*Request, error)

	// GetByQuotationToken resolves the aggregate that owns a quotation
	// token. Unknown tokens yield a not-found error.
	GetByQuotationToken(ctx context.Context, token string) (*Request, error)

	// Mutate loads the aggregate under a row lock, applies fn and persists
	// the resulting state atomically.
	Mutate(ctx context.Context, id string, fn MutateFunc) (*Request, error)

	// ListExpiryCandidates returns requests in an open round whose deadline
	// is at or before the cutoff, up to limit records.
	ListExpiryCandidates(ctx context.Context, cutoff time.Time, limit int) ([]*Request, error)
}
