package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/saludplena/claims-engine/internal/domain/internment"
	"github.com/saludplena/claims-engine/internal/domain/medication"
	"github.com/saludplena/claims-engine/internal/domain/notification"
	"github.com/saludplena/claims-engine/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Internment repository
// ─────────────────────────────────────────────────────────────────────────────

// MemInternmentRepo is an in-memory internment.Repository for tests.
type MemInternmentRepo struct {
	mu    sync.Mutex
	items map[string]*internment.Internment
}

// NewMemInternmentRepo creates an empty repository.
func NewMemInternmentRepo() *MemInternmentRepo {
	return &MemInternmentRepo{items: make(map[string]*internment.Internment)}
}

func (r *MemInternmentRepo) Create(_ context.Context, in *internment.Internment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[in.ID] = in
	return nil
}

func (r *MemInternmentRepo) GetByID(_ context.Context, id string) (*internment.Internment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	in, ok := r.items[id]
	if !ok {
		return nil, errors.New(errors.ErrCodeInternmentNotFound, "internment not found")
	}
	return in, nil
}

func (r *MemInternmentRepo) ListByProvider(_ context.Context, providerID string, limit, offset int) ([]*internment.Internment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*internment.Internment
	for _, in := range r.items {
		if in.ProviderID == providerID {
			out = append(out, in)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemInternmentRepo) Mutate(ctx context.Context, id string, fn internment.MutateFunc) (*internment.Internment, error) {
	in, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := fn(in); err != nil {
		return nil, err
	}
	return in, nil
}

func (r *MemInternmentRepo) ListInactivationCandidates(_ context.Context, cutoff time.Time, limit int) ([]*internment.Internment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*internment.Internment
	for _, in := range r.items {
		if in.Status == internment.StatusIniciada && !in.AdmissionAt.After(cutoff) {
			out = append(out, in)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *MemInternmentRepo) ListFinalizationCandidates(_ context.Context, cutoff time.Time, limit int) ([]*internment.Internment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*internment.Internment
	for _, in := range r.items {
		if in.Status == internment.StatusActiva && len(in.Extensions) == 0 && !in.AdmissionAt.After(cutoff) {
			out = append(out, in)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Medication repository
// ─────────────────────────────────────────────────────────────────────────────

// MemMedicationRepo is an in-memory medication.Repository for tests.
type MemMedicationRepo struct {
	mu    sync.Mutex
	items map[string]*medication.Request
}

// NewMemMedicationRepo creates an empty repository.
func NewMemMedicationRepo() *MemMedicationRepo {
	return &MemMedicationRepo{items: make(map[string]*medication.Request)}
}

func (r *MemMedicationRepo) Create(_ context.Context, req *medication.Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[req.ID] = req
	return nil
}

func (r *MemMedicationRepo) GetByID(_ context.Context, id string) (*medication.Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.items[id]
	if !ok {
		return nil, errors.New(errors.ErrCodeRequestNotFound, "medication request not found")
	}
	return req, nil
}

func (r *MemMedicationRepo) GetByQuotationToken(_ context.Context, token string) (*medication.Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, req := range r.items {
		if req.FindQuotationByToken(token) != nil {
			return req, nil
		}
	}
	return nil, errors.New(errors.ErrCodeTokenNotFound, "quotation token not found")
}

func (r *MemMedicationRepo) Mutate(ctx context.Context, id string, fn medication.MutateFunc) (*medication.Request, error) {
	req, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := fn(req); err != nil {
		return nil, err
	}
	return req, nil
}

func (r *MemMedicationRepo) ListExpiryCandidates(_ context.Context, cutoff time.Time, limit int) ([]*medication.Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*medication.Request
	for _, req := range r.items {
		if req.Status == medication.RequestEnCotizacion && req.Deadline != nil && !req.Deadline.After(cutoff) {
			out = append(out, req)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Notification repository
// ─────────────────────────────────────────────────────────────────────────────

// MemNotificationRepo is an in-memory notification.Repository that enforces
// the unread (target, kind) dedup invariant the way the partial unique index
// does in PostgreSQL.
type MemNotificationRepo struct {
	mu    sync.Mutex
	items []*notification.Notification
}

// NewMemNotificationRepo creates an empty repository.
func NewMemNotificationRepo() *MemNotificationRepo {
	return &MemNotificationRepo{}
}

func (r *MemNotificationRepo) CreateDeduplicated(_ context.Context, n *notification.Notification) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.items {
		if existing.IsRead || existing.Kind != n.Kind {
			continue
		}
		if existing.DedupTarget() == n.DedupTarget() {
			return false, nil
		}
	}
	r.items = append(r.items, n)
	return true, nil
}

func (r *MemNotificationRepo) GetByID(_ context.Context, id string) (*notification.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.items {
		if n.ID == id {
			return n, nil
		}
	}
	return nil, errors.New(errors.ErrCodeNotificationNotFound, "notification not found")
}

func (r *MemNotificationRepo) ListUnreadByProvider(_ context.Context, providerID string, limit, offset int) ([]*notification.Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*notification.Notification
	for _, n := range r.items {
		if n.ProviderID == providerID && !n.IsRead {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemNotificationRepo) MarkRead(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.items {
		if n.ID == id {
			n.MarkRead()
			return nil
		}
	}
	return errors.New(errors.ErrCodeNotificationNotFound, "notification not found")
}

// All returns every stored notification.
func (r *MemNotificationRepo) All() []*notification.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*notification.Notification, len(r.items))
	copy(out, r.items)
	return out
}
