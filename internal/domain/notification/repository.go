package notification

import "context"

// Repository persists notifications and enforces the dedup invariant at
// the storage layer: at most one unread notification per (target, kind).
type Repository interface {
	// CreateDeduplicated inserts the notification unless an unread
	// notification with the same dedup target and kind already exists.
	// It returns true when a row was actually inserted.
	CreateDeduplicated(ctx context.Context, n *Notification) (bool, error)

	// GetByID loads a notification.
	GetByID(ctx context.Context, id string) (*Notification, error)

	// ListUnreadByProvider lists a provider's unread notifications,
	// newest first.
	ListUnreadByProvider(ctx context.Context, providerID string, limit, offset int) ([]*Notification, error)

	// MarkRead marks a notification as read, releasing its dedup slot.
	MarkRead(ctx context.Context, id string) error
}
