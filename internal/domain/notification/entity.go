package notification

import (
	"time"

	"github.com/google/uuid"

	"github.com/saludplena/claims-engine/pkg/errors"
)

// Kind identifies the condition a notification reports. Deduplication is
// keyed on (target, kind): at most one unread notification of a kind may
// exist for a target at a time.
type Kind string

const (
	KindInternmentNearingDeadline Kind = "internment_nearing_deadline"
	KindInternmentInactivated     Kind = "internment_inactivated"
	KindInternmentAutoFinalized   Kind = "internment_auto_finalized"
	KindExtensionResolved         Kind = "extension_resolved"
	KindQuotationRoundExpired     Kind = "quotation_round_expired"
	KindQuotationAuthorized       Kind = "quotation_authorized"
)

// Notification is a message delivered to a provider's inbox about a
// tracked entity.
type Notification struct {
	ID           string     `json:"id"`
	ProviderID   string     `json:"provider_id"`
	Kind         Kind       `json:"kind"`
	InternmentID string     `json:"internment_id,omitempty"`
	RequestID    string     `json:"request_id,omitempty"`
	Message      string     `json:"message"`
	IsRead       bool       `json:"is_read"`
	ReadAt       *time.Time `json:"read_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// New creates an unread notification for a provider.
func New(providerID string, kind Kind, message string) (*Notification, error) {
	if providerID == "" {
		return nil, errors.InvalidParam("provider ID cannot be empty")
	}
	if kind == "" {
		return nil, errors.InvalidParam("notification kind cannot be empty")
	}
	if message == "" {
		return nil, errors.InvalidParam("notification message cannot be empty")
	}
	return &Notification{
		ID:         uuid.New().String(),
		ProviderID: providerID,
		Kind:       kind,
		Message:    message,
		CreatedAt:  time.Now().UTC(),
	}, nil
}

// ForInternment creates an unread notification referencing an internment.
func ForInternment(providerID, internmentID string, kind Kind, message string) (*Notification, error) {
	n, err := New(providerID, kind, message)
	if err != nil {
		return nil, err
	}
	if internmentID == "" {
		return nil, errors.InvalidParam("internment ID cannot be empty")
	}
	n.InternmentID = internmentID
	return n, nil
}

// ForRequest creates an unread notification referencing a medication request.
func ForRequest(providerID, requestID string, kind Kind, message string) (*Notification, error) {
	n, err := New(providerID, kind, message)
	if err != nil {
		return nil, err
	}
	if requestID == "" {
		return nil, errors.InvalidParam("request ID cannot be empty")
	}
	n.RequestID = requestID
	return n, nil
}

// MarkRead marks the notification as read, releasing its dedup slot.
func (n *Notification) MarkRead() {
	if n.IsRead {
		return
	}
	now := time.Now().UTC()
	n.IsRead = true
	n.ReadAt = &now
}

// DedupTarget returns the entity the dedup constraint is keyed on. It
// prefers the referenced internment or request over the provider.
func (n *Notification) DedupTarget() string {
	switch {
	case n.InternmentID != "":
		return n.InternmentID
	case n.RequestID != "":
		return n.RequestID
	default:
		return n.ProviderID
	}
}
