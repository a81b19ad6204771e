package internment

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/saludplena/claims-engine/pkg/errors"
)

// Status defines the lifecycle status of an internment.
type Status string

const (
	StatusIniciada    Status = "INICIADA"
	StatusActiva      Status = "ACTIVA"
	StatusObservada   Status = "OBSERVADA"
	StatusInactiva    Status = "INACTIVA"
	StatusEnAuditoria Status = "EN_AUDITORIA"
	StatusFinalizada  Status = "FINALIZADA"
)

// IsTerminal reports whether the status admits no further transitions.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusInactiva, StatusFinalizada:
		return true
	default:
		return false
	}
}

// ExtensionStatus defines the audit status of an extension request.
type ExtensionStatus string

const (
	ExtensionPendienteAuditoria ExtensionStatus = "PENDIENTE_AUDITORIA"
	ExtensionAceptada           ExtensionStatus = "ACEPTADA"
	ExtensionRechazada          ExtensionStatus = "RECHAZADA"
)

// Event records something that happened to an internment.
type Event struct {
	ID          string    `json:"id"`
	EventType   string    `json:"event_type"`
	Description string    `json:"description"`
	TriggeredBy string    `json:"triggered_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// ExtensionRequest is a request by the provider to extend an internment
// beyond its initial coverage. It must be resolved by a medical auditor.
type ExtensionRequest struct {
	ID            string          `json:"id"`
	InternmentID  string          `json:"internment_id"`
	RequestedDays int             `json:"requested_days"`
	Justification string          `json:"justification"`
	Status        ExtensionStatus `json:"status"`
	AuditorID     string          `json:"auditor_id,omitempty"`
	AuditComment  string          `json:"audit_comment,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	ResolvedAt    *time.Time      `json:"resolved_at,omitempty"`
}

// Resolve records the auditor's verdict on the request.
func (er *ExtensionRequest) Resolve(auditorID, comment string, approved bool) error {
	if er.Status != ExtensionPendienteAuditoria {
		return errors.New(errors.ErrCodeExtensionNotPending,
			"extension request already resolved").
			WithDetail(fmt.Sprintf("status=%s", er.Status))
	}
	if auditorID == "" {
		return errors.InvalidParam("auditor ID cannot be empty")
	}

	now := time.Now().UTC()
	if approved {
		er.Status = ExtensionAceptada
	} else {
		er.Status = ExtensionRechazada
	}
	er.AuditorID = auditorID
	er.AuditComment = comment
	er.ResolvedAt = &now
	return nil
}

// AuditRequest records a manual hand-off of an internment to the audit team.
type AuditRequest struct {
	ID           string    `json:"id"`
	InternmentID string    `json:"internment_id"`
	RequestedBy  string    `json:"requested_by"`
	Reason       string    `json:"reason"`
	CreatedAt    time.Time `json:"created_at"`
}

// Internment is the aggregate root for an episode of hospitalization.
type Internment struct {
	ID            string              `json:"id"`
	ProviderID    string              `json:"provider_id"`
	PatientID     string              `json:"patient_id"`
	DiagnosisCode string              `json:"diagnosis_code"`
	Status        Status              `json:"status"`
	AdmissionAt   time.Time           `json:"admission_at"`
	EgressDate    *time.Time          `json:"egress_date,omitempty"`
	EgressReason  string              `json:"egress_reason,omitempty"`
	Extensions    []*ExtensionRequest `json:"extensions"`
	AuditRequest  *AuditRequest       `json:"audit_request,omitempty"`
	Events        []*Event            `json:"events"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// NewInternment creates a new internment in INICIADA status.
func NewInternment(providerID, patientID, diagnosisCode string, admissionAt time.Time) (*Internment, error) {
	if providerID == "" {
		return nil, errors.InvalidParam("provider ID cannot be empty")
	}
	if patientID == "" {
		return nil, errors.InvalidParam("patient ID cannot be empty")
	}
	if admissionAt.IsZero() {
		return nil, errors.InvalidParam("admission date cannot be zero")
	}

	now := time.Now().UTC()
	in := &Internment{
		ID:            uuid.New().String(),
		ProviderID:    providerID,
		PatientID:     patientID,
		DiagnosisCode: diagnosisCode,
		Status:        StatusIniciada,
		AdmissionAt:   admissionAt.UTC(),
		Extensions:    []*ExtensionRequest{},
		Events:        []*Event{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	in.addEvent("created", "Internment reported by provider", providerID)
	return in, nil
}

// ─────────────────────────────────────────────────────────────
// Commands
// ─────────────────────────────────────────────────────────────

// RequestExtension files an extension request. The first request moves the
// internment from INICIADA to ACTIVA; later requests leave the status alone.
func (in *Internment) RequestExtension(requestedDays int, justification string) (*ExtensionRequest, error) {
	if in.Status != StatusIniciada && in.Status != StatusActiva {
		return nil, in.transitionError(StatusActiva)
	}
	if requestedDays <= 0 {
		return nil, errors.InvalidParam("requested days must be positive")
	}

	now := time.Now().UTC()
	req := &ExtensionRequest{
		ID:            uuid.New().String(),
		InternmentID:  in.ID,
		RequestedDays: requestedDays,
		Justification: justification,
		Status:        ExtensionPendienteAuditoria,
		CreatedAt:     now,
	}
	in.Extensions = append(in.Extensions, req)

	if in.Status == StatusIniciada {
		in.Status = StatusActiva
	}
	in.UpdatedAt = now
	in.addEvent("extension_requested",
		fmt.Sprintf("Extension of %d days requested", requestedDays), in.ProviderID)
	return req, nil
}

// Finalize closes the internment with the egress data supplied by the
// reporting provider. Only the provider that opened the internment may
// finalize it, and only while it is ACTIVA.
func (in *Internment) Finalize(providerID string, egressDate time.Time, egressReason string) error {
	if providerID != in.ProviderID {
		return errors.Forbidden("internment belongs to a different provider")
	}
	// A wrong-state finalize is treated as a permission failure rather
	// than a plain conflict: the provider is not allowed to close an
	// internment that is not active.
	if in.Status != StatusActiva {
		return errors.Forbidden("internment is not active").
			WithDetail(fmt.Sprintf("status=%s", in.Status))
	}
	if egressDate.IsZero() {
		return errors.InvalidParam("egress date cannot be zero")
	}
	if egressReason == "" {
		return errors.InvalidParam("egress reason cannot be empty")
	}
	if egressDate.Before(in.AdmissionAt) {
		return errors.InvalidParam("egress date cannot precede admission date")
	}

	now := time.Now().UTC()
	ed := egressDate.UTC()
	in.EgressDate = &ed
	in.EgressReason = egressReason
	in.Status = StatusFinalizada
	in.UpdatedAt = now
	in.addEvent("finalized", fmt.Sprintf("Finalized by provider: %s", egressReason), providerID)
	return nil
}

// SendToAudit hands an INICIADA internment over to the medical audit team.
func (in *Internment) SendToAudit(requestedBy, reason string) error {
	if in.Status != StatusIniciada {
		return in.transitionError(StatusEnAuditoria)
	}
	if requestedBy == "" {
		return errors.InvalidParam("requesting user cannot be empty")
	}

	now := time.Now().UTC()
	in.AuditRequest = &AuditRequest{
		ID:           uuid.New().String(),
		InternmentID: in.ID,
		RequestedBy:  requestedBy,
		Reason:       reason,
		CreatedAt:    now,
	}
	in.Status = StatusEnAuditoria
	in.UpdatedAt = now
	in.addEvent("sent_to_audit", fmt.Sprintf("Sent to audit: %s", reason), requestedBy)
	return nil
}

// Observe places an INICIADA internment under administrative observation.
func (in *Internment) Observe(requestedBy, reason string) error {
	if in.Status != StatusIniciada {
		return in.transitionError(StatusObservada)
	}
	if requestedBy == "" {
		return errors.InvalidParam("requesting user cannot be empty")
	}
	in.Status = StatusObservada
	in.UpdatedAt = time.Now().UTC()
	in.addEvent("observed", fmt.Sprintf("Placed under observation: %s", reason), requestedBy)
	return nil
}

// MarkInactive retires an INICIADA internment that was never confirmed by
// an extension request within the inactivity window.
func (in *Internment) MarkInactive() error {
	if in.Status != StatusIniciada {
		return in.transitionError(StatusInactiva)
	}
	in.Status = StatusInactiva
	in.UpdatedAt = time.Now().UTC()
	in.addEvent("marked_inactive", "Automatically deactivated after inactivity window", "system")
	return nil
}

// AutoFinalize closes an ACTIVA internment that carries no extension
// requests once its coverage window has run out.
func (in *Internment) AutoFinalize(egressDate time.Time) error {
	if in.Status != StatusActiva {
		return in.transitionError(StatusFinalizada)
	}
	if len(in.Extensions) > 0 {
		return errors.InvalidState("internment has open extension requests").
			WithDetail(fmt.Sprintf("extensions=%d", len(in.Extensions)))
	}

	now := time.Now().UTC()
	ed := egressDate.UTC()
	in.EgressDate = &ed
	in.EgressReason = "Automatic finalization at end of coverage window"
	in.Status = StatusFinalizada
	in.UpdatedAt = now
	in.addEvent("auto_finalized", "Automatically finalized at end of coverage window", "system")
	return nil
}

// ResolveExtension applies the auditor verdict to the extension with the
// given ID.
func (in *Internment) ResolveExtension(extensionID, auditorID, comment string, approved bool) (*ExtensionRequest, error) {
	req := in.FindExtension(extensionID)
	if req == nil {
		return nil, errors.New(errors.ErrCodeExtensionNotFound, "extension request not found").
			WithDetail(fmt.Sprintf("extension_id=%s", extensionID))
	}
	if err := req.Resolve(auditorID, comment, approved); err != nil {
		return nil, err
	}

	verdict := "rejected"
	if approved {
		verdict = "approved"
	}
	in.UpdatedAt = time.Now().UTC()
	in.addEvent("extension_resolved",
		fmt.Sprintf("Extension %s %s by auditor", extensionID, verdict), auditorID)
	return req, nil
}

// ─────────────────────────────────────────────────────────────
// Queries
// ─────────────────────────────────────────────────────────────

// FindExtension returns the extension with the given ID, or nil.
func (in *Internment) FindExtension(extensionID string) *ExtensionRequest {
	for _, req := range in.Extensions {
		if req.ID == extensionID {
			return req
		}
	}
	return nil
}

// HasPendingExtensions reports whether any extension awaits an auditor.
func (in *Internment) HasPendingExtensions() bool {
	for _, req := range in.Extensions {
		if req.Status == ExtensionPendienteAuditoria {
			return true
		}
	}
	return false
}

// Validate checks the integrity of the aggregate.
func (in *Internment) Validate() error {
	if in.ID == "" {
		return errors.InvalidParam("ID cannot be empty")
	}
	if in.ProviderID == "" {
		return errors.InvalidParam("provider ID cannot be empty")
	}
	if in.PatientID == "" {
		return errors.InvalidParam("patient ID cannot be empty")
	}
	if in.AdmissionAt.IsZero() {
		return errors.InvalidParam("admission date cannot be zero")
	}
	if in.Status == StatusFinalizada && in.EgressDate == nil {
		return errors.InvalidParam("finalized internment must carry an egress date")
	}
	return nil
}

func (in *Internment) addEvent(eventType, description, triggeredBy string) *Event {
	event := &Event{
		ID:          uuid.New().String(),
		EventType:   eventType,
		Description: description,
		TriggeredBy: triggeredBy,
		CreatedAt:   time.Now().UTC(),
	}
	in.Events = append(in.Events, event)
	return event
}

func (in *Internment) transitionError(target Status) *errors.AppError {
	return errors.New(errors.ErrCodeInvalidTransition,
		"invalid internment status transition").
		WithDetail(fmt.Sprintf("from=%s to=%s", in.Status, target))
}
