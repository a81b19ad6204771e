package medication

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/saludplena/claims-engine/pkg/errors"
)

// RequestStatus defines the lifecycle status of a medication request.
type RequestStatus string

const (
	RequestCreada                RequestStatus = "CREADA"
	RequestEnCotizacion          RequestStatus = "EN_COTIZACION"
	RequestPendienteAutorizacion RequestStatus = "PENDIENTE_AUTORIZACION"
	RequestAutorizada            RequestStatus = "AUTORIZADA"
	RequestRechazada             RequestStatus = "RECHAZADA"
)

// RoundStatus tracks whether the quotation round has been opened.
type RoundStatus string

const (
	RoundPending RoundStatus = "pending"
	RoundSent    RoundStatus = "sent"
)

// QuotationStatus defines the lifecycle status of a single quotation.
type QuotationStatus string

const (
	QuotationPendiente  QuotationStatus = "PENDIENTE"
	QuotationCotizada   QuotationStatus = "COTIZADA"
	QuotationAutorizada QuotationStatus = "AUTORIZADA"
	QuotationRechazada  QuotationStatus = "RECHAZADA"
	QuotationVencida    QuotationStatus = "VENCIDA"
)

// Item is one drug line on a medication request.
type Item struct {
	ID       string  `json:"id"`
	DrugCode string  `json:"drug_code"`
	DrugName string  `json:"drug_name"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
}

// ItemInput is the caller-supplied shape for a new item.
type ItemInput struct {
	DrugCode string  `json:"drug_code"`
	DrugName string  `json:"drug_name"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
}

// Quotation is one pharmacy's price submission slot for one item. Access
// is gated by a single-use token that expires at the round deadline.
type Quotation struct {
	ID             string          `json:"id"`
	RequestID      string          `json:"request_id"`
	ItemID         string          `json:"item_id"`
	PharmacyID     string          `json:"pharmacy_id"`
	Token          string          `json:"token"`
	TokenExpiresAt time.Time       `json:"token_expires_at"`
	Status         QuotationStatus `json:"status"`
	UnitPrice      float64         `json:"unit_price,omitempty"`
	TotalPrice     float64         `json:"total_price,omitempty"`
	Availability   string          `json:"availability,omitempty"`
	Notes          string          `json:"notes,omitempty"`
	QuotedAt       *time.Time      `json:"quoted_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// QuotationSubmission carries the price and availability fields a pharmacy
// submits against its token.
type QuotationSubmission struct {
	UnitPrice    float64
	TotalPrice   float64
	Availability string
	Notes        string
}

// WinnerSnapshot is the denormalized record of the authorized quotation,
// stamped onto the request for audit purposes.
type WinnerSnapshot struct {
	QuotationID  string    `json:"quotation_id"`
	ItemID       string    `json:"item_id"`
	PharmacyID   string    `json:"pharmacy_id"`
	DrugName     string    `json:"drug_name"`
	UnitPrice    float64   `json:"unit_price"`
	TotalPrice   float64   `json:"total_price"`
	AuthorizedBy string    `json:"authorized_by"`
	AuthorizedAt time.Time `json:"authorized_at"`
}

// Request is the aggregate root for a high-cost medication order and its
// quotation round.
type Request struct {
	ID                string          `json:"id"`
	PatientID         string          `json:"patient_id"`
	RequestedBy       string          `json:"requested_by"`
	Status            RequestStatus   `json:"status"`
	RoundStatus       RoundStatus     `json:"quotation_status"`
	DeadlineHours     int             `json:"quotation_deadline_hours"`
	Deadline          *time.Time      `json:"quotation_deadline,omitempty"`
	SentCount         int             `json:"sent_quotations_count"`
	RespondedCount    int             `json:"responded_quotations_count"`
	MinimumQuotations int             `json:"minimum_quotations"`
	Items             []*Item         `json:"items"`
	Quotations        []*Quotation    `json:"quotations"`
	Winner            *WinnerSnapshot `json:"winner,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// NewRequest creates a medication request in CREADA status with a pending
// quotation round.
func NewRequest(patientID, requestedBy string, minimumQuotations, deadlineHours int, items []ItemInput) (*Request, error) {
	if patientID == "" {
		return nil, errors.InvalidParam("patient ID cannot be empty")
	}
	if len(items) == 0 {
		return nil, errors.InvalidParam("request must carry at least one item")
	}
	if minimumQuotations <= 0 {
		return nil, errors.InvalidParam("minimum quotations must be positive")
	}
	if deadlineHours <= 0 {
		return nil, errors.InvalidParam("deadline hours must be positive")
	}

	now := time.Now().UTC()
	req := &Request{
		ID:                uuid.New().String(),
		PatientID:         patientID,
		RequestedBy:       requestedBy,
		Status:            RequestCreada,
		RoundStatus:       RoundPending,
		DeadlineHours:     deadlineHours,
		MinimumQuotations: minimumQuotations,
		Items:             make([]*Item, 0, len(items)),
		Quotations:        []*Quotation{},
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	for _, it := range items {
		if it.DrugName == "" {
			return nil, errors.InvalidParam("item drug name cannot be empty")
		}
		if it.Quantity <= 0 {
			return nil, errors.InvalidParam("item quantity must be positive")
		}
		req.Items = append(req.Items, &Item{
			ID:       uuid.New().String(),
			DrugCode: it.DrugCode,
			DrugName: it.DrugName,
			Quantity: it.Quantity,
			Unit:     it.Unit,
		})
	}
	return req, nil
}

// ─────────────────────────────────────────────────────────────
// Commands
// ─────────────────────────────────────────────────────────────

// SendToQuotation opens the quotation round: it creates one tokenized
// quotation per selected pharmacy per item, all expiring at the computed
// deadline. Requires a minimum pharmacy quorum.
func (r *Request) SendToQuotation(pharmacyIDs []string, deadline time.Time) error {
	if r.RoundStatus != RoundPending {
		return errors.New(errors.ErrCodeRequestStateInvalid,
			"quotation round already opened").
			WithDetail(fmt.Sprintf("quotation_status=%s", r.RoundStatus))
	}

	unique := make(map[string]struct{}, len(pharmacyIDs))
	for _, id := range pharmacyIDs {
		if id == "" {
			return errors.InvalidParam("pharmacy ID cannot be empty")
		}
		unique[id] = struct{}{}
	}
	if len(unique) < r.MinimumQuotations {
		return errors.InvalidParam(
			fmt.Sprintf("at least %d distinct pharmacies are required, got %d",
				r.MinimumQuotations, len(unique)))
	}
	if deadline.IsZero() {
		return errors.InvalidParam("quotation deadline cannot be zero")
	}

	now := time.Now().UTC()
	dl := deadline.UTC()
	seen := make(map[string]struct{}, len(unique))
	for _, pharmacyID := range pharmacyIDs {
		if _, dup := seen[pharmacyID]; dup {
			continue
		}
		seen[pharmacyID] = struct{}{}
		for _, item := range r.Items {
			r.Quotations = append(r.Quotations, &Quotation{
				ID:             uuid.New().String(),
				RequestID:      r.ID,
				ItemID:         item.ID,
				PharmacyID:     pharmacyID,
				Token:          uuid.New().String(),
				TokenExpiresAt: dl,
				Status:         QuotationPendiente,
				CreatedAt:      now,
			})
		}
	}

	r.SentCount = len(r.Quotations)
	r.Deadline = &dl
	r.RoundStatus = RoundSent
	r.Status = RequestEnCotizacion
	r.UpdatedAt = now
	return nil
}

// SubmitQuotation records a pharmacy submission against a token. Expired
// tokens and already-submitted quotations are reported as not found so an
// untrusted caller cannot probe round state.
func (r *Request) SubmitQuotation(token string, sub QuotationSubmission, now time.Time) (*Quotation, error) {
	q := r.FindQuotationByToken(token)
	if q == nil {
		return nil, errors.New(errors.ErrCodeTokenNotFound, "quotation token not found")
	}
	if !now.UTC().Before(q.TokenExpiresAt) || q.Status != QuotationPendiente {
		return nil, errors.New(errors.ErrCodeTokenConsumed, "quotation token not found")
	}
	if sub.UnitPrice <= 0 {
		return nil, errors.InvalidParam("unit price must be positive")
	}

	ts := now.UTC()
	q.UnitPrice = sub.UnitPrice
	q.TotalPrice = sub.TotalPrice
	q.Availability = sub.Availability
	q.Notes = sub.Notes
	q.Status = QuotationCotizada
	q.QuotedAt = &ts

	r.RespondedCount++
	if r.RespondedCount >= r.SentCount {
		r.Status = RequestPendienteAutorizacion
	}
	r.UpdatedAt = ts
	return q, nil
}

// Authorize resolves the round: the chosen quotation becomes AUTORIZADA,
// every sibling quotation on the same item becomes RECHAZADA, and the
// request is stamped with a winner snapshot. The round must be complete:
// no quotation on any item may still be pending.
func (r *Request) Authorize(quotationID, auditorID string) error {
	if r.Status == RequestAutorizada || r.Status == RequestRechazada {
		return errors.New(errors.ErrCodeRequestStateInvalid,
			"medication request already resolved").
			WithDetail(fmt.Sprintf("status=%s", r.Status))
	}

	winner := r.FindQuotation(quotationID)
	if winner == nil {
		return errors.New(errors.ErrCodeQuotationNotFound, "quotation not found").
			WithDetail(fmt.Sprintf("quotation_id=%s", quotationID))
	}

	if pending := r.PendingQuotations(); len(pending) > 0 {
		names := make([]string, 0, len(pending))
		for _, q := range pending {
			if item := r.FindItem(q.ItemID); item != nil {
				names = append(names, fmt.Sprintf("%s (%s)", item.DrugName, q.PharmacyID))
			} else {
				names = append(names, q.ID)
			}
		}
		return errors.New(errors.ErrCodeQuotationsPending,
			"quotations still pending").
			WithDetail(strings.Join(names, ", "))
	}

	if winner.Status != QuotationCotizada {
		return errors.New(errors.ErrCodeQuotationNotQuoted,
			"chosen quotation has not been submitted").
			WithDetail(fmt.Sprintf("status=%s", winner.Status))
	}

	now := time.Now().UTC()
	winner.Status = QuotationAutorizada
	for _, q := range r.Quotations {
		if q.ID != winner.ID && q.ItemID == winner.ItemID && q.Status != QuotationVencida {
			q.Status = QuotationRechazada
		}
	}

	item := r.FindItem(winner.ItemID)
	drugName := ""
	if item != nil {
		drugName = item.DrugName
	}
	r.Winner = &WinnerSnapshot{
		QuotationID:  winner.ID,
		ItemID:       winner.ItemID,
		PharmacyID:   winner.PharmacyID,
		DrugName:     drugName,
		UnitPrice:    winner.UnitPrice,
		TotalPrice:   winner.TotalPrice,
		AuthorizedBy: auditorID,
		AuthorizedAt: now,
	}
	r.Status = RequestAutorizada
	r.UpdatedAt = now
	return nil
}

// ExpireQuotations flips still-pending quotations whose token has expired
// to VENCIDA and returns how many were expired.
func (r *Request) ExpireQuotations(now time.Time) int {
	expired := 0
	ts := now.UTC()
	for _, q := range r.Quotations {
		if q.Status == QuotationPendiente && !ts.Before(q.TokenExpiresAt) {
			q.Status = QuotationVencida
			expired++
		}
	}
	if expired > 0 {
		r.UpdatedAt = ts
	}
	return expired
}

// CloseRound moves a round with no remaining pending quotations and at
// least one submission to PENDIENTE_AUTORIZACION. It reports whether the
// request status changed.
func (r *Request) CloseRound(now time.Time) bool {
	if r.Status != RequestEnCotizacion {
		return false
	}
	if len(r.PendingQuotations()) > 0 || r.RespondedCount == 0 {
		return false
	}
	r.Status = RequestPendienteAutorizacion
	r.UpdatedAt = now.UTC()
	return true
}

// ─────────────────────────────────────────────────────────────
// Queries
// ─────────────────────────────────────────────────────────────

// FindItem returns the item with the given ID, or nil.
func (r *Request) FindItem(itemID string) *Item {
	for _, item := range r.Items {
		if item.ID == itemID {
			return item
		}
	}
	return nil
}

// FindQuotation returns the quotation with the given ID, or nil.
func (r *Request) FindQuotation(quotationID string) *Quotation {
	for _, q := range r.Quotations {
		if q.ID == quotationID {
			return q
		}
	}
	return nil
}

// FindQuotationByToken returns the quotation holding the token, or nil.
func (r *Request) FindQuotationByToken(token string) *Quotation {
	if token == "" {
		return nil
	}
	for _, q := range r.Quotations {
		if q.Token == token {
			return q
		}
	}
	return nil
}

// PendingQuotations returns the quotations still awaiting a submission.
func (r *Request) PendingQuotations() []*Quotation {
	var pending []*Quotation
	for _, q := range r.Quotations {
		if q.Status == QuotationPendiente {
			pending = append(pending, q)
		}
	}
	return pending
}

// Validate checks the integrity of the aggregate.
func (r *Request) Validate() error {
	if r.ID == "" {
		return errors.InvalidParam("ID cannot be empty")
	}
	if r.PatientID == "" {
		return errors.InvalidParam("patient ID cannot be empty")
	}
	if len(r.Items) == 0 {
		return errors.InvalidParam("request must carry at least one item")
	}
	if r.RoundStatus == RoundSent && r.Deadline == nil {
		return errors.InvalidParam("opened round must carry a deadline")
	}
	if r.Status == RequestAutorizada && r.Winner == nil {
		return errors.InvalidParam("authorized request must carry a winner snapshot")
	}
	return nil
}
