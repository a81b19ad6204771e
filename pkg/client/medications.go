package client

import (
	"context"
	"net/url"
	"time"
)

// MedicationsClient accesses the high-cost medication request endpoints and
// the public pharmacy quotation endpoints.
type MedicationsClient struct {
	client *Client
}

// MedicationRequest is the wire shape of a medication request resource.
type MedicationRequest struct {
	ID                string          `json:"id"`
	PatientID         string          `json:"patient_id"`
	RequestedBy       string          `json:"requested_by"`
	Status            string          `json:"status"`
	RoundStatus       string          `json:"quotation_status"`
	DeadlineHours     int             `json:"quotation_deadline_hours"`
	Deadline          *time.Time      `json:"quotation_deadline,omitempty"`
	SentCount         int             `json:"sent_quotations_count"`
	RespondedCount    int             `json:"responded_quotations_count"`
	MinimumQuotations int             `json:"minimum_quotations"`
	Items             []*RequestItem  `json:"items"`
	Quotations        []*Quotation    `json:"quotations"`
	Winner            *WinnerSnapshot `json:"winner,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// RequestItem is one drug line of a medication request.
type RequestItem struct {
	ID       string  `json:"id"`
	DrugCode string  `json:"drug_code"`
	DrugName string  `json:"drug_name"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
}

// Quotation is one pharmacy's tokenized quotation slot.
type Quotation struct {
	ID             string     `json:"id"`
	RequestID      string     `json:"request_id"`
	ItemID         string     `json:"item_id"`
	PharmacyID     string     `json:"pharmacy_id"`
	Token          string     `json:"token"`
	TokenExpiresAt time.Time  `json:"token_expires_at"`
	Status         string     `json:"status"`
	UnitPrice      float64    `json:"unit_price,omitempty"`
	TotalPrice     float64    `json:"total_price,omitempty"`
	Availability   string     `json:"availability,omitempty"`
	Notes          string     `json:"notes,omitempty"`
	QuotedAt       *time.Time `json:"quoted_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// WinnerSnapshot records the authorized quotation.
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

// ItemInput is one drug line of a creation request.
type ItemInput struct {
	DrugCode string  `json:"drug_code"`
	DrugName string  `json:"drug_name"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
}

// CreateMedicationRequest opens a new medication request.  The requesting
// user is taken from the bearer token.
type CreateMedicationRequest struct {
	PatientID string      `json:"patient_id"`
	Items     []ItemInput `json:"items"`
}

// SendToQuotationRequest selects the pharmacies invited to quote.
type SendToQuotationRequest struct {
	PharmacyIDs []string `json:"pharmacy_ids"`
}

// AuthorizeRequest picks the winning quotation.
type AuthorizeRequest struct {
	QuotationID string `json:"quotation_id"`
}

// PublicQuotation is the reduced pharmacy-facing quotation view.
type PublicQuotation struct {
	Token          string     `json:"token"`
	Status         string     `json:"status"`
	Item           PublicItem `json:"item"`
	TokenExpiresAt time.Time  `json:"token_expires_at"`
	UnitPrice      float64    `json:"unit_price,omitempty"`
	TotalPrice     float64    `json:"total_price,omitempty"`
	Availability   string     `json:"availability,omitempty"`
	Notes          string     `json:"notes,omitempty"`
	QuotedAt       *time.Time `json:"quoted_at,omitempty"`
}

// PublicItem is the item shape exposed on the public endpoint.
type PublicItem struct {
	DrugCode string  `json:"drug_code,omitempty"`
	DrugName string  `json:"drug_name"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit,omitempty"`
}

// QuotationSubmission is the pharmacy's price submission.
type QuotationSubmission struct {
	UnitPrice    float64 `json:"unit_price"`
	TotalPrice   float64 `json:"total_price"`
	Availability string  `json:"availability"`
	Notes        string  `json:"notes"`
}

// Create opens a medication request for the authenticated provider.
func (mc *MedicationsClient) Create(ctx context.Context, req CreateMedicationRequest) (*MedicationRequest, error) {
	var out MedicationRequest
	if err := mc.client.post(ctx, "/api/v1/medications", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Get fetches one medication request.
func (mc *MedicationsClient) Get(ctx context.Context, id string) (*MedicationRequest, error) {
	var out MedicationRequest
	if err := mc.client.get(ctx, "/api/v1/medications/"+url.PathEscape(id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SendToQuotation opens the quotation round (operator role).
func (mc *MedicationsClient) SendToQuotation(ctx context.Context, id string, req SendToQuotationRequest) (*MedicationRequest, error) {
	var out MedicationRequest
	if err := mc.client.post(ctx, "/api/v1/medications/"+url.PathEscape(id)+"/quotations", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Authorize picks the winning quotation (auditor role).
func (mc *MedicationsClient) Authorize(ctx context.Context, id string, req AuthorizeRequest) (*MedicationRequest, error) {
	var out MedicationRequest
	if err := mc.client.post(ctx, "/api/v1/medications/"+url.PathEscape(id)+"/authorize", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetQuotation fetches the public view behind a quotation token.  No bearer
// token is required; the URL token is the credential.
func (mc *MedicationsClient) GetQuotation(ctx context.Context, token string) (*PublicQuotation, error) {
	var out PublicQuotation
	if err := mc.client.get(ctx, "/public/quotations/"+url.PathEscape(token), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitQuotation submits the pharmacy's prices for a pending quotation.
func (mc *MedicationsClient) SubmitQuotation(ctx context.Context, token string, sub QuotationSubmission) (*PublicQuotation, error) {
	var out PublicQuotation
	if err := mc.client.post(ctx, "/public/quotations/"+url.PathEscape(token), sub, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
