package client

import (
	"context"
	"fmt"
	"net/url"
	"time"
)

// InternmentsClient accesses the internment lifecycle endpoints.
type InternmentsClient struct {
	client *Client
}

// Internment is the wire shape of an internment resource.
type Internment struct {
	ID            string              `json:"id"`
	ProviderID    string              `json:"provider_id"`
	PatientID     string              `json:"patient_id"`
	DiagnosisCode string              `json:"diagnosis_code"`
	Status        string              `json:"status"`
	AdmissionAt   time.Time           `json:"admission_at"`
	EgressDate    *time.Time          `json:"egress_date,omitempty"`
	EgressReason  string              `json:"egress_reason,omitempty"`
	Extensions    []*ExtensionRequest `json:"extensions"`
	AuditRequest  *AuditRequest       `json:"audit_request,omitempty"`
	Events        []*InternmentEvent  `json:"events"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`

	// Business-time age, present on single-resource reads.
	ElapsedBusinessHours int `json:"elapsed_business_hours,omitempty"`
	ElapsedBusinessDays  int `json:"elapsed_business_days,omitempty"`
}

// ExtensionRequest is a coverage extension attached to an internment.
type ExtensionRequest struct {
	ID            string     `json:"id"`
	InternmentID  string     `json:"internment_id"`
	RequestedDays int        `json:"requested_days"`
	Justification string     `json:"justification"`
	Status        string     `json:"status"`
	AuditorID     string     `json:"auditor_id,omitempty"`
	AuditComment  string     `json:"audit_comment,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	ResolvedAt    *time.Time `json:"resolved_at,omitempty"`
}

// AuditRequest marks an internment as sent to medical audit.
type AuditRequest struct {
	ID           string    `json:"id"`
	InternmentID string    `json:"internment_id"`
	RequestedBy  string    `json:"requested_by"`
	Reason       string    `json:"reason"`
	CreatedAt    time.Time `json:"created_at"`
}

// InternmentEvent is one entry of an internment's audit trail.
type InternmentEvent struct {
	ID          string    `json:"id"`
	EventType   string    `json:"event_type"`
	Description string    `json:"description"`
	TriggeredBy string    `json:"triggered_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// ReportInternmentRequest registers a new internment.  The provider is taken
// from the bearer token; it cannot be set through the body.
type ReportInternmentRequest struct {
	PatientID     string    `json:"patient_id"`
	DiagnosisCode string    `json:"diagnosis_code"`
	AdmissionAt   time.Time `json:"admission_at"`
}

// ExtensionRequestInput asks for a coverage extension.
type ExtensionRequestInput struct {
	RequestedDays int    `json:"requested_days"`
	Justification string `json:"justification"`
}

// FinalizeRequest closes an internment with its egress data.
type FinalizeRequest struct {
	EgressDate   time.Time `json:"egress_date"`
	EgressReason string    `json:"egress_reason"`
}

// ResolveExtensionRequest carries the auditor verdict on an extension.
type ResolveExtensionRequest struct {
	Approved bool   `json:"approved"`
	Comment  string `json:"comment"`
}

// ListInternmentsOptions controls pagination of List.
type ListInternmentsOptions struct {
	Page     int
	PageSize int
}

// Report registers a new internment for the authenticated provider.
func (ic *InternmentsClient) Report(ctx context.Context, req ReportInternmentRequest) (*Internment, error) {
	var out Internment
	if err := ic.client.post(ctx, "/api/v1/internments", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Get fetches one internment with its business-time age.
func (ic *InternmentsClient) Get(ctx context.Context, id string) (*Internment, error) {
	var out Internment
	if err := ic.client.get(ctx, "/api/v1/internments/"+url.PathEscape(id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// List returns the authenticated provider's internments, newest first.
func (ic *InternmentsClient) List(ctx context.Context, opts ListInternmentsOptions) ([]*Internment, *Pagination, error) {
	path := "/api/v1/internments"
	if opts.Page > 0 || opts.PageSize > 0 {
		path = fmt.Sprintf("%s?page=%d&page_size=%d", path, opts.Page, opts.PageSize)
	}
	var out []*Internment
	p, err := ic.client.do(ctx, "GET", path, nil, &out)
	if err != nil {
		return nil, nil, err
	}
	return out, p, nil
}

// RequestExtension asks for a coverage extension on an active internment.
func (ic *InternmentsClient) RequestExtension(ctx context.Context, id string, req ExtensionRequestInput) (*Internment, error) {
	var out Internment
	if err := ic.client.post(ctx, "/api/v1/internments/"+url.PathEscape(id)+"/extensions", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Finalize closes an internment.  Only the owning provider may finalize.
func (ic *InternmentsClient) Finalize(ctx context.Context, id string, req FinalizeRequest) (*Internment, error) {
	var out Internment
	if err := ic.client.post(ctx, "/api/v1/internments/"+url.PathEscape(id)+"/finalize", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SendToAudit flags an internment for medical audit (operator role).
func (ic *InternmentsClient) SendToAudit(ctx context.Context, id string, reason string) (*Internment, error) {
	body := map[string]string{"reason": reason}
	var out Internment
	if err := ic.client.post(ctx, "/api/v1/internments/"+url.PathEscape(id)+"/audit", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ResolveExtension records the auditor verdict on a pending extension.
func (ic *InternmentsClient) ResolveExtension(ctx context.Context, id, extensionID string, req ResolveExtensionRequest) (*Internment, error) {
	path := "/api/v1/internments/" + url.PathEscape(id) + "/extensions/" + url.PathEscape(extensionID) + "/resolve"
	var out Internment
	if err := ic.client.post(ctx, path, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
