// Package internments orchestrates the internment lifecycle: provider
// reporting, coverage extensions, finalization and the manual audit
// hand-off. Domain rules live on the aggregate; this layer adds
// persistence, business-time context, events and notifications.
package internments

import (
	"context"
	"fmt"
	"time"

	"github.com/saludplena/claims-engine/internal/domain/calendar"
	"github.com/saludplena/claims-engine/internal/domain/internment"
	"github.com/saludplena/claims-engine/internal/domain/notification"
	"github.com/saludplena/claims-engine/internal/infrastructure/messaging/kafka"
	"github.com/saludplena/claims-engine/internal/infrastructure/monitoring/logging"
	"github.com/saludplena/claims-engine/internal/infrastructure/monitoring/prometheus"
	"github.com/saludplena/claims-engine/pkg/errors"
	"github.com/saludplena/claims-engine/pkg/types/common"
)

const eventSource = "claims-engine.internments"

// EventPublisher publishes domain events to the message bus.
type EventPublisher interface {
	Publish(ctx context.Context, msg *common.ProducerMessage) error
}

// Service exposes the internment use cases.
type Service struct {
	repo          internment.Repository
	notifications notification.Repository
	calc          *calendar.Calculator
	publisher     EventPublisher
	metrics       *prometheus.AppMetrics
	logger        logging.Logger

	now func() time.Time
}

// NewService wires an internment service. The publisher and metrics may be
// nil; events and metrics are then skipped.
func NewService(
	repo internment.Repository,
	notifications notification.Repository,
	calc *calendar.Calculator,
	publisher EventPublisher,
	metrics *prometheus.AppMetrics,
	logger logging.Logger,
) (*Service, error) {
	if repo == nil {
		return nil, errors.InvalidParam("internment repository cannot be nil")
	}
	if calc == nil {
		return nil, errors.InvalidParam("business calendar cannot be nil")
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Service{
		repo:          repo,
		notifications: notifications,
		calc:          calc,
		publisher:     publisher,
		metrics:       metrics,
		logger:        logger,
		now:           time.Now,
	}, nil
}

// ─────────────────────────────────────────────────────────────
// Inputs and outputs
// ─────────────────────────────────────────────────────────────

// ReportInput carries the provider's internment report.
type ReportInput struct {
	ProviderID    string    `json:"provider_id"`
	PatientID     string    `json:"patient_id"`
	DiagnosisCode string    `json:"diagnosis_code"`
	AdmissionAt   time.Time `json:"admission_at"`
}

// ExtensionInput carries a coverage extension request.
type ExtensionInput struct {
	RequestedDays int    `json:"requested_days"`
	Justification string `json:"justification"`
}

// FinalizeInput carries the egress data for a finalization.
type FinalizeInput struct {
	ProviderID   string    `json:"-"`
	EgressDate   time.Time `json:"egress_date"`
	EgressReason string    `json:"egress_reason"`
}

// ResolveExtensionInput carries the auditor verdict.
type ResolveExtensionInput struct {
	AuditorID string `json:"-"`
	Approved  bool   `json:"approved"`
	Comment   string `json:"comment"`
}

// Detail is an internment enriched with its business-time age.
type Detail struct {
	*internment.Internment
	ElapsedBusinessHours int `json:"elapsed_business_hours"`
	ElapsedBusinessDays  int `json:"elapsed_business_days"`
}

// ─────────────────────────────────────────────────────────────
// Commands
// ─────────────────────────────────────────────────────────────

// Report registers a new internment in INICIADA status.
func (s *Service) Report(ctx context.Context, input ReportInput) (*internment.Internment, error) {
	in, err := internment.NewInternment(input.ProviderID, input.PatientID, input.DiagnosisCode, input.AdmissionAt)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, in); err != nil {
		return nil, err
	}

	s.logger.Info("internment reported",
		logging.String("internment_id", in.ID),
		logging.String("provider_id", in.ProviderID))
	if s.metrics != nil {
		s.metrics.InternmentsReportedTotal.WithLabelValues(in.ProviderID).Inc()
	}
	s.publishInternmentEvent(ctx, kafka.TopicInternmentReported, "internment.reported", in)
	return in, nil
}

// RequestExtension files a coverage extension. The first extension on an
// INICIADA internment activates it.
func (s *Service) RequestExtension(ctx context.Context, internmentID string, input ExtensionInput) (*internment.Internment, error) {
	var from internment.Status
	in, err := s.repo.Mutate(ctx, internmentID, func(in *internment.Internment) error {
		from = in.Status
		_, err := in.RequestExtension(input.RequestedDays, input.Justification)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("extension requested",
		logging.String("internment_id", in.ID),
		logging.Int("requested_days", input.RequestedDays))
	s.recordTransition(from, in.Status, "extension_requested")
	if s.metrics != nil {
		s.metrics.ExtensionRequestsTotal.WithLabelValues("filed").Inc()
	}
	s.publishInternmentEvent(ctx, kafka.TopicInternmentExtended, "internment.extension_requested", in)
	return in, nil
}

// Finalize closes an ACTIVA internment on behalf of its reporting provider.
func (s *Service) Finalize(ctx context.Context, internmentID string, input FinalizeInput) (*internment.Internment, error) {
	var from internment.Status
	in, err := s.repo.Mutate(ctx, internmentID, func(in *internment.Internment) error {
		from = in.Status
		return in.Finalize(input.ProviderID, input.EgressDate, input.EgressReason)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("internment finalized",
		logging.String("internment_id", in.ID),
		logging.String("provider_id", input.ProviderID))
	s.recordTransition(from, in.Status, "finalized")
	s.publishInternmentEvent(ctx, kafka.TopicInternmentFinalized, "internment.finalized", in)
	return in, nil
}

// SendToAudit hands an INICIADA internment to the medical audit team.
func (s *Service) SendToAudit(ctx context.Context, internmentID, requestedBy, reason string) (*internment.Internment, error) {
	var from internment.Status
	in, err := s.repo.Mutate(ctx, internmentID, func(in *internment.Internment) error {
		from = in.Status
		return in.SendToAudit(requestedBy, reason)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("internment sent to audit",
		logging.String("internment_id", in.ID),
		logging.String("requested_by", requestedBy))
	s.recordTransition(from, in.Status, "sent_to_audit")
	s.publishInternmentEvent(ctx, kafka.TopicInternmentSentToAudit, "internment.sent_to_audit", in)
	return in, nil
}

// Observe places an INICIADA internment under administrative observation.
func (s *Service) Observe(ctx context.Context, internmentID, requestedBy, reason string) (*internment.Internment, error) {
	var from internment.Status
	in, err := s.repo.Mutate(ctx, internmentID, func(in *internment.Internment) error {
		from = in.Status
		return in.Observe(requestedBy, reason)
	})
	if err != nil {
		return nil, err
	}
	s.recordTransition(from, in.Status, "observed")
	return in, nil
}

// ResolveExtension applies an auditor verdict to one extension request and
// notifies the reporting provider.
func (s *Service) ResolveExtension(ctx context.Context, internmentID, extensionID string, input ResolveExtensionInput) (*internment.Internment, error) {
	var resolved *internment.ExtensionRequest
	in, err := s.repo.Mutate(ctx, internmentID, func(in *internment.Internment) error {
		req, err := in.ResolveExtension(extensionID, input.AuditorID, input.Comment, input.Approved)
		if err != nil {
			return err
		}
		resolved = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	verdict := "rejected"
	outcome := "rechazada"
	if input.Approved {
		verdict = "approved"
		outcome = "aceptada"
	}
	s.logger.Info("extension resolved",
		logging.String("internment_id", in.ID),
		logging.String("extension_id", resolved.ID),
		logging.String("verdict", verdict))
	if s.metrics != nil {
		s.metrics.ExtensionRequestsTotal.WithLabelValues(outcome).Inc()
	}

	s.notifyProvider(ctx, in, notification.KindExtensionResolved,
		fmt.Sprintf("La extensión de cobertura fue %s por auditoría médica", verdict))
	return in, nil
}

// ─────────────────────────────────────────────────────────────
// Queries
// ─────────────────────────────────────────────────────────────

// Get loads one internment with its elapsed business time.
func (s *Service) Get(ctx context.Context, internmentID string) (*Detail, error) {
	in, err := s.repo.GetByID(ctx, internmentID)
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, in)
}

// ListByProvider lists a provider's internments, newest first.
func (s *Service) ListByProvider(ctx context.Context, providerID string, p common.Pagination) ([]*internment.Internment, error) {
	if providerID == "" {
		return nil, errors.InvalidParam("provider ID cannot be empty")
	}
	if err := p.Validate(); err != nil {
		return nil, errors.InvalidParam(err.Error())
	}
	return s.repo.ListByProvider(ctx, providerID, p.PageSize, p.Offset())
}

func (s *Service) detail(ctx context.Context, in *internment.Internment) (*Detail, error) {
	now := s.now().UTC()
	hours, err := s.calc.ElapsedBusinessHours(ctx, in.AdmissionAt, now)
	if err != nil {
		return nil, err
	}
	days, err := s.calc.BusinessDaysBetween(ctx, in.AdmissionAt, now)
	if err != nil {
		return nil, err
	}
	return &Detail{
		Internment:           in,
		ElapsedBusinessHours: hours,
		ElapsedBusinessDays:  days,
	}, nil
}

// ─────────────────────────────────────────────────────────────
// Internals
// ─────────────────────────────────────────────────────────────

func (s *Service) recordTransition(from, to internment.Status, trigger string) {
	if s.metrics == nil || from == to {
		return
	}
	prometheus.RecordTransition(s.metrics, string(from), string(to), trigger)
}

// publishInternmentEvent emits a best-effort domain event. Event delivery
// never fails the command that produced it.
func (s *Service) publishInternmentEvent(ctx context.Context, topic, eventType string, in *internment.Internment) {
	if s.publisher == nil {
		return
	}
	envelope, err := kafka.NewEventEnvelope(eventType, eventSource, kafka.InternmentEventPayload{
		InternmentID: in.ID,
		ProviderID:   in.ProviderID,
		PatientID:    in.PatientID,
		Status:       string(in.Status),
		OccurredAt:   in.UpdatedAt,
	})
	if err != nil {
		s.logger.Warn("event envelope build failed", logging.Err(err))
		return
	}
	msg, err := envelope.ToMessage(topic)
	if err != nil {
		s.logger.Warn("event message build failed", logging.Err(err))
		return
	}
	msg.Key = []byte(in.ID)
	if err := s.publisher.Publish(ctx, msg); err != nil {
		s.logger.Warn("event publish failed",
			logging.String("topic", topic), logging.Err(err))
	}
}

func (s *Service) notifyProvider(ctx context.Context, in *internment.Internment, kind notification.Kind, message string) {
	if s.notifications == nil {
		return
	}
	n, err := notification.ForInternment(in.ProviderID, in.ID, kind, message)
	if err != nil {
		s.logger.Warn("notification build failed", logging.Err(err))
		return
	}
	inserted, err := s.notifications.CreateDeduplicated(ctx, n)
	if err != nil {
		s.logger.Warn("notification create failed",
			logging.String("internment_id", in.ID), logging.Err(err))
		return
	}
	if s.metrics != nil {
		prometheus.RecordNotification(s.metrics, string(kind), inserted)
	}
}
