// Package medications orchestrates high-cost medication requests and their
// quotation rounds: round opening with tokenized pharmacy slots, public
// token-scoped submission, and the final authorization that resolves the
// round atomically.
package medications

import (
	"context"
	"fmt"
	"time"

	"github.com/saludplena/claims-engine/internal/domain/calendar"
	"github.com/saludplena/claims-engine/internal/domain/medication"
	"github.com/saludplena/claims-engine/internal/domain/notification"
	"github.com/saludplena/claims-engine/internal/infrastructure/messaging/kafka"
	"github.com/saludplena/claims-engine/internal/infrastructure/monitoring/logging"
	"github.com/saludplena/claims-engine/internal/infrastructure/monitoring/prometheus"
	"github.com/saludplena/claims-engine/pkg/errors"
	"github.com/saludplena/claims-engine/pkg/types/common"
)

const eventSource = "claims-engine.medications"

// EventPublisher publishes domain events to the message bus.
type EventPublisher interface {
	Publish(ctx context.Context, msg *common.ProducerMessage) error
}

// Config holds the quotation round parameters.
type Config struct {
	// PharmacyQuorum is the minimum number of distinct pharmacies per round.
	PharmacyQuorum int
	// DeadlineBusinessHours is the business-hour budget for submissions.
	DeadlineBusinessHours int
}

// Service exposes the medication request use cases.
type Service struct {
	repo          medication.Repository
	notifications notification.Repository
	calc          *calendar.Calculator
	publisher     EventPublisher
	metrics       *prometheus.AppMetrics
	logger        logging.Logger
	cfg           Config
}

// NewService wires a medication service. The publisher and metrics may be
// nil; events and metrics are then skipped.
func NewService(
	repo medication.Repository,
	notifications notification.Repository,
	calc *calendar.Calculator,
	publisher EventPublisher,
	metrics *prometheus.AppMetrics,
	logger logging.Logger,
	cfg Config,
) (*Service, error) {
	if repo == nil {
		return nil, errors.InvalidParam("medication repository cannot be nil")
	}
	if calc == nil {
		return nil, errors.InvalidParam("business calendar cannot be nil")
	}
	if cfg.PharmacyQuorum < 1 {
		return nil, errors.InvalidParam("pharmacy quorum must be positive")
	}
	if cfg.DeadlineBusinessHours < 1 {
		return nil, errors.InvalidParam("deadline business hours must be positive")
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
		cfg:           cfg,
	}, nil
}

// ─────────────────────────────────────────────────────────────
// Inputs and outputs
// ─────────────────────────────────────────────────────────────

// CreateInput carries a new medication request.
type CreateInput struct {
	PatientID   string                 `json:"patient_id"`
	RequestedBy string                 `json:"-"`
	Items       []medication.ItemInput `json:"items"`
}

// SendToQuotationInput selects the pharmacies invited to quote.
type SendToQuotationInput struct {
	PharmacyIDs []string `json:"pharmacy_ids"`
}

// AuthorizeInput picks the winning quotation.
type AuthorizeInput struct {
	QuotationID string `json:"quotation_id"`
	AuditorID   string `json:"-"`
}

// PublicItem is the reduced item shape exposed on the public endpoint.
type PublicItem struct {
	DrugCode string  `json:"drug_code,omitempty"`
	DrugName string  `json:"drug_name"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit,omitempty"`
}

// PublicQuotation is the token-scoped view served to a pharmacy. While the
// quotation is pending it carries only the item to price and the deadline;
// once resolved it also reflects the submitted values.
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

// ─────────────────────────────────────────────────────────────
// Commands
// ─────────────────────────────────────────────────────────────

// Create registers a medication request in CREADA status with a pending
// quotation round.
func (s *Service) Create(ctx context.Context, input CreateInput) (*medication.Request, error) {
	req, err := medication.NewRequest(input.PatientID, input.RequestedBy,
		s.cfg.PharmacyQuorum, s.cfg.DeadlineBusinessHours, input.Items)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, req); err != nil {
		return nil, err
	}

	s.logger.Info("medication request created",
		logging.String("request_id", req.ID),
		logging.Int("items", len(req.Items)))
	s.publishRequestEvent(ctx, kafka.TopicMedicationRequested, "medication.requested", req)
	return req, nil
}

// SendToQuotation opens the quotation round. The deadline is the admission
// time advanced by the configured budget in business hours, so weekends and
// public holidays never consume a pharmacy's time to respond.
func (s *Service) SendToQuotation(ctx context.Context, requestID string, input SendToQuotationInput) (*medication.Request, error) {
	now := time.Now().UTC()
	deadline, err := s.calc.AddBusinessHours(ctx, now, s.cfg.DeadlineBusinessHours)
	if err != nil {
		return nil, err
	}

	req, err := s.repo.Mutate(ctx, requestID, func(r *medication.Request) error {
		return r.SendToQuotation(input.PharmacyIDs, deadline)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("quotation round opened",
		logging.String("request_id", req.ID),
		logging.Int("quotations", req.SentCount),
		logging.Any("deadline", deadline))
	if s.metrics != nil {
		s.metrics.QuotationRoundsOpenedTotal.WithLabelValues("false").Inc()
	}
	s.publishRequestEvent(ctx, kafka.TopicMedicationRoundOpened, "medication.round_opened", req)
	return req, nil
}

// SubmitQuotation records a pharmacy submission against its token. Expired,
// consumed and unknown tokens all surface as not found.
func (s *Service) SubmitQuotation(ctx context.Context, token string, sub medication.QuotationSubmission) (*PublicQuotation, error) {
	req, err := s.repo.GetByQuotationToken(ctx, token)
	if err != nil {
		return nil, hideTokenState(err)
	}

	var submitted *medication.Quotation
	req, err = s.repo.Mutate(ctx, req.ID, func(r *medication.Request) error {
		q, err := r.SubmitQuotation(token, sub, time.Now().UTC())
		if err != nil {
			return err
		}
		submitted = q
		return nil
	})
	if err != nil {
		return nil, hideTokenState(err)
	}

	s.logger.Info("quotation submitted",
		logging.String("request_id", req.ID),
		logging.String("quotation_id", submitted.ID))
	if s.metrics != nil {
		s.metrics.QuotationsSubmittedTotal.WithLabelValues("accepted").Inc()
	}
	s.publishRequestEvent(ctx, kafka.TopicMedicationQuoted, "medication.quotation_submitted", req)
	return s.publicView(req, submitted), nil
}

// Authorize resolves the round in favor of one quotation.
func (s *Service) Authorize(ctx context.Context, requestID string, input AuthorizeInput) (*medication.Request, error) {
	req, err := s.repo.Mutate(ctx, requestID, func(r *medication.Request) error {
		return r.Authorize(input.QuotationID, input.AuditorID)
	})
	if err != nil {
		if s.metrics != nil {
			s.metrics.AuthorizationsTotal.WithLabelValues("rejected").Inc()
		}
		return nil, err
	}

	s.logger.Info("medication request authorized",
		logging.String("request_id", req.ID),
		logging.String("quotation_id", input.QuotationID),
		logging.String("auditor_id", input.AuditorID))
	if s.metrics != nil {
		s.metrics.AuthorizationsTotal.WithLabelValues("authorized").Inc()
	}
	s.publishRequestEvent(ctx, kafka.TopicMedicationAuthorized, "medication.authorized", req)

	if req.Winner != nil {
		s.notifyProvider(ctx, req, notification.KindQuotationAuthorized,
			fmt.Sprintf("Medicación autorizada: %s (farmacia %s)",
				req.Winner.DrugName, req.Winner.PharmacyID))
	}
	return req, nil
}

// ─────────────────────────────────────────────────────────────
// Queries
// ─────────────────────────────────────────────────────────────

// Get loads one medication request with its items and quotations.
func (s *Service) Get(ctx context.Context, requestID string) (*medication.Request, error) {
	return s.repo.GetByID(ctx, requestID)
}

// GetPublicQuotation serves the token-scoped pharmacy view. Expired and
// unknown tokens surface as not found.
func (s *Service) GetPublicQuotation(ctx context.Context, token string) (*PublicQuotation, error) {
	req, err := s.repo.GetByQuotationToken(ctx, token)
	if err != nil {
		return nil, hideTokenState(err)
	}
	q := req.FindQuotationByToken(token)
	if q == nil {
		return nil, errors.New(errors.ErrCodeTokenNotFound, "quotation token not found")
	}
	// A pending quotation past its expiry reads as gone even before the
	// expiry job has swept it.
	if q.Status == medication.QuotationPendiente && !time.Now().UTC().Before(q.TokenExpiresAt) {
		return nil, errors.New(errors.ErrCodeTokenNotFound, "quotation token not found")
	}
	return s.publicView(req, q), nil
}

func (s *Service) publicView(req *medication.Request, q *medication.Quotation) *PublicQuotation {
	view := &PublicQuotation{
		Token:          q.Token,
		Status:         string(q.Status),
		TokenExpiresAt: q.TokenExpiresAt,
	}
	if item := req.FindItem(q.ItemID); item != nil {
		view.Item = PublicItem{
			DrugCode: item.DrugCode,
			DrugName: item.DrugName,
			Quantity: item.Quantity,
			Unit:     item.Unit,
		}
	}
	if q.Status != medication.QuotationPendiente {
		view.UnitPrice = q.UnitPrice
		view.TotalPrice = q.TotalPrice
		view.Availability = q.Availability
		view.Notes = q.Notes
		view.QuotedAt = q.QuotedAt
	}
	return view
}

// ─────────────────────────────────────────────────────────────
// Internals
// ─────────────────────────────────────────────────────────────

// hideTokenState maps token-state conflicts to the same not-found error an
// unknown token yields, so a caller cannot probe round state.
func hideTokenState(err error) error {
	if errors.IsCode(err, errors.ErrCodeTokenConsumed) ||
		errors.IsCode(err, errors.ErrCodeQuotationExpired) {
		return errors.New(errors.ErrCodeTokenNotFound, "quotation token not found")
	}
	return err
}

func (s *Service) publishRequestEvent(ctx context.Context, topic, eventType string, req *medication.Request) {
	if s.publisher == nil {
		return
	}
	envelope, err := kafka.NewEventEnvelope(eventType, eventSource, kafka.MedicationEventPayload{
		RequestID:  req.ID,
		PatientID:  req.PatientID,
		Status:     string(req.Status),
		OccurredAt: req.UpdatedAt,
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
	msg.Key = []byte(req.ID)
	if err := s.publisher.Publish(ctx, msg); err != nil {
		s.logger.Warn("event publish failed",
			logging.String("topic", topic), logging.Err(err))
	}
}

func (s *Service) notifyProvider(ctx context.Context, req *medication.Request, kind notification.Kind, message string) {
	if s.notifications == nil {
		return
	}
	n, err := notification.ForRequest(req.RequestedBy, req.ID, kind, message)
	if err != nil {
		s.logger.Warn("notification build failed", logging.Err(err))
		return
	}
	inserted, err := s.notifications.CreateDeduplicated(ctx, n)
	if err != nil {
		s.logger.Warn("notification create failed",
			logging.String("request_id", req.ID), logging.Err(err))
		return
	}
	if s.metrics != nil {
		prometheus.RecordNotification(s.metrics, string(kind), inserted)
	}
}
