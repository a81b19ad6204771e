// Package escalation implements the scheduled deadline jobs: automatic
// inactivation of unconfirmed internments, automatic finalization of
// unextended active internments, and quotation round expiry. Each job is
// serialized by a distributed lock, scans a bounded candidate batch and
// processes one record per transaction so a single bad record never aborts
// the run.
package escalation

import (
	"context"
	"fmt"
	"time"

	"github.com/saludplena/claims-engine/internal/domain/calendar"
	"github.com/saludplena/claims-engine/internal/domain/internment"
	"github.com/saludplena/claims-engine/internal/domain/medication"
	"github.com/saludplena/claims-engine/internal/domain/notification"
	"github.com/saludplena/claims-engine/internal/infrastructure/database/redis"
	"github.com/saludplena/claims-engine/internal/infrastructure/messaging/kafka"
	"github.com/saludplena/claims-engine/internal/infrastructure/monitoring/logging"
	"github.com/saludplena/claims-engine/internal/infrastructure/monitoring/prometheus"
	"github.com/saludplena/claims-engine/pkg/errors"
	"github.com/saludplena/claims-engine/pkg/types/common"
)

const eventSource = "claims-engine.escalation"

// Job lock names. One lock per job so different jobs may overlap.
const (
	lockInactivation    = "jobs:internments:inactivate"
	lockFinalization    = "jobs:internments:finalize"
	lockQuotationExpiry = "jobs:medications:expire-quotations"
)

// EventPublisher publishes domain events to the message bus.
type EventPublisher interface {
	Publish(ctx context.Context, msg *common.ProducerMessage) error
}

// Config holds the escalation thresholds and scan bounds.
type Config struct {
	// InactivityThresholdHours is the business-hour age at which an
	// unconfirmed or unextended internment escalates.
	InactivityThresholdHours int
	// PreDeadlineWindowHours is the business-hour age at which a warning
	// notification is emitted, up to but not including the threshold.
	PreDeadlineWindowHours int
	// BatchLimit caps the candidates scanned per run.
	BatchLimit int
	// LockTTL bounds how long a job run may hold its lock.
	LockTTL time.Duration
}

// InactivationSummary reports one inactivation job run.
type InactivationSummary struct {
	Inactivated int `json:"inactivated"`
	Notified    int `json:"notified"`
	Failed      int `json:"failed"`
}

// FinalizationSummary reports one finalization job run.
type FinalizationSummary struct {
	Finalized int `json:"finalized"`
	Notified  int `json:"notified"`
	Failed    int `json:"failed"`
}

// ExpirySummary reports one quotation expiry job run.
type ExpirySummary struct {
	Expired  int `json:"expired"`
	Closed   int `json:"closed"`
	Notified int `json:"notified"`
	Failed   int `json:"failed"`
}

// Service runs the scheduled escalation jobs.
type Service struct {
	internments   internment.Repository
	medications   medication.Repository
	notifications notification.Repository
	calc          *calendar.Calculator
	locks         redis.LockFactory
	publisher     EventPublisher
	metrics       *prometheus.AppMetrics
	logger        logging.Logger
	cfg           Config

	now func() time.Time
}

// NewService wires the escalation service. The publisher and metrics may be
// nil; events and metrics are then skipped.
func NewService(
	internments internment.Repository,
	medications medication.Repository,
	notifications notification.Repository,
	calc *calendar.Calculator,
	locks redis.LockFactory,
	publisher EventPublisher,
	metrics *prometheus.AppMetrics,
	logger logging.Logger,
	cfg Config,
) (*Service, error) {
	if internments == nil {
		return nil, errors.InvalidParam("internment repository cannot be nil")
	}
	if medications == nil {
		return nil, errors.InvalidParam("medication repository cannot be nil")
	}
	if notifications == nil {
		return nil, errors.InvalidParam("notification repository cannot be nil")
	}
	if calc == nil {
		return nil, errors.InvalidParam("business calendar cannot be nil")
	}
	if locks == nil {
		return nil, errors.InvalidParam("lock factory cannot be nil")
	}
	if cfg.InactivityThresholdHours < 1 {
		return nil, errors.InvalidParam("inactivity threshold must be positive")
	}
	if cfg.PreDeadlineWindowHours < 1 || cfg.PreDeadlineWindowHours >= cfg.InactivityThresholdHours {
		return nil, errors.InvalidParam("pre-deadline window must be positive and below the threshold")
	}
	if cfg.BatchLimit < 1 {
		cfg.BatchLimit = 500
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 5 * time.Minute
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Service{
		internments:   internments,
		medications:   medications,
		notifications: notifications,
		calc:          calc,
		locks:         locks,
		publisher:     publisher,
		metrics:       metrics,
		logger:        logger,
		cfg:           cfg,
		now:           func() time.Time { return time.Now().UTC() },
	}, nil
}

// ─────────────────────────────────────────────────────────────
// Inactivation job
// ─────────────────────────────────────────────────────────────

// InactivateStale retires INICIADA internments whose business-hour age has
// reached the threshold and warns providers about those approaching it.
func (s *Service) InactivateStale(ctx context.Context) (*InactivationSummary, error) {
	started := s.now()
	summary := &InactivationSummary{}
	err := s.withLock(ctx, lockInactivation, func(ctx context.Context) error {
		// Business-hour age never exceeds wall-clock age, so any record
		// inside the warning window was admitted at least that many wall
		// hours ago. The exact check runs per record below.
		cutoff := started.Add(-time.Duration(s.cfg.PreDeadlineWindowHours) * time.Hour)
		candidates, err := s.internments.ListInactivationCandidates(ctx, cutoff, s.cfg.BatchLimit)
		if err != nil {
			return err
		}

		for _, candidate := range candidates {
			hours, err := s.calc.ElapsedBusinessHours(ctx, candidate.AdmissionAt, started)
			if err != nil {
				summary.Failed++
				s.logger.Error("business-hour computation failed",
					logging.String("internment_id", candidate.ID), logging.Err(err))
				continue
			}

			switch {
			case hours >= s.cfg.InactivityThresholdHours:
				if s.inactivateOne(ctx, candidate.ID, &summary.Notified) {
					summary.Inactivated++
				} else {
					summary.Failed++
				}
			case hours >= s.cfg.PreDeadlineWindowHours:
				if s.warnProvider(ctx, candidate, hours) {
					summary.Notified++
				}
			}
		}
		return nil
	})

	s.recordRun(ctx, "inactivation", started, summary.Inactivated+summary.Notified, summary.Failed, err)
	if err != nil {
		return nil, err
	}
	return summary, nil
}

// inactivateOne marks a single internment INACTIVA in its own transaction.
// The status guard re-runs under the row lock, so a provider action that
// raced the scan simply makes this record a no-op.
func (s *Service) inactivateOne(ctx context.Context, id string, notified *int) bool {
	in, err := s.internments.Mutate(ctx, id, func(in *internment.Internment) error {
		return in.MarkInactive()
	})
	if err != nil {
		if errors.IsCode(err, errors.ErrCodeInvalidTransition) {
			// Escalated between scan and lock; nothing to do.
			return true
		}
		s.logger.Error("inactivation failed",
			logging.String("internment_id", id), logging.Err(err))
		return false
	}

	s.logger.Info("internment inactivated", logging.String("internment_id", in.ID))
	if s.metrics != nil {
		prometheus.RecordTransition(s.metrics,
			string(internment.StatusIniciada), string(in.Status), "inactivation_job")
	}
	s.publishInternmentEvent(ctx, kafka.TopicInternmentInactivated, "internment.inactivated", in)
	if s.notifyInternment(ctx, in, notification.KindInternmentInactivated,
		"La internación fue dada de baja automáticamente por falta de confirmación") {
		*notified++
	}
	return true
}

func (s *Service) warnProvider(ctx context.Context, in *internment.Internment, hours int) bool {
	remaining := s.cfg.InactivityThresholdHours - hours
	return s.notifyInternment(ctx, in, notification.KindInternmentNearingDeadline,
		fmt.Sprintf("La internación vence en %d horas hábiles si no se solicita extensión", remaining))
}

// ─────────────────────────────────────────────────────────────
// Finalization job
// ─────────────────────────────────────────────────────────────

// FinalizeExpired closes ACTIVA internments that carry no extension
// requests once their coverage window has run out, and warns providers
// about those approaching it.
func (s *Service) FinalizeExpired(ctx context.Context) (*FinalizationSummary, error) {
	started := s.now()
	summary := &FinalizationSummary{}
	err := s.withLock(ctx, lockFinalization, func(ctx context.Context) error {
		cutoff := started.Add(-time.Duration(s.cfg.PreDeadlineWindowHours) * time.Hour)
		candidates, err := s.internments.ListFinalizationCandidates(ctx, cutoff, s.cfg.BatchLimit)
		if err != nil {
			return err
		}

		for _, candidate := range candidates {
			hours, err := s.calc.ElapsedBusinessHours(ctx, candidate.AdmissionAt, started)
			if err != nil {
				summary.Failed++
				s.logger.Error("business-hour computation failed",
					logging.String("internment_id", candidate.ID), logging.Err(err))
				continue
			}

			switch {
			case hours >= s.cfg.InactivityThresholdHours:
				if s.finalizeOne(ctx, candidate.ID, started, &summary.Notified) {
					summary.Finalized++
				} else {
					summary.Failed++
				}
			case hours >= s.cfg.PreDeadlineWindowHours:
				if s.warnProvider(ctx, candidate, hours) {
					summary.Notified++
				}
			}
		}
		return nil
	})

	s.recordRun(ctx, "finalization", started, summary.Finalized+summary.Notified, summary.Failed, err)
	if err != nil {
		return nil, err
	}
	return summary, nil
}

func (s *Service) finalizeOne(ctx context.Context, id string, egressDate time.Time, notified *int) bool {
	in, err := s.internments.Mutate(ctx, id, func(in *internment.Internment) error {
		return in.AutoFinalize(egressDate)
	})
	if err != nil {
		if errors.IsCode(err, errors.ErrCodeInvalidTransition) {
			// An extension or finalization raced the scan.
			return true
		}
		s.logger.Error("auto finalization failed",
			logging.String("internment_id", id), logging.Err(err))
		return false
	}

	s.logger.Info("internment auto-finalized", logging.String("internment_id", in.ID))
	if s.metrics != nil {
		prometheus.RecordTransition(s.metrics,
			string(internment.StatusActiva), string(in.Status), "finalization_job")
	}
	s.publishInternmentEvent(ctx, kafka.TopicInternmentFinalized, "internment.finalized", in)
	if s.notifyInternment(ctx, in, notification.KindInternmentAutoFinalized,
		"La internación fue finalizada automáticamente al cierre de su ventana de cobertura") {
		*notified++
	}
	return true
}

// ─────────────────────────────────────────────────────────────
// Quotation expiry job
// ─────────────────────────────────────────────────────────────

// ExpireQuotations flips pending quotations past their round deadline to
// VENCIDA and closes rounds that can no longer receive submissions.
func (s *Service) ExpireQuotations(ctx context.Context) (*ExpirySummary, error) {
	started := s.now()
	summary := &ExpirySummary{}
	err := s.withLock(ctx, lockQuotationExpiry, func(ctx context.Context) error {
		candidates, err := s.medications.ListExpiryCandidates(ctx, started, s.cfg.BatchLimit)
		if err != nil {
			return err
		}

		for _, candidate := range candidates {
			expired, closed := 0, false
			req, err := s.medications.Mutate(ctx, candidate.ID, func(r *medication.Request) error {
				expired = r.ExpireQuotations(started)
				closed = r.CloseRound(started)
				return nil
			})
			if err != nil {
				summary.Failed++
				s.logger.Error("quotation expiry failed",
					logging.String("request_id", candidate.ID), logging.Err(err))
				continue
			}

			summary.Expired += expired
			if closed {
				summary.Closed++
			}
			if expired == 0 {
				continue
			}

			s.logger.Info("quotations expired",
				logging.String("request_id", req.ID),
				logging.Int("expired", expired),
				logging.Bool("closed", closed))
			s.publishRequestEvent(ctx, kafka.TopicMedicationRoundExpired, "medication.round_expired", req)
			if s.notifyRequest(ctx, req, notification.KindQuotationRoundExpired,
				fmt.Sprintf("El plazo de cotización venció con %d cotizaciones sin respuesta", expired)) {
				summary.Notified++
			}
		}
		return nil
	})

	s.recordRun(ctx, "quotation_expiry", started, summary.Expired, summary.Failed, err)
	if err != nil {
		return nil, err
	}
	return summary, nil
}

// ─────────────────────────────────────────────────────────────
// Internals
// ─────────────────────────────────────────────────────────────

// withLock runs fn under the named distributed lock. A run that finds the
// lock taken reports a conflict instead of waiting.
func (s *Service) withLock(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	mutex := s.locks.NewMutex(name, redis.WithLockTTL(s.cfg.LockTTL))
	acquired, err := mutex.TryLock(ctx)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "lock acquisition failed")
	}
	if !acquired {
		return errors.New(errors.ErrCodeJobAlreadyRunning, "job is already running")
	}
	defer func() {
		if err := mutex.Unlock(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("lock release failed",
				logging.String("lock", name), logging.Err(err))
		}
	}()
	return fn(ctx)
}

func (s *Service) recordRun(ctx context.Context, job string, started time.Time, processed, failed int, err error) {
	duration := s.now().Sub(started)
	if err != nil {
		s.logger.Error("job run failed",
			logging.String("job", job),
			logging.Duration("duration", duration),
			logging.Err(err))
	} else {
		s.logger.Info("job run completed",
			logging.String("job", job),
			logging.Duration("duration", duration),
			logging.Int("processed", processed),
			logging.Int("failed", failed))
	}
	if s.metrics != nil {
		prometheus.RecordJobRun(s.metrics, job, duration, processed, failed, err)
	}
}

func (s *Service) notifyInternment(ctx context.Context, in *internment.Internment, kind notification.Kind, message string) bool {
	n, err := notification.ForInternment(in.ProviderID, in.ID, kind, message)
	if err != nil {
		s.logger.Warn("notification build failed", logging.Err(err))
		return false
	}
	return s.deliver(ctx, n)
}

func (s *Service) notifyRequest(ctx context.Context, req *medication.Request, kind notification.Kind, message string) bool {
	n, err := notification.ForRequest(req.RequestedBy, req.ID, kind, message)
	if err != nil {
		s.logger.Warn("notification build failed", logging.Err(err))
		return false
	}
	return s.deliver(ctx, n)
}

func (s *Service) deliver(ctx context.Context, n *notification.Notification) bool {
	inserted, err := s.notifications.CreateDeduplicated(ctx, n)
	if err != nil {
		s.logger.Warn("notification create failed",
			logging.String("provider_id", n.ProviderID), logging.Err(err))
		return false
	}
	if s.metrics != nil {
		prometheus.RecordNotification(s.metrics, string(n.Kind), inserted)
	}
	return inserted
}

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
