package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/saludplena/claims-engine/internal/domain/internment"
	"github.com/saludplena/claims-engine/internal/infrastructure/monitoring/logging"
	"github.com/saludplena/claims-engine/pkg/errors"
)

// internmentRepo persists internment aggregates across four tables:
// internments, internment_extensions, internment_events and
// internment_audit_requests.
type internmentRepo struct {
	baseRepo
}

// NewInternmentRepository creates a PostgreSQL-backed internment repository.
func NewInternmentRepository(db *sql.DB, logger logging.Logger) internment.Repository {
	return &internmentRepo{baseRepo{db: db, logger: logger}}
}

// ─────────────────────────────────────────────────────────────────────────────
// Writes
// ─────────────────────────────────────────────────────────────────────────────

func (r *internmentRepo) Create(ctx context.Context, in *internment.Internment) error {
	if err := in.Validate(); err != nil {
		return err
	}
	return r.withTx(ctx, func(tx *sql.Tx) error {
		const query = `
			INSERT INTO internments (
				id, provider_id, patient_id, diagnosis_code, status,
				admission_at, egress_date, egress_reason, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

		_, err := tx.ExecContext(ctx, query,
			in.ID, in.ProviderID, in.PatientID, nullString(in.DiagnosisCode),
			string(in.Status), in.AdmissionAt, nullTime(in.EgressDate),
			nullString(in.EgressReason), in.CreatedAt, in.UpdatedAt,
		)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to insert internment")
		}
		return r.persistChildren(ctx, tx, in)
	})
}

func (r *internmentRepo) Mutate(ctx context.Context, id string, fn internment.MutateFunc) (*internment.Internment, error) {
	var result *internment.Internment
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		in, err := r.getLocked(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := fn(in); err != nil {
			return err
		}

		const query = `
			UPDATE internments
			SET status = $2, egress_date = $3, egress_reason = $4, updated_at = $5
			WHERE id = $1`

		if _, err := tx.ExecContext(ctx, query,
			in.ID, string(in.Status), nullTime(in.EgressDate),
			nullString(in.EgressReason), in.UpdatedAt,
		); err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to update internment")
		}
		if err := r.persistChildren(ctx, tx, in); err != nil {
			return err
		}
		result = in
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// persistChildren upserts extensions and inserts events and the audit
// request. Events and audit requests are append-only, so conflicting rows
// are left untouched; extensions carry auditor verdicts and are updated.
func (r *internmentRepo) persistChildren(ctx context.Context, tx *sql.Tx, in *internment.Internment) error {
	const extQuery = `
		INSERT INTO internment_extensions (
			id, internment_id, requested_days, justification, status,
			auditor_id, audit_comment, created_at, resolved_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			auditor_id = EXCLUDED.auditor_id,
			audit_comment = EXCLUDED.audit_comment,
			resolved_at = EXCLUDED.resolved_at`

	for _, ext := range in.Extensions {
		if _, err := tx.ExecContext(ctx, extQuery,
			ext.ID, ext.InternmentID, ext.RequestedDays, ext.Justification,
			string(ext.Status), nullString(ext.AuditorID), nullString(ext.AuditComment),
			ext.CreatedAt, nullTime(ext.ResolvedAt),
		); err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to upsert extension request")
		}
	}

	const eventQuery = `
		INSERT INTO internment_events (
			id, internment_id, event_type, description, triggered_by, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING`

	for _, ev := range in.Events {
		if _, err := tx.ExecContext(ctx, eventQuery,
			ev.ID, in.ID, ev.EventType, ev.Description, ev.TriggeredBy, ev.CreatedAt,
		); err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to insert internment event")
		}
	}

	if in.AuditRequest != nil {
		const auditQuery = `
			INSERT INTO internment_audit_requests (
				id, internment_id, requested_by, reason, created_at
			) VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO NOTHING`

		if _, err := tx.ExecContext(ctx, auditQuery,
			in.AuditRequest.ID, in.AuditRequest.InternmentID,
			in.AuditRequest.RequestedBy, in.AuditRequest.Reason,
			in.AuditRequest.CreatedAt,
		); err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to insert audit request")
		}
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Reads
// ─────────────────────────────────────────────────────────────────────────────

const internmentColumns = `
	id, provider_id, patient_id, diagnosis_code, status,
	admission_at, egress_date, egress_reason, created_at, updated_at`

func (r *internmentRepo) GetByID(ctx context.Context, id string) (*internment.Internment, error) {
	query := `SELECT ` + internmentColumns + ` FROM internments WHERE id = $1`
	in, err := r.scanInternment(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}
	if err := r.loadChildren(ctx, r.db, in); err != nil {
		return nil, err
	}
	return in, nil
}

func (r *internmentRepo) getLocked(ctx context.Context, tx *sql.Tx, id string) (*internment.Internment, error) {
	query := `SELECT ` + internmentColumns + ` FROM internments WHERE id = $1 FOR UPDATE`
	in, err := r.scanInternment(tx.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}
	if err := r.loadChildren(ctx, tx, in); err != nil {
		return nil, err
	}
	return in, nil
}

func (r *internmentRepo) ListByProvider(ctx context.Context, providerID string, limit, offset int) ([]*internment.Internment, error) {
	query := `SELECT ` + internmentColumns + `
		FROM internments
		WHERE provider_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`
	return r.list(ctx, query, providerID, limit, offset)
}

func (r *internmentRepo) ListInactivationCandidates(ctx context.Context, cutoff time.Time, limit int) ([]*internment.Internment, error) {
	// Wall-clock elapsed time bounds business-hour elapsed time from above,
	// so admission_at <= cutoff is a superset of the records the caller
	// wants. The exact business-hour check happens in the service.
	query := `SELECT ` + internmentColumns + `
		FROM internments
		WHERE status = $1 AND admission_at <= $2
		ORDER BY admission_at ASC
		LIMIT $3`
	return r.list(ctx, query, string(internment.StatusIniciada), cutoff, limit)
}

func (r *internmentRepo) ListFinalizationCandidates(ctx context.Context, cutoff time.Time, limit int) ([]*internment.Internment, error) {
	query := `SELECT ` + internmentColumns + `
		FROM internments i
		WHERE i.status = $1
		  AND i.admission_at <= $2
		  AND NOT EXISTS (
			SELECT 1 FROM internment_extensions e WHERE e.internment_id = i.id
		  )
		ORDER BY i.admission_at ASC
		LIMIT $3`
	return r.list(ctx, query, string(internment.StatusActiva), cutoff, limit)
}

func (r *internmentRepo) list(ctx context.Context, query string, args ...interface{}) ([]*internment.Internment, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to query internments")
	}
	defer rows.Close()

	var result []*internment.Internment
	for rows.Next() {
		in, err := r.scanInternment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, in)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate internments")
	}

	for _, in := range result {
		if err := r.loadChildren(ctx, r.db, in); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (r *internmentRepo) scanInternment(s scanner) (*internment.Internment, error) {
	var (
		in           internment.Internment
		status       string
		diagnosis    sql.NullString
		egressDate   sql.NullTime
		egressReason sql.NullString
	)
	err := s.Scan(
		&in.ID, &in.ProviderID, &in.PatientID, &diagnosis, &status,
		&in.AdmissionAt, &egressDate, &egressReason, &in.CreatedAt, &in.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, errors.New(errors.ErrCodeInternmentNotFound, "internment not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan internment")
	}

	in.Status = internment.Status(status)
	in.DiagnosisCode = diagnosis.String
	in.EgressReason = egressReason.String
	if egressDate.Valid {
		t := egressDate.Time
		in.EgressDate = &t
	}
	in.Extensions = []*internment.ExtensionRequest{}
	in.Events = []*internment.Event{}
	return &in, nil
}

func (r *internmentRepo) loadChildren(ctx context.Context, exec queryExecutor, in *internment.Internment) error {
	if err := r.loadExtensions(ctx, exec, in); err != nil {
		return err
	}
	if err := r.loadEvents(ctx, exec, in); err != nil {
		return err
	}
	return r.loadAuditRequest(ctx, exec, in)
}

func (r *internmentRepo) loadExtensions(ctx context.Context, exec queryExecutor, in *internment.Internment) error {
	const query = `
		SELECT id, internment_id, requested_days, justification, status,
		       auditor_id, audit_comment, created_at, resolved_at
		FROM internment_extensions
		WHERE internment_id = $1
		ORDER BY created_at ASC`

	rows, err := exec.QueryContext(ctx, query, in.ID)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to query extension requests")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			ext        internment.ExtensionRequest
			status     string
			auditorID  sql.NullString
			comment    sql.NullString
			resolvedAt sql.NullTime
		)
		if err := rows.Scan(
			&ext.ID, &ext.InternmentID, &ext.RequestedDays, &ext.Justification,
			&status, &auditorID, &comment, &ext.CreatedAt, &resolvedAt,
		); err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan extension request")
		}
		ext.Status = internment.ExtensionStatus(status)
		ext.AuditorID = auditorID.String
		ext.AuditComment = comment.String
		if resolvedAt.Valid {
			t := resolvedAt.Time
			ext.ResolvedAt = &t
		}
		in.Extensions = append(in.Extensions, &ext)
	}
	return rows.Err()
}

func (r *internmentRepo) loadEvents(ctx context.Context, exec queryExecutor, in *internment.Internment) error {
	const query = `
		SELECT id, event_type, description, triggered_by, created_at
		FROM internment_events
		WHERE internment_id = $1
		ORDER BY created_at ASC`

	rows, err := exec.QueryContext(ctx, query, in.ID)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to query internment events")
	}
	defer rows.Close()

	for rows.Next() {
		var ev internment.Event
		if err := rows.Scan(&ev.ID, &ev.EventType, &ev.Description, &ev.TriggeredBy, &ev.CreatedAt); err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan internment event")
		}
		in.Events = append(in.Events, &ev)
	}
	return rows.Err()
}

func (r *internmentRepo) loadAuditRequest(ctx context.Context, exec queryExecutor, in *internment.Internment) error {
	const query = `
		SELECT id, internment_id, requested_by, reason, created_at
		FROM internment_audit_requests
		WHERE internment_id = $1`

	var ar internment.AuditRequest
	err := exec.QueryRowContext(ctx, query, in.ID).Scan(
		&ar.ID, &ar.InternmentID, &ar.RequestedBy, &ar.Reason, &ar.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan audit request")
	}
	in.AuditRequest = &ar
	return nil
}
