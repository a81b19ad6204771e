package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/saludplena/claims-engine/internal/domain/medication"
	"github.com/saludplena/claims-engine/internal/infrastructure/monitoring/logging"
	"github.com/saludplena/claims-engine/pkg/errors"
)

// medicationRepo persists medication requests across three tables:
// medication_requests, medication_items and medication_quotations. The
// winning quotation snapshot is denormalized onto the request row as JSONB.
type medicationRepo struct {
	baseRepo
}

// NewMedicationRepository creates a PostgreSQL-backed medication repository.
func NewMedicationRepository(db *sql.DB, logger logging.Logger) medication.Repository {
	return &medicationRepo{baseRepo{db: db, logger: logger}}
}

// ─────────────────────────────────────────────────────────────────────────────
// Writes
// ─────────────────────────────────────────────────────────────────────────────

func (r *medicationRepo) Create(ctx context.Context, req *medication.Request) error {
	if err := req.Validate(); err != nil {
		return err
	}
	return r.withTx(ctx, func(tx *sql.Tx) error {
		winner, err := marshalWinner(req.Winner)
		if err != nil {
			return err
		}

		const query = `
			INSERT INTO medication_requests (
				id, patient_id, requested_by, status, round_status,
				deadline_hours, deadline, sent_count, responded_count,
				minimum_quotations, winner, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

		if _, err := tx.ExecContext(ctx, query,
			req.ID, req.PatientID, req.RequestedBy, string(req.Status),
			string(req.RoundStatus), req.DeadlineHours, nullTime(req.Deadline),
			req.SentCount, req.RespondedCount, req.MinimumQuotations,
			winner, req.CreatedAt, req.UpdatedAt,
		); err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to insert medication request")
		}

		const itemQuery = `
			INSERT INTO medication_items (id, request_id, drug_code, drug_name, quantity, unit)
			VALUES ($1, $2, $3, $4, $5, $6)`

		for _, item := range req.Items {
			if _, err := tx.ExecContext(ctx, itemQuery,
				item.ID, req.ID, nullString(item.DrugCode), item.DrugName,
				item.Quantity, nullString(item.Unit),
			); err != nil {
				return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to insert medication item")
			}
		}
		return r.persistQuotations(ctx, tx, req)
	})
}

func (r *medicationRepo) Mutate(ctx context.Context, id string, fn medication.MutateFunc) (*medication.Request, error) {
	var result *medication.Request
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		req, err := r.getLocked(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := fn(req); err != nil {
			return err
		}

		winner, err := marshalWinner(req.Winner)
		if err != nil {
			return err
		}

		const query = `
			UPDATE medication_requests
			SET status = $2, round_status = $3, deadline = $4,
			    sent_count = $5, responded_count = $6, winner = $7, updated_at = $8
			WHERE id = $1`

		if _, err := tx.ExecContext(ctx, query,
			req.ID, string(req.Status), string(req.RoundStatus),
			nullTime(req.Deadline), req.SentCount, req.RespondedCount,
			winner, req.UpdatedAt,
		); err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to update medication request")
		}
		if err := r.persistQuotations(ctx, tx, req); err != nil {
			return err
		}
		result = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// persistQuotations upserts all quotation rows. Tokens and pharmacy
// assignments are immutable once issued; only submission and status fields
// change on conflict.
func (r *medicationRepo) persistQuotations(ctx context.Context, tx *sql.Tx, req *medication.Request) error {
	const query = `
		INSERT INTO medication_quotations (
			id, request_id, item_id, pharmacy_id, token, token_expires_at,
			status, unit_price, total_price, availability, notes, quoted_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			unit_price = EXCLUDED.unit_price,
			total_price = EXCLUDED.total_price,
			availability = EXCLUDED.availability,
			notes = EXCLUDED.notes,
			quoted_at = EXCLUDED.quoted_at`

	for _, q := range req.Quotations {
		if _, err := tx.ExecContext(ctx, query,
			q.ID, q.RequestID, q.ItemID, q.PharmacyID, q.Token, q.TokenExpiresAt,
			string(q.Status), q.UnitPrice, q.TotalPrice, nullString(q.Availability),
			nullString(q.Notes), nullTime(q.QuotedAt), q.CreatedAt,
		); err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to upsert quotation")
		}
	}
	return nil
}

func marshalWinner(w *medication.WinnerSnapshot) (interface{}, error) {
	if w == nil {
		return nil, nil
	}
	data, err := json.Marshal(w)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal winner snapshot")
	}
	return data, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Reads
// ─────────────────────────────────────────────────────────────────────────────

const requestColumns = `
	id, patient_id, requested_by, status, round_status,
	deadline_hours, deadline, sent_count, responded_count,
	minimum_quotations, winner, created_at, updated_at`

func (r *medicationRepo) GetByID(ctx context.Context, id string) (*medication.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM medication_requests WHERE id = $1`
	req, err := r.scanRequest(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}
	if err := r.loadChildren(ctx, r.db, req); err != nil {
		return nil, err
	}
	return req, nil
}

func (r *medicationRepo) GetByQuotationToken(ctx context.Context, token string) (*medication.Request, error) {
	// Token lookup resolves to the owning aggregate; the caller re-checks
	// the token against the loaded quotations so expiry and consumption
	// are judged on consistent state.
	const query = `
		SELECT request_id FROM medication_quotations WHERE token = $1`

	var requestID string
	err := r.db.QueryRowContext(ctx, query, token).Scan(&requestID)
	if err == sql.ErrNoRows {
		return nil, errors.New(errors.ErrCodeTokenNotFound, "quotation token not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to resolve quotation token")
	}
	return r.GetByID(ctx, requestID)
}

func (r *medicationRepo) getLocked(ctx context.Context, tx *sql.Tx, id string) (*medication.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM medication_requests WHERE id = $1 FOR UPDATE`
	req, err := r.scanRequest(tx.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}
	if err := r.loadChildren(ctx, tx, req); err != nil {
		return nil, err
	}
	return req, nil
}

func (r *medicationRepo) ListExpiryCandidates(ctx context.Context, cutoff time.Time, limit int) ([]*medication.Request, error) {
	query := `SELECT ` + requestColumns + `
		FROM medication_requests
		WHERE round_status = $1 AND deadline IS NOT NULL AND deadline <= $2
		  AND status = $3
		ORDER BY deadline ASC
		LIMIT $4`

	rows, err := r.db.QueryContext(ctx, query,
		string(medication.RoundSent), cutoff, string(medication.RequestEnCotizacion), limit)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to query expiry candidates")
	}
	defer rows.Close()

	var result []*medication.Request
	for rows.Next() {
		req, err := r.scanRequest(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, req)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate expiry candidates")
	}

	for _, req := range result {
		if err := r.loadChildren(ctx, r.db, req); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (r *medicationRepo) scanRequest(s scanner) (*medication.Request, error) {
	var (
		req      medication.Request
		status   string
		round    string
		deadline sql.NullTime
		winner   []byte
	)
	err := s.Scan(
		&req.ID, &req.PatientID, &req.RequestedBy, &status, &round,
		&req.DeadlineHours, &deadline, &req.SentCount, &req.RespondedCount,
		&req.MinimumQuotations, &winner, &req.CreatedAt, &req.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, errors.New(errors.ErrCodeRequestNotFound, "medication request not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan medication request")
	}

	req.Status = medication.RequestStatus(status)
	req.RoundStatus = medication.RoundStatus(round)
	if deadline.Valid {
		t := deadline.Time
		req.Deadline = &t
	}
	if len(winner) > 0 {
		var w medication.WinnerSnapshot
		if err := json.Unmarshal(winner, &w); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to unmarshal winner snapshot")
		}
		req.Winner = &w
	}
	req.Items = []*medication.Item{}
	req.Quotations = []*medication.Quotation{}
	return &req, nil
}

func (r *medicationRepo) loadChildren(ctx context.Context, exec queryExecutor, req *medication.Request) error {
	if err := r.loadItems(ctx, exec, req); err != nil {
		return err
	}
	return r.loadQuotations(ctx, exec, req)
}

func (r *medicationRepo) loadItems(ctx context.Context, exec queryExecutor, req *medication.Request) error {
	const query = `
		SELECT id, drug_code, drug_name, quantity, unit
		FROM medication_items
		WHERE request_id = $1
		ORDER BY drug_name ASC`

	rows, err := exec.QueryContext(ctx, query, req.ID)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to query medication items")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			item     medication.Item
			drugCode sql.NullString
			unit     sql.NullString
		)
		if err := rows.Scan(&item.ID, &drugCode, &item.DrugName, &item.Quantity, &unit); err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan medication item")
		}
		item.DrugCode = drugCode.String
		item.Unit = unit.String
		req.Items = append(req.Items, &item)
	}
	return rows.Err()
}

func (r *medicationRepo) loadQuotations(ctx context.Context, exec queryExecutor, req *medication.Request) error {
	const query = `
		SELECT id, request_id, item_id, pharmacy_id, token, token_expires_at,
		       status, unit_price, total_price, availability, notes, quoted_at, created_at
		FROM medication_quotations
		WHERE request_id = $1
		ORDER BY created_at ASC, id ASC`

	rows, err := exec.QueryContext(ctx, query, req.ID)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to query quotations")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			q            medication.Quotation
			status       string
			availability sql.NullString
			notes        sql.NullString
			quotedAt     sql.NullTime
		)
		if err := rows.Scan(
			&q.ID, &q.RequestID, &q.ItemID, &q.PharmacyID, &q.Token, &q.TokenExpiresAt,
			&status, &q.UnitPrice, &q.TotalPrice, &availability, &notes, &quotedAt, &q.CreatedAt,
		); err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan quotation")
		}
		q.Status = medication.QuotationStatus(status)
		q.Availability = availability.String
		q.Notes = notes.String
		if quotedAt.Valid {
			t := quotedAt.Time
			q.QuotedAt = &t
		}
		req.Quotations = append(req.Quotations, &q)
	}
	return rows.Err()
}
