package repositories

import (
	"context"
	"database/sql"

	"github.com/saludplena/claims-engine/internal/domain/notification"
	"github.com/saludplena/claims-engine/internal/infrastructure/monitoring/logging"
	"github.com/saludplena/claims-engine/pkg/errors"
)

// notificationRepo persists notifications. Deduplication is enforced by a
// partial unique index on (dedup_target, kind) WHERE NOT is_read, so two
// concurrent inserters cannot both land an unread duplicate.
type notificationRepo struct {
	baseRepo
}

// NewNotificationRepository creates a PostgreSQL-backed notification repository.
func NewNotificationRepository(db *sql.DB, logger logging.Logger) notification.Repository {
	return &notificationRepo{baseRepo{db: db, logger: logger}}
}

func (r *notificationRepo) CreateDeduplicated(ctx context.Context, n *notification.Notification) (bool, error) {
	const query = `
		INSERT INTO notifications (
			id, provider_id, kind, internment_id, request_id,
			dedup_target, message, is_read, read_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (dedup_target, kind) WHERE NOT is_read DO NOTHING`

	res, err := r.db.ExecContext(ctx, query,
		n.ID, n.ProviderID, string(n.Kind),
		nullString(n.InternmentID), nullString(n.RequestID),
		n.DedupTarget(), n.Message, n.IsRead, nullTime(n.ReadAt), n.CreatedAt,
	)
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to insert notification")
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to read insert result")
	}
	return affected > 0, nil
}

const notificationColumns = `
	id, provider_id, kind, internment_id, request_id,
	message, is_read, read_at, created_at`

func (r *notificationRepo) GetByID(ctx context.Context, id string) (*notification.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id = $1`
	return r.scanNotification(r.db.QueryRowContext(ctx, query, id))
}

func (r *notificationRepo) ListUnreadByProvider(ctx context.Context, providerID string, limit, offset int) ([]*notification.Notification, error) {
	query := `SELECT ` + notificationColumns + `
		FROM notifications
		WHERE provider_id = $1 AND NOT is_read
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.QueryContext(ctx, query, providerID, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to query notifications")
	}
	defer rows.Close()

	var result []*notification.Notification
	for rows.Next() {
		n, err := r.scanNotification(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate notifications")
	}
	return result, nil
}

func (r *notificationRepo) MarkRead(ctx context.Context, id string) error {
	const query = `
		UPDATE notifications
		SET is_read = TRUE, read_at = NOW()
		WHERE id = $1 AND NOT is_read`

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to mark notification read")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to read update result")
	}
	if affected == 0 {
		// Either the notification does not exist or it is already read.
		// Marking read is idempotent, so distinguish the two cases.
		var exists bool
		const probe = `SELECT EXISTS (SELECT 1 FROM notifications WHERE id = $1)`
		if err := r.db.QueryRowContext(ctx, probe, id).Scan(&exists); err != nil {
			return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to check notification")
		}
		if !exists {
			return errors.New(errors.ErrCodeNotificationNotFound, "notification not found")
		}
	}
	return nil
}

func (r *notificationRepo) scanNotification(s scanner) (*notification.Notification, error) {
	var (
		n            notification.Notification
		kind         string
		internmentID sql.NullString
		requestID    sql.NullString
		readAt       sql.NullTime
	)
	err := s.Scan(
		&n.ID, &n.ProviderID, &kind, &internmentID, &requestID,
		&n.Message, &n.IsRead, &readAt, &n.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, errors.New(errors.ErrCodeNotificationNotFound, "notification not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan notification")
	}

	n.Kind = notification.Kind(kind)
	n.InternmentID = internmentID.String
	n.RequestID = requestID.String
	if readAt.Valid {
		t := readAt.Time
		n.ReadAt = &t
	}
	return &n, nil
}
