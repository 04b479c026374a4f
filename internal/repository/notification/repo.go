package notification

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/wb-go/wbf/dbpg"

	"github.com/nurtech/notify-hub/internal/model"
)

var ErrNotificationNotFound = errors.New("notification not found")

// Repository provides methods to interact with the notifications table.
type Repository struct {
	db *dbpg.DB
}

// NewRepository creates a new notification repository.
func NewRepository(db *dbpg.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new notification and returns the stored record with
// the id, status and created_at the database assigned.
func (r *Repository) Create(ctx context.Context, n model.Notification) (model.Notification, error) {
	if err := n.Validate(); err != nil {
		return model.Notification{}, err
	}

	query := `
		INSERT INTO notifications (
		    user_id, type, channel, subject, message, status
		) VALUES ($1, $2, $3, $4, $5, 'pending')
		RETURNING id, status, created_at;
    `

	err := r.db.Master.QueryRowContext(
		ctx, query, n.UserID, n.Type, n.Channel, n.Subject, n.Message,
	).Scan(&n.ID, &n.Status, &n.CreatedAt)
	if err != nil {
		return model.Notification{}, fmt.Errorf("failed to create notification: %w", err)
	}

	return n, nil
}

// Get retrieves a notification by its ID.
func (r *Repository) Get(ctx context.Context, id int64) (model.Notification, error) {
	query := `
		SELECT id, user_id, type, channel, subject, message, status, fail_reason, created_at, sent_at
		FROM notifications
		WHERE id = $1;
    `

	var (
		n      model.Notification
		sentAt sql.NullTime
	)
	err := r.db.Master.QueryRowContext(ctx, query, id).Scan(
		&n.ID, &n.UserID, &n.Type, &n.Channel, &n.Subject, &n.Message,
		&n.Status, &n.FailReason, &n.CreatedAt, &sentAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Notification{}, ErrNotificationNotFound
		}

		return model.Notification{}, fmt.Errorf("failed to get notification: %w", err)
	}

	if sentAt.Valid {
		n.SentAt = &sentAt.Time
	}

	return n, nil
}

// List retrieves notifications newest first, optionally filtered by
// user, paginated by limit/offset. The limit is defaulted and capped
// by the filter's Normalize.
func (r *Repository) List(ctx context.Context, f model.ListFilter) ([]model.Notification, error) {
	f = f.Normalize()

	var (
		rows *sql.Rows
		err  error
	)

	if f.UserID != "" {
		query := `
			SELECT id, user_id, type, channel, subject, message, status, fail_reason, created_at, sent_at
			FROM notifications
			WHERE user_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2 OFFSET $3;
	    `
		rows, err = r.db.QueryContext(ctx, query, f.UserID, f.Limit, f.Offset)
	} else {
		query := `
			SELECT id, user_id, type, channel, subject, message, status, fail_reason, created_at, sent_at
			FROM notifications
			ORDER BY created_at DESC, id DESC
			LIMIT $1 OFFSET $2;
	    `
		rows, err = r.db.QueryContext(ctx, query, f.Limit, f.Offset)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	notifications := make([]model.Notification, 0, f.Limit)
	for rows.Next() {
		var (
			n      model.Notification
			sentAt sql.NullTime
		)
		if err := rows.Scan(
			&n.ID, &n.UserID, &n.Type, &n.Channel, &n.Subject, &n.Message,
			&n.Status, &n.FailReason, &n.CreatedAt, &sentAt,
		); err != nil {
			return nil, err
		}

		if sentAt.Valid {
			n.SentAt = &sentAt.Time
		}

		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	return notifications, nil
}

// MarkSent transitions a pending notification to sent and stamps
// sent_at. Calling it on a record already in a terminal status is a
// no-op success, so redelivered queue items are harmless.
func (r *Repository) MarkSent(ctx context.Context, id int64) error {
	query := `
		UPDATE notifications
		SET status = 'sent', sent_at = now()
		WHERE id = $1 AND status = 'pending';
    `

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to mark notification sent: %w", err)
	}

	rows, _ := res.RowsAffected()
	if rows == 0 {
		return r.checkExists(ctx, id)
	}

	return nil
}

// MarkFailed transitions a pending notification to failed and records
// the reason. Idempotent like MarkSent.
func (r *Repository) MarkFailed(ctx context.Context, id int64, reason string) error {
	query := `
		UPDATE notifications
		SET status = 'failed', fail_reason = $2
		WHERE id = $1 AND status = 'pending';
    `

	res, err := r.db.ExecContext(ctx, query, id, reason)
	if err != nil {
		return fmt.Errorf("failed to mark notification failed: %w", err)
	}

	rows, _ := res.RowsAffected()
	if rows == 0 {
		return r.checkExists(ctx, id)
	}

	return nil
}

// checkExists distinguishes a missing record from an update that
// matched no rows because the record is already terminal.
func (r *Repository) checkExists(ctx context.Context, id int64) error {
	query := `
		SELECT status
		FROM notifications
		WHERE id = $1;
    `

	var status model.Status
	err := r.db.Master.QueryRowContext(ctx, query, id).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotificationNotFound
		}

		return fmt.Errorf("failed to get notification status: %w", err)
	}

	return nil
}
