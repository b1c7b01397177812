package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carhorizon/carhorizon/internal/models"
)

type NotificationStore struct {
	pool *pgxpool.Pool
}

func NewNotificationStore(pool *pgxpool.Pool) *NotificationStore {
	return &NotificationStore{pool: pool}
}

func (s *NotificationStore) Insert(ctx context.Context, recipientCarID, actorCarID uuid.UUID, typ string, postID *uuid.UUID, commentID *int64, message string) (*models.Notification, error) {
	query := `
		INSERT INTO notifications (recipient_car_id, actor_car_id, type, post_id, comment_id, message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		RETURNING id, recipient_car_id, actor_car_id, type, post_id, comment_id, message, is_read, created_at`

	var n models.Notification
	err := s.pool.QueryRow(ctx, query, recipientCarID, actorCarID, typ, postID, commentID, message).Scan(
		&n.ID,
		&n.RecipientCarID,
		&n.ActorCarID,
		&n.Type,
		&n.PostID,
		&n.CommentID,
		&n.Message,
		&n.IsRead,
		&n.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert notification: %w", err)
	}
	return &n, nil
}

// PruneForRecipient is the lazy retention pass, run before each list read.
// Deletes, for one recipient: notifications whose post is gone (orphans),
// follow notifications past 60 days, and notifications referencing posts
// past 30 days. Not a TTL guarantee — rows persist until the next read.
func (s *NotificationStore) PruneForRecipient(ctx context.Context, recipientCarID uuid.UUID, now time.Time) error {
	query := `
		DELETE FROM notifications n
		WHERE n.recipient_car_id = $1 AND (
			(n.post_id IS NOT NULL AND NOT EXISTS (
				SELECT 1 FROM posts p WHERE p.id = n.post_id
			))
			OR (n.type = 'follow' AND n.created_at < $2)
			OR (n.post_id IS NOT NULL AND EXISTS (
				SELECT 1 FROM posts p
				WHERE p.id = n.post_id AND p.created_at < $3
			))
		)`

	followCutoff := now.AddDate(0, 0, -60)
	postCutoff := now.AddDate(0, 0, -30)

	if _, err := s.pool.Exec(ctx, query, recipientCarID, followCutoff, postCutoff); err != nil {
		return fmt.Errorf("prune notifications: %w", err)
	}
	return nil
}

const notificationViewColumns = `
	n.id, n.recipient_car_id, n.actor_car_id, n.type, n.post_id, n.comment_id,
	n.message, n.is_read, n.created_at,
	COALESCE(c.plate, ''), COALESCE(c.avatar_url, '')`

func scanNotificationView(row pgx.Row) (*models.NotificationView, error) {
	var v models.NotificationView
	err := row.Scan(
		&v.ID,
		&v.RecipientCarID,
		&v.ActorCarID,
		&v.Type,
		&v.PostID,
		&v.CommentID,
		&v.Message,
		&v.IsRead,
		&v.CreatedAt,
		&v.ActorName,
		&v.ActorAvatar,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (s *NotificationStore) ListForRecipient(ctx context.Context, recipientCarID uuid.UUID, limit int) ([]models.NotificationView, error) {
	query := `
		SELECT ` + notificationViewColumns + `
		FROM notifications n
		LEFT JOIN cars c ON c.id = n.actor_car_id
		WHERE n.recipient_car_id = $1
		ORDER BY n.created_at DESC
		LIMIT $2`

	rows, err := s.pool.Query(ctx, query, recipientCarID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	views := make([]models.NotificationView, 0)
	for rows.Next() {
		v, err := scanNotificationView(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		views = append(views, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}

	return views, nil
}

func (s *NotificationStore) CountUnread(ctx context.Context, recipientCarID uuid.UUID) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM notifications WHERE recipient_car_id = $1 AND is_read = FALSE`,
		recipientCarID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

func (s *NotificationStore) GetView(ctx context.Context, id int64) (*models.NotificationView, error) {
	query := `
		SELECT ` + notificationViewColumns + `
		FROM notifications n
		LEFT JOIN cars c ON c.id = n.actor_car_id
		WHERE n.id = $1`

	v, err := scanNotificationView(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get notification: %w", err)
	}
	return v, nil
}

// MarkRead is scoped by predicate: a notification belonging to a different
// recipient matches zero rows and the call is a silent no-op.
func (s *NotificationStore) MarkRead(ctx context.Context, id int64, recipientCarID uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE id = $1 AND recipient_car_id = $2`,
		id, recipientCarID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return nil
}

func (s *NotificationStore) MarkAllRead(ctx context.Context, recipientCarID uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE recipient_car_id = $1 AND is_read = FALSE`,
		recipientCarID)
	if err != nil {
		return fmt.Errorf("mark all notifications read: %w", err)
	}
	return nil
}
