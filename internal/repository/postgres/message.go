package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carhorizon/carhorizon/internal/models"
)

type MessageStore struct {
	pool *pgxpool.Pool
}

func NewMessageStore(pool *pgxpool.Pool) *MessageStore {
	return &MessageStore{pool: pool}
}

func (s *MessageStore) Create(ctx context.Context, chatID uuid.UUID, senderID uuid.UUID, text string) (*models.Message, error) {
	// Messages use bigserial; Postgres assigns the id and timestamp.
	query := `
		INSERT INTO messages (chat_id, sender_id, text, created_at)
		VALUES ($1, $2, $3, now())
		RETURNING id, chat_id, sender_id, text, created_at`

	var msg models.Message
	err := s.pool.QueryRow(ctx, query, chatID, senderID, text).Scan(
		&msg.ID,
		&msg.ChatID,
		&msg.SenderID,
		&msg.Text,
		&msg.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	return &msg, nil
}

// ListByChat returns a chat's messages oldest first — the ordering contract
// for a conversation view.
func (s *MessageStore) ListByChat(ctx context.Context, chatID uuid.UUID) ([]models.Message, error) {
	query := `
		SELECT id, chat_id, sender_id, text, created_at
		FROM messages
		WHERE chat_id = $1
		ORDER BY created_at ASC`

	rows, err := s.pool.Query(ctx, query, chatID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	messages := make([]models.Message, 0)
	for rows.Next() {
		var msg models.Message
		if err := rows.Scan(
			&msg.ID,
			&msg.ChatID,
			&msg.SenderID,
			&msg.Text,
			&msg.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	return messages, nil
}

// ExistsFromOtherAfter reports whether the chat has a message from the
// other side newer than the given cursor. A nil cursor means the user has
// never read the chat, so any message from the other side counts.
func (s *MessageStore) ExistsFromOtherAfter(ctx context.Context, chatID uuid.UUID, userID uuid.UUID, after *time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM messages
			WHERE chat_id = $1
			  AND sender_id <> $2
			  AND ($3::timestamptz IS NULL OR created_at > $3)
		)`

	var exists bool
	err := s.pool.QueryRow(ctx, query, chatID, userID, after).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check unread: %w", err)
	}
	return exists, nil
}
