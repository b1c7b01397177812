package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carhorizon/carhorizon/internal/models"
)

type ChatReadStore struct {
	pool *pgxpool.Pool
}

func NewChatReadStore(pool *pgxpool.Pool) *ChatReadStore {
	return &ChatReadStore{pool: pool}
}

// Upsert moves the (chat, user) read cursor to now. The primary key on
// (chat_id, user_id) keeps it to one row per pair; concurrent calls
// resolve to whichever commits last.
func (s *ChatReadStore) Upsert(ctx context.Context, chatID uuid.UUID, userID uuid.UUID) (*models.ChatRead, error) {
	query := `
		INSERT INTO chat_reads (chat_id, user_id, last_read_at)
		VALUES ($1, $2, now())
		ON CONFLICT (chat_id, user_id)
		DO UPDATE SET last_read_at = EXCLUDED.last_read_at
		RETURNING chat_id, user_id, last_read_at`

	var cr models.ChatRead
	err := s.pool.QueryRow(ctx, query, chatID, userID).Scan(
		&cr.ChatID,
		&cr.UserID,
		&cr.LastReadAt,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert chat read: %w", err)
	}
	return &cr, nil
}

func (s *ChatReadStore) Get(ctx context.Context, chatID uuid.UUID, userID uuid.UUID) (*models.ChatRead, error) {
	query := `
		SELECT chat_id, user_id, last_read_at
		FROM chat_reads
		WHERE chat_id = $1 AND user_id = $2`

	var cr models.ChatRead
	err := s.pool.QueryRow(ctx, query, chatID, userID).Scan(
		&cr.ChatID,
		&cr.UserID,
		&cr.LastReadAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get chat read: %w", err)
	}
	return &cr, nil
}
