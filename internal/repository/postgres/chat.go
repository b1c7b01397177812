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

const chatColumns = `id, car_id, owner_id, other_user_id, initiator_car_id, created_at`

type ChatStore struct {
	pool *pgxpool.Pool
}

func NewChatStore(pool *pgxpool.Pool) *ChatStore {
	return &ChatStore{pool: pool}
}

func scanChat(row pgx.Row) (*models.Chat, error) {
	var c models.Chat
	err := row.Scan(
		&c.ID,
		&c.CarID,
		&c.OwnerID,
		&c.OtherUserID,
		&c.InitiatorCarID,
		&c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// FindByPair looks up the chat for an unordered car pair. The pair is
// canonicalized (lower uuid first) into the pair_lo/pair_hi columns, so a
// single indexed lookup covers both contact directions.
func (s *ChatStore) FindByPair(ctx context.Context, carA, carB uuid.UUID) (*models.Chat, error) {
	lo, hi := models.ChatPairKey(carA, carB)

	query := `
		SELECT ` + chatColumns + `
		FROM chats
		WHERE pair_lo = $1 AND pair_hi = $2
		LIMIT 1`

	chat, err := scanChat(s.pool.QueryRow(ctx, query, lo, hi))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find chat by pair: %w", err)
	}
	return chat, nil
}

// Create inserts the chat inside a transaction. The unique constraint on
// (pair_lo, pair_hi) is the backstop against two concurrent first contacts
// creating twin chats; on that collision the existing chat is returned.
func (s *ChatStore) Create(ctx context.Context, carID, ownerID, otherUserID, initiatorCarID uuid.UUID) (*models.Chat, error) {
	lo, hi := models.ChatPairKey(carID, initiatorCarID)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin create chat: %w", err)
	}
	defer tx.Rollback(ctx)

	chat, err := scanChat(tx.QueryRow(ctx, `
		INSERT INTO chats (id, car_id, owner_id, other_user_id, initiator_car_id, pair_lo, pair_hi, created_at)
		VALUES (uuid_generate_v4(), $1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (pair_lo, pair_hi) DO NOTHING
		RETURNING `+chatColumns,
		carID, ownerID, otherUserID, initiatorCarID, lo, hi))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Lost the race: someone created the pair between our
			// lookup and this insert. Return theirs.
			chat, err = scanChat(tx.QueryRow(ctx, `
				SELECT `+chatColumns+`
				FROM chats
				WHERE pair_lo = $1 AND pair_hi = $2`, lo, hi))
			if err != nil {
				return nil, fmt.Errorf("reload chat after conflict: %w", err)
			}
		} else {
			return nil, fmt.Errorf("insert chat: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit create chat: %w", err)
	}
	return chat, nil
}

func (s *ChatStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Chat, error) {
	query := `SELECT ` + chatColumns + ` FROM chats WHERE id = $1`

	chat, err := scanChat(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get chat: %w", err)
	}
	return chat, nil
}

// InboxForUser returns the user's threads, newest activity first. The
// display car depends on the viewer: the owner of the contacted car sees
// the initiator's car, the counterpart sees the contacted car. The unread
// flag is derived from the viewer's read cursor against the last message.
func (s *ChatStore) InboxForUser(ctx context.Context, userID uuid.UUID) ([]models.InboxThread, error) {
	query := `
		SELECT
			c.id,
			c.car_id,
			c.initiator_car_id,
			c.owner_id,
			c.other_user_id,

			CASE WHEN c.owner_id = $1 THEN init_car.id ELSE owner_car.id END,
			CASE WHEN c.owner_id = $1 THEN init_car.plate ELSE owner_car.plate END,
			COALESCE(CASE WHEN c.owner_id = $1 THEN init_car.model ELSE owner_car.model END, ''),
			COALESCE(CASE WHEN c.owner_id = $1 THEN init_car.avatar_url ELSE owner_car.avatar_url END, ''),

			COALESCE(m.text, ''),
			m.created_at,
			m.sender_id,

			COALESCE(
				m.created_at IS NOT NULL
				AND (cr_me.last_read_at IS NULL OR m.created_at > cr_me.last_read_at)
				AND m.sender_id <> $1,
				FALSE
			)

		FROM chats c
		JOIN cars owner_car ON owner_car.id = c.car_id
		JOIN cars init_car ON init_car.id = c.initiator_car_id

		LEFT JOIN LATERAL (
			SELECT text, created_at, sender_id
			FROM messages
			WHERE chat_id = c.id
			ORDER BY created_at DESC
			LIMIT 1
		) m ON TRUE

		LEFT JOIN chat_reads cr_me
			ON cr_me.chat_id = c.id AND cr_me.user_id = $1

		WHERE c.owner_id = $1 OR c.other_user_id = $1
		ORDER BY m.created_at DESC NULLS LAST, c.id DESC`

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("inbox: %w", err)
	}
	defer rows.Close()

	threads := make([]models.InboxThread, 0)
	for rows.Next() {
		var t models.InboxThread
		if err := rows.Scan(
			&t.ChatID,
			&t.CarID,
			&t.InitiatorCarID,
			&t.OwnerID,
			&t.OtherUserID,
			&t.DisplayCar.ID,
			&t.DisplayCar.Plate,
			&t.DisplayCar.Model,
			&t.DisplayCar.AvatarURL,
			&t.LastText,
			&t.LastCreatedAt,
			&t.LastSenderID,
			&t.HasUnread,
		); err != nil {
			return nil, fmt.Errorf("scan inbox thread: %w", err)
		}
		threads = append(threads, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate inbox threads: %w", err)
	}

	return threads, nil
}
