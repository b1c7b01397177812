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

const carColumns = `id, user_id, plate, COALESCE(model, ''), COALESCE(bio, ''), COALESCE(avatar_url, ''), is_active, created_at`

type CarStore struct {
	pool *pgxpool.Pool
}

func NewCarStore(pool *pgxpool.Pool) *CarStore {
	return &CarStore{pool: pool}
}

func scanCar(row pgx.Row) (*models.Car, error) {
	var c models.Car
	err := row.Scan(
		&c.ID,
		&c.UserID,
		&c.Plate,
		&c.Model,
		&c.Bio,
		&c.AvatarURL,
		&c.IsActive,
		&c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Create inserts a car, inactive. Activation is an explicit garage choice,
// never implicit on registration.
func (s *CarStore) Create(ctx context.Context, userID uuid.UUID, plate, model string) (*models.Car, error) {
	query := `
		INSERT INTO cars (id, user_id, plate, model, created_at)
		VALUES (uuid_generate_v4(), $1, $2, NULLIF($3, ''), now())
		RETURNING ` + carColumns

	car, err := scanCar(s.pool.QueryRow(ctx, query, userID, plate, model))
	if err != nil {
		return nil, fmt.Errorf("insert car: %w", err)
	}
	return car, nil
}

func (s *CarStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Car, error) {
	query := `SELECT ` + carColumns + ` FROM cars WHERE id = $1`

	car, err := scanCar(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get car: %w", err)
	}
	return car, nil
}

func (s *CarStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Car, error) {
	query := `
		SELECT ` + carColumns + `
		FROM cars
		WHERE user_id = $1
		ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list cars: %w", err)
	}
	defer rows.Close()

	cars := make([]models.Car, 0)
	for rows.Next() {
		car, err := scanCar(rows)
		if err != nil {
			return nil, fmt.Errorf("scan car: %w", err)
		}
		cars = append(cars, *car)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cars: %w", err)
	}

	return cars, nil
}

func (s *CarStore) CountByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM cars WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count cars: %w", err)
	}
	return count, nil
}

// FindByPlate matches on the normalized plate ("ABC 123" and "abc123" hit
// the same row) and joins the owner.
func (s *CarStore) FindByPlate(ctx context.Context, normalizedPlate string) (*models.Car, *models.User, error) {
	query := `
		SELECT c.id, c.user_id, c.plate, COALESCE(c.model, ''), COALESCE(c.bio, ''),
		       COALESCE(c.avatar_url, ''), c.is_active, c.created_at,
		       u.id, u.email, u.created_at
		FROM cars c
		JOIN users u ON u.id = c.user_id
		WHERE REPLACE(UPPER(c.plate), ' ', '') = $1
		LIMIT 1`

	var c models.Car
	var u models.User
	err := s.pool.QueryRow(ctx, query, normalizedPlate).Scan(
		&c.ID, &c.UserID, &c.Plate, &c.Model, &c.Bio,
		&c.AvatarURL, &c.IsActive, &c.CreatedAt,
		&u.ID, &u.Email, &u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("find car by plate: %w", err)
	}
	return &c, &u, nil
}

// SetActive runs the garage swap in one transaction: every car of the user
// goes inactive, then the chosen one goes active. A crash or error rolls
// the whole pair back, so a user with one active car can never end up with
// zero or two.
func (s *CarStore) SetActive(ctx context.Context, userID, carID uuid.UUID) (*models.Car, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin set active: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`UPDATE cars SET is_active = FALSE WHERE user_id = $1`, userID); err != nil {
		return nil, fmt.Errorf("clear active: %w", err)
	}

	car, err := scanCar(tx.QueryRow(ctx, `
		UPDATE cars
		SET is_active = TRUE
		WHERE user_id = $1 AND id = $2
		RETURNING `+carColumns, userID, carID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Not the user's car. Rollback restores the previous
			// active flag untouched.
			return nil, nil
		}
		return nil, fmt.Errorf("set active: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit set active: %w", err)
	}
	return car, nil
}

func (s *CarStore) GetActive(ctx context.Context, userID uuid.UUID) (*models.Car, error) {
	query := `SELECT ` + carColumns + ` FROM cars WHERE user_id = $1 AND is_active = TRUE`

	car, err := scanCar(s.pool.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get active car: %w", err)
	}
	return car, nil
}

// Delete removes a car and, when it was the active one, promotes an
// arbitrary remaining car of the same owner inside the same transaction.
// Follow edges, posts, chats and notifications cascade at the schema level.
func (s *CarStore) Delete(ctx context.Context, userID, carID uuid.UUID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin delete car: %w", err)
	}
	defer tx.Rollback(ctx)

	var wasActive bool
	err = tx.QueryRow(ctx,
		`DELETE FROM cars WHERE id = $1 AND user_id = $2 RETURNING is_active`,
		carID, userID).Scan(&wasActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("delete car: %w", pgx.ErrNoRows)
		}
		return fmt.Errorf("delete car: %w", err)
	}

	if wasActive {
		// Promote any remaining car so the owner is never left without
		// an active one.
		if _, err := tx.Exec(ctx, `
			UPDATE cars
			SET is_active = TRUE
			WHERE id = (
				SELECT id FROM cars WHERE user_id = $1 LIMIT 1
			)`, userID); err != nil {
			return fmt.Errorf("reassign active car: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit delete car: %w", err)
	}
	return nil
}

func (s *CarStore) UpdateBio(ctx context.Context, carID uuid.UUID, bio string) (*models.Car, error) {
	query := `
		UPDATE cars
		SET bio = NULLIF($2, '')
		WHERE id = $1
		RETURNING ` + carColumns

	car, err := scanCar(s.pool.QueryRow(ctx, query, carID, bio))
	if err != nil {
		return nil, fmt.Errorf("update bio: %w", err)
	}
	return car, nil
}

func (s *CarStore) SetAvatarURL(ctx context.Context, carID uuid.UUID, avatarURL string) (*models.Car, error) {
	query := `
		UPDATE cars
		SET avatar_url = $2
		WHERE id = $1
		RETURNING ` + carColumns

	car, err := scanCar(s.pool.QueryRow(ctx, query, carID, avatarURL))
	if err != nil {
		return nil, fmt.Errorf("update avatar: %w", err)
	}
	return car, nil
}
