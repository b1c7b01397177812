package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carhorizon/carhorizon/internal/models"
)

type FollowStore struct {
	pool *pgxpool.Pool
}

func NewFollowStore(pool *pgxpool.Pool) *FollowStore {
	return &FollowStore{pool: pool}
}

// Insert creates the edge. ON CONFLICT DO NOTHING keeps the insert
// idempotent under the (follower, followed) unique constraint; the rows
// affected count tells the caller whether this was a fresh edge.
func (s *FollowStore) Insert(ctx context.Context, followerCarID, followedCarID uuid.UUID) (bool, error) {
	query := `
		INSERT INTO car_followers (follower_car_id, followed_car_id, followed_at)
		VALUES ($1, $2, now())
		ON CONFLICT (follower_car_id, followed_car_id) DO NOTHING`

	tag, err := s.pool.Exec(ctx, query, followerCarID, followedCarID)
	if err != nil {
		return false, fmt.Errorf("insert follow: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *FollowStore) Delete(ctx context.Context, followerCarID, followedCarID uuid.UUID) (bool, error) {
	query := `
		DELETE FROM car_followers
		WHERE follower_car_id = $1 AND followed_car_id = $2`

	tag, err := s.pool.Exec(ctx, query, followerCarID, followedCarID)
	if err != nil {
		return false, fmt.Errorf("delete follow: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *FollowStore) Exists(ctx context.Context, followerCarID, followedCarID uuid.UUID) (bool, error) {
	// EXISTS stops at the first match, unlike COUNT. This runs before
	// every follow, so it stays cheap.
	query := `
		SELECT EXISTS (
			SELECT 1 FROM car_followers
			WHERE follower_car_id = $1 AND followed_car_id = $2
		)`

	var exists bool
	err := s.pool.QueryRow(ctx, query, followerCarID, followedCarID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check follow: %w", err)
	}
	return exists, nil
}

func (s *FollowStore) CountFollowers(ctx context.Context, carID uuid.UUID) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM car_followers WHERE followed_car_id = $1`, carID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count followers: %w", err)
	}
	return count, nil
}

func (s *FollowStore) CountFollowing(ctx context.Context, carID uuid.UUID) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM car_followers WHERE follower_car_id = $1`, carID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count following: %w", err)
	}
	return count, nil
}

func (s *FollowStore) ListFollowers(ctx context.Context, carID uuid.UUID) ([]models.CarSummary, error) {
	query := `
		SELECT c.id, c.plate, COALESCE(c.model, ''), COALESCE(c.avatar_url, '')
		FROM car_followers cf
		JOIN cars c ON c.id = cf.follower_car_id
		WHERE cf.followed_car_id = $1
		ORDER BY c.plate ASC`

	return s.listSummaries(ctx, query, carID)
}

func (s *FollowStore) ListFollowing(ctx context.Context, carID uuid.UUID) ([]models.CarSummary, error) {
	query := `
		SELECT c.id, c.plate, COALESCE(c.model, ''), COALESCE(c.avatar_url, '')
		FROM car_followers cf
		JOIN cars c ON c.id = cf.followed_car_id
		WHERE cf.follower_car_id = $1
		ORDER BY c.plate ASC`

	return s.listSummaries(ctx, query, carID)
}

func (s *FollowStore) listSummaries(ctx context.Context, query string, carID uuid.UUID) ([]models.CarSummary, error) {
	rows, err := s.pool.Query(ctx, query, carID)
	if err != nil {
		return nil, fmt.Errorf("list follow edges: %w", err)
	}
	defer rows.Close()

	summaries := make([]models.CarSummary, 0)
	for rows.Next() {
		var cs models.CarSummary
		if err := rows.Scan(&cs.ID, &cs.Plate, &cs.Model, &cs.AvatarURL); err != nil {
			return nil, fmt.Errorf("scan car summary: %w", err)
		}
		summaries = append(summaries, cs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate car summaries: %w", err)
	}

	return summaries, nil
}
