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

type PostStore struct {
	pool *pgxpool.Pool
}

func NewPostStore(pool *pgxpool.Pool) *PostStore {
	return &PostStore{pool: pool}
}

func (s *PostStore) Create(ctx context.Context, carID, userID uuid.UUID, description string, imageURLs []string) (*models.Post, error) {
	query := `
		INSERT INTO posts (id, car_id, user_id, description, image_urls, created_at)
		VALUES (uuid_generate_v4(), $1, $2, $3, $4, now())
		RETURNING id, car_id, user_id, description, image_urls, created_at`

	var p models.Post
	err := s.pool.QueryRow(ctx, query, carID, userID, description, imageURLs).Scan(
		&p.ID,
		&p.CarID,
		&p.UserID,
		&p.Description,
		&p.ImageURLs,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert post: %w", err)
	}
	return &p, nil
}

func (s *PostStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	query := `
		SELECT id, car_id, user_id, description, image_urls, created_at
		FROM posts
		WHERE id = $1`

	var p models.Post
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&p.ID,
		&p.CarID,
		&p.UserID,
		&p.Description,
		&p.ImageURLs,
		&p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get post: %w", err)
	}
	return &p, nil
}

// Delete removes the post; likes and comments cascade at the schema level.
// Notifications referencing the post become orphans and are collected by
// the next retention pass.
func (s *PostStore) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	return nil
}

func (s *PostStore) CountByCar(ctx context.Context, carID uuid.UUID) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM posts WHERE car_id = $1`, carID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count posts: %w", err)
	}
	return count, nil
}

func (s *PostStore) LikeExists(ctx context.Context, postID, carID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM post_likes WHERE post_id = $1 AND car_id = $2
		)`

	var exists bool
	err := s.pool.QueryRow(ctx, query, postID, carID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check like: %w", err)
	}
	return exists, nil
}

func (s *PostStore) InsertLike(ctx context.Context, postID, carID uuid.UUID) error {
	query := `
		INSERT INTO post_likes (post_id, car_id, created_at)
		VALUES ($1, $2, now())
		ON CONFLICT (post_id, car_id) DO NOTHING`

	if _, err := s.pool.Exec(ctx, query, postID, carID); err != nil {
		return fmt.Errorf("insert like: %w", err)
	}
	return nil
}

func (s *PostStore) DeleteLike(ctx context.Context, postID, carID uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM post_likes WHERE post_id = $1 AND car_id = $2`, postID, carID)
	if err != nil {
		return fmt.Errorf("delete like: %w", err)
	}
	return nil
}

func (s *PostStore) CountLikes(ctx context.Context, postID uuid.UUID) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM post_likes WHERE post_id = $1`, postID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count likes: %w", err)
	}
	return count, nil
}

func (s *PostStore) InsertComment(ctx context.Context, postID, carID uuid.UUID, text string) (*models.Comment, error) {
	query := `
		INSERT INTO post_comments (post_id, car_id, comment_text, created_at)
		VALUES ($1, $2, $3, now())
		RETURNING id, post_id, car_id, comment_text, created_at`

	var c models.Comment
	err := s.pool.QueryRow(ctx, query, postID, carID, text).Scan(
		&c.ID,
		&c.PostID,
		&c.CarID,
		&c.Text,
		&c.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert comment: %w", err)
	}
	return &c, nil
}

func (s *PostStore) CountComments(ctx context.Context, postID uuid.UUID) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM post_comments WHERE post_id = $1`, postID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count comments: %w", err)
	}
	return count, nil
}

func (s *PostStore) ListComments(ctx context.Context, postID uuid.UUID, limit, offset int) ([]models.Comment, error) {
	query := `
		SELECT id, post_id, car_id, comment_text, created_at
		FROM post_comments
		WHERE post_id = $1
		ORDER BY created_at ASC
		LIMIT $2 OFFSET $3`

	rows, err := s.pool.Query(ctx, query, postID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	comments := make([]models.Comment, 0)
	for rows.Next() {
		var c models.Comment
		if err := rows.Scan(&c.ID, &c.PostID, &c.CarID, &c.Text, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}

	return comments, nil
}
