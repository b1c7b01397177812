package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/carhorizon/carhorizon/internal/apperr"
	"github.com/carhorizon/carhorizon/internal/models"
	"github.com/carhorizon/carhorizon/internal/repository"
)

const (
	maxCommentLength = 500
	maxPostImages    = 10
)

// Engagement covers the post interactions that feed the notification and
// broadcast flows: posting, liking, commenting. Aggregate count changes go
// to every connected client; the resulting notifications go to the post's
// car only.
type Engagement struct {
	posts    repository.PostRepository
	garage   *Garage
	notifier *Notifications
	bus      EventBus
	logger   *zap.Logger
}

func NewEngagement(posts repository.PostRepository, garage *Garage, notifier *Notifications, bus EventBus, logger *zap.Logger) *Engagement {
	return &Engagement{posts: posts, garage: garage, notifier: notifier, bus: bus, logger: logger}
}

// CreatePost publishes a post as one of the caller's cars. Image bytes
// live in external storage; only their URLs are recorded here.
func (e *Engagement) CreatePost(ctx context.Context, userID, carID uuid.UUID, description string, imageURLs []string) (*models.Post, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, apperr.New(apperr.Validation, "description is required")
	}
	if len(imageURLs) > maxPostImages {
		return nil, apperr.Newf(apperr.Validation, "maximum %d images allowed", maxPostImages)
	}

	car, err := e.garage.GetCar(ctx, carID)
	if err != nil {
		return nil, err
	}
	if car.UserID != userID {
		return nil, apperr.New(apperr.Forbidden, "you do not own this car")
	}

	post, err := e.posts.Create(ctx, carID, userID, description, imageURLs)
	if err != nil {
		return nil, apperr.Infra("create post", err)
	}
	return post, nil
}

// PostDetail is a post with its read-time aggregates.
type PostDetail struct {
	models.Post
	LikesCount    int  `json:"likes_count"`
	CommentsCount int  `json:"comments_count"`
	IsLikedByUser bool `json:"is_liked_by_user"`
}

func (e *Engagement) GetPost(ctx context.Context, userID uuid.UUID, postID uuid.UUID) (*PostDetail, error) {
	post, err := e.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, apperr.Infra("get post", err)
	}
	if post == nil {
		return nil, apperr.New(apperr.NotFound, "post not found")
	}

	likes, err := e.posts.CountLikes(ctx, postID)
	if err != nil {
		return nil, apperr.Infra("count likes", err)
	}
	comments, err := e.posts.CountComments(ctx, postID)
	if err != nil {
		return nil, apperr.Infra("count comments", err)
	}

	detail := &PostDetail{Post: *post, LikesCount: likes, CommentsCount: comments}

	// Viewer's like state is relative to their active car, if any.
	if active, err := e.garage.ActiveCar(ctx, userID); err == nil && active != nil {
		liked, err := e.posts.LikeExists(ctx, postID, active.ID)
		if err != nil {
			return nil, apperr.Infra("check like", err)
		}
		detail.IsLikedByUser = liked
	}

	return detail, nil
}

// DeletePost removes the caller's post. Likes and comments cascade;
// notifications pointing at the post become orphans for the next
// retention pass.
func (e *Engagement) DeletePost(ctx context.Context, userID, postID uuid.UUID) error {
	post, err := e.posts.GetByID(ctx, postID)
	if err != nil {
		return apperr.Infra("get post", err)
	}
	if post == nil {
		return apperr.New(apperr.NotFound, "post not found")
	}
	if post.UserID != userID {
		return apperr.New(apperr.Forbidden, "you do not own this post")
	}

	if err := e.posts.Delete(ctx, postID); err != nil {
		return apperr.Infra("delete post", err)
	}
	return nil
}

// ToggleLike flips the active car's like on a post. A fresh like notifies
// the post's car (unless it is the liker). Either direction broadcasts the
// new aggregate count to all connected clients.
func (e *Engagement) ToggleLike(ctx context.Context, userID, postID uuid.UUID) (liked bool, likesCount int, err error) {
	acting, err := e.garage.ResolveActingCar(ctx, userID)
	if err != nil {
		return false, 0, err
	}

	post, err := e.posts.GetByID(ctx, postID)
	if err != nil {
		return false, 0, apperr.Infra("get post", err)
	}
	if post == nil {
		return false, 0, apperr.New(apperr.NotFound, "post not found")
	}

	already, err := e.posts.LikeExists(ctx, postID, acting.ID)
	if err != nil {
		return false, 0, apperr.Infra("check like", err)
	}

	if already {
		if err := e.posts.DeleteLike(ctx, postID, acting.ID); err != nil {
			return false, 0, apperr.Infra("delete like", err)
		}
		liked = false
	} else {
		if err := e.posts.InsertLike(ctx, postID, acting.ID); err != nil {
			return false, 0, apperr.Infra("insert like", err)
		}
		liked = true

		if _, err := e.notifier.Notify(ctx, post.CarID, acting.ID, models.NotificationLike, &postID, nil, "liked your post"); err != nil {
			e.logger.Warn("like notification failed", zap.String("post_id", postID.String()), zap.Error(err))
		}
	}

	likesCount, err = e.posts.CountLikes(ctx, postID)
	if err != nil {
		return liked, 0, apperr.Infra("count likes", err)
	}

	e.bus.Broadcast(EventPostLiked, postLikedPayload{
		PostID:     postID,
		LikesCount: likesCount,
		CarID:      acting.ID,
		Liked:      liked,
	})

	return liked, likesCount, nil
}

// AddComment appends a comment as the active car, broadcasts the new
// comment count, and notifies the post's car unless it is the commenter.
func (e *Engagement) AddComment(ctx context.Context, userID, postID uuid.UUID, text string) (*models.Comment, int, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, 0, apperr.New(apperr.Validation, "comment text is required")
	}
	if len(text) > maxCommentLength {
		return nil, 0, apperr.Newf(apperr.Validation, "comment cannot exceed %d characters", maxCommentLength)
	}

	acting, err := e.garage.ResolveActingCar(ctx, userID)
	if err != nil {
		return nil, 0, err
	}

	post, err := e.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, 0, apperr.Infra("get post", err)
	}
	if post == nil {
		return nil, 0, apperr.New(apperr.NotFound, "post not found")
	}

	comment, err := e.posts.InsertComment(ctx, postID, acting.ID, text)
	if err != nil {
		return nil, 0, apperr.Infra("insert comment", err)
	}

	count, err := e.posts.CountComments(ctx, postID)
	if err != nil {
		return comment, 0, apperr.Infra("count comments", err)
	}

	e.bus.Broadcast(EventPostCommented, postCommentedPayload{
		PostID:        postID,
		CommentsCount: count,
	})

	if _, err := e.notifier.Notify(ctx, post.CarID, acting.ID, models.NotificationComment, &postID, &comment.ID, "commented on your post"); err != nil {
		e.logger.Warn("comment notification failed", zap.String("post_id", postID.String()), zap.Error(err))
	}

	return comment, count, nil
}

func (e *Engagement) Comments(ctx context.Context, postID uuid.UUID, limit, offset int) ([]models.Comment, error) {
	post, err := e.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, apperr.Infra("get post", err)
	}
	if post == nil {
		return nil, apperr.New(apperr.NotFound, "post not found")
	}

	comments, err := e.posts.ListComments(ctx, postID, limit, offset)
	if err != nil {
		return nil, apperr.Infra("list comments", err)
	}
	return comments, nil
}
