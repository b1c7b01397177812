package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/carhorizon/carhorizon/internal/models"
)

// Every method takes a context so storage round trips inherit the request
// deadline: a cancelled request cancels its queries, and no operation
// proceeds to realtime publication until its commit has been acknowledged.

// UserRepository handles account rows. Credential verification itself lives
// in the auth package; this is only storage.
type UserRepository interface {
	Create(ctx context.Context, email, passwordHash string) (*models.User, error)

	// GetByEmail returns nil, nil when no such user exists.
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// GetByID returns nil, nil when no such user exists.
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// CarRepository owns the cars table, including the single-active-car swap.
type CarRepository interface {
	Create(ctx context.Context, userID uuid.UUID, plate, model string) (*models.Car, error)

	// GetByID returns nil, nil when no such car exists.
	GetByID(ctx context.Context, id uuid.UUID) (*models.Car, error)

	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Car, error)
	CountByUser(ctx context.Context, userID uuid.UUID) (int, error)

	// FindByPlate matches on the normalized plate and returns the car and
	// its owner. nil, nil, nil when nothing matches.
	FindByPlate(ctx context.Context, normalizedPlate string) (*models.Car, *models.User, error)

	// SetActive atomically clears IsActive on all of the user's cars and
	// sets it on carID, in one transaction. Returns nil, nil when carID
	// does not belong to userID (nothing is changed in that case).
	SetActive(ctx context.Context, userID, carID uuid.UUID) (*models.Car, error)

	// GetActive returns nil, nil when the user has never activated a car.
	GetActive(ctx context.Context, userID uuid.UUID) (*models.Car, error)

	// Delete removes the car. If it was the active one, an arbitrary
	// remaining car of the same owner is activated in the same
	// transaction. The caller guarantees it is not the last car.
	Delete(ctx context.Context, userID, carID uuid.UUID) error

	UpdateBio(ctx context.Context, carID uuid.UUID, bio string) (*models.Car, error)
	SetAvatarURL(ctx context.Context, carID uuid.UUID, avatarURL string) (*models.Car, error)
}

// FollowRepository holds directed car-to-car edges.
type FollowRepository interface {
	// Insert is idempotent at the storage layer (duplicate insert is a
	// no-op); inserted reports whether a new edge was created.
	Insert(ctx context.Context, followerCarID, followedCarID uuid.UUID) (inserted bool, err error)

	// Delete reports whether an edge existed.
	Delete(ctx context.Context, followerCarID, followedCarID uuid.UUID) (deleted bool, err error)

	Exists(ctx context.Context, followerCarID, followedCarID uuid.UUID) (bool, error)
	CountFollowers(ctx context.Context, carID uuid.UUID) (int, error)
	CountFollowing(ctx context.Context, carID uuid.UUID) (int, error)
	ListFollowers(ctx context.Context, carID uuid.UUID) ([]models.CarSummary, error)
	ListFollowing(ctx context.Context, carID uuid.UUID) ([]models.CarSummary, error)
}

// ChatRepository resolves and stores conversations. Lookup is by the
// canonical unordered car pair, so direction of first contact never
// produces a duplicate.
type ChatRepository interface {
	// FindByPair returns the chat for the unordered pair {carA, carB},
	// or nil, nil when none exists.
	FindByPair(ctx context.Context, carA, carB uuid.UUID) (*models.Chat, error)

	// Create inserts the chat inside a transaction. The stored direction
	// (carID/ownerID/otherUserID/initiatorCarID) is the first-contact
	// direction and is preserved verbatim.
	Create(ctx context.Context, carID, ownerID, otherUserID, initiatorCarID uuid.UUID) (*models.Chat, error)

	// GetByID returns nil, nil when no such chat exists.
	GetByID(ctx context.Context, id uuid.UUID) (*models.Chat, error)

	// InboxForUser returns the user's threads with last message and
	// per-viewer display car, newest activity first.
	InboxForUser(ctx context.Context, userID uuid.UUID) ([]models.InboxThread, error)
}

// MessageRepository stores immutable chat messages.
type MessageRepository interface {
	Create(ctx context.Context, chatID uuid.UUID, senderID uuid.UUID, text string) (*models.Message, error)

	// ListByChat returns all messages of a chat, oldest first.
	ListByChat(ctx context.Context, chatID uuid.UUID) ([]models.Message, error)

	// ExistsFromOtherAfter reports whether the chat holds a message not
	// sent by userID and created after the given time. A nil time means
	// "ever" (the user has never read the chat).
	ExistsFromOtherAfter(ctx context.Context, chatID uuid.UUID, userID uuid.UUID, after *time.Time) (bool, error)
}

// ReadRepository tracks per-(chat, user) read cursors.
type ReadRepository interface {
	// Upsert sets the cursor to now, last write wins.
	Upsert(ctx context.Context, chatID uuid.UUID, userID uuid.UUID) (*models.ChatRead, error)

	// Get returns nil, nil when the user has never read the chat.
	Get(ctx context.Context, chatID uuid.UUID, userID uuid.UUID) (*models.ChatRead, error)
}

// NotificationRepository stores notifications and applies the retention
// policy. Mark operations are scoped by query predicate: a mismatching
// recipient updates zero rows and is not an error.
type NotificationRepository interface {
	Insert(ctx context.Context, recipientCarID, actorCarID uuid.UUID, typ string, postID *uuid.UUID, commentID *int64, message string) (*models.Notification, error)

	// PruneForRecipient deletes, for one recipient: orphaned post
	// notifications, follow notifications older than 60 days, and
	// notifications referencing posts older than 30 days. Called lazily
	// before each list read.
	PruneForRecipient(ctx context.Context, recipientCarID uuid.UUID, now time.Time) error

	// ListForRecipient returns notifications newest first with actor
	// display fields joined in. TimeAgo is left for the caller.
	ListForRecipient(ctx context.Context, recipientCarID uuid.UUID, limit int) ([]models.NotificationView, error)

	CountUnread(ctx context.Context, recipientCarID uuid.UUID) (int, error)

	// GetView returns one notification with actor fields, nil when absent.
	GetView(ctx context.Context, id int64) (*models.NotificationView, error)

	MarkRead(ctx context.Context, id int64, recipientCarID uuid.UUID) error
	MarkAllRead(ctx context.Context, recipientCarID uuid.UUID) error
}

// PostRepository is the minimal post/like/comment storage the notification
// and broadcast flows are built on.
type PostRepository interface {
	Create(ctx context.Context, carID, userID uuid.UUID, description string, imageURLs []string) (*models.Post, error)

	// GetByID returns nil, nil when no such post exists.
	GetByID(ctx context.Context, id uuid.UUID) (*models.Post, error)

	Delete(ctx context.Context, id uuid.UUID) error
	CountByCar(ctx context.Context, carID uuid.UUID) (int, error)

	LikeExists(ctx context.Context, postID, carID uuid.UUID) (bool, error)
	InsertLike(ctx context.Context, postID, carID uuid.UUID) error
	DeleteLike(ctx context.Context, postID, carID uuid.UUID) error
	CountLikes(ctx context.Context, postID uuid.UUID) (int, error)

	InsertComment(ctx context.Context, postID, carID uuid.UUID, text string) (*models.Comment, error)
	CountComments(ctx context.Context, postID uuid.UUID) (int, error)
	ListComments(ctx context.Context, postID uuid.UUID, limit, offset int) ([]models.Comment, error)
}
