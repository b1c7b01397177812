package models

import (
	"bytes"
	"strings"
	"time"

	"github.com/google/uuid"
)

// User is an account holder. A user owns 1..N cars; the cars are the public
// face of the account (posting, following, notifications all happen between
// cars, not users).
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Car belongs to exactly one user. The plate is unique under normalization
// (upper-cased, spaces stripped). At most one of an owner's cars has
// IsActive set; the active car is the one acting on the owner's behalf.
// IsActive is only ever flipped by the garage swap (all-off then one-on,
// single transaction).
type Car struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Plate     string    `json:"plate"`
	Model     string    `json:"model,omitempty"`
	Bio       string    `json:"bio,omitempty"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// CarSummary is the display shape used in follower/following listings and
// inbox threads.
type CarSummary struct {
	ID        uuid.UUID `json:"id"`
	Plate     string    `json:"plate"`
	Model     string    `json:"model,omitempty"`
	AvatarURL string    `json:"avatar_url,omitempty"`
}

// FollowEdge is a directed car-to-car edge, unique per ordered pair.
// Self-loops are rejected before insert. Edges are created and destroyed,
// never mutated.
type FollowEdge struct {
	FollowerCarID uuid.UUID `json:"follower_car_id"`
	FollowedCarID uuid.UUID `json:"followed_car_id"`
	FollowedAt    time.Time `json:"followed_at"`
}

// Chat is a conversation about one car. CarID is the car being written
// about, OwnerID that car's owner, OtherUserID the counterpart, and
// InitiatorCarID the car the counterpart writes from. The stored direction
// reflects first contact and is never rewritten; uniqueness is on the
// unordered pair {CarID, InitiatorCarID} via (PairLo, PairHi).
type Chat struct {
	ID             uuid.UUID `json:"id"`
	CarID          uuid.UUID `json:"car_id"`
	OwnerID        uuid.UUID `json:"owner_id"`
	OtherUserID    uuid.UUID `json:"other_user_id"`
	InitiatorCarID uuid.UUID `json:"initiator_car_id"`
	CreatedAt      time.Time `json:"created_at"`
}

// HasParticipant reports whether userID is one of the chat's two sides.
func (c *Chat) HasParticipant(userID uuid.UUID) bool {
	return c.OwnerID == userID || c.OtherUserID == userID
}

// OtherParticipant returns the counterpart of userID in the chat.
func (c *Chat) OtherParticipant(userID uuid.UUID) uuid.UUID {
	if c.OwnerID == userID {
		return c.OtherUserID
	}
	return c.OwnerID
}

// Message is immutable once created and ordered by CreatedAt ascending
// within its chat.
type Message struct {
	ID        int64     `json:"id"`
	ChatID    uuid.UUID `json:"chat_id"`
	SenderID  uuid.UUID `json:"sender_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatRead is the per-(chat, user) read cursor. At most one row per pair,
// upserted with last-write-wins on the timestamp.
type ChatRead struct {
	ChatID     uuid.UUID `json:"chat_id"`
	UserID     uuid.UUID `json:"user_id"`
	LastReadAt time.Time `json:"last_read_at"`
}

// Notification types. Retention keys off the type: follow notifications
// expire after 60 days, post-linked ones follow their post.
const (
	NotificationFollow  = "follow"
	NotificationLike    = "like"
	NotificationComment = "comment"
)

// Notification is addressed to a car, not a user: whoever owns the
// recipient car at read time sees it.
type Notification struct {
	ID             int64      `json:"id"`
	RecipientCarID uuid.UUID  `json:"recipient_car_id"`
	ActorCarID     uuid.UUID  `json:"actor_car_id"`
	Type           string     `json:"type"`
	PostID         *uuid.UUID `json:"post_id,omitempty"`
	CommentID      *int64     `json:"comment_id,omitempty"`
	Message        string     `json:"message"`
	IsRead         bool       `json:"is_read"`
	CreatedAt      time.Time  `json:"created_at"`
}

// NotificationView is a Notification joined with the actor car's display
// fields and a coarse relative age, both computed at read time.
type NotificationView struct {
	Notification
	ActorName   string `json:"actor_name"`
	ActorAvatar string `json:"actor_avatar,omitempty"`
	TimeAgo     string `json:"time_ago"`
}

// Post is the minimal durable shape the notification and broadcast flows
// hang off. Full feed mechanics live outside this service.
type Post struct {
	ID          uuid.UUID `json:"id"`
	CarID       uuid.UUID `json:"car_id"`
	UserID      uuid.UUID `json:"user_id"`
	Description string    `json:"description"`
	ImageURLs   []string  `json:"image_urls,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Comment on a post, made by a car.
type Comment struct {
	ID        int64     `json:"id"`
	PostID    uuid.UUID `json:"post_id"`
	CarID     uuid.UUID `json:"car_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// InboxThread is one row of a user's inbox: the chat, the car to display
// for this viewer, the latest message, and the unread flag derived from the
// viewer's read cursor.
type InboxThread struct {
	ChatID         uuid.UUID  `json:"chat_id"`
	CarID          uuid.UUID  `json:"car_id"`
	InitiatorCarID uuid.UUID  `json:"initiator_car_id"`
	OwnerID        uuid.UUID  `json:"owner_id"`
	OtherUserID    uuid.UUID  `json:"other_user_id"`
	DisplayCar     CarSummary `json:"display_car"`
	LastText       string     `json:"last_text,omitempty"`
	LastCreatedAt  *time.Time `json:"last_created_at,omitempty"`
	LastSenderID   *uuid.UUID `json:"last_sender_id,omitempty"`
	HasUnread      bool       `json:"has_unread"`
}

// NormalizePlate maps "abc 123" and "ABC123" to the same key. Plate
// uniqueness and search both go through this form.
func NormalizePlate(plate string) string {
	return strings.ToUpper(strings.Join(strings.Fields(plate), ""))
}

// ChatPairKey canonicalizes the unordered car pair of a chat so the
// direction-agnostic uniqueness invariant is a single storage constraint:
// the lower uuid (bytewise) always lands in the first slot.
func ChatPairKey(a, b uuid.UUID) (lo, hi uuid.UUID) {
	if bytes.Compare(a[:], b[:]) <= 0 {
		return a, b
	}
	return b, a
}
