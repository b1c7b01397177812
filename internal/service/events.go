package service

import (
	"time"

	"github.com/google/uuid"
)

// EventBus is the realtime side channel. Implementations are best-effort:
// publishing never returns an error and never blocks the caller — services
// publish only after the durable commit and ignore delivery outcome.
type EventBus interface {
	// PublishToUser fans an event out to every live connection of one
	// user. No connection means the event is dropped.
	PublishToUser(userID uuid.UUID, event string, payload any)

	// Broadcast sends an event to every connected client.
	Broadcast(event string, payload any)
}

// Realtime event names. message/inbox_update/chat_read go to both chat
// participants, new_notification to the recipient car's owner, and the
// post_* events are global broadcasts.
const (
	EventMessage         = "message"
	EventInboxUpdate     = "inbox_update"
	EventChatRead        = "chat_read"
	EventNewNotification = "new_notification"
	EventPostLiked       = "post_liked"
	EventPostCommented   = "post_commented"
)

// Wire payloads. Field names are part of the client contract.

type inboxUpdatePayload struct {
	ChatID        uuid.UUID `json:"chatId"`
	CarID         uuid.UUID `json:"car_id"`
	OwnerID       uuid.UUID `json:"owner_id"`
	OtherUserID   uuid.UUID `json:"other_user_id"`
	LastText      string    `json:"last_text"`
	LastCreatedAt time.Time `json:"last_created_at"`
}

type chatReadPayload struct {
	ChatID     uuid.UUID `json:"chatId"`
	ReaderID   uuid.UUID `json:"reader_id"`
	LastReadAt time.Time `json:"last_read_at"`
}

type postLikedPayload struct {
	PostID     uuid.UUID `json:"post_id"`
	LikesCount int       `json:"likes_count"`
	CarID      uuid.UUID `json:"car_id"`
	Liked      bool      `json:"liked"`
}

type postCommentedPayload struct {
	PostID        uuid.UUID `json:"post_id"`
	CommentsCount int       `json:"comments_count"`
}
