package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/carhorizon/carhorizon/internal/apperr"
	"github.com/carhorizon/carhorizon/internal/models"
	"github.com/carhorizon/carhorizon/internal/repository"
)

const maxMessageLength = 2000

// Chats resolves conversation identity, stores messages, and tracks
// per-participant read cursors. A conversation is about one car but can be
// re-entered from either side: lookup ignores direction, storage keeps the
// first-contact direction forever.
type Chats struct {
	chats    repository.ChatRepository
	messages repository.MessageRepository
	reads    repository.ReadRepository
	garage   *Garage
	bus      EventBus
	logger   *zap.Logger
}

func NewChats(chats repository.ChatRepository, messages repository.MessageRepository, reads repository.ReadRepository, garage *Garage, bus EventBus, logger *zap.Logger) *Chats {
	return &Chats{
		chats:    chats,
		messages: messages,
		reads:    reads,
		garage:   garage,
		bus:      bus,
		logger:   logger,
	}
}

// Open finds or creates the conversation between the displayed car (the
// one being written about) and the caller's initiator car. The existing
// chat is returned whichever direction first contact happened in —
// opening (X from Y) after someone opened (Y from X) lands in the same
// chat. The initiator car must belong to the caller.
func (s *Chats) Open(ctx context.Context, userID, displayedCarID, initiatorCarID uuid.UUID) (*models.Chat, bool, error) {
	displayed, err := s.garage.GetCar(ctx, displayedCarID)
	if err != nil {
		return nil, false, err
	}

	initiator, err := s.garage.GetCar(ctx, initiatorCarID)
	if err != nil {
		return nil, false, err
	}
	if initiator.UserID != userID {
		return nil, false, apperr.New(apperr.Forbidden, "initiator car does not belong to current user")
	}

	existing, err := s.chats.FindByPair(ctx, displayed.ID, initiator.ID)
	if err != nil {
		return nil, false, apperr.Infra("find chat", err)
	}
	if existing != nil {
		return existing, true, nil
	}

	chat, err := s.chats.Create(ctx, displayed.ID, displayed.UserID, userID, initiator.ID)
	if err != nil {
		return nil, false, apperr.Infra("create chat", err)
	}
	return chat, false, nil
}

func (s *Chats) Inbox(ctx context.Context, userID uuid.UUID) ([]models.InboxThread, error) {
	threads, err := s.chats.InboxForUser(ctx, userID)
	if err != nil {
		return nil, apperr.Infra("load inbox", err)
	}
	return threads, nil
}

// getParticipantChat loads a chat and verifies the caller is one of its
// two sides.
func (s *Chats) getParticipantChat(ctx context.Context, chatID, userID uuid.UUID) (*models.Chat, error) {
	chat, err := s.chats.GetByID(ctx, chatID)
	if err != nil {
		return nil, apperr.Infra("get chat", err)
	}
	if chat == nil {
		return nil, apperr.New(apperr.NotFound, "chat not found")
	}
	if !chat.HasParticipant(userID) {
		return nil, apperr.New(apperr.Forbidden, "not a participant of this chat")
	}
	return chat, nil
}

func (s *Chats) Messages(ctx context.Context, userID, chatID uuid.UUID) ([]models.Message, error) {
	if _, err := s.getParticipantChat(ctx, chatID, userID); err != nil {
		return nil, err
	}

	messages, err := s.messages.ListByChat(ctx, chatID)
	if err != nil {
		return nil, apperr.Infra("list messages", err)
	}
	return messages, nil
}

// Send persists a message, then pushes `message` and `inbox_update` to
// both participants. The events fire only after the insert is
// acknowledged; their delivery is best-effort.
func (s *Chats) Send(ctx context.Context, userID, chatID uuid.UUID, text string) (*models.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperr.New(apperr.Validation, "text is required")
	}
	if len(text) > maxMessageLength {
		return nil, apperr.Newf(apperr.Validation, "message cannot exceed %d characters", maxMessageLength)
	}

	chat, err := s.getParticipantChat(ctx, chatID, userID)
	if err != nil {
		return nil, err
	}

	msg, err := s.messages.Create(ctx, chatID, userID, text)
	if err != nil {
		return nil, apperr.Infra("send message", err)
	}

	update := inboxUpdatePayload{
		ChatID:        chat.ID,
		CarID:         chat.CarID,
		OwnerID:       chat.OwnerID,
		OtherUserID:   chat.OtherUserID,
		LastText:      msg.Text,
		LastCreatedAt: msg.CreatedAt,
	}
	for _, participant := range []uuid.UUID{chat.OwnerID, chat.OtherUserID} {
		s.bus.PublishToUser(participant, EventMessage, msg)
		s.bus.PublishToUser(participant, EventInboxUpdate, update)
	}

	return msg, nil
}

// MarkRead moves the caller's read cursor to now and tells both
// participants. Cursors are independent per participant; last write wins
// per (chat, user) pair.
func (s *Chats) MarkRead(ctx context.Context, userID, chatID uuid.UUID) (*models.ChatRead, error) {
	chat, err := s.getParticipantChat(ctx, chatID, userID)
	if err != nil {
		return nil, err
	}

	row, err := s.reads.Upsert(ctx, chatID, userID)
	if err != nil {
		return nil, apperr.Infra("mark chat read", err)
	}

	payload := chatReadPayload{
		ChatID:     chat.ID,
		ReaderID:   userID,
		LastReadAt: row.LastReadAt,
	}
	for _, participant := range []uuid.UUID{chat.OwnerID, chat.OtherUserID} {
		s.bus.PublishToUser(participant, EventChatRead, payload)
	}

	return row, nil
}

// UnreadFor reports whether the chat holds anything the user has not seen:
// a message from the other side newer than their cursor, or any message
// from the other side when they have never read the chat.
func (s *Chats) UnreadFor(ctx context.Context, chatID, userID uuid.UUID) (bool, error) {
	cursor, err := s.reads.Get(ctx, chatID, userID)
	if err != nil {
		return false, apperr.Infra("get read cursor", err)
	}

	var after *time.Time
	if cursor != nil {
		after = &cursor.LastReadAt
	}

	unread, err := s.messages.ExistsFromOtherAfter(ctx, chatID, userID, after)
	if err != nil {
		return false, apperr.Infra("check unread", err)
	}
	return unread, nil
}

// OtherParticipantLastRead returns when the chat's other side last read
// it, or nil if they never have.
func (s *Chats) OtherParticipantLastRead(ctx context.Context, userID, chatID uuid.UUID) (*time.Time, error) {
	chat, err := s.getParticipantChat(ctx, chatID, userID)
	if err != nil {
		return nil, err
	}

	cursor, err := s.reads.Get(ctx, chatID, chat.OtherParticipant(userID))
	if err != nil {
		return nil, apperr.Infra("get read cursor", err)
	}
	if cursor == nil {
		return nil, nil
	}
	return &cursor.LastReadAt, nil
}
