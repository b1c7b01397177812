package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/carhorizon/carhorizon/internal/models"
)

// In-memory stores mirroring the storage contracts, enough to drive the
// services without Postgres. Semantics (nil-on-missing, idempotent edge
// insert, predicate-scoped marks, retention rules) match the real stores.

type fakeCarStore struct {
	mu   sync.Mutex
	cars []*models.Car
}

func newFakeCarStore() *fakeCarStore { return &fakeCarStore{} }

func (s *fakeCarStore) Create(_ context.Context, userID uuid.UUID, plate, model string) (*models.Car, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	car := &models.Car{
		ID:        uuid.New(),
		UserID:    userID,
		Plate:     plate,
		Model:     model,
		CreatedAt: time.Now(),
	}
	s.cars = append(s.cars, car)
	c := *car
	return &c, nil
}

func (s *fakeCarStore) GetByID(_ context.Context, id uuid.UUID) (*models.Car, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, car := range s.cars {
		if car.ID == id {
			c := *car
			return &c, nil
		}
	}
	return nil, nil
}

func (s *fakeCarStore) ListByUser(_ context.Context, userID uuid.UUID) ([]models.Car, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Car, 0)
	for _, car := range s.cars {
		if car.UserID == userID {
			out = append(out, *car)
		}
	}
	return out, nil
}

func (s *fakeCarStore) CountByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	cars, _ := s.ListByUser(ctx, userID)
	return len(cars), nil
}

func (s *fakeCarStore) FindByPlate(_ context.Context, normalizedPlate string) (*models.Car, *models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, car := range s.cars {
		if models.NormalizePlate(car.Plate) == normalizedPlate {
			c := *car
			return &c, &models.User{ID: car.UserID}, nil
		}
	}
	return nil, nil, nil
}

func (s *fakeCarStore) SetActive(_ context.Context, userID, carID uuid.UUID) (*models.Car, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var target *models.Car
	for _, car := range s.cars {
		if car.UserID == userID && car.ID == carID {
			target = car
			break
		}
	}
	if target == nil {
		return nil, nil
	}
	for _, car := range s.cars {
		if car.UserID == userID {
			car.IsActive = false
		}
	}
	target.IsActive = true
	c := *target
	return &c, nil
}

func (s *fakeCarStore) GetActive(_ context.Context, userID uuid.UUID) (*models.Car, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, car := range s.cars {
		if car.UserID == userID && car.IsActive {
			c := *car
			return &c, nil
		}
	}
	return nil, nil
}

func (s *fakeCarStore) Delete(_ context.Context, userID, carID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	wasActive := false
	kept := s.cars[:0]
	for _, car := range s.cars {
		if car.UserID == userID && car.ID == carID {
			wasActive = car.IsActive
			continue
		}
		kept = append(kept, car)
	}
	s.cars = kept
	if wasActive {
		for _, car := range s.cars {
			if car.UserID == userID {
				car.IsActive = true
				break
			}
		}
	}
	return nil
}

func (s *fakeCarStore) UpdateBio(_ context.Context, carID uuid.UUID, bio string) (*models.Car, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, car := range s.cars {
		if car.ID == carID {
			car.Bio = bio
			c := *car
			return &c, nil
		}
	}
	return nil, nil
}

func (s *fakeCarStore) SetAvatarURL(_ context.Context, carID uuid.UUID, avatarURL string) (*models.Car, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, car := range s.cars {
		if car.ID == carID {
			car.AvatarURL = avatarURL
			c := *car
			return &c, nil
		}
	}
	return nil, nil
}

type followKey struct{ follower, followed uuid.UUID }

type fakeFollowStore struct {
	mu    sync.Mutex
	edges map[followKey]time.Time
}

func newFakeFollowStore() *fakeFollowStore {
	return &fakeFollowStore{edges: make(map[followKey]time.Time)}
}

func (s *fakeFollowStore) Insert(_ context.Context, followerCarID, followedCarID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := followKey{followerCarID, followedCarID}
	if _, ok := s.edges[key]; ok {
		return false, nil
	}
	s.edges[key] = time.Now()
	return true, nil
}

func (s *fakeFollowStore) Delete(_ context.Context, followerCarID, followedCarID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := followKey{followerCarID, followedCarID}
	if _, ok := s.edges[key]; !ok {
		return false, nil
	}
	delete(s.edges, key)
	return true, nil
}

func (s *fakeFollowStore) Exists(_ context.Context, followerCarID, followedCarID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.edges[followKey{followerCarID, followedCarID}]
	return ok, nil
}

func (s *fakeFollowStore) CountFollowers(_ context.Context, carID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for key := range s.edges {
		if key.followed == carID {
			n++
		}
	}
	return n, nil
}

func (s *fakeFollowStore) CountFollowing(_ context.Context, carID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for key := range s.edges {
		if key.follower == carID {
			n++
		}
	}
	return n, nil
}

func (s *fakeFollowStore) ListFollowers(_ context.Context, carID uuid.UUID) ([]models.CarSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.CarSummary, 0)
	for key := range s.edges {
		if key.followed == carID {
			out = append(out, models.CarSummary{ID: key.follower})
		}
	}
	return out, nil
}

func (s *fakeFollowStore) ListFollowing(_ context.Context, carID uuid.UUID) ([]models.CarSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.CarSummary, 0)
	for key := range s.edges {
		if key.follower == carID {
			out = append(out, models.CarSummary{ID: key.followed})
		}
	}
	return out, nil
}

type fakeChatStore struct {
	mu    sync.Mutex
	chats []*models.Chat
}

func newFakeChatStore() *fakeChatStore { return &fakeChatStore{} }

func (s *fakeChatStore) FindByPair(_ context.Context, carA, carB uuid.UUID) (*models.Chat, error) {
	lo, hi := models.ChatPairKey(carA, carB)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, chat := range s.chats {
		clo, chi := models.ChatPairKey(chat.CarID, chat.InitiatorCarID)
		if clo == lo && chi == hi {
			c := *chat
			return &c, nil
		}
	}
	return nil, nil
}

func (s *fakeChatStore) Create(_ context.Context, carID, ownerID, otherUserID, initiatorCarID uuid.UUID) (*models.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	chat := &models.Chat{
		ID:             uuid.New(),
		CarID:          carID,
		OwnerID:        ownerID,
		OtherUserID:    otherUserID,
		InitiatorCarID: initiatorCarID,
		CreatedAt:      time.Now(),
	}
	s.chats = append(s.chats, chat)
	c := *chat
	return &c, nil
}

func (s *fakeChatStore) GetByID(_ context.Context, id uuid.UUID) (*models.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, chat := range s.chats {
		if chat.ID == id {
			c := *chat
			return &c, nil
		}
	}
	return nil, nil
}

func (s *fakeChatStore) InboxForUser(_ context.Context, userID uuid.UUID) ([]models.InboxThread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.InboxThread, 0)
	for _, chat := range s.chats {
		if chat.OwnerID != userID && chat.OtherUserID != userID {
			continue
		}
		out = append(out, models.InboxThread{
			ChatID:         chat.ID,
			CarID:          chat.CarID,
			InitiatorCarID: chat.InitiatorCarID,
			OwnerID:        chat.OwnerID,
			OtherUserID:    chat.OtherUserID,
		})
	}
	return out, nil
}

type fakeMessageStore struct {
	mu       sync.Mutex
	nextID   int64
	messages []models.Message
}

func newFakeMessageStore() *fakeMessageStore { return &fakeMessageStore{} }

func (s *fakeMessageStore) Create(_ context.Context, chatID, senderID uuid.UUID, text string) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	msg := models.Message{
		ID:        s.nextID,
		ChatID:    chatID,
		SenderID:  senderID,
		Text:      text,
		CreatedAt: time.Now(),
	}
	s.messages = append(s.messages, msg)
	return &msg, nil
}

func (s *fakeMessageStore) ListByChat(_ context.Context, chatID uuid.UUID) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Message, 0)
	for _, msg := range s.messages {
		if msg.ChatID == chatID {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (s *fakeMessageStore) ExistsFromOtherAfter(_ context.Context, chatID, userID uuid.UUID, after *time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, msg := range s.messages {
		if msg.ChatID != chatID || msg.SenderID == userID {
			continue
		}
		if after == nil || msg.CreatedAt.After(*after) {
			return true, nil
		}
	}
	return false, nil
}

type readKey struct {
	chat uuid.UUID
	user uuid.UUID
}

type fakeReadStore struct {
	mu      sync.Mutex
	cursors map[readKey]time.Time
}

func newFakeReadStore() *fakeReadStore {
	return &fakeReadStore{cursors: make(map[readKey]time.Time)}
}

func (s *fakeReadStore) Upsert(_ context.Context, chatID, userID uuid.UUID) (*models.ChatRead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.cursors[readKey{chatID, userID}] = now
	return &models.ChatRead{ChatID: chatID, UserID: userID, LastReadAt: now}, nil
}

func (s *fakeReadStore) Get(_ context.Context, chatID, userID uuid.UUID) (*models.ChatRead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	at, ok := s.cursors[readKey{chatID, userID}]
	if !ok {
		return nil, nil
	}
	return &models.ChatRead{ChatID: chatID, UserID: userID, LastReadAt: at}, nil
}

type fakeNotificationStore struct {
	mu     sync.Mutex
	nextID int64
	rows   []*models.Notification

	// posts backs the retention pass's orphan and post-age checks.
	posts *fakePostStore
	cars  *fakeCarStore
}

func newFakeNotificationStore(posts *fakePostStore, cars *fakeCarStore) *fakeNotificationStore {
	return &fakeNotificationStore{posts: posts, cars: cars}
}

func (s *fakeNotificationStore) Insert(_ context.Context, recipientCarID, actorCarID uuid.UUID, typ string, postID *uuid.UUID, commentID *int64, message string) (*models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	row := &models.Notification{
		ID:             s.nextID,
		RecipientCarID: recipientCarID,
		ActorCarID:     actorCarID,
		Type:           typ,
		PostID:         postID,
		CommentID:      commentID,
		Message:        message,
		CreatedAt:      time.Now(),
	}
	s.rows = append(s.rows, row)
	return row, nil
}

func (s *fakeNotificationStore) PruneForRecipient(ctx context.Context, recipientCarID uuid.UUID, now time.Time) error {
	followCutoff := now.AddDate(0, 0, -60)
	postCutoff := now.AddDate(0, 0, -30)

	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.rows[:0]
	for _, row := range s.rows {
		if row.RecipientCarID == recipientCarID && s.expired(ctx, row, followCutoff, postCutoff) {
			continue
		}
		kept = append(kept, row)
	}
	s.rows = kept
	return nil
}

func (s *fakeNotificationStore) expired(ctx context.Context, row *models.Notification, followCutoff, postCutoff time.Time) bool {
	if row.PostID != nil {
		post, _ := s.posts.GetByID(ctx, *row.PostID)
		if post == nil {
			return true
		}
		if post.CreatedAt.Before(postCutoff) {
			return true
		}
	}
	if row.Type == models.NotificationFollow && row.CreatedAt.Before(followCutoff) {
		return true
	}
	return false
}

func (s *fakeNotificationStore) view(ctx context.Context, row *models.Notification) models.NotificationView {
	v := models.NotificationView{Notification: *row}
	if actor, _ := s.cars.GetByID(ctx, row.ActorCarID); actor != nil {
		v.ActorName = actor.Plate
		v.ActorAvatar = actor.AvatarURL
	}
	return v
}

func (s *fakeNotificationStore) ListForRecipient(ctx context.Context, recipientCarID uuid.UUID, limit int) ([]models.NotificationView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	views := make([]models.NotificationView, 0)
	for _, row := range s.rows {
		if row.RecipientCarID == recipientCarID {
			views = append(views, s.view(ctx, row))
		}
	}
	sort.Slice(views, func(i, j int) bool {
		if views[i].CreatedAt.Equal(views[j].CreatedAt) {
			return views[i].ID > views[j].ID
		}
		return views[i].CreatedAt.After(views[j].CreatedAt)
	})
	if len(views) > limit {
		views = views[:limit]
	}
	return views, nil
}

func (s *fakeNotificationStore) CountUnread(_ context.Context, recipientCarID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, row := range s.rows {
		if row.RecipientCarID == recipientCarID && !row.IsRead {
			n++
		}
	}
	return n, nil
}

func (s *fakeNotificationStore) GetView(ctx context.Context, id int64) (*models.NotificationView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.rows {
		if row.ID == id {
			v := s.view(ctx, row)
			return &v, nil
		}
	}
	return nil, nil
}

func (s *fakeNotificationStore) MarkRead(_ context.Context, id int64, recipientCarID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.rows {
		if row.ID == id && row.RecipientCarID == recipientCarID {
			row.IsRead = true
		}
	}
	return nil
}

func (s *fakeNotificationStore) MarkAllRead(_ context.Context, recipientCarID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.rows {
		if row.RecipientCarID == recipientCarID {
			row.IsRead = true
		}
	}
	return nil
}

type likeKey struct {
	post uuid.UUID
	car  uuid.UUID
}

type fakePostStore struct {
	mu            sync.Mutex
	posts         []*models.Post
	likes         map[likeKey]struct{}
	comments      []models.Comment
	nextCommentID int64
}

func newFakePostStore() *fakePostStore {
	return &fakePostStore{likes: make(map[likeKey]struct{})}
}

func (s *fakePostStore) Create(_ context.Context, carID, userID uuid.UUID, description string, imageURLs []string) (*models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	post := &models.Post{
		ID:          uuid.New(),
		CarID:       carID,
		UserID:      userID,
		Description: description,
		ImageURLs:   imageURLs,
		CreatedAt:   time.Now(),
	}
	s.posts = append(s.posts, post)
	p := *post
	return &p, nil
}

func (s *fakePostStore) GetByID(_ context.Context, id uuid.UUID) (*models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, post := range s.posts {
		if post.ID == id {
			p := *post
			return &p, nil
		}
	}
	return nil, nil
}

func (s *fakePostStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.posts[:0]
	for _, post := range s.posts {
		if post.ID != id {
			kept = append(kept, post)
		}
	}
	s.posts = kept
	for key := range s.likes {
		if key.post == id {
			delete(s.likes, key)
		}
	}
	keptComments := s.comments[:0]
	for _, c := range s.comments {
		if c.PostID != id {
			keptComments = append(keptComments, c)
		}
	}
	s.comments = keptComments
	return nil
}

func (s *fakePostStore) CountByCar(_ context.Context, carID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, post := range s.posts {
		if post.CarID == carID {
			n++
		}
	}
	return n, nil
}

func (s *fakePostStore) LikeExists(_ context.Context, postID, carID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.likes[likeKey{postID, carID}]
	return ok, nil
}

func (s *fakePostStore) InsertLike(_ context.Context, postID, carID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.likes[likeKey{postID, carID}] = struct{}{}
	return nil
}

func (s *fakePostStore) DeleteLike(_ context.Context, postID, carID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.likes, likeKey{postID, carID})
	return nil
}

func (s *fakePostStore) CountLikes(_ context.Context, postID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for key := range s.likes {
		if key.post == postID {
			n++
		}
	}
	return n, nil
}

func (s *fakePostStore) InsertComment(_ context.Context, postID, carID uuid.UUID, text string) (*models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextCommentID++
	comment := models.Comment{
		ID:        s.nextCommentID,
		PostID:    postID,
		CarID:     carID,
		Text:      text,
		CreatedAt: time.Now(),
	}
	s.comments = append(s.comments, comment)
	return &comment, nil
}

func (s *fakePostStore) CountComments(_ context.Context, postID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.comments {
		if c.PostID == postID {
			n++
		}
	}
	return n, nil
}

func (s *fakePostStore) ListComments(_ context.Context, postID uuid.UUID, limit, offset int) ([]models.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := make([]models.Comment, 0)
	for _, c := range s.comments {
		if c.PostID == postID {
			all = append(all, c)
		}
	}
	if offset >= len(all) {
		return []models.Comment{}, nil
	}
	all = all[offset:]
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// recordingBus captures published events for assertions.
type publishedEvent struct {
	UserID  uuid.UUID // uuid.Nil for broadcasts
	Event   string
	Payload any
}

type recordingBus struct {
	mu     sync.Mutex
	events []publishedEvent
}

func newRecordingBus() *recordingBus { return &recordingBus{} }

func (b *recordingBus) PublishToUser(userID uuid.UUID, event string, payload any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, publishedEvent{UserID: userID, Event: event, Payload: payload})
}

func (b *recordingBus) Broadcast(event string, payload any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, publishedEvent{Event: event, Payload: payload})
}

func (b *recordingBus) byEvent(event string) []publishedEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]publishedEvent, 0)
	for _, e := range b.events {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}
