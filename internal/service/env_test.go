package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/carhorizon/carhorizon/internal/models"
)

// env wires the full service graph over in-memory stores.
type env struct {
	cars          *fakeCarStore
	follows       *fakeFollowStore
	chatStore     *fakeChatStore
	messages      *fakeMessageStore
	reads         *fakeReadStore
	notifStore    *fakeNotificationStore
	posts         *fakePostStore
	bus           *recordingBus
	garage        *Garage
	notifications *Notifications
	followGraph   *FollowGraph
	chats         *Chats
	engagement    *Engagement
}

func newEnv(t *testing.T) *env {
	t.Helper()

	logger := zap.NewNop()
	cars := newFakeCarStore()
	follows := newFakeFollowStore()
	chatStore := newFakeChatStore()
	messages := newFakeMessageStore()
	reads := newFakeReadStore()
	posts := newFakePostStore()
	notifStore := newFakeNotificationStore(posts, cars)
	bus := newRecordingBus()

	garage := NewGarage(cars, follows, posts, logger)
	notifications := NewNotifications(notifStore, cars, garage, bus, logger)

	return &env{
		cars:          cars,
		follows:       follows,
		chatStore:     chatStore,
		messages:      messages,
		reads:         reads,
		notifStore:    notifStore,
		posts:         posts,
		bus:           bus,
		garage:        garage,
		notifications: notifications,
		followGraph:   NewFollowGraph(follows, garage, notifications, logger),
		chats:         NewChats(chatStore, messages, reads, garage, bus, logger),
		engagement:    NewEngagement(posts, garage, notifications, bus, logger),
	}
}

// Fixed identities for tests that refer to the same user across calls.
var (
	idUserA = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	idUserB = uuid.MustParse("22222222-2222-2222-2222-222222222222")
)

func userA() uuid.UUID { return idUserA }
func userB() uuid.UUID { return idUserB }

// newUserWithActiveCar seeds a user with one registered, activated car.
func (e *env) newUserWithActiveCar(t *testing.T, plate string) (uuid.UUID, *models.Car) {
	t.Helper()

	userID := uuid.New()
	car, err := e.garage.RegisterCar(context.Background(), userID, plate, "Test Model")
	if err != nil {
		t.Fatalf("register car: %v", err)
	}
	active, err := e.garage.SetActive(context.Background(), userID, car.ID)
	if err != nil {
		t.Fatalf("activate car: %v", err)
	}
	return userID, active
}
