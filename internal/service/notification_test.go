package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carhorizon/carhorizon/internal/models"
)

func TestNotifySuppressesSelf(t *testing.T) {
	e := newEnv(t)

	_, car := e.newUserWithActiveCar(t, "AAA111")

	view, err := e.notifications.Notify(context.Background(), car.ID, car.ID, models.NotificationLike, nil, nil, "liked your post")
	require.NoError(t, err)
	assert.Nil(t, view, "self-notification is a no-op")

	assert.Empty(t, e.bus.byEvent(EventNewNotification))

	unread, err := e.notifStore.CountUnread(context.Background(), car.ID)
	require.NoError(t, err)
	assert.Zero(t, unread, "no row may be written either")
}

func TestNotifyDeliversToRecipientOwner(t *testing.T) {
	e := newEnv(t)

	recipientUser, recipientCar := e.newUserWithActiveCar(t, "AAA111")
	_, actorCar := e.newUserWithActiveCar(t, "BBB222")

	view, err := e.notifications.Notify(context.Background(), recipientCar.ID, actorCar.ID, models.NotificationFollow, nil, nil, "started following you")
	require.NoError(t, err)
	require.NotNil(t, view)
	assert.Equal(t, "BBB222", view.ActorName, "actor display fields are joined in")
	assert.NotEmpty(t, view.TimeAgo)

	events := e.bus.byEvent(EventNewNotification)
	require.Len(t, events, 1)
	assert.Equal(t, recipientUser, events[0].UserID)
}

func TestListForWithoutActiveCarIsEmpty(t *testing.T) {
	e := newEnv(t)

	list, err := e.notifications.ListFor(context.Background(), userA())
	require.NoError(t, err)
	assert.Empty(t, list.Notifications)
	assert.Zero(t, list.UnreadCount)
}

func TestListForNewestFirstWithUnreadCount(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	recipientUser, recipientCar := e.newUserWithActiveCar(t, "AAA111")
	_, actorCar := e.newUserWithActiveCar(t, "BBB222")

	_, err := e.notifications.Notify(ctx, recipientCar.ID, actorCar.ID, models.NotificationFollow, nil, nil, "first")
	require.NoError(t, err)
	_, err = e.notifications.Notify(ctx, recipientCar.ID, actorCar.ID, models.NotificationFollow, nil, nil, "second")
	require.NoError(t, err)

	list, err := e.notifications.ListFor(ctx, recipientUser)
	require.NoError(t, err)
	require.Len(t, list.Notifications, 2)
	assert.Equal(t, "second", list.Notifications[0].Message)
	assert.Equal(t, 2, list.UnreadCount)
}

func TestRetentionPrunesOldFollows(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	recipientUser, recipientCar := e.newUserWithActiveCar(t, "AAA111")
	_, actorCar := e.newUserWithActiveCar(t, "BBB222")

	_, err := e.notifications.Notify(ctx, recipientCar.ID, actorCar.ID, models.NotificationFollow, nil, nil, "old follow")
	require.NoError(t, err)
	_, err = e.notifications.Notify(ctx, recipientCar.ID, actorCar.ID, models.NotificationFollow, nil, nil, "fresh follow")
	require.NoError(t, err)

	// Age the first row past the 60-day window.
	e.notifStore.rows[0].CreatedAt = time.Now().AddDate(0, 0, -61)

	list, err := e.notifications.ListFor(ctx, recipientUser)
	require.NoError(t, err)
	require.Len(t, list.Notifications, 1)
	assert.Equal(t, "fresh follow", list.Notifications[0].Message)
}

func TestRetentionPrunesOrphanedPostNotifications(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	recipientUser, recipientCar := e.newUserWithActiveCar(t, "AAA111")
	actorUser, _ := e.newUserWithActiveCar(t, "BBB222")

	post, err := e.engagement.CreatePost(ctx, recipientUser, recipientCar.ID, "my car", nil)
	require.NoError(t, err)

	// Actor likes the post; recipient gets a notification.
	_, _, err = e.engagement.ToggleLike(ctx, actorUser, post.ID)
	require.NoError(t, err)

	list, err := e.notifications.ListFor(ctx, recipientUser)
	require.NoError(t, err)
	require.Len(t, list.Notifications, 1)

	// Post gone: the notification is an orphan and the next read sweeps it.
	require.NoError(t, e.engagement.DeletePost(ctx, recipientUser, post.ID))

	list, err = e.notifications.ListFor(ctx, recipientUser)
	require.NoError(t, err)
	assert.Empty(t, list.Notifications)
}

func TestRetentionPrunesNotificationsOfOldPosts(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	recipientUser, recipientCar := e.newUserWithActiveCar(t, "AAA111")
	actorUser, _ := e.newUserWithActiveCar(t, "BBB222")

	post, err := e.engagement.CreatePost(ctx, recipientUser, recipientCar.ID, "my car", nil)
	require.NoError(t, err)
	_, _, err = e.engagement.ToggleLike(ctx, actorUser, post.ID)
	require.NoError(t, err)

	// Age the post past the 30-day window.
	e.posts.posts[0].CreatedAt = time.Now().AddDate(0, 0, -31)

	list, err := e.notifications.ListFor(ctx, recipientUser)
	require.NoError(t, err)
	assert.Empty(t, list.Notifications)
}

func TestMarkReadScopedToActiveCar(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	recipientUser, recipientCar := e.newUserWithActiveCar(t, "AAA111")
	otherUser, _ := e.newUserWithActiveCar(t, "BBB222")
	_, actorCar := e.newUserWithActiveCar(t, "CCC333")

	view, err := e.notifications.Notify(ctx, recipientCar.ID, actorCar.ID, models.NotificationFollow, nil, nil, "started following you")
	require.NoError(t, err)

	// A different user's mark is a silent no-op: no error, no change.
	require.NoError(t, e.notifications.MarkRead(ctx, otherUser, view.ID))

	list, err := e.notifications.ListFor(ctx, recipientUser)
	require.NoError(t, err)
	assert.Equal(t, 1, list.UnreadCount)

	// The addressee's mark lands.
	require.NoError(t, e.notifications.MarkRead(ctx, recipientUser, view.ID))

	list, err = e.notifications.ListFor(ctx, recipientUser)
	require.NoError(t, err)
	assert.Zero(t, list.UnreadCount)
}

func TestMarkAllRead(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	recipientUser, recipientCar := e.newUserWithActiveCar(t, "AAA111")
	_, actorCar := e.newUserWithActiveCar(t, "BBB222")

	for i := 0; i < 3; i++ {
		_, err := e.notifications.Notify(ctx, recipientCar.ID, actorCar.ID, models.NotificationFollow, nil, nil, "started following you")
		require.NoError(t, err)
	}

	require.NoError(t, e.notifications.MarkAllRead(ctx, recipientUser))

	list, err := e.notifications.ListFor(ctx, recipientUser)
	require.NoError(t, err)
	assert.Zero(t, list.UnreadCount)
	assert.Len(t, list.Notifications, 3, "read notifications stay listed")
}

func TestTimeAgoBuckets(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		age  time.Duration
		want string
	}{
		{30 * time.Second, "0 Minutes"},
		{5 * time.Minute, "5 Minutes"},
		{59 * time.Minute, "59 Minutes"},
		{90 * time.Minute, "1 Hours"},
		{23 * time.Hour, "23 Hours"},
		{25 * time.Hour, "1 Days"},
		{10 * 24 * time.Hour, "10 Days"},
	}
	for _, tc := range cases {
		got := TimeAgo(now.Add(-tc.age), now)
		assert.Equal(t, tc.want, got, "age %v", tc.age)
	}
}
