package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/carhorizon/carhorizon/internal/apperr"
	"github.com/carhorizon/carhorizon/internal/models"
	"github.com/carhorizon/carhorizon/internal/repository"
)

const notificationListLimit = 50

// Notifications manages the notification lifecycle: creation with
// self-suppression, the lazy retention pass, read-time age buckets, and
// realtime delivery to the recipient car's owner.
type Notifications struct {
	store  repository.NotificationRepository
	cars   repository.CarRepository
	garage *Garage
	bus    EventBus
	logger *zap.Logger

	// now is swappable so retention and age buckets are testable.
	now func() time.Time
}

func NewNotifications(store repository.NotificationRepository, cars repository.CarRepository, garage *Garage, bus EventBus, logger *zap.Logger) *Notifications {
	return &Notifications{
		store:  store,
		cars:   cars,
		garage: garage,
		bus:    bus,
		logger: logger,
		now:    time.Now,
	}
}

// Notify materializes a notification and pushes it to the recipient's
// owner. A car is never notified about its own action: recipient == actor
// is a no-op, no row and no event. The push is best-effort; the row is the
// durable artifact.
func (n *Notifications) Notify(ctx context.Context, recipientCarID, actorCarID uuid.UUID, typ string, postID *uuid.UUID, commentID *int64, message string) (*models.NotificationView, error) {
	if recipientCarID == actorCarID {
		return nil, nil
	}

	row, err := n.store.Insert(ctx, recipientCarID, actorCarID, typ, postID, commentID, message)
	if err != nil {
		return nil, apperr.Infra("insert notification", err)
	}

	view, err := n.store.GetView(ctx, row.ID)
	if err != nil || view == nil {
		// The row is committed; delivery degrades to the bare record.
		view = &models.NotificationView{Notification: *row}
		if err != nil {
			n.logger.Warn("load notification view", zap.Error(err))
		}
	}
	view.TimeAgo = TimeAgo(view.CreatedAt, n.now())

	recipient, err := n.cars.GetByID(ctx, recipientCarID)
	if err != nil {
		n.logger.Warn("resolve notification recipient", zap.Error(err))
	} else if recipient != nil {
		n.bus.PublishToUser(recipient.UserID, EventNewNotification, view)
	}

	return view, nil
}

// NotificationList is a recipient's current notifications plus the unread
// counter, both computed at read time.
type NotificationList struct {
	Notifications []models.NotificationView `json:"notifications"`
	UnreadCount   int                       `json:"unread_count"`
}

// ListFor returns the caller's notification list: those of their active
// car, newest first, after the retention pass. A user without an active
// car simply has an empty list.
func (n *Notifications) ListFor(ctx context.Context, userID uuid.UUID) (*NotificationList, error) {
	active, err := n.garage.ActiveCar(ctx, userID)
	if err != nil {
		return nil, err
	}
	if active == nil {
		return &NotificationList{Notifications: []models.NotificationView{}}, nil
	}

	now := n.now()

	// Retention is lazy: expired rows linger until someone reads the
	// list, then go before the select.
	if err := n.store.PruneForRecipient(ctx, active.ID, now); err != nil {
		return nil, apperr.Infra("prune notifications", err)
	}

	views, err := n.store.ListForRecipient(ctx, active.ID, notificationListLimit)
	if err != nil {
		return nil, apperr.Infra("list notifications", err)
	}
	for i := range views {
		views[i].TimeAgo = TimeAgo(views[i].CreatedAt, now)
	}

	unread, err := n.store.CountUnread(ctx, active.ID)
	if err != nil {
		return nil, apperr.Infra("count unread notifications", err)
	}

	return &NotificationList{Notifications: views, UnreadCount: unread}, nil
}

// MarkRead flags one notification as read. The update is scoped to the
// caller's active car by predicate: a notification addressed elsewhere
// matches nothing and the call silently does nothing.
func (n *Notifications) MarkRead(ctx context.Context, userID uuid.UUID, notificationID int64) error {
	active, err := n.garage.ResolveActingCar(ctx, userID)
	if err != nil {
		return err
	}
	if err := n.store.MarkRead(ctx, notificationID, active.ID); err != nil {
		return apperr.Infra("mark notification read", err)
	}
	return nil
}

func (n *Notifications) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	active, err := n.garage.ResolveActingCar(ctx, userID)
	if err != nil {
		return err
	}
	if err := n.store.MarkAllRead(ctx, active.ID); err != nil {
		return apperr.Infra("mark all notifications read", err)
	}
	return nil
}

// TimeAgo renders a coarse relative age: minutes under an hour, hours
// under a day, days beyond that. Deliberately not second-precise.
func TimeAgo(createdAt, now time.Time) string {
	age := now.Sub(createdAt)
	switch {
	case age < time.Minute:
		return "0 Minutes"
	case age < time.Hour:
		return fmt.Sprintf("%d Minutes", int(age.Minutes()))
	case age < 24*time.Hour:
		return fmt.Sprintf("%d Hours", int(age.Hours()))
	default:
		return fmt.Sprintf("%d Days", int(age.Hours()/24))
	}
}
