package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/carhorizon/carhorizon/internal/apperr"
	"github.com/carhorizon/carhorizon/internal/models"
	"github.com/carhorizon/carhorizon/internal/repository"
)

// FollowGraph manages directed car-to-car edges. All mutations act on
// behalf of the caller's active car.
type FollowGraph struct {
	follows  repository.FollowRepository
	garage   *Garage
	notifier *Notifications
	logger   *zap.Logger
}

func NewFollowGraph(follows repository.FollowRepository, garage *Garage, notifier *Notifications, logger *zap.Logger) *FollowGraph {
	return &FollowGraph{follows: follows, garage: garage, notifier: notifier, logger: logger}
}

// Follow creates the edge active-car -> target. Self-follow and duplicate
// edges are rejected before the insert; the storage-level idempotent
// insert is only the backstop for races. A successful follow notifies the
// target car.
func (f *FollowGraph) Follow(ctx context.Context, userID, targetCarID uuid.UUID) error {
	acting, err := f.garage.ResolveActingCar(ctx, userID)
	if err != nil {
		return err
	}

	target, err := f.garage.GetCar(ctx, targetCarID)
	if err != nil {
		return err
	}

	if acting.ID == target.ID {
		return apperr.New(apperr.InvalidState, "cannot follow your own car")
	}

	exists, err := f.follows.Exists(ctx, acting.ID, target.ID)
	if err != nil {
		return apperr.Infra("check follow", err)
	}
	if exists {
		return apperr.New(apperr.AlreadyExists, "already following this car")
	}

	inserted, err := f.follows.Insert(ctx, acting.ID, target.ID)
	if err != nil {
		return apperr.Infra("insert follow", err)
	}
	if !inserted {
		// Concurrent follow won the insert.
		return apperr.New(apperr.AlreadyExists, "already following this car")
	}

	// Side effects only after the edge is committed. A notification
	// failure is logged but does not undo the follow.
	if _, err := f.notifier.Notify(ctx, target.ID, acting.ID, models.NotificationFollow, nil, nil, "started following you"); err != nil {
		f.logger.Warn("follow notification failed",
			zap.String("target_car", target.ID.String()), zap.Error(err))
	}

	return nil
}

// Unfollow removes the edge active-car -> target. No edge is NotFound.
func (f *FollowGraph) Unfollow(ctx context.Context, userID, targetCarID uuid.UUID) error {
	acting, err := f.garage.ResolveActingCar(ctx, userID)
	if err != nil {
		return err
	}

	deleted, err := f.follows.Delete(ctx, acting.ID, targetCarID)
	if err != nil {
		return apperr.Infra("delete follow", err)
	}
	if !deleted {
		return apperr.New(apperr.NotFound, "not following this car")
	}
	return nil
}

// IsFollowing reports whether the caller's active car follows the target.
func (f *FollowGraph) IsFollowing(ctx context.Context, userID, targetCarID uuid.UUID) (bool, error) {
	acting, err := f.garage.ResolveActingCar(ctx, userID)
	if err != nil {
		return false, err
	}

	exists, err := f.follows.Exists(ctx, acting.ID, targetCarID)
	if err != nil {
		return false, apperr.Infra("check follow", err)
	}
	return exists, nil
}

func (f *FollowGraph) Followers(ctx context.Context, carID uuid.UUID) ([]models.CarSummary, error) {
	if _, err := f.garage.GetCar(ctx, carID); err != nil {
		return nil, err
	}
	followers, err := f.follows.ListFollowers(ctx, carID)
	if err != nil {
		return nil, apperr.Infra("list followers", err)
	}
	return followers, nil
}

func (f *FollowGraph) Following(ctx context.Context, carID uuid.UUID) ([]models.CarSummary, error) {
	if _, err := f.garage.GetCar(ctx, carID); err != nil {
		return nil, err
	}
	following, err := f.follows.ListFollowing(ctx, carID)
	if err != nil {
		return nil, apperr.Infra("list following", err)
	}
	return following, nil
}
