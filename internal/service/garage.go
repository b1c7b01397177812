package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/carhorizon/carhorizon/internal/apperr"
	"github.com/carhorizon/carhorizon/internal/models"
	"github.com/carhorizon/carhorizon/internal/repository"
)

const maxBioLength = 150

// Garage owns the cars of a user and the single-active-car invariant:
// for any owner, at most one car is active, and once an owner has
// activated a car they always have exactly one (deletion reassigns).
// Every other service resolves "my car" through here.
type Garage struct {
	cars    repository.CarRepository
	follows repository.FollowRepository
	posts   repository.PostRepository
	logger  *zap.Logger
}

func NewGarage(cars repository.CarRepository, follows repository.FollowRepository, posts repository.PostRepository, logger *zap.Logger) *Garage {
	return &Garage{cars: cars, follows: follows, posts: posts, logger: logger}
}

// RegisterCar creates a car, inactive. Activation stays an explicit garage
// choice. Plates collide under normalization: "ab c1" and "ABC1" are the
// same car.
func (g *Garage) RegisterCar(ctx context.Context, userID uuid.UUID, plate, model string) (*models.Car, error) {
	normalized := models.NormalizePlate(plate)
	if normalized == "" {
		return nil, apperr.New(apperr.Validation, "plate is required")
	}

	existing, _, err := g.cars.FindByPlate(ctx, normalized)
	if err != nil {
		return nil, apperr.Infra("look up plate", err)
	}
	if existing != nil {
		return nil, apperr.New(apperr.AlreadyExists, "a car with this plate is already registered")
	}

	car, err := g.cars.Create(ctx, userID, plate, model)
	if err != nil {
		return nil, apperr.Infra("register car", err)
	}
	return car, nil
}

func (g *Garage) MyCars(ctx context.Context, userID uuid.UUID) ([]models.Car, error) {
	cars, err := g.cars.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperr.Infra("list cars", err)
	}
	return cars, nil
}

func (g *Garage) GetCar(ctx context.Context, carID uuid.UUID) (*models.Car, error) {
	car, err := g.cars.GetByID(ctx, carID)
	if err != nil {
		return nil, apperr.Infra("get car", err)
	}
	if car == nil {
		return nil, apperr.New(apperr.NotFound, "car not found")
	}
	return car, nil
}

// SearchByPlate finds a car anywhere in the system by its normalized plate
// and returns the owner alongside.
func (g *Garage) SearchByPlate(ctx context.Context, plate string) (*models.Car, *models.User, error) {
	normalized := models.NormalizePlate(plate)
	if normalized == "" {
		return nil, nil, apperr.New(apperr.Validation, "plate query is required")
	}

	car, owner, err := g.cars.FindByPlate(ctx, normalized)
	if err != nil {
		return nil, nil, apperr.Infra("search by plate", err)
	}
	if car == nil {
		return nil, nil, apperr.New(apperr.NotFound, "car not found")
	}
	return car, owner, nil
}

// SetActive swaps the user's active car. The storage layer runs the
// clear-all/set-one pair in one transaction, so the invariant holds even
// through a crash mid-swap.
func (g *Garage) SetActive(ctx context.Context, userID, carID uuid.UUID) (*models.Car, error) {
	car, err := g.cars.SetActive(ctx, userID, carID)
	if err != nil {
		return nil, apperr.Infra("set active car", err)
	}
	if car == nil {
		return nil, apperr.New(apperr.NotFound, "car not found for this user")
	}
	return car, nil
}

// ActiveCar returns the user's active car, or nil if none has ever been
// activated.
func (g *Garage) ActiveCar(ctx context.Context, userID uuid.UUID) (*models.Car, error) {
	car, err := g.cars.GetActive(ctx, userID)
	if err != nil {
		return nil, apperr.Infra("get active car", err)
	}
	return car, nil
}

// ResolveActingCar is the shared "which car am I acting as" lookup used by
// the follow, engagement, and notification paths. Unlike ActiveCar it
// fails when nothing is active, because the caller is about to act.
func (g *Garage) ResolveActingCar(ctx context.Context, userID uuid.UUID) (*models.Car, error) {
	car, err := g.ActiveCar(ctx, userID)
	if err != nil {
		return nil, err
	}
	if car == nil {
		return nil, apperr.New(apperr.InvalidState, "no active car selected")
	}
	return car, nil
}

// DeleteCar removes one of the user's cars. The last car cannot be
// deleted; deleting the active car promotes another one in the same
// transaction, so the owner never ends up active-less.
func (g *Garage) DeleteCar(ctx context.Context, userID, carID uuid.UUID) error {
	car, err := g.GetCar(ctx, carID)
	if err != nil {
		return err
	}
	if car.UserID != userID {
		return apperr.New(apperr.Forbidden, "you do not own this car")
	}

	count, err := g.cars.CountByUser(ctx, userID)
	if err != nil {
		return apperr.Infra("count cars", err)
	}
	if count <= 1 {
		return apperr.New(apperr.InvalidState, "cannot delete your last car")
	}

	if err := g.cars.Delete(ctx, userID, carID); err != nil {
		return apperr.Infra("delete car", err)
	}
	return nil
}

func (g *Garage) UpdateBio(ctx context.Context, userID, carID uuid.UUID, bio string) (*models.Car, error) {
	if len(bio) > maxBioLength {
		return nil, apperr.Newf(apperr.Validation, "bio cannot exceed %d characters", maxBioLength)
	}

	car, err := g.GetCar(ctx, carID)
	if err != nil {
		return nil, err
	}
	if car.UserID != userID {
		return nil, apperr.New(apperr.Forbidden, "you do not own this car")
	}

	updated, err := g.cars.UpdateBio(ctx, carID, bio)
	if err != nil {
		return nil, apperr.Infra("update bio", err)
	}
	return updated, nil
}

// SetAvatar persists the avatar URL. The bytes live in external file
// storage; this service only keeps the reference.
func (g *Garage) SetAvatar(ctx context.Context, userID, carID uuid.UUID, avatarURL string) (*models.Car, error) {
	if avatarURL == "" {
		return nil, apperr.New(apperr.Validation, "avatar_url is required")
	}

	car, err := g.GetCar(ctx, carID)
	if err != nil {
		return nil, err
	}
	if car.UserID != userID {
		return nil, apperr.New(apperr.Forbidden, "you do not own this car")
	}

	updated, err := g.cars.SetAvatarURL(ctx, carID, avatarURL)
	if err != nil {
		return nil, apperr.Infra("set avatar", err)
	}
	return updated, nil
}

// CarStats bundles the profile counters.
type CarStats struct {
	FollowersCount int `json:"followers_count"`
	FollowingCount int `json:"following_count"`
	PostsCount     int `json:"posts_count"`
}

func (g *Garage) Stats(ctx context.Context, carID uuid.UUID) (*CarStats, error) {
	if _, err := g.GetCar(ctx, carID); err != nil {
		return nil, err
	}

	followers, err := g.follows.CountFollowers(ctx, carID)
	if err != nil {
		return nil, apperr.Infra("count followers", err)
	}
	following, err := g.follows.CountFollowing(ctx, carID)
	if err != nil {
		return nil, apperr.Infra("count following", err)
	}
	posts, err := g.posts.CountByCar(ctx, carID)
	if err != nil {
		return nil, apperr.Infra("count posts", err)
	}

	return &CarStats{
		FollowersCount: followers,
		FollowingCount: following,
		PostsCount:     posts,
	}, nil
}
