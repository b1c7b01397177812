package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/carhorizon/carhorizon/internal/middleware"
	"github.com/carhorizon/carhorizon/internal/service"
)

// CarHandler covers the garage (car CRUD, active-car swap) and the follow
// graph endpoints.
type CarHandler struct {
	garage  *service.Garage
	follows *service.FollowGraph
	logger  *zap.Logger
}

func NewCarHandler(garage *service.Garage, follows *service.FollowGraph, logger *zap.Logger) *CarHandler {
	return &CarHandler{garage: garage, follows: follows, logger: logger}
}

type createCarRequest struct {
	Plate string `json:"plate" binding:"required"`
	Model string `json:"model"`
}

// Create handles POST /api/cars
func (h *CarHandler) Create(c *gin.Context) {
	var req createCarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	car, err := h.garage.RegisterCar(c.Request.Context(), middleware.GetUserID(c), req.Plate, req.Model)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, car)
}

// My handles GET /api/cars/my
func (h *CarHandler) My(c *gin.Context) {
	cars, err := h.garage.MyCars(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, cars)
}

// Search handles GET /api/cars/search?plate=ABC123
func (h *CarHandler) Search(c *gin.Context) {
	car, owner, err := h.garage.SearchByPlate(c.Request.Context(), c.Query("plate"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"car": car,
		"owner": gin.H{
			"id":    owner.ID,
			"email": owner.Email,
		},
	})
}

type setActiveRequest struct {
	CarID uuid.UUID `json:"car_id" binding:"required"`
}

// SetActive handles PUT /api/cars/active
func (h *CarHandler) SetActive(c *gin.Context) {
	var req setActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	car, err := h.garage.SetActive(c.Request.Context(), middleware.GetUserID(c), req.CarID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, car)
}

func carIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("carId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid car id"})
		return uuid.Nil, false
	}
	return id, true
}

// Get handles GET /api/cars/:carId — the car profile with stats.
func (h *CarHandler) Get(c *gin.Context) {
	carID, ok := carIDParam(c)
	if !ok {
		return
	}

	car, err := h.garage.GetCar(c.Request.Context(), carID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	stats, err := h.garage.Stats(c.Request.Context(), carID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"car": car, "stats": stats})
}

// Delete handles DELETE /api/cars/:carId
func (h *CarHandler) Delete(c *gin.Context) {
	carID, ok := carIDParam(c)
	if !ok {
		return
	}

	if err := h.garage.DeleteCar(c.Request.Context(), middleware.GetUserID(c), carID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted_car_id": carID})
}

type updateBioRequest struct {
	Bio string `json:"bio"`
}

// UpdateBio handles PUT /api/cars/:carId/bio
func (h *CarHandler) UpdateBio(c *gin.Context) {
	carID, ok := carIDParam(c)
	if !ok {
		return
	}

	var req updateBioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	car, err := h.garage.UpdateBio(c.Request.Context(), middleware.GetUserID(c), carID, req.Bio)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, car)
}

type setAvatarRequest struct {
	AvatarURL string `json:"avatar_url" binding:"required"`
}

// SetAvatar handles PUT /api/cars/:carId/avatar. The upload itself happens
// against external file storage; this records the resulting URL.
func (h *CarHandler) SetAvatar(c *gin.Context) {
	carID, ok := carIDParam(c)
	if !ok {
		return
	}

	var req setAvatarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	car, err := h.garage.SetAvatar(c.Request.Context(), middleware.GetUserID(c), carID, req.AvatarURL)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, car)
}

// Stats handles GET /api/cars/:carId/stats
func (h *CarHandler) Stats(c *gin.Context) {
	carID, ok := carIDParam(c)
	if !ok {
		return
	}

	stats, err := h.garage.Stats(c.Request.Context(), carID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// Followers handles GET /api/cars/:carId/followers
func (h *CarHandler) Followers(c *gin.Context) {
	carID, ok := carIDParam(c)
	if !ok {
		return
	}

	followers, err := h.follows.Followers(c.Request.Context(), carID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"followers": followers})
}

// Following handles GET /api/cars/:carId/following
func (h *CarHandler) Following(c *gin.Context) {
	carID, ok := carIDParam(c)
	if !ok {
		return
	}

	following, err := h.follows.Following(c.Request.Context(), carID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"following": following})
}

// FollowStatus handles GET /api/cars/:carId/follow-status — whether the
// caller's active car follows this one.
func (h *CarHandler) FollowStatus(c *gin.Context) {
	carID, ok := carIDParam(c)
	if !ok {
		return
	}

	following, err := h.follows.IsFollowing(c.Request.Context(), middleware.GetUserID(c), carID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"is_following": following})
}

// Follow handles POST /api/cars/:carId/follow
func (h *CarHandler) Follow(c *gin.Context) {
	carID, ok := carIDParam(c)
	if !ok {
		return
	}

	if err := h.follows.Follow(c.Request.Context(), middleware.GetUserID(c), carID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"is_following": true})
}

// Unfollow handles POST /api/cars/:carId/unfollow
func (h *CarHandler) Unfollow(c *gin.Context) {
	carID, ok := carIDParam(c)
	if !ok {
		return
	}

	if err := h.follows.Unfollow(c.Request.Context(), middleware.GetUserID(c), carID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"is_following": false})
}
