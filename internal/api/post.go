package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/carhorizon/carhorizon/internal/middleware"
	"github.com/carhorizon/carhorizon/internal/service"
)

const (
	defaultCommentLimit = 50
	maxCommentLimit     = 200
)

type PostHandler struct {
	engagement *service.Engagement
	logger     *zap.Logger
}

func NewPostHandler(engagement *service.Engagement, logger *zap.Logger) *PostHandler {
	return &PostHandler{engagement: engagement, logger: logger}
}

type createPostRequest struct {
	CarID       uuid.UUID `json:"car_id" binding:"required"`
	Description string    `json:"description" binding:"required"`
	ImageURLs   []string  `json:"image_urls"`
}

// Create handles POST /api/posts
func (h *PostHandler) Create(c *gin.Context) {
	var req createPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	post, err := h.engagement.CreatePost(c.Request.Context(), middleware.GetUserID(c), req.CarID, req.Description, req.ImageURLs)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

func postIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("postId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid post id"})
		return uuid.Nil, false
	}
	return id, true
}

// Get handles GET /api/posts/:postId
func (h *PostHandler) Get(c *gin.Context) {
	postID, ok := postIDParam(c)
	if !ok {
		return
	}

	detail, err := h.engagement.GetPost(c.Request.Context(), middleware.GetUserID(c), postID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// Delete handles DELETE /api/posts/:postId
func (h *PostHandler) Delete(c *gin.Context) {
	postID, ok := postIDParam(c)
	if !ok {
		return
	}

	if err := h.engagement.DeletePost(c.Request.Context(), middleware.GetUserID(c), postID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted_post_id": postID})
}

// Like handles POST /api/posts/:postId/like — a toggle.
func (h *PostHandler) Like(c *gin.Context) {
	postID, ok := postIDParam(c)
	if !ok {
		return
	}

	liked, count, err := h.engagement.ToggleLike(c.Request.Context(), middleware.GetUserID(c), postID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"liked": liked, "likes_count": count})
}

type addCommentRequest struct {
	Text string `json:"text" binding:"required"`
}

// AddComment handles POST /api/posts/:postId/comments
func (h *PostHandler) AddComment(c *gin.Context) {
	postID, ok := postIDParam(c)
	if !ok {
		return
	}

	var req addCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	comment, count, err := h.engagement.AddComment(c.Request.Context(), middleware.GetUserID(c), postID, req.Text)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"comment": comment, "comments_count": count})
}

// Comments handles GET /api/posts/:postId/comments?limit=&offset=
func (h *PostHandler) Comments(c *gin.Context) {
	postID, ok := postIDParam(c)
	if !ok {
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultCommentLimit)))
	if err != nil || limit <= 0 || limit > maxCommentLimit {
		limit = defaultCommentLimit
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	comments, err := h.engagement.Comments(c.Request.Context(), postID, limit, offset)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": comments})
}
