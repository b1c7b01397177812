package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/carhorizon/carhorizon/internal/auth"
	"github.com/carhorizon/carhorizon/internal/realtime"
)

// WSHandler upgrades GET /ws connections and attaches them to the hub.
// Browsers cannot set an Authorization header on a websocket handshake,
// so the token rides in the ?token= query parameter instead.
type WSHandler struct {
	hub       *realtime.Hub
	jwtSecret string
	logger    *zap.Logger

	upgrader websocket.Upgrader
}

func NewWSHandler(hub *realtime.Hub, jwtSecret, clientOrigin string, logger *zap.Logger) *WSHandler {
	return &WSHandler{
		hub:       hub,
		jwtSecret: jwtSecret,
		logger:    logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if clientOrigin == "" || clientOrigin == "*" {
					return true
				}
				return r.Header.Get("Origin") == clientOrigin
			},
		},
	}
}

// Serve handles GET /ws?token=<jwt>
func (h *WSHandler) Serve(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "token is required"})
		return
	}

	claims, err := auth.ParseToken(token, h.jwtSecret)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the handshake error.
		h.logger.Debug("ws upgrade failed", zap.Error(err))
		return
	}

	h.logger.Debug("ws connected", zap.String("user_id", claims.UserID.String()))
	realtime.ServeConn(h.hub, conn, claims.UserID, h.logger)
}
