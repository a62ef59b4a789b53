package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/playone/server/internal/auth"
	"github.com/playone/server/internal/config"
	"github.com/playone/server/internal/game"
)

type createRoomRequest struct {
	Nickname  string `json:"nickname" binding:"required"`
	IsPrivate bool   `json:"isPrivate"`
}

// CreateRoom handles POST /api/v1/rooms.
func CreateRoom(registry *game.RoomRegistry, authn *auth.Authenticator, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _, ok := authenticate(c, authn)
		if !ok {
			return
		}
		var req createRoomRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		sessionCfg := game.SessionConfig{
			MaxPlayers:       cfg.DefaultMaxPlayers,
			InitialHandSize:  cfg.DefaultInitialHand,
			StackingAllowed:  cfg.DefaultStackingAllow,
			PointsToWin:      cfg.DefaultPointsToWin,
			MaxBots:          cfg.MaxBotsPerRoom,
			BotThinkingDelay: cfg.BotThinkingDelay,
			MaxBotActions:    cfg.MaxConsecutiveBotActions,
			CallOneWindow:    cfg.CallOneWindow,
		}

		room, err := registry.CreateRoom(userID, req.Nickname, sessionCfg, req.IsPrivate)
		if err != nil {
			respondGameError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"roomCode": room.RoomCode, "state": room.Session.Snapshot()})
	}
}

// ListRooms handles GET /api/v1/rooms.
func ListRooms(registry *game.RoomRegistry) gin.HandlerFunc {
	return func(c *gin.Context) {
		rooms := registry.PublicRooms()
		out := make([]gin.H, 0, len(rooms))
		for _, room := range rooms {
			state := room.Session.Snapshot()
			out = append(out, gin.H{"roomCode": room.RoomCode, "state": state})
		}
		c.JSON(http.StatusOK, gin.H{"rooms": out})
	}
}

// GetRoom handles GET /api/v1/rooms/:code.
func GetRoom(registry *game.RoomRegistry) gin.HandlerFunc {
	return func(c *gin.Context) {
		code := c.Param("code")
		room, ok := registry.FindRoom(code)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"roomCode": room.RoomCode, "state": room.Session.Snapshot()})
	}
}

type joinRoomRequest struct {
	Nickname string `json:"nickname" binding:"required"`
}

// JoinRoom handles POST /api/v1/rooms/:code/join.
func JoinRoom(registry *game.RoomRegistry, authn *auth.Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _, ok := authenticate(c, authn)
		if !ok {
			return
		}
		var req joinRoomRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		code := c.Param("code")
		room, seat, err := registry.JoinRoom(code, userID, req.Nickname)
		if err != nil {
			respondGameError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"roomCode": room.RoomCode, "seatId": seat.ID, "state": room.Session.Snapshot()})
	}
}

func authenticate(c *gin.Context, authn *auth.Authenticator) (userID, nickname string, ok bool) {
	token := c.GetHeader("Authorization")
	if len(token) > 7 && token[:7] == "Bearer " {
		token = token[7:]
	}
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
		return "", "", false
	}
	userID, nickname, err := authn.Verify(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return "", "", false
	}
	return userID, nickname, true
}

func respondGameError(c *gin.Context, err error) {
	ge := game.AsGameError(err)
	status := http.StatusBadRequest
	switch ge.Code {
	case game.ErrNotFound:
		status = http.StatusNotFound
	case game.ErrInternal:
		status = http.StatusInternalServerError
	}
	c.JSON(status, gin.H{"error": ge.Message, "code": ge.Code})
}
