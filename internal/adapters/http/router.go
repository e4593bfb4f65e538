// Package http is the lobby REST surface: room directory, room
// creation, the join gate, and the direct-call handshake.
package http

import (
	"context"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/lumachat/voiceroom/internal/adapters/feed"
	"github.com/lumachat/voiceroom/internal/calls"
	"github.com/lumachat/voiceroom/internal/config"
	"github.com/lumachat/voiceroom/internal/core"
)

func genClientToken() string {
	return uuid.NewString()
}

func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = genClientToken()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, rooms core.RoomStore, sup *calls.Supervisor) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("RoomSessions", store))
	r.Use(ClientTokenMiddleware())

	roomsAPI := NewRoomsAPI(rooms)
	callsAPI := NewCallsAPI(sup)
	feedCtl := feed.NewController(rooms)

	log.Info().Str("module", "adapters.http").Msg("router setup")

	api := r.Group("/api")

	api.GET("/rooms", roomsAPI.List)
	api.POST("/rooms", roomsAPI.Create)
	api.POST("/rooms/:id/join", roomsAPI.Join)
	api.GET("/rooms/quick", roomsAPI.QuickJoin)

	api.POST("/calls", callsAPI.Call)
	api.POST("/calls/:id/accept", callsAPI.Accept)
	api.POST("/calls/:id/reject", callsAPI.Reject)
	api.DELETE("/calls/:id", callsAPI.Cancel)

	api.GET("/ws/rooms", func(c *gin.Context) {
		log.Info().Str("module", "adapters.http").Str("sid", c.GetString("client_token")).Msg("ws feed endpoint hit")
		feedCtl.HandleFeed(ctx, c)
	})

	return r
}
