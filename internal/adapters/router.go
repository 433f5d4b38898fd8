// Package adapters wires the transport surface: gin routing, the websocket
// controller, and frame decoding.
package adapters

import (
	"context"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"foldback/internal/app"
	"foldback/internal/config"
	"foldback/internal/domain"
)

// ClientTokenMiddleware gives every browser a stable session id via cookie.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = uuid.NewString()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, broker *app.Broker) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("FoldbackSessions", store))
	r.Use(ClientTokenMiddleware())

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})
	r.GET("/healthz", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	log.Info().Str("module", "adapters.router").Str("static", cfg.StaticPath).Msg("router setup")

	api := r.Group("/api")

	// GET /api/rooms — list rooms
	api.GET("/rooms", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"rooms": broker.Rooms.List()})
	})

	// GET /api/rooms/:key — room info with a levels snapshot. Reads never
	// create rooms; only the wire protocol does that.
	api.GET("/rooms/:key", func(c *gin.Context) {
		key := domain.RoomKey(c.Param("key")).OrDefault()
		room, ok := broker.Rooms.Get(key)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown room"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"key":         room.Key(),
			"memberCount": room.MemberCount(),
			"levels":      room.Snapshot(),
		})
	})

	// GET /api/rooms/:key/members — role-tagged member list
	api.GET("/rooms/:key/members", func(c *gin.Context) {
		key := domain.RoomKey(c.Param("key")).OrDefault()
		room, ok := broker.Rooms.Get(key)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown room"})
			return
		}
		c.JSON(http.StatusOK, room.MembersSnapshot())
	})

	// DELETE /api/rooms/:key — evict a room. Membership of live sessions is
	// dropped; connections stay open and may re-join. Idempotent.
	api.DELETE("/rooms/:key", func(c *gin.Context) {
		key := domain.RoomKey(c.Param("key")).OrDefault()
		if room, ok := broker.Rooms.Get(key); ok {
			for _, m := range room.MembersSnapshot() {
				broker.KickBySID(m.SID)
			}
			broker.Rooms.Stop(key)
		}
		c.Status(http.StatusNoContent)
	})

	ctl := &WSController{
		Broker:     broker,
		Limiter:    NewSessionRateLimiter(cfg.RateLimit, cfg.RateWindow),
		ReadLimit:  cfg.ReadLimit,
		PingPeriod: cfg.PingPeriod,
		SendBuffer: cfg.SendBuffer,
	}
	api.GET("/ws", func(c *gin.Context) {
		log.Info().Str("module", "adapters.router").Str("sid", c.GetString("client_token")).Msg("ws endpoint hit")
		ctl.HandleWS(ctx, c)
	})

	return r
}
