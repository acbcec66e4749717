package leaderboard

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/dicewire/internal/observability"
)

type scoreRequest struct {
	Player string `json:"player" binding:"required"`
	Score  *int64 `json:"score" binding:"required"`
}

// NewRouter wires the HTTP surface of s.
func NewRouter(s *Service, corsOrigins []string) *gin.Engine {
	observability.RegisterMetrics()
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(observability.RequestMetricsMiddleware(s.cfg.Name))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(corsOrigins),
		AllowMethods: []string{"GET", "POST"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	started := time.Now()
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"uptime":    time.Since(started).String(),
			"service":   s.cfg.Name,
			"client":    s.client.State().String(),
			"watch":     s.client.WatchState().String(),
			"client_id": s.client.ID(),
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/leaderboard", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.board.Snapshot())
	})

	r.POST("/scores", func(c *gin.Context) {
		var req scoreRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := s.Submit(c.Request.Context(), req.Player, *req.Score); err != nil {
			status := http.StatusBadGateway
			if errors.Is(err, ErrPlayerRequired) {
				status = http.StatusBadRequest
			}
			_ = c.Error(err)
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"status": "ok", "player": req.Player, "score": *req.Score})
	})
	return r
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
