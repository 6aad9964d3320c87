// Package api exposes a small operator-facing HTTP surface: health, cache
// stats and graph inspection. It reads shared state but never mutates it.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sociogram/internal/cache"
	"sociogram/internal/social"
	apperrors "sociogram/pkg/errors"
)

// Server serves the debug API.
type Server struct {
	cache    *cache.Cache
	graphs   *social.Store
	exporter *social.Exporter
	logger   *zap.Logger
	router   *gin.Engine
}

// NewServer builds the router. Production mode silences gin's debug output.
func NewServer(c *cache.Cache, graphs *social.Store, exporter *social.Exporter, production bool, logger *zap.Logger) *Server {
	if production {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		cache:    c,
		graphs:   graphs,
		exporter: exporter,
		logger:   logger,
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))

	router.GET("/healthz", s.handleHealth)
	router.GET("/stats", s.handleStats)
	router.GET("/guilds", s.handleGuilds)
	router.GET("/guilds/:id/graph.dot", s.handleGuildDot)

	s.router = router
	return s
}

// Router returns the underlying engine, mainly for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Run blocks serving on the given address.
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.cache.Stats())
}

func (s *Server) handleGuilds(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"guilds": s.graphs.GuildIDs()})
}

func (s *Server) handleGuildDot(c *gin.Context) {
	guildID := c.Param("id")

	snapshot, err := s.graphs.Snapshot(guildID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown guild"})
			return
		}
		s.logger.Error("failed to snapshot guild", zap.String("guild_id", guildID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to build graph"})
		return
	}

	dot, err := s.exporter.Export(c.Request.Context(), snapshot, "")
	if err != nil {
		s.logger.Error("failed to export guild graph", zap.String("guild_id", guildID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to export graph"})
		return
	}

	c.String(http.StatusOK, dot)
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
