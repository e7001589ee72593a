package handler

import (
	"net/http"

	"clinic_backend/internal/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RouterConfig collects everything the HTTP surface needs.
type RouterConfig struct {
	Auth    *AuthHandler
	Users   *UserHandler
	Records *RecordHandler
	Guard   *middleware.Guard
	Logger  *zap.Logger

	// Optional.
	CORSOrigins []string
	LoginLimit  gin.HandlerFunc
	Metrics     gin.HandlerFunc
	MetricsPage gin.HandlerFunc
	Health      func() error
}

// NewRouter builds the gin engine with all routes registered.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(cfg.Logger))
	if cfg.Metrics != nil {
		router.Use(cfg.Metrics)
	}
	if len(cfg.CORSOrigins) > 0 {
		router.Use(cors.New(corsConfig(cfg.CORSOrigins)))
	}

	cfg.Auth.RegisterAuthRoutes(router.Group("/auth"), cfg.Guard, cfg.LoginLimit)

	api := router.Group("/api")
	cfg.Users.RegisterUserRoutes(api, cfg.Guard)
	cfg.Records.RegisterRecordRoutes(api, cfg.Guard)

	router.GET("/health", func(c *gin.Context) {
		if cfg.Health != nil {
			if err := cfg.Health(); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "db": "unhealthy"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": "healthy"})
	})
	if cfg.MetricsPage != nil {
		router.GET("/metrics", cfg.MetricsPage)
	}

	return router
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders: []string{middleware.RequestIDHeader, "Retry-After"},
	}
	if len(origins) == 1 && origins[0] == "*" {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = origins
		c.AllowCredentials = true
	}
	return c
}
