package app

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"terptracker/internal/strains"
)

// Router builds the HTTP engine: CORS, rate limiting, the /api routes,
// root, health and metrics.
func (a *App) Router() *gin.Engine {
	if !a.Cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	if a.Cfg.Debug {
		router.Use(gin.Logger())
	}
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	origins := a.Cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "X-Requested-With"},
		ExposeHeaders:    []string{"X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	router.Use(strains.RateLimitMiddleware(a.Limiter))

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "TerpTracker API", "version": strains.Version})
	})
	router.GET("/health", func(c *gin.Context) {
		if err := a.DB.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "db_error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{})))

	h := strains.NewHandler(a.Analyzer, a.Profiles, a.Cache, a.Cfg.CacheTTL, a.Cfg.Debug, a.Log)
	h.RegisterRoutes(router.Group("/api"))
	return router
}
