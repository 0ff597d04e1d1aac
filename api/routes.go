package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"atlas_scraper/config"
)

// NewRouter wires the full middleware chain: CORS everywhere, then auth,
// rate limiting and the request timeout on the analysis endpoints.
func NewRouter(cfg config.ServerConfig, handler *Handler, log *logrus.Logger) *gin.Engine {
	if cfg.ProductionErrors {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(log))

	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:          12 * time.Hour,
	}))

	router.GET("/health", handler.Health)

	limiter := NewRateLimiter(cfg.RateLimitMax, cfg.RateLimitWindow)

	apiGroup := router.Group("/api")
	apiGroup.Use(RequireBearer())
	{
		apiGroup.GET("/runs", handler.Runs)
		apiGroup.GET("/runs/:id/logs", handler.RunLogs)

		analysis := apiGroup.Group("")
		analysis.Use(limiter.Middleware(), WithTimeout(cfg.RequestTimeout))
		analysis.POST("/property-analysis", handler.PropertyAnalysis)
		// legacy route kept for older clients
		analysis.POST("/webscraper", handler.PropertyAnalysis)
	}

	return router
}

func requestLogger(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"elapsed": time.Since(start).String(),
			"ip":      c.ClientIP(),
		}).Info("http request")
	}
}
