package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/oblik/internal/server/handlers"
)

// New wires the Gin engine with required routes and middlewares.
func New(handler *handlers.SessionHandler, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.GET("/status", handler.Status)
	api.POST("/accounting/load", handler.LoadAccounting)
	api.POST("/stock/load", handler.LoadStock)
	api.POST("/autoload", handler.AutoLoad)

	api.GET("/search", handler.Search)
	api.POST("/query", handler.Query)
	api.POST("/query/confirm", handler.Confirm)
	api.GET("/results", handler.Results)

	api.GET("/stock", handler.Stock)
	api.GET("/mapping", handler.Mapping)
	api.PUT("/mapping", handler.SetMapping)
	api.GET("/history", handler.History)
	api.DELETE("/history", handler.ClearHistory)

	if logger != nil {
		logger.Info("router initialized")
	}

	return r
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
