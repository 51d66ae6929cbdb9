package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"intakegate/internal"
)

// NewRouter builds the JSON API engine with recovery, request logging and a health probe
func NewRouter(h *RunHandler, logger *internal.Logger) *gin.Engine {
	if logger == nil {
		logger = internal.NewNopLogger()
	}
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	h.Register(router)
	return router
}

func requestLogger(logger *internal.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	}
}
