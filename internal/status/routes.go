package status

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/premai-io/mii-serve/internal/logging"
	"github.com/premai-io/mii-serve/pkg/api"
)

func (s *Server) registerRoutes(router *gin.Engine) {
	router.GET("/healthz", s.healthz)
	router.GET("/status", s.status)
	router.GET("/version", s.versionHandler)
}

func (s *Server) healthz(c *gin.Context) {
	if err := s.reporter.Health(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, api.HealthResponse{
			Status: api.NotReady,
			Error:  err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, api.HealthResponse{Status: api.Ready})
}

func (s *Server) status(c *gin.Context) {
	c.JSON(http.StatusOK, s.reporter.Info())
}

func (s *Server) versionHandler(c *gin.Context) {
	c.JSON(http.StatusOK, api.VersionResponse{Version: s.version})
}

func withLogging() gin.HandlerFunc {
	log := logging.GetLogger()
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debugf("%s %s %d %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
