package middleware

import (
	"net/http"
	"strings"
	"time"

	C "attribution/config"
	U "attribution/util"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/xid"
	log "github.com/sirupsen/logrus"
)

// scope constants.
const SCOPE_REQUEST_ID = "requestId"

// cors prefix constants.
const PREFIX_PATH_SDK = "/sdk/"

// CustomCors for customised cors configuration based on conditions.
func CustomCors() gin.HandlerFunc {
	return func(c *gin.Context) {
		corsConfig := cors.DefaultConfig()

		if strings.HasPrefix(c.Request.URL.Path, PREFIX_PATH_SDK) {
			corsConfig.AllowAllOrigins = true
			corsConfig.AddAllowHeaders("Authorization")
		} else if C.IsDevelopment() {
			corsConfig.AllowOrigins = []string{"http://localhost:8080",
				"http://localhost:3000", "http://localhost:8501"}
		}

		// Applys custom cors and proceed.
		cors.New(corsConfig)(c)
		c.Next()
	}
}

// RequestIdGenerator - Attaches a unique id to the request scope and the
// response header, for correlating log lines per request.
func RequestIdGenerator() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := xid.New().String()
		U.SetScope(c, SCOPE_REQUEST_ID, reqID)
		c.Writer.Header().Set("X-Request-Id", reqID)
		c.Next()
	}
}

// Logger - Request log line with latency, after the handler returns.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.WithFields(log.Fields{
			"request_id": U.GetScopeByKeyAsString(c, SCOPE_REQUEST_ID),
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
		}).Info("Processed request.")
	}
}

// Recovery - Converts handler panics into 500 responses instead of
// killing the process.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.WithFields(log.Fields{
					"request_id": U.GetScopeByKeyAsString(c, SCOPE_REQUEST_ID),
					"path":       c.Request.URL.Path,
					"panic":      r,
				}).Error("Recovered from panic on request.")
				c.AbortWithStatusJSON(http.StatusInternalServerError,
					gin.H{"error": "Internal server error"})
			}
		}()
		c.Next()
	}
}
