package rest

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
	payloadKey      = "auth_payload"
)

// requestLogger assigns a request id and writes one log line per request.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		log := s.logger.Info
		if status >= 500 {
			log = s.logger.Error
		}
		log(c.Request.Context(), "request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"request_id", id,
			"status", status,
			"duration", time.Since(start),
		)
	}
}

// bearerAuth verifies "Authorization: Bearer <access token>".
func (s *Server) bearerAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || token == "" {
			abortUnauthorized(c)
			return
		}

		p, err := s.verifier.VerifyAccessToken(token)
		if err != nil {
			abortUnauthorized(c)
			return
		}

		c.Set(payloadKey, p)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
}
