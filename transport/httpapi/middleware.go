package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// UserIDHeader carries the caller identity established by the upstream gateway
const UserIDHeader = "X-User-ID"

const userIDKey = "userID"

// requestLogger logs each request with timing
func requestLogger(c *gin.Context) {
	start := time.Now()

	c.Next()

	fields := log.Fields{
		"method":  c.Request.Method,
		"path":    c.Request.URL.Path,
		"status":  c.Writer.Status(),
		"latency": time.Since(start).String(),
	}
	if userID, ok := c.Get(userIDKey); ok {
		fields["userID"] = userID
	}

	entry := log.WithFields(fields)
	switch status := c.Writer.Status(); {
	case status >= http.StatusInternalServerError:
		entry.Warn("HTTP request")
	case c.Request.URL.Path == "/healthz":
		entry.Trace("HTTP request")
	default:
		entry.Debug("HTTP request")
	}
}

// identify parses the caller header when present. A malformed header is rejected.
func identify(c *gin.Context) {
	raw := c.GetHeader(UserIDHeader)
	if raw == "" {
		c.Next()
		return
	}
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || userID <= 0 {
		writeBadRequest(c, "invalid "+UserIDHeader+" header")
		return
	}
	c.Set(userIDKey, userID)
	c.Next()
}

// requireUser rejects requests without a caller identity
func requireUser(c *gin.Context) {
	if _, ok := c.Get(userIDKey); !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
			Error: "missing " + UserIDHeader + " header",
			Code:  codeUnauthenticated,
		})
		return
	}
	c.Next()
}

// callerID returns the identified user, nil for anonymous requests
func callerID(c *gin.Context) *int64 {
	v, ok := c.Get(userIDKey)
	if !ok {
		return nil
	}
	userID := v.(int64)
	return &userID
}
