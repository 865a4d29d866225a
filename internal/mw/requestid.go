package mw

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"parking-ledger-backend/internal/logger"
	"parking-ledger-backend/internal/metrics"
)

const (
	RequestIDHeader = "X-Request-Id"
	requestIDKey    = "request_id"
)

// RequestID propagates the caller's X-Request-Id or assigns a new one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Writer.Header().Set(RequestIDHeader, id)
		c.Next()
	}
}

// GetRequestID returns the id assigned by RequestID, or "".
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// AccessLog logs every request and records it in the API metrics.
func AccessLog(log *logger.Logger, m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		dur := time.Since(start)

		route := c.FullPath()
		status := c.Writer.Status()
		m.ObserveAPI(c.Request.Method, route, status, dur)

		kv := []interface{}{
			"method", c.Request.Method,
			"route", route,
			"path", c.Request.URL.Path,
			"status", status,
			"duration", dur,
			"client_ip", c.ClientIP(),
			"request_id", GetRequestID(c),
		}
		switch {
		case status >= 500:
			log.Error("request failed", append(kv, "errors", c.Errors.String())...)
		case status >= 400:
			log.Warn("request rejected", kv...)
		default:
			log.Info("request", kv...)
		}
	}
}
