// Package middleware contains HTTP middleware for request processing.
//
// Middleware in Gin are functions that run before/after handlers. They
// carry cross-cutting concerns: logging, auth, tracing.
//
// SOLID Principles:
// - SRP: each middleware owns one concern
// - OCP: new middleware is added without touching existing ones
//
// Pattern: Chain of Responsibility
package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// RequestIDHeader - header name carrying the Request ID
	RequestIDHeader = "X-Request-ID"
	// RequestIDContextKey - context key storing the Request ID
	RequestIDContextKey = "request_id"
)

// RequestID middleware tags every request with a unique ID.
//
// Why a Request ID matters:
// 1. Tracing: ties together the logs of a single request
// 2. Debugging: find issues by ID
// 3. Client tracking: the client can supply its own ID
//
// If the client sends X-Request-ID, it's reused; otherwise a new UUID
// is generated.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Set(RequestIDContextKey, requestID)

		c.Header(RequestIDHeader, requestID)

		c.Next()
	}
}

// GetRequestID extracts the Request ID from the Gin context.
func GetRequestID(c *gin.Context) string {
	if id, exists := c.Get(RequestIDContextKey); exists {
		if strID, ok := id.(string); ok {
			return strID
		}
	}
	return ""
}
