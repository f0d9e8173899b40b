// Package middleware - CORS middleware.
//
// Cross-Origin Resource Sharing (CORS) lets browsers make requests to
// the API from other domains.
package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// CORSConfig - CORS configuration.
type CORSConfig struct {
	// AllowOrigins - allowed origins (domains).
	// "*" allows all (not recommended for production).
	AllowOrigins []string
	// AllowMethods - allowed HTTP methods
	AllowMethods []string
	// AllowHeaders - allowed request headers
	AllowHeaders []string
	// ExposeHeaders - headers visible to the client
	ExposeHeaders []string
	// AllowCredentials - allow credentials (cookies, auth headers)
	AllowCredentials bool
	// MaxAge - preflight cache duration (seconds)
	MaxAge int
}

// DefaultCORSConfig - sane defaults.
func DefaultCORSConfig() *CORSConfig {
	return &CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Accept",
			"Authorization",
			"X-Request-ID",
			"X-Idempotency-Key",
		},
		ExposeHeaders: []string{
			"X-Request-ID",
			"X-RateLimit-Limit",
			"X-RateLimit-Remaining",
			"X-RateLimit-Reset",
		},
		AllowCredentials: false,
		MaxAge:           86400, // 24 hours
	}
}

// ProductionCORSConfig - configuration for production.
func ProductionCORSConfig(allowedOrigins []string) *CORSConfig {
	config := DefaultCORSConfig()
	config.AllowOrigins = allowedOrigins
	config.AllowCredentials = true
	return config
}

// CORS handles cross-origin requests.
//
// CORS flow:
// 1. the browser sends an OPTIONS preflight request
// 2. the server responds with allowed origins/methods/headers
// 3. the browser inspects the response and decides whether to send the
//    real request
//
// Headers:
// - Access-Control-Allow-Origin: allowed domains
// - Access-Control-Allow-Methods: allowed methods
// - Access-Control-Allow-Headers: allowed headers
// - Access-Control-Expose-Headers: headers visible to the client
// - Access-Control-Allow-Credentials: whether credentials are allowed
// - Access-Control-Max-Age: preflight cache duration
func CORS(config *CORSConfig) gin.HandlerFunc {
	if config == nil {
		config = DefaultCORSConfig()
	}

	allowMethods := strings.Join(config.AllowMethods, ", ")
	allowHeaders := strings.Join(config.AllowHeaders, ", ")
	exposeHeaders := strings.Join(config.ExposeHeaders, ", ")
	maxAge := strconv.Itoa(config.MaxAge)

	allowAllOrigins := len(config.AllowOrigins) == 1 && config.AllowOrigins[0] == "*"
	originsMap := make(map[string]bool)
	if !allowAllOrigins {
		for _, origin := range config.AllowOrigins {
			originsMap[origin] = true
		}
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		var allowedOrigin string
		if allowAllOrigins {
			allowedOrigin = "*"
		} else if originsMap[origin] {
			allowedOrigin = origin
		}

		// origin not allowed - skip CORS headers
		if allowedOrigin == "" && origin != "" {
			c.Next()
			return
		}

		c.Header("Access-Control-Allow-Origin", allowedOrigin)
		c.Header("Access-Control-Allow-Methods", allowMethods)
		c.Header("Access-Control-Allow-Headers", allowHeaders)
		c.Header("Access-Control-Expose-Headers", exposeHeaders)
		c.Header("Access-Control-Max-Age", maxAge)

		if config.AllowCredentials {
			c.Header("Access-Control-Allow-Credentials", "true")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
