// Package middleware - issuer extraction middleware.
//
// The ledger has no user accounts, sessions, or roles to authenticate.
// What it needs is a stamp on every transaction identifying which
// caller (service, job, admin tool) asked for it, for audit purposes.
// IssuerExtractor reads that stamp from an optional bearer token or a
// plain header and stores it in the gin context for handlers to copy
// onto the transaction they create.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// IssuerContextKey - context key storing the request issuer.
const IssuerContextKey = "issuer"

// IssuerConfig configures how the request issuer is extracted.
type IssuerConfig struct {
	// HeaderName - header carrying the issuer, used when a bearer
	// token is absent or lacks a usable claim.
	HeaderName string
	// JWTSecret, when non-empty, enables bearer-token parsing: the
	// issuer is read from the standard "iss" claim.
	JWTSecret string
	// DefaultIssuer is used when the request has neither a token
	// nor a header.
	DefaultIssuer string
	// RequireIssuer requires the issuer to be explicitly set (via
	// token or header), otherwise responds 401.
	RequireIssuer bool
}

// IssuerExtractor reads the request issuer and stores it in the
// context under IssuerContextKey. It does not check permissions -
// only identifies the caller for later audit.
func IssuerExtractor(cfg IssuerConfig) gin.HandlerFunc {
	header := cfg.HeaderName
	if header == "" {
		header = "X-Issuer"
	}

	return func(c *gin.Context) {
		issuer, ok := issuerFromBearerToken(c, cfg.JWTSecret)
		if !ok {
			issuer, ok = issuerFromHeader(c, header)
		}

		if !ok {
			if cfg.RequireIssuer {
				abortWithUnauthorized(c, "missing issuer: supply a bearer token or the "+header+" header")
				return
			}
			issuer = cfg.DefaultIssuer
		}

		c.Set(IssuerContextKey, issuer)
		c.Next()
	}
}

func issuerFromBearerToken(c *gin.Context, secret string) (string, bool) {
	if secret == "" {
		return "", false
	}

	authHeader := c.GetHeader("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}

	parsed, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !parsed.Valid {
		return "", false
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", false
	}

	iss, _ := claims["iss"].(string)
	if iss == "" {
		return "", false
	}
	return iss, true
}

func issuerFromHeader(c *gin.Context, header string) (string, bool) {
	value := c.GetHeader(header)
	if value == "" {
		return "", false
	}
	return value, true
}

// abortWithUnauthorized writes a 401 response.
func abortWithUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "UNAUTHORIZED",
			"message": message,
		},
		"request_id": GetRequestID(c),
	})
}

// GetIssuer returns the current request's issuer, as set by
// IssuerExtractor (or "" if the middleware wasn't wired in).
func GetIssuer(c *gin.Context) string {
	if issuer, exists := c.Get(IssuerContextKey); exists {
		if s, ok := issuer.(string); ok {
			return s
		}
	}
	return ""
}
