package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"yuva/server/internal/auth"
	"yuva/server/internal/session"
)

// tokenQueryParam carries the session token where browsers cannot set
// headers, i.e. WebSocket upgrades.
const tokenQueryParam = "token"

// bearerToken extracts the session token from the Authorization header or,
// failing that, the token query parameter.
func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
			return parts[1]
		}
		return ""
	}
	return c.Query(tokenQueryParam)
}

// OptionalAuth attaches the identity of a valid session token to the request
// context. Requests without a token, or with an invalid one, continue as guests.
func OptionalAuth(jwtSecret string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			c.Next()
			return
		}

		claims, err := auth.ValidateJWT(tokenString, jwtSecret)
		if err != nil {
			logger.Debug("Ignoring invalid session token", zap.String("path", c.Request.URL.Path), zap.Error(err))
			c.Next()
			return
		}

		ctx := session.WithIdentity(c.Request.Context(), claims.Identity())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireAuth rejects requests that OptionalAuth did not authenticate.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if session.FromContext(c.Request.Context()) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization required"})
			return
		}
		c.Next()
	}
}
