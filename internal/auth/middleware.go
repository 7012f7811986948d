package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const claimsKey = "claims"

// Bearer enforces access tokens signed with HS256 and stores their claims
// in the gin context.
func Bearer(signingKey, issuer string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token", "redirect": "login"})
			return
		}
		claims, err := Parse(tokenStr, signingKey, issuer)
		if err != nil || claims.Kind != KindAccess {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token", "redirect": "login"})
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

// ClaimsFrom returns the claims Bearer stored.
func ClaimsFrom(c *gin.Context) (Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return Claims{}, false
	}
	claims, ok := v.(Claims)
	return claims, ok
}

// bearerToken reads the Authorization header, falling back to the
// access_token query parameter that browsers use for websocket upgrades.
func bearerToken(c *gin.Context) (string, bool) {
	authz := c.GetHeader("Authorization")
	if authz != "" && strings.HasPrefix(strings.ToLower(authz), "bearer ") {
		return strings.TrimSpace(authz[len("bearer "):]), true
	}
	if t := c.Query("access_token"); t != "" {
		return t, true
	}
	return "", false
}
