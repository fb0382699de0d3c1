package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"parcel-service/internal/auth"
	"parcel-service/internal/model"
)

const (
	claimsContextKey    = "tokenClaims"
	principalContextKey = "principal"
	authorizationHeader = "Authorization"
	bearerPrefix        = "Bearer"
)

// Auth rejects requests without a valid bearer token.
func Auth(parser *auth.Parser) gin.HandlerFunc {
	return func(c *gin.Context) {
		rawHeader := c.GetHeader(authorizationHeader)
		if rawHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, unauthorized("authorization header missing"))
			return
		}

		claims, ok := parse(parser, rawHeader)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, unauthorized("invalid token"))
			return
		}

		setPrincipal(c, claims)
		c.Next()
	}
}

// OptionalAuth identifies the caller when a token is sent and lets anonymous
// requests through. A token that is sent but invalid is still rejected.
// A nil parser treats every request as anonymous.
func OptionalAuth(parser *auth.Parser) gin.HandlerFunc {
	return func(c *gin.Context) {
		rawHeader := c.GetHeader(authorizationHeader)
		if rawHeader == "" || parser == nil {
			c.Next()
			return
		}

		claims, ok := parse(parser, rawHeader)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, unauthorized("invalid token"))
			return
		}

		setPrincipal(c, claims)
		c.Next()
	}
}

func parse(parser *auth.Parser, rawHeader string) (*auth.Claims, bool) {
	parts := strings.SplitN(rawHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], bearerPrefix) {
		return nil, false
	}

	claims, err := parser.Parse(strings.TrimSpace(parts[1]))
	if err != nil {
		return nil, false
	}
	return claims, true
}

func setPrincipal(c *gin.Context, claims *auth.Claims) {
	c.Set(claimsContextKey, claims)
	c.Set(principalContextKey, model.Principal{
		UserID: claims.UserID,
		Email:  claims.Email,
	})
}

func unauthorized(message string) gin.H {
	return gin.H{"success": false, "message": message}
}

func MustPrincipal(c *gin.Context) (model.Principal, bool) {
	value, exists := c.Get(principalContextKey)
	if !exists {
		return model.Principal{}, false
	}

	principal, ok := value.(model.Principal)
	if !ok {
		return model.Principal{}, false
	}

	return principal, true
}

// PrincipalFrom returns the caller, or the anonymous principal.
func PrincipalFrom(c *gin.Context) model.Principal {
	principal, _ := MustPrincipal(c)
	return principal
}
