package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"userhub/internal/core/auth"
	"userhub/internal/domain"
	"userhub/internal/transport/http/ez"
	resp "userhub/internal/transport/http/response"
)

// Context keys set by Authenticate and SessionGuard.
const (
	KeyUserID = "userId"
	KeyEmail  = "email"
	KeyRole   = "role"
	KeyClaims = "claims"
)

// SessionChecker reports the current role of a live session.
type SessionChecker interface {
	Check(ctx context.Context, uid string, issuedAt time.Time) (domain.Role, error)
}

// BearerToken returns the token from "Authorization: Bearer <token>".
func BearerToken(c *gin.Context) (string, bool) {
	ah := c.GetHeader("Authorization")
	if len(ah) < 7 || !strings.EqualFold(ah[:7], "Bearer ") {
		return "", false
	}
	tok := strings.TrimSpace(ah[7:])
	return tok, tok != ""
}

// Authenticate verifies the bearer token and attaches its claims. Malformed,
// forged and expired tokens get the same answer.
func Authenticate(j *auth.JWTer) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok, ok := BearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, resp.Error(resp.CodeUnauthorized, "missing token"))
			return
		}
		claims, err := j.Parse(tok)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, resp.Error(resp.CodeUnauthorized, "invalid token"))
			return
		}
		c.Set(KeyClaims, claims)
		c.Set(KeyUserID, claims.UID)
		c.Set(KeyEmail, claims.Email)
		c.Set(KeyRole, claims.Role)
		c.Next()
	}
}

// SessionGuard runs after Authenticate and rejects tokens whose account was
// deleted (404), suspended (403) or revoked (401) since issuance. It replaces the role claim
// with the account's current role.
func SessionGuard(s SessionChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := Claims(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, resp.Error(resp.CodeUnauthorized, "unauthorized"))
			return
		}
		role, err := s.Check(c.Request.Context(), claims.UID, claims.IssuedAtTime())
		if err != nil {
			ez.Fail(c, nil, err)
			return
		}
		c.Set(KeyRole, role)
		c.Next()
	}
}

func RequireRole(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := Role(c)
		for _, r := range roles {
			if role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, resp.Error(resp.CodeForbidden, "forbidden"))
	}
}

func Claims(c *gin.Context) (*auth.Claims, bool) {
	v, ok := c.Get(KeyClaims)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*auth.Claims)
	return claims, ok
}

func UserID(c *gin.Context) string { return c.GetString(KeyUserID) }

func Role(c *gin.Context) domain.Role {
	r, _ := c.Get(KeyRole)
	role, _ := r.(domain.Role)
	return role
}

// Actor is the authenticated caller as seen by admin policy.
func Actor(c *gin.Context) domain.Actor {
	return domain.Actor{ID: UserID(c), Role: Role(c)}
}
