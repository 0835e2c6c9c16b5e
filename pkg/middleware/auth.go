package middleware

import (
	"context"
	"strings"

	"pos-licensing/pkg/errutil"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleAdmin = "admin"
	RoleStaff = "staff"

	claimsContextKey = "session.claims"
)

// SessionClaims is the JWT payload minted by the login gate. Subject is the
// tenant id, ID is the session id tracked in redis.
type SessionClaims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// SessionChecker reports whether a session is still live. A nil checker
// disables revocation checks (token expiry still applies).
type SessionChecker interface {
	Exists(ctx context.Context, tenantID, sessionID string) (bool, error)
}

// Authenticate parses and verifies the bearer token, rejects revoked
// sessions, and stores the claims on the gin context.
func Authenticate(secret string, sessions SessionChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			abortUnauthorized(c)
			return
		}

		claims := &SessionClaims{}
		token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			abortUnauthorized(c)
			return
		}

		if sessions != nil {
			live, err := sessions.Exists(c.Request.Context(), claims.Subject, claims.ID)
			if err != nil || !live {
				abortUnauthorized(c)
				return
			}
		}

		c.Set(claimsContextKey, claims)
		c.Next()
	}
}

// RequireAdmin rejects callers without the admin role.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := ClaimsFrom(c)
		if claims == nil || claims.Role != RoleAdmin {
			c.AbortWithStatusJSON(
				errutil.StatusForbidden.HTTPStatus(),
				errutil.BaseError{Code: errutil.StatusForbidden, Message: "admin access required"}.JSON(),
			)
			return
		}
		c.Next()
	}
}

// ClaimsFrom returns the authenticated claims, or nil outside Authenticate.
func ClaimsFrom(c *gin.Context) *SessionClaims {
	v, ok := c.Get(claimsContextKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*SessionClaims)
	return claims
}

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(
		errutil.StatusUnauthorized.HTTPStatus(),
		errutil.BaseError{Code: errutil.StatusUnauthorized, Message: "authentication required"}.JSON(),
	)
}
