// Package middleware provides the gin middleware chain for the API server:
// bearer-token authentication, role guards, the jobs trigger secret, request
// identification and structured request logging.
package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/saludplena/claims-engine/internal/infrastructure/auth/token"
	"github.com/saludplena/claims-engine/pkg/errors"
	"github.com/saludplena/claims-engine/pkg/types/common"
)

// claimsKey is the gin context key holding the verified token claims.
const claimsKey = "auth_claims"

// RequireAuth verifies the Authorization bearer token and injects the claims
// into both the gin context and the request context. Requests without a valid
// token receive 401.
func RequireAuth(verifier token.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := extractBearer(c.GetHeader("Authorization"))
		if raw == "" {
			abortUnauthorized(c, "authentication required")
			return
		}
		claims, err := verifier.Verify(raw)
		if err != nil {
			abortUnauthorized(c, "invalid or expired token")
			return
		}

		c.Set(claimsKey, claims)
		ctx := context.WithValue(c.Request.Context(), common.ContextKeyUserID, claims.UserID)
		if claims.ProviderID != "" {
			ctx = context.WithValue(ctx, common.ContextKeyProviderID, claims.ProviderID)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireRole allows the request through only when the authenticated role is
// one of the given roles. Admin passes every role guard.
func RequireRole(roles ...token.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := ClaimsFrom(c)
		if claims == nil {
			abortUnauthorized(c, "authentication required")
			return
		}
		if claims.Role == token.RoleAdmin {
			c.Next()
			return
		}
		for _, r := range roles {
			if claims.Role == r {
				c.Next()
				return
			}
		}
		appErr := errors.Forbidden("role is not allowed to perform this operation")
		c.AbortWithStatusJSON(http.StatusForbidden,
			common.NewErrorResponse(string(appErr.Code), appErr.Message))
	}
}

// RequireJobSecret authenticates the scheduled-job trigger endpoints with a
// constant-time comparison against the configured secret.
func RequireJobSecret(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := extractBearer(c.GetHeader("Authorization"))
		if raw == "" || subtle.ConstantTimeCompare([]byte(raw), []byte(secret)) != 1 {
			abortUnauthorized(c, "invalid job trigger credentials")
			return
		}
		c.Next()
	}
}

// ClaimsFrom returns the verified claims for the request, or nil when the
// request is unauthenticated.
func ClaimsFrom(c *gin.Context) *token.Claims {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil
	}
	claims, ok := v.(*token.Claims)
	if !ok {
		return nil
	}
	return claims
}

func extractBearer(header string) string {
	if header == "" {
		return ""
	}
	scheme, rest, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(rest)
}

// abortUnauthorized writes a deliberately vague 401 so that credential
// probing cannot distinguish failure modes.
func abortUnauthorized(c *gin.Context, message string) {
	c.Header("WWW-Authenticate", `Bearer realm="claims-engine"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized,
		common.NewErrorResponse(string(errors.ErrCodeUnauthorized), message))
}
