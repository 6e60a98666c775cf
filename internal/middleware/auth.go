package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	iauth "github.com/growcoach/jobboard/internal/auth"
	"github.com/growcoach/jobboard/internal/models"
	"github.com/growcoach/jobboard/pkg/errors"
	"github.com/growcoach/jobboard/pkg/logger"
	"github.com/growcoach/jobboard/pkg/response"
)

const (
	CtxClaimsKey = "authClaims"
	CtxUserIDKey = "userID"
	CtxRoleKey   = "userRole"
)

// RevocationChecker reports whether a token id has been logged out.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// Auth enforces JWT authentication and rejects revoked tokens. The checker may
// be nil.
func Auth(jwt *iauth.JWTService, revocations RevocationChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if len(authz) < 8 || !strings.EqualFold(authz[:7], "Bearer ") {
			c.Header("WWW-Authenticate", "Bearer")
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		token := strings.TrimSpace(authz[7:])
		claims, err := jwt.ValidateAccessToken(token)
		if err != nil {
			// Normalise all validation failures to 401
			c.Header("WWW-Authenticate", "Bearer")
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		if revocations != nil {
			revoked, err := revocations.IsRevoked(c.Request.Context(), claims.ID)
			if err != nil {
				logger.WithModule("http").Error("token revocation lookup failed", zap.Error(err))
				response.Error(c, errors.ErrInternalServer.WithInternal(err))
				c.Abort()
				return
			}
			if revoked {
				c.Header("WWW-Authenticate", "Bearer")
				response.Error(c, errors.ErrTokenRevoked)
				c.Abort()
				return
			}
		}

		c.Set(CtxClaimsKey, claims)
		c.Set(CtxUserIDKey, claims.AccountID)
		c.Set(CtxRoleKey, claims.Role)

		c.Next()
	}
}

// RequireRole allows the request through only when the authenticated role is
// one of roles. It must run after Auth.
func RequireRole(roles ...models.AccountRole) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[string(role)] = struct{}{}
	}

	return func(c *gin.Context) {
		if c.GetString(CtxUserIDKey) == "" {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := allowed[c.GetString(CtxRoleKey)]; !ok {
			response.Error(c, errors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

// ClaimsFromContext returns the verified claims stored by Auth.
func ClaimsFromContext(c *gin.Context) (*iauth.Claims, bool) {
	value, ok := c.Get(CtxClaimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := value.(*iauth.Claims)
	return claims, ok && claims != nil
}
