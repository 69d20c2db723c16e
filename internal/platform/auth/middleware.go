package auth

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"library-backend/internal/platform/apierr"
)

// RequireAuth validates "Authorization: Bearer <token>", resolves the user and
// stores the Identity in the gin context.
func RequireAuth(tokens *TokenManager, users IdentityResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if h == "" {
			apierr.Abort(c, apierr.Unauthenticated("missing Authorization header"))
			return
		}

		parts := strings.SplitN(h, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			apierr.Abort(c, apierr.Unauthenticated("invalid Authorization header"))
			return
		}

		tokenStr := strings.TrimSpace(parts[1])
		if tokenStr == "" {
			apierr.Abort(c, apierr.Unauthenticated("empty token"))
			return
		}

		claims, err := tokens.Verify(tokenStr)
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				apierr.Abort(c, apierr.Unauthenticated("token expired"))
				return
			}
			apierr.Abort(c, apierr.Unauthenticated("invalid token"))
			return
		}

		ident, err := users.ResolveIdentity(c.Request.Context(), claims.UserID)
		if err != nil {
			apierr.Abort(c, err)
			return
		}
		if ident == nil {
			apierr.Abort(c, apierr.UserNotFound("user not found"))
			return
		}
		ident.Role = claims.Role

		c.Set(CtxIdentityKey, ident)
		c.Next()
	}
}

// RequireRole must run after RequireAuth.
func RequireRole(roles ...string) gin.HandlerFunc {
	roleSet := make(map[string]struct{})
	for _, r := range roles {
		if r == "" {
			continue
		}
		roleSet[r] = struct{}{}
	}

	return func(c *gin.Context) {
		ident, ok := IdentityFrom(c)
		if !ok {
			apierr.Abort(c, apierr.Unauthenticated("not authenticated"))
			return
		}
		if _, allowed := roleSet[ident.Role]; !allowed {
			apierr.Abort(c, apierr.Forbidden("requires role: "+strings.Join(roles, ", ")))
			return
		}
		c.Next()
	}
}
