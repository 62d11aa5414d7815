package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oriontel/backoffice-api/internal/models"
	appErrors "github.com/oriontel/backoffice-api/pkg/errors"
	"github.com/oriontel/backoffice-api/pkg/response"
)

// RequireRole rejects callers whose role is not in the allowed set.
// Must run after Auth.
func RequireRole(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(c *gin.Context) {
		principal, ok := Principal(c)
		if !ok {
			response.Error(c, appErrors.New(http.StatusUnauthorized, "missing bearer token"))
			c.Abort()
			return
		}
		if _, ok := allowed[principal.Role]; !ok {
			response.Error(c, appErrors.New(http.StatusForbidden, "insufficient role"))
			c.Abort()
			return
		}
		c.Next()
	}
}
