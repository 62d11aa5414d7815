package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/oriontel/backoffice-api/internal/models"
	appErrors "github.com/oriontel/backoffice-api/pkg/errors"
	"github.com/oriontel/backoffice-api/pkg/response"
)

// PrincipalKey is the gin context key holding the AuthPrincipal.
const PrincipalKey = "auth_principal"

// TokenValidator turns a bearer token into a principal.
type TokenValidator interface {
	ValidateToken(token string) (*models.AuthPrincipal, error)
}

// Auth rejects requests without a valid bearer token and stores the
// principal on the request context.
func Auth(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			response.Error(c, appErrors.New(http.StatusUnauthorized, "missing bearer token"))
			c.Abort()
			return
		}

		principal, err := validator.ValidateToken(token)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(PrincipalKey, *principal)
		c.Next()
	}
}

// Principal fetches the authenticated caller from the context. The
// boolean is false when the Auth middleware did not run.
func Principal(c *gin.Context) (models.AuthPrincipal, bool) {
	value, ok := c.Get(PrincipalKey)
	if !ok {
		return models.AuthPrincipal{}, false
	}
	principal, ok := value.(models.AuthPrincipal)
	return principal, ok
}
