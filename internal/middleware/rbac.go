package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/vitalpoint/consult-api/internal/models"
	appErrors "github.com/vitalpoint/consult-api/pkg/errors"
	"github.com/vitalpoint/consult-api/pkg/response"
)

// RequireRoles restricts a route to the listed roles. Finer ownership rules
// (a patient touching only their own consultations, a doctor only their own
// schedule) live in the services, which can see the resource.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(c *gin.Context) {
		claimsValue, exists := c.Get(ContextUserKey)
		if !exists {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		claims := claimsValue.(*models.JWTClaims)

		if _, ok := allowed[claims.Role]; ok {
			c.Next()
			return
		}

		response.Error(c, appErrors.ErrForbidden)
		c.Abort()
	}
}
