package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/vitalpoint/consult-api/internal/middleware"
	"github.com/vitalpoint/consult-api/internal/models"
)

// currentClaims pulls the authenticated claims set by the JWT middleware.
func currentClaims(c *gin.Context) (*models.JWTClaims, bool) {
	value, ok := c.Get(middleware.ContextUserKey)
	if !ok {
		return nil, false
	}
	claims, ok := value.(*models.JWTClaims)
	return claims, ok
}
