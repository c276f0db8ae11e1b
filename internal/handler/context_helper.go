package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/abel-mek/school-roster-api/internal/middleware"
	"github.com/abel-mek/school-roster-api/internal/models"
)

// claimsFromContext pulls the authenticated claims placed by the JWT
// middleware. A nil result means the route was reached without auth.
func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, ok := c.Get(middleware.ContextUserKey)
	if !ok {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}
