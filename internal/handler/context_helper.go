package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/crawdwall/capital-review-api/internal/middleware"
	"github.com/crawdwall/capital-review-api/internal/models"
)

// claimsFromContext returns the authenticated identity set by the JWT
// middleware, or nil for unauthenticated requests.
func claimsFromContext(c *gin.Context) *models.JWTClaims {
	claims, _ := c.Value(middleware.ContextUserKey).(*models.JWTClaims)
	return claims
}
