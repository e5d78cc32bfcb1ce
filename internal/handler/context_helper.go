package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/campushub/codeathon-api/internal/middleware"
	"github.com/campushub/codeathon-api/internal/models"
	"github.com/campushub/codeathon-api/internal/service"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// actorFromContext translates JWT claims into a service-layer actor. Handlers
// sit behind the JWT middleware, so missing claims yield a zero actor that
// fails every ownership check downstream.
func actorFromContext(c *gin.Context) service.Actor {
	claims := claimsFromContext(c)
	if claims == nil {
		return service.Actor{}
	}
	return service.Actor{UserID: claims.UserID, Role: claims.Role}
}
