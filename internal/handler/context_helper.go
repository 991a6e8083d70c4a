package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/stemkit-identity/internal/middleware"
	"github.com/noah-isme/stemkit-identity/internal/models"
)

func currentIdentity(c *gin.Context) (*models.AuthenticatedIdentity, bool) {
	return middleware.Identity(c)
}
