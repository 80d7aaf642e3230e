package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/signup/internal/handlers"
)

func registerRegistrationRoutes(group *gin.RouterGroup, handler *handlers.RegistrationHandler, limiter gin.HandlerFunc) {
	group.GET("", handler.Index)
	group.POST("", limiter, handler.Register)
	group.GET(activationRoute, handler.ActivateAccount)
	group.GET(confirmationRoute, handler.ConfirmAccount)
}
