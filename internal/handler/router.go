package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/lexassist/internal/middleware"
	"github.com/xxxsen/lexassist/internal/pkg/jwt"
)

type RouterDeps struct {
	Properties      *PropertiesHandler
	Assistant       *AssistantHandler
	Documents       *DocumentHandler
	JWTSecret       []byte
	RateLimitWindow time.Duration
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.GET("/properties", deps.Properties.Get)

	authGroup := api.Group("")
	authGroup.Use(middleware.JWTAuth(deps.JWTSecret))
	authGroup.POST("/assistant/ask", middleware.RateLimit(deps.RateLimitWindow), deps.Assistant.Ask)
	authGroup.GET("/documents", deps.Documents.List)
	authGroup.GET("/documents/:id", deps.Documents.Get)

	adminGroup := authGroup.Group("")
	adminGroup.Use(middleware.RequireRole(jwt.RoleAdmin))
	adminGroup.GET("/assistant/telemetry", deps.Assistant.Telemetry)
	adminGroup.POST("/documents", deps.Documents.Create)
	adminGroup.PUT("/documents/:id", deps.Documents.Update)
	adminGroup.DELETE("/documents/:id", deps.Documents.Delete)
	adminGroup.POST("/documents/:id/index", deps.Documents.Index)
}
