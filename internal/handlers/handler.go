package handlers

import (
	"airfilter_hub/internal/logger"
	"airfilter_hub/internal/service"

	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	log      *logger.Logger
}

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(services *service.Service, log *logger.Logger) *Handler {
	return &Handler{services: services, log: log}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health endpoint
	router.GET("/health", h.health)

	// Auth endpoints
	h.registerAuthRoutes(router)

	// Versioned API endpoints (protected)
	h.registerAPIRoutes(router)

	// Live dashboard push (HTTP upgrade) on the same port
	router.GET("/ws", h.wsConnect)

	return router
}

func (h *Handler) registerAuthRoutes(r *gin.Engine) {
	auth := r.Group("/auth")
	{
		auth.POST("/sign-up", h.signUp)
		auth.POST("/sign-in", h.signIn)
	}
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1", h.userIdMiddleware)
	{
		h.registerAirRoutes(api)
		h.registerLogRoutes(api)
	}
}

func (h *Handler) registerAirRoutes(api *gin.RouterGroup) {
	air := api.Group("/air")
	{
		air.GET("/state", h.getState)
		air.GET("/readings", h.getReadings)

		decision := air.Group("/decision")
		{
			decision.POST("/accept", h.acceptDecision)
			decision.POST("/decline", h.declineDecision)
			decision.POST("/defer-short", h.deferShort)
			decision.POST("/defer-long", h.deferLong)
			decision.POST("/disclaimer/confirm", h.confirmDecline)
			decision.POST("/disclaimer/reverse", h.reverseDecline)
			decision.POST("/caution/close", h.closeCaution)
			decision.POST("/reminder-notice/close", h.closeReminderNotice)
		}
	}
}

func (h *Handler) registerLogRoutes(api *gin.RouterGroup) {
	logs := api.Group("/logs")
	{
		logs.GET("/", h.getLogs)
	}
}
