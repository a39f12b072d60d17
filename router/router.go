package router

import (
	"net/http"

	"clinic-console-server/internal/config"
	"clinic-console-server/internal/handlers"
	"clinic-console-server/pkg/middleware"

	"github.com/gin-gonic/gin"
)

// Services bundles the handler dependencies the router mounts
type Services struct {
	Conversations handlers.ConversationServiceInterface
	Messages      handlers.MessageServiceInterface
	Appointments  handlers.AppointmentServiceInterface
	Performance   handlers.PerformanceServiceInterface
	Profiles      middleware.ProfileResolver
}

// Router owns the gin engine and route table
type Router struct {
	engine *gin.Engine
}

// NewRouter builds the full route table. Everything under /api requires an
// authenticated actor; /health is public.
func NewRouter(cfg *config.Config, svcs Services) *Router {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestIDMiddleware())
	engine.Use(middleware.SecurityHeadersMiddleware())
	engine.Use(middleware.CORSMiddleware())
	engine.Use(middleware.AuditLogMiddleware())

	r := &Router{engine: engine}

	engine.GET("/health", r.handleHealth)
	engine.NoRoute(r.handleNotFound)

	conversationHandler := handlers.NewConversationHandler(svcs.Conversations)
	messageHandler := handlers.NewMessageHandler(svcs.Messages, svcs.Conversations)
	appointmentHandler := handlers.NewAppointmentHandler(svcs.Appointments)
	performanceHandler := handlers.NewPerformanceHandler(svcs.Performance)
	directoryWS := handlers.NewDirectoryWSHandler(svcs.Conversations)

	api := engine.Group("/api")
	api.Use(middleware.ActorMiddleware(cfg, svcs.Profiles))
	{
		api.GET("/conversations", conversationHandler.List)
		api.POST("/conversations", conversationHandler.Create)
		api.POST("/conversations/:id/claim", conversationHandler.Claim)
		api.POST("/conversations/:id/reassign", conversationHandler.Reassign)
		api.PATCH("/conversations/:id/status", conversationHandler.SetStatus)

		api.GET("/conversations/:id/messages", messageHandler.List)
		api.POST("/conversations/:id/messages", messageHandler.Send)
		api.PATCH("/conversations/:id/messages/:messageID/status", messageHandler.SetStatus)

		api.GET("/appointments", appointmentHandler.List)
		api.POST("/appointments", appointmentHandler.Schedule)
		api.PATCH("/appointments/:id/status", appointmentHandler.SetStatus)

		api.GET("/performance/daily", performanceHandler.Daily)
		api.GET("/performance/team", performanceHandler.Team)

		api.GET("/ws/conversations", directoryWS.Stream)
	}

	return r
}

// ServeHTTP makes Router an http.Handler
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.engine.ServeHTTP(w, req)
}

func (r *Router) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (r *Router) handleNotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
}
