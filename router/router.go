package router

import (
	"net/http"

	"mindscape-agent/internal/config"
	"mindscape-agent/internal/handlers"
	"mindscape-agent/pkg/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	webhookPath    = "/api/webhooks/telnyx"
	maxRequestSize = 1 << 20
)

// Handlers bundles the HTTP handlers the router mounts. TestInbound may be
// nil; it is never mounted in production.
type Handlers struct {
	Health      *handlers.HealthHandler
	Auth        *handlers.AuthHandler
	Webhook     *handlers.WebhookHandler
	Events      *handlers.EventsHandler
	Messages    *handlers.MessageHandler
	Contacts    *handlers.ContactHandler
	Settings    *handlers.SettingsHandler
	Profiles    *handlers.ProfileHandler
	TestInbound *handlers.TestInboundHandler
}

type Router struct {
	engine *gin.Engine
}

func NewRouter(cfg *config.Config, h Handlers) *Router {
	if cfg == nil {
		panic("config cannot be nil")
	}

	engine := gin.New()
	engine.HandleMethodNotAllowed = true
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestIDMiddleware())
	engine.Use(middleware.SecurityHeadersMiddleware())
	engine.Use(middleware.CORSMiddleware(cfg.Server.CORSOrigin))
	if cfg.Server.ForceHTTPS {
		engine.Use(middleware.HTTPSRedirectMiddleware(webhookPath))
	}
	engine.Use(middleware.RequestSizeLimitMiddleware(maxRequestSize))
	engine.Use(middleware.AuditLogMiddleware())
	engine.Use(middleware.MetricsMiddleware())

	r := &Router{engine: engine}
	engine.NoRoute(r.handleNotFound)
	engine.NoMethod(r.handleMethodNotAllowed)

	engine.GET("/health", h.Health.Check)
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	engine.POST("/api/auth/login", h.Auth.Login)
	engine.POST(webhookPath, h.Webhook.Receive)

	protected := engine.Group("/api")
	protected.Use(middleware.AuthMiddleware(cfg))
	{
		protected.GET("/events", h.Events.Stream)
		protected.GET("/events/ws", h.Events.WebSocket)

		protected.GET("/messages", h.Messages.List)
		protected.POST("/messages/send", h.Messages.Send)

		protected.GET("/contacts", h.Contacts.List)
		protected.POST("/contacts", h.Contacts.Create)
		protected.GET("/contacts/:id", h.Contacts.Get)

		protected.GET("/settings/inbound", h.Settings.Get)
		protected.PUT("/settings/inbound", h.Settings.Update)

		protected.GET("/messaging-profiles", h.Profiles.List)
		protected.POST("/messaging-profiles", h.Profiles.Create)
		protected.POST("/messaging-profiles/phone", h.Profiles.UpdatePhone)
		protected.GET("/messaging-profiles/remote", h.Profiles.Remote)

		if h.TestInbound != nil && !cfg.IsProduction() {
			protected.POST("/test/inbound", h.TestInbound.Simulate)
		}
	}

	return r
}

// Engine exposes the underlying gin engine
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.engine.ServeHTTP(w, req)
}

func (r *Router) handleNotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
}

func (r *Router) handleMethodNotAllowed(c *gin.Context) {
	c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Method not allowed"})
}
