package server

import (
	"os"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/intellicoi/coi-backend/internal/handlers"
	"github.com/intellicoi/coi-backend/internal/middleware"
)

type RouterConfig struct {
	UploadHandler       *handlers.UploadHandler
	WebhookHandler      *handlers.WebhookHandler
	InstructionsHandler *handlers.InstructionsHandler
	NotifyHandler       *handlers.NotifyHandler
	CertificateHandler  *handlers.CertificateHandler
	PortalHandler       *handlers.PortalHandler
	WebhookAuth         *middleware.WebhookAuthMiddleware
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()
	router.Use(otelgin.Middleware("coi-backend"))

	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With", "X-Vectorize-Signature"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")
	{
		api.POST("/upload", cfg.UploadHandler.Upload)
		api.POST("/instructions", cfg.InstructionsHandler.Generate)
		api.POST("/notify", cfg.NotifyHandler.Notify)
		api.GET("/certificates/:id", cfg.CertificateHandler.GetCertificate)
		api.GET("/vendors/:id/certificates", cfg.CertificateHandler.ListVendorCertificates)
		api.GET("/vendor/:token", cfg.PortalHandler.GetPortal)

		webhooks := api.Group("/webhooks")
		webhooks.Use(cfg.WebhookAuth.RequireSignature())
		webhooks.POST("/vectorize", cfg.WebhookHandler.VectorizeWebhook)
	}

	return router
}

func allowedOrigins() []string {
	raw := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if raw == "" {
		return []string{"http://localhost:3000", "http://localhost:3001"}
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, part := range parts {
		if p := strings.TrimSpace(part); p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}
