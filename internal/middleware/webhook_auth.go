package middleware

import (
	"crypto/subtle"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/intellicoi/coi-backend/internal/logger"
)

type WebhookAuthMiddleware struct {
	log    *logger.Logger
	secret string
	devEnv bool
}

func NewWebhookAuthMiddleware(log *logger.Logger) *WebhookAuthMiddleware {
	middlewareLogger := log.With("middleware", "WebhookAuthMiddleware")
	env := strings.TrimSpace(strings.ToLower(os.Getenv("APP_ENV")))
	return &WebhookAuthMiddleware{
		log:    middlewareLogger,
		secret: strings.TrimSpace(os.Getenv("VECTORIZE_WEBHOOK_SECRET")),
		devEnv: env == "" || env == "development" || env == "dev",
	}
}

// RequireSignature checks the shared-secret header on webhook deliveries.
// With no secret configured, requests pass only in development.
func (wm *WebhookAuthMiddleware) RequireSignature() gin.HandlerFunc {
	return func(c *gin.Context) {
		if wm.secret == "" {
			if wm.devEnv {
				c.Next()
				return
			}
			wm.log.Error("Webhook rejected: no VECTORIZE_WEBHOOK_SECRET configured outside development")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "webhook authentication not configured"})
			return
		}

		signature := c.GetHeader("X-Vectorize-Signature")
		if subtle.ConstantTimeCompare([]byte(signature), []byte(wm.secret)) != 1 {
			wm.log.Warn("Webhook rejected: signature mismatch")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
			return
		}
		c.Next()
	}
}
