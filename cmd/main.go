package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/intellicoi/coi-backend/internal/compliance"
	"github.com/intellicoi/coi-backend/internal/db"
	"github.com/intellicoi/coi-backend/internal/handlers"
	"github.com/intellicoi/coi-backend/internal/logger"
	"github.com/intellicoi/coi-backend/internal/middleware"
	"github.com/intellicoi/coi-backend/internal/observability"
	"github.com/intellicoi/coi-backend/internal/repos"
	"github.com/intellicoi/coi-backend/internal/server"
	"github.com/intellicoi/coi-backend/internal/services"
	"github.com/intellicoi/coi-backend/internal/utils"
)

func main() {
	_ = godotenv.Load()

	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Tracing
	shutdownTracing := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: "coi-backend",
		Environment: utils.GetEnv("APP_ENV", "development", log),
		Version:     utils.GetEnv("APP_VERSION", "dev", log),
	})
	if shutdownTracing != nil {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdownTracing(ctx)
		}()
	}

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Fatal("Postgres init failed", "error", err)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Fatal("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up repos from main...")
	vendorRepo := repos.NewVendorRepo(thePG, log)
	certificateRepo := repos.NewCertificateRepo(thePG, log)
	gapAnalysisRepo := repos.NewGapAnalysisRepo(thePG, log)
	complianceEventRepo := repos.NewComplianceEventRepo(thePG, log)
	vendorTokenRepo := repos.NewVendorAccessTokenRepo(thePG, log)

	// Services
	log.Info("Setting up services from main...")
	bucketService, err := services.NewBucketService(log)
	if err != nil {
		log.Fatal("Could not init BucketService", "error", err)
	}

	engine := buildComplianceEngine(log)

	extractionClient, err := buildExtractionClient(log)
	if err != nil {
		log.Fatal("Could not init extraction client", "error", err)
	}

	var openaiClient services.OpenAIClient
	if os.Getenv("OPENAI_API_KEY") != "" {
		openaiClient, err = services.NewOpenAIClient(log)
		if err != nil {
			log.Fatal("Could not init OpenAIClient", "error", err)
		}
	} else {
		log.Warn("OPENAI_API_KEY not set, instruction generation will use deterministic fallback only")
	}

	emailClient, err := services.NewSendGridClient(log)
	if err != nil {
		log.Fatal("Could not init SendGridClient", "error", err)
	}

	vendorTokenService, err := services.NewVendorTokenService(log, vendorTokenRepo)
	if err != nil {
		log.Fatal("Could not init VendorTokenService", "error", err)
	}

	complianceService := services.NewComplianceService(log, thePG, engine, certificateRepo, gapAnalysisRepo, complianceEventRepo)
	webhookService := services.NewWebhookService(log, certificateRepo, complianceEventRepo, complianceService)
	instructionService := services.NewInstructionService(log, openaiClient, certificateRepo, gapAnalysisRepo, complianceEventRepo)
	notificationService, err := services.NewNotificationService(log, emailClient, certificateRepo, gapAnalysisRepo, complianceEventRepo, vendorTokenService, instructionService)
	if err != nil {
		log.Fatal("Could not init NotificationService", "error", err)
	}
	certificateService := services.NewCertificateService(log, vendorRepo, certificateRepo, gapAnalysisRepo, complianceEventRepo, bucketService, extractionClient)

	// Handlers
	log.Info("Setting up handlers from main...")
	uploadHandler := handlers.NewUploadHandler(certificateService)
	webhookHandler := handlers.NewWebhookHandler(webhookService)
	instructionsHandler := handlers.NewInstructionsHandler(instructionService)
	notifyHandler := handlers.NewNotifyHandler(notificationService)
	certificateHandler := handlers.NewCertificateHandler(certificateService)
	portalHandler := handlers.NewPortalHandler(vendorTokenService, certificateService)

	// Middleware
	webhookAuth := middleware.NewWebhookAuthMiddleware(log)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		UploadHandler:       uploadHandler,
		WebhookHandler:      webhookHandler,
		InstructionsHandler: instructionsHandler,
		NotifyHandler:       notifyHandler,
		CertificateHandler:  certificateHandler,
		PortalHandler:       portalHandler,
		WebhookAuth:         webhookAuth,
	})

	port := utils.GetEnv("PORT", "8080", log)
	fmt.Printf("Server listening on :%s\n", port)
	if err := router.Run(":" + port); err != nil {
		log.Error("Server failed", "error", err)
	}
}

func buildComplianceEngine(log *logger.Logger) *compliance.Engine {
	path := strings.TrimSpace(os.Getenv("COMPLIANCE_REQUIREMENTS_FILE"))
	if path == "" {
		return compliance.NewEngine(nil)
	}
	requirements, err := compliance.LoadRequirements(path)
	if err != nil {
		log.Fatal("Could not load requirement catalog", "path", path, "error", err)
	}
	log.Info("Loaded requirement catalog override", "path", path, "requirements", len(requirements))
	return compliance.NewEngine(requirements)
}

// buildExtractionClient picks the hosted backend or the local simulator.
// The simulator delivers completion webhooks to this process's own endpoint.
func buildExtractionClient(log *logger.Logger) (services.ExtractionClient, error) {
	if utils.GetEnvAsBool("USE_SIMULATED_EXTRACTION", false, log) || os.Getenv("VECTORIZE_API_KEY") == "" {
		log.Warn("Using simulated extraction backend")

		var store services.JobStore
		if os.Getenv("REDIS_ADDR") != "" {
			redisStore, err := services.NewRedisJobStore(log)
			if err != nil {
				return nil, err
			}
			store = redisStore
		} else {
			store = services.NewMemoryJobStore()
		}

		webhookURL := strings.TrimSpace(os.Getenv("SIMULATOR_WEBHOOK_URL"))
		if webhookURL == "" {
			port := utils.GetEnv("PORT", "8080", log)
			webhookURL = fmt.Sprintf("http://localhost:%s/api/webhooks/vectorize", port)
		}

		delay := time.Duration(utils.GetEnvAsInt("SIMULATOR_DELAY_MS", 2000, log)) * time.Millisecond
		return services.NewSimulatedExtraction(log, store, services.SimulatorConfig{
			Delay:         delay,
			WebhookURL:    webhookURL,
			WebhookSecret: strings.TrimSpace(os.Getenv("VECTORIZE_WEBHOOK_SECRET")),
		}), nil
	}
	return services.NewVectorizeClient(log)
}
