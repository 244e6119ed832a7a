package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"loan-review-api/clients"
	"loan-review-api/config"
	"loan-review-api/controllers"
	"loan-review-api/middleware"
	"loan-review-api/notify"
	"loan-review-api/repository"
	"loan-review-api/routes"
	"loan-review-api/services"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	logFile, _ := config.InitLogging()
	if logFile != nil {
		defer logFile.Close()
	}

	// Initialize database
	config.InitDB()

	// Set Gin mode
	ginMode := os.Getenv("GIN_MODE")
	if ginMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Wire stores and workflows
	cfg := config.LoadWorkflow()
	apps := repository.NewApplicationRepository(config.DB)
	officers := repository.NewOfficerRepository(config.DB)
	docs := repository.NewDocumentRepository(config.DB)
	compliance := repository.NewComplianceRepository(config.DB)
	audit := repository.NewAuditRepository(config.DB)
	notifier := notify.NewDispatcher(config.DB)

	ledger := services.NewLedger(apps, audit)
	engine := services.NewAssignmentEngine(apps, officers, ledger, cfg)
	review := services.NewReviewWorkflow(apps, docs, ledger, engine,
		clients.NewCreditBureauClient(nil), notifier, cfg)
	complianceFlow := services.NewComplianceWorkflow(apps, docs, compliance, ledger, engine,
		clients.NewInvestigationClient(nil), notifier, cfg)

	controllers.Init(controllers.Deps{
		Review:     review,
		Compliance: complianceFlow,
		Apps:       apps,
		Docs:       docs,
	})

	// Create Gin router
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// Security headers
	router.Use(func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Content-Security-Policy", "default-src 'self'")
		c.Next()
	})

	router.Use(middleware.CORSMiddleware())

	// Setup routes
	routes.SetupRoutes(router)

	// Create upload directory if not exists
	uploadPath := os.Getenv("UPLOAD_PATH")
	if uploadPath == "" {
		uploadPath = "./uploads"
	}
	if err := os.MkdirAll(uploadPath, os.ModePerm); err != nil {
		log.Printf("Warning: Failed to create upload directory: %v", err)
	}

	// Start server
	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
