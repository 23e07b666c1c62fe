package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/openfmea/openfmea/backend/worksheet-service/internal/api"
	"github.com/openfmea/openfmea/backend/worksheet-service/internal/db"
	"github.com/openfmea/openfmea/backend/worksheet-service/internal/logging"
	"github.com/openfmea/openfmea/backend/worksheet-service/internal/store"
)

func main() {
	// Load environment variables from .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	log.SetOutput(os.Stdout)

	log.Printf("Worksheet Service starting (GIT_SHA=%s BUILD_TIME=%s)", os.Getenv("GIT_SHA"), os.Getenv("BUILD_TIME"))

	var handler *api.Handler
	if os.Getenv("DEMO_MODE") == "true" {
		// serve a seeded in-memory worksheet, no database required
		mem := store.NewMemory()
		worksheetID := store.SeedDemo(mem)
		log.Printf("DEMO_MODE enabled, serving in-memory worksheet %s", worksheetID)
		handler = api.NewHandlerWithStore(mem)
	} else {
		// Initialize database connection (non-fatal; allow process to start for /live)
		database, err := db.NewDatabase()
		if err != nil {
			log.Printf("[WARN] Database initialization failed at startup: %v", err)
		}
		if database != nil {
			defer database.Close()
		}
		handler = api.NewHandler(database)
	}

	router := setupRouter(handler)

	// Get port from environment or use default
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Set up graceful shutdown
	go func() {
		log.Printf("Starting server on port %s", port)
		if err := router.Run(":" + port); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
}

func setupRouter(handler *api.Handler) *gin.Engine {
	// Set Gin mode based on environment
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Add middleware
	router.Use(logging.JSONLogger())
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	// Health and readiness endpoints
	router.GET("/live", func(c *gin.Context) { c.Status(200) })
	router.GET("/ready", handler.Health)
	router.GET("/health", handler.Health)

	// API routes
	v1 := router.Group("/api/v1")
	{
		// Parse JWT if present to expose role info for read endpoints
		v1.Use(api.OptionalAuthMiddleware())

		// Read projection (public)
		v1.GET("/failure-cascade", handler.GetFailureCascade)
		v1.GET("/worksheets", handler.ListWorksheets)

		// Protected authoring endpoints
		admin := v1.Group("")
		admin.Use(api.AuthMiddleware(), api.AdminMiddleware())
		{
			admin.POST("/worksheets", handler.CreateWorksheet)

			// Structure authoring
			admin.POST("/worksheets/:id/structure", handler.CreateStructureNode)
			admin.DELETE("/worksheets/:id/structure/:nodeId", handler.DeleteStructureNode)

			// Failure analysis authoring
			admin.POST("/worksheets/:id/effects", handler.CreateFailureEffect)
			admin.POST("/worksheets/:id/modes", handler.CreateFailureMode)
			admin.POST("/worksheets/:id/causes", handler.CreateFailureCause)
			admin.POST("/worksheets/:id/links", handler.CreateFailureLink)

			// Network stage lock
			admin.POST("/worksheets/:id/confirm-network", handler.ConfirmNetwork)
			admin.POST("/worksheets/:id/unlock-network", handler.UnlockNetwork)
		}
	}

	// Root endpoint for basic info
	router.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"service": "worksheet-service",
			"version": "1.0.0",
			"status":  "running",
		})
	})

	return router
}

// corsMiddleware adds CORS headers to allow cross-origin requests
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, X-Admin-Request")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
