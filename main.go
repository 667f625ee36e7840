package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github/itish2003/retrieval/controller"
	"github/itish2003/retrieval/services"
)

func main() {
	cfg := loadConfig()

	logger, err := newLogger(cfg.Environment)
	if err != nil {
		log.Fatalf("FATAL: Failed to create logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	// One HTTP client shared by the backend connection and image fetches.
	httpClient := &http.Client{
		Timeout: 60 * time.Second,
	}

	// The backend connection is established lazily on the first operation
	// that needs it, and the one handle is shared by every session.
	connections := services.NewConnectionManager(func(ctx context.Context) (services.RetrievalBackend, error) {
		client := services.NewBackendClient(cfg.BackendURL, httpClient)
		if err := client.Ping(ctx); err != nil {
			return nil, err
		}
		sugar.Infof("MAIN: Connected to retrieval backend at %s", cfg.BackendURL)
		return client, nil
	})

	resolver := services.NewResolverService(httpClient, sugar)
	sessionService := services.NewSessionService(connections, resolver, sugar)
	catalogService := services.NewCatalogService(cfg.CatalogPath, sugar)
	sessionController := controller.NewSessionController(sessionService, resolver, catalogService)

	// Hot-reload the dataset catalog for the lifetime of the process.
	watchCtx, cancelWatch := context.WithCancel(context.Background())
	defer cancelWatch()
	go catalogService.Watch(watchCtx)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	// CORS middleware so the browser UI can be served from anywhere during
	// development.
	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "Retrieval Session API",
			"version": "1.0.0",
		})
	})

	apiV1 := router.Group("/api/v1")
	{
		apiV1.GET("/catalog", sessionController.GetCatalog)
		apiV1.POST("/sessions", sessionController.CreateSession)
		apiV1.GET("/sessions/:id/state", sessionController.GetState)
		apiV1.POST("/sessions/:id/configure", sessionController.Configure)
		apiV1.POST("/sessions/:id/examples/refresh", sessionController.RefreshExamples)
		apiV1.POST("/sessions/:id/search", sessionController.SearchByExample)
		apiV1.POST("/sessions/:id/search/upload", sessionController.SearchByUpload)
		apiV1.POST("/sessions/:id/search/paste", sessionController.SearchByPaste)
		apiV1.GET("/previews/:id", sessionController.GetPreview)
	}

	sugar.Infof("MAIN: Retrieval session server starting on http://localhost:%s", cfg.Port)
	sugar.Infof("MAIN: Using retrieval backend at %s", cfg.BackendURL)

	if err := router.Run(":" + cfg.Port); err != nil {
		sugar.Fatalf("MAIN: Failed to start server: %v", err)
	}
}

// newLogger builds the process logger: structured JSON in production, a
// readable console logger everywhere else.
func newLogger(environment string) (*zap.Logger, error) {
	if environment == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
