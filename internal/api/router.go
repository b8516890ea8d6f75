package api

import (
	"github.com/gin-gonic/gin"
	"github.com/junhopark/prdforge/internal/api/handler"
	"github.com/junhopark/prdforge/internal/api/middleware"
	"github.com/junhopark/prdforge/internal/logger"
	"github.com/junhopark/prdforge/internal/service"
)

// Services bundles everything the HTTP surface needs. Search may be nil
// when the vector index is disabled.
type Services struct {
	Uploads      *service.UploadService
	Orchestrator *service.Orchestrator
	Reviews      *service.ReviewService
	Generator    *service.Generator
	Search       *service.SearchService
}

// SetupRouter configures the Gin router with all routes
func SetupRouter(svcs Services, mode string, cors middleware.CORSConfig, log *logger.Logger) *gin.Engine {
	switch mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(log))
	r.Use(middleware.CORS(cors))

	healthHandler := handler.NewHealthHandler()
	documentHandler := handler.NewDocumentHandler(svcs.Uploads)
	processingHandler := handler.NewProcessingHandler(svcs.Orchestrator)
	reviewHandler := handler.NewReviewHandler(svcs.Reviews, svcs.Orchestrator)
	prdHandler := handler.NewPRDHandler(svcs.Generator)
	searchHandler := handler.NewSearchHandler(svcs.Search)

	// Health check
	r.GET("/health", healthHandler.Health)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		// Input documents
		v1.POST("/documents/upload", documentHandler.Upload)
		v1.GET("/documents", documentHandler.List)
		v1.GET("/documents/:id", documentHandler.Get)

		// Pipeline jobs
		v1.POST("/processing/start", processingHandler.Start)
		v1.GET("/processing", processingHandler.List)
		v1.GET("/processing/status/:id", processingHandler.Status)
		v1.POST("/processing/cancel/:id", processingHandler.Cancel)

		// Human review
		v1.GET("/review/pending/:job_id", reviewHandler.Pending)
		v1.POST("/review/decision", reviewHandler.Decision)
		v1.POST("/review/bulk-decision", reviewHandler.BulkDecision)
		v1.POST("/review/complete/:job_id", reviewHandler.Complete)
		v1.GET("/review/stats/:job_id", reviewHandler.Stats)

		// Generated documents
		v1.GET("/prds", prdHandler.List)
		v1.GET("/prds/:id", prdHandler.Get)
		v1.GET("/prds/:id/export", prdHandler.Export)
		v1.POST("/prds/:id/derive", prdHandler.Derive)
		v1.DELETE("/prds/:id", prdHandler.Delete)

		// Similarity search
		v1.POST("/search", searchHandler.Search)
	}

	return r
}
