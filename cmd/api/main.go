package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/junhopark/prdforge/internal/api"
	"github.com/junhopark/prdforge/internal/api/middleware"
	"github.com/junhopark/prdforge/internal/config"
	"github.com/junhopark/prdforge/internal/extract"
	"github.com/junhopark/prdforge/internal/llm"
	"github.com/junhopark/prdforge/internal/logger"
	"github.com/junhopark/prdforge/internal/repository"
	"github.com/junhopark/prdforge/internal/service"
	"github.com/junhopark/prdforge/internal/storage"
)

func main() {
	appLogger := logger.NewDefault()
	logger.SetDefaultLogger(appLogger)

	// Support CONFIG_PATH environment variable for production deployments
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}

	jobRepo := repository.NewJobRepository(db)
	documentRepo := repository.NewDocumentRepository(db)
	candidateRepo := repository.NewCandidateRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	generatedRepo := repository.NewGeneratedRepository(db)

	objectStorage, err := storage.NewStorage(&storage.S3Config{
		Type:      storage.StorageType(cfg.Storage.Type),
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		UseSSL:    cfg.Storage.UseSSL,
		Bucket:    cfg.Storage.Bucket,
		Region:    cfg.Storage.Region,
		PublicURL: cfg.Storage.PublicURL,
	})
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize storage")
	}

	ctx := context.Background()
	if s3, ok := objectStorage.(*storage.S3Storage); ok {
		if err := s3.EnsureBucket(ctx); err != nil {
			appLogger.WithError(err).Fatal("Failed to ensure storage bucket")
		}
	}

	llmClient := llm.NewClient(&llm.Config{
		Model:       cfg.LLM.Model,
		VisionModel: cfg.LLM.VisionModel,
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		MaxRetries:  cfg.LLM.MaxRetries,
		RetryBase:   cfg.LLM.RetryBase,
		Timeout:     cfg.LLM.Timeout,
	})

	registry := extract.NewRegistry(
		extract.NewTextExtractor(),
		extract.NewCSVExtractor(),
		extract.NewExcelExtractor(),
		extract.NewSlidesExtractor(),
		extract.NewWordExtractor(),
		extract.NewEmailExtractor(),
		extract.NewHTMLExtractor(),
		extract.NewChatExtractor(),
		extract.NewImageExtractor(llmClient),
	)

	// Similarity search is optional: without qdrant the pipeline still runs,
	// PRDs are just not indexed.
	var (
		searchService *service.SearchService
		indexer       service.Indexer
		deindexer     service.Deindexer
	)
	if cfg.Qdrant.Enabled {
		qdrantRepo, err := repository.NewQdrantRepository(&repository.QdrantConnectionConfig{
			Host:            cfg.Qdrant.Host,
			Port:            cfg.Qdrant.Port,
			Collection:      cfg.Qdrant.Collection,
			APIKey:          cfg.Qdrant.APIKey,
			UseTLS:          cfg.Qdrant.UseTLS,
			VectorDimension: cfg.Embedding.Dimensions,
		})
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to initialize qdrant repository")
		}
		defer qdrantRepo.Close()

		if err := qdrantRepo.EnsureCollection(ctx); err != nil {
			appLogger.WithError(err).Fatal("Failed to ensure qdrant collection")
		}

		embedder := llm.NewEmbeddingClient(&llm.EmbeddingConfig{
			Provider:   cfg.Embedding.Provider,
			Model:      cfg.Embedding.Model,
			APIKey:     cfg.Embedding.APIKey,
			Dimensions: cfg.Embedding.Dimensions,
		})
		searchService = service.NewSearchService(embedder, qdrantRepo)
		indexer = searchService
		deindexer = searchService
	}

	gate := service.NewQualityGate(cfg.Review.AutoApproveThreshold)
	generator := service.NewGenerator(llmClient, generatedRepo, candidateRepo, objectStorage, deindexer)
	orchestrator := service.NewOrchestrator(
		jobRepo, documentRepo, candidateRepo, reviewRepo, objectStorage,
		registry, llmClient, gate, generator, indexer,
		service.OrchestratorConfig{
			MaxConcurrentJobs: cfg.Pipeline.MaxConcurrentJobs,
			ParseWorkers:      cfg.Pipeline.ParseWorkers,
			ReviewEnabled:     cfg.Review.Enabled,
		},
	)
	uploadService := service.NewUploadService(documentRepo, objectStorage)
	reviewService := service.NewReviewService(jobRepo, reviewRepo)

	router := api.SetupRouter(api.Services{
		Uploads:      uploadService,
		Orchestrator: orchestrator,
		Reviews:      reviewService,
		Generator:    generator,
		Search:       searchService,
	}, cfg.Server.Mode, middleware.CORSConfig{
		AllowedOrigins:  cfg.Server.CORS.AllowedOrigins,
		AllowAllOrigins: cfg.Server.CORS.AllowAllOrigins,
	}, appLogger)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		appLogger.WithFields(logger.Fields{
			"port": cfg.Server.Port,
			"mode": cfg.Server.Mode,
		}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Fatal("Server forced to shutdown")
	}

	// Let in-flight pipeline jobs reach a stage boundary
	orchestrator.Wait()

	appLogger.Info("Server exited")
}
