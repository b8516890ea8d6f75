package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"

	"github.com/junhopark/prdforge/internal/config"
	"github.com/junhopark/prdforge/internal/extract"
	"github.com/junhopark/prdforge/internal/llm"
	"github.com/junhopark/prdforge/internal/logger"
	"github.com/junhopark/prdforge/internal/repository"
	"github.com/junhopark/prdforge/internal/service"
	"github.com/junhopark/prdforge/internal/storage"
)

// Batch runner: uploads the given files, runs the pipeline on them, and
// reports the outcome. Jobs that hit the review gate are left held; pick
// them up through the API or rerun with -no-review.
func main() {
	appLogger := logger.New(&logger.Config{
		Level:       "info",
		Format:      "text",
		ServiceName: "prdforge-pipeline",
	})
	logger.SetDefaultLogger(appLogger)

	configPath := flag.String("config", "", "Path to config file")
	noReview := flag.Bool("no-review", false, "Skip the review gate, proceed with auto-approved requirements only")
	flag.Parse()

	files := flag.Args()
	if len(files) == 0 {
		appLogger.Fatal("usage: pipeline [-config path] [-no-review] file...")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}
	if *noReview {
		cfg.Review.Enabled = false
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

	var indexer service.Indexer
	var deindexer service.Deindexer
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
		searchService := service.NewSearchService(embedder, qdrantRepo)
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

	documentIDs := make([]string, 0, len(files))
	for _, path := range files {
		f, err := os.Open(path)
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to open input file")
		}
		info, err := f.Stat()
		if err != nil {
			f.Close()
			appLogger.WithError(err).Fatal("Failed to stat input file")
		}
		doc, err := uploadService.Save(ctx, filepath.Base(path), info.Size(), f)
		f.Close()
		if err != nil {
			appLogger.WithError(err).WithField("file", path).Fatal("Failed to store input file")
		}
		appLogger.WithFields(logger.Fields{
			"file": doc.Filename,
			"kind": string(doc.Kind),
		}).Info("Uploaded input document")
		documentIDs = append(documentIDs, doc.ID)
	}

	job, err := orchestrator.Start(ctx, documentIDs)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to start pipeline")
	}
	appLogger.WithField("job_id", job.ID).Info("Pipeline started")

	orchestrator.Wait()

	snapshot, err := orchestrator.Status(ctx, job.ID)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load job status")
	}

	entry := appLogger.WithFields(logger.Fields{
		"job_id":   snapshot.JobID,
		"status":   string(snapshot.Status),
		"progress": snapshot.Progress,
	})
	switch {
	case snapshot.Error != "":
		entry.WithField("error", snapshot.Error).Error("Pipeline failed")
		os.Exit(1)
	case snapshot.PendingReviews > 0:
		entry.WithField("pending_reviews", snapshot.PendingReviews).
			Warn("Pipeline held for review; resolve items via the API and complete the review")
	default:
		if snapshot.PRDID != nil {
			entry.WithField("prd_id", *snapshot.PRDID).Info("Pipeline completed")
		} else {
			entry.Info("Pipeline finished")
		}
	}
}
