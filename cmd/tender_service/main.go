package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tenderlens/internal/config"
	"tenderlens/internal/database/minio"
	"tenderlens/internal/database/redis"
	"tenderlens/internal/embedding"
	"tenderlens/internal/llm"
	"tenderlens/internal/parser"
	"tenderlens/internal/rag/interfaces"
	"tenderlens/internal/rag/pipeline"
	"tenderlens/internal/rag/rerankers"
	"tenderlens/internal/rag/splitters"
	"tenderlens/internal/rag/storages/indexcache"
	"tenderlens/internal/tender_service/api"
	"tenderlens/internal/tender_service/service"
	"tenderlens/internal/tender_service/store"
	"tenderlens/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	// 1. Initialize Logger
	// Note: Logger level should also come from config, hardcoded for now.
	logger.Init(logrus.InfoLevel)
	appLogger := logger.New("TenderService", "")
	appLogger.Info("Starting Tender Service...")

	// 2. Load Configuration
	// Assuming the config file is located at ./config/config.yaml relative to the executable
	cfg, err := config.LoadConfig("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	appLogger.Info("Configuration loaded successfully.")

	// 3. Initialize Model Clients
	geminiEmbedding, err := embedding.NewGoogleModel(cfg.Embedding.Gemini.APIKey, cfg.Embedding.Gemini.Model)
	if err != nil {
		log.Fatalf("Failed to create Gemini embedding client: %v", err)
	}

	geminiLLM, err := llm.NewGemini(context.Background(), cfg.LLM.Gemini.Model, cfg.LLM.Gemini.APIKey)
	if err != nil {
		log.Fatalf("Failed to create Gemini LLM client: %v", err)
	}

	var reranker interfaces.Reranker
	if cfg.Reranker.Enabled && cfg.Reranker.APIKey != "" {
		reranker = rerankers.NewCohereReranker(cfg.Reranker.APIKey, cfg.Reranker.Model,
			cfg.Retrieval.DeepFinalK, time.Duration(cfg.Reranker.Timeout)*time.Second)
	} else {
		appLogger.Warn("Reranker disabled or COHERE_API_KEY not set. Retrieval falls back to similarity order.")
	}

	var ocrParser parser.OcrParser
	if cfg.LlamaParse.APIKey != "" {
		ocrParser = parser.NewLlamaParseClient(cfg.LlamaParse.BaseURL, cfg.LlamaParse.APIKey,
			time.Duration(cfg.LlamaParse.PollInterval)*time.Second,
			time.Duration(cfg.LlamaParse.Timeout)*time.Second)
	} else {
		appLogger.Warn("LLAMAPARSE_API_KEY not set. Hybrid parsing degrades to native extraction.")
	}

	// 4. Initialize Optional Stores
	// Redis and MinIO are supporting stores; the core pipeline works without them.
	var summaryCache *store.SummaryCache
	if cfg.Databases.Redis.Address != "" {
		redisClient, err := redis.GetClient(&cfg.Databases.Redis)
		if err != nil {
			appLogger.WithError(err).Warn("Failed to connect to Redis. Summary caching disabled.")
		} else {
			summaryCache = store.NewSummaryCache(redisClient, time.Duration(cfg.Databases.Redis.SummaryTTL)*time.Second)
		}
	}

	var archive *store.PDFArchive
	if cfg.Databases.MinIO.Endpoint != "" {
		mc, err := minio.GetClient(&cfg.Databases.MinIO)
		if err != nil {
			appLogger.WithError(err).Warn("Failed to connect to MinIO. Source PDF archival disabled.")
		} else {
			archive = store.NewPDFArchive(mc, cfg.Databases.MinIO.Bucket, appLogger)
		}
	}

	// 5. Assemble the Pipelines
	splitter, err := splitters.NewRecursiveSplitter(cfg.Index.ChunkSize, cfg.Index.ChunkOverlap)
	if err != nil {
		log.Fatalf("Failed to create splitter: %v", err)
	}

	extractor := parser.NewPDFExtractor(cfg.Parser.ExtractWorkers, appLogger)
	classifier := parser.Classifier{MinTextChars: cfg.Parser.MinTextChars}
	ocrBatcher := parser.NewOcrBatcher(ocrParser, cfg.Parser.OCRBatchSize, cfg.Parser.OCRWorkers, appLogger)

	indexing := pipeline.NewIndexingPipeline(extractor, classifier, ocrBatcher, splitter,
		geminiEmbedding, cfg.Index.EmbedBatchSize, cfg.Index.GCEveryBatches, appLogger)
	retrieval := pipeline.NewRetrievalPipeline(geminiEmbedding, reranker, appLogger)
	generation := pipeline.NewGenerationPipeline(geminiLLM, appLogger)

	cache := indexcache.New(cfg.Index.RootDir)

	tenderService := service.NewService(cfg.Retrieval, indexing, retrieval, generation,
		cache, archive, summaryCache, appLogger)

	// 6. Start Gin HTTP Server in a goroutine
	gin.SetMode(gin.ReleaseMode)
	router := gin.Default()
	api.RegisterRoutes(router, api.NewAPI(tenderService, appLogger))

	srv := &http.Server{Addr: cfg.Server.HTTPPort, Handler: router}
	go func() {
		appLogger.Info(fmt.Sprintf("HTTP server listening at %s", cfg.Server.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to serve HTTP: %v", err)
		}
	}()

	// 7. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Error("Forced shutdown")
	}
	appLogger.Info("Server gracefully stopped")
}
