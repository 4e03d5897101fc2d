package app

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/gradeflow/gradeflow/api"
	"github.com/gradeflow/gradeflow/config"
	"github.com/gradeflow/gradeflow/database"
	"github.com/gradeflow/gradeflow/router"
	"github.com/gradeflow/gradeflow/services"
	"github.com/gradeflow/gradeflow/services/cron"
	"github.com/gradeflow/gradeflow/services/inference"
	rediscache "github.com/gradeflow/gradeflow/utils/cache"
)

func SetupAndRunServer() error {

	// Load ENV
	if err := config.LoadENV(); err != nil {
		return err
	}

	getEnv, err := config.Get()
	if err != nil {
		return err
	}

	// Initialize GORM database connection
	store, err := database.StartGORM()
	if err != nil {
		print("Check whether the Postgres is running or not\n")
		return err
	}

	if err := store.Init(); err != nil {
		print("Failed to initialize database tables\n")
		return err
	}

	// Redis keeps grading job state readable across workers and restarts
	redisCache, err := rediscache.NewRedisCache(getEnv.REDIS_URL)
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	// Extraction capabilities
	breakers := services.NewBreakerSet(services.DefaultBreakerConfig())
	ocrClient := services.NewOCRClient(getEnv.OCR_SERVICE_URL)

	var detector services.StructureDetectionCapability
	if getEnv.DETECTION_SERVICE_URL != "" {
		detector = services.NewDetectionClient(getEnv.DETECTION_SERVICE_URL)
	} else {
		log.Println("Warning: DETECTION_SERVICE_URL not set, mark detection disabled")
	}

	inferenceClient := inference.NewClient(inference.Config{
		APIKey:  getEnv.INFERENCE_API_KEY,
		BaseURL: getEnv.INFERENCE_BASE_URL,
		Model:   getEnv.INFERENCE_MODEL,
	})
	if !inferenceClient.Configured() {
		log.Println("Warning: INFERENCE_API_KEY not set, grading batches will fail until it is configured")
	}
	parser := services.NewLLMSheetParser(inferenceClient)

	extractor := services.NewDocumentExtractionService(ocrClient, detector, parser, breakers)

	// Two-tier content cache: in-memory plus Postgres
	cacheStore := database.NewCacheStore(store.DB())
	contentCache := services.NewContentAddressedCache(services.CacheConfig{
		MaxEntries: getEnv.CACHE_MAX_ENTRIES,
		TTL:        time.Duration(getEnv.CACHE_TTL_HOURS) * time.Hour,
	}, cacheStore)

	// Grading pipeline
	coordinator := services.NewBatchExtractionCoordinator(extractor, contentCache)
	multipage := services.NewMultiPageDetectionService()
	answerKeys := database.NewAnswerKeyStore(store.DB())
	validator := services.NewAnswerKeyValidationService(answerKeys)
	tracker := services.NewGradingProgressTracker(redisCache)
	pipeline := services.NewGradingPipeline(coordinator, multipage, validator, tracker)

	// Initialize Cron Manager (only if enabled via environment variable)
	var cronManager *cron.CronManager
	if os.Getenv("CRON_ENABLED") != "false" { // Default to enabled
		cronManager = cron.NewCronManager(contentCache, redisCache)
		if err := cronManager.Start(); err != nil {
			log.Printf("Warning: failed to start cron jobs: %v", err)
			// Don't fail the app, just log the warning
		}
	}

	// Defer closing DB, Redis and stopping cron jobs
	defer func() {
		if cronManager != nil {
			cronManager.Stop()
		}
		redisCache.Close()
		store.Close()
	}()

	// Init API
	var server *api.APIServer = api.NewAPIServer(fmt.Sprintf(":%d", getEnv.PORT))
	app := server.GetEngine()

	// Attach Middleware
	app.Use(logger.New())
	app.Use(recover.New())

	// Setup Routes
	router.SetupRoutes(app, router.Dependencies{
		Store:        store,
		AnswerKeys:   answerKeys,
		Pipeline:     pipeline,
		Tracker:      tracker,
		ContentCache: contentCache,
		Validation:   validator,
		OCR:          ocrClient,
	})

	// Get the PORT & Start the Server
	return server.Run()
}
