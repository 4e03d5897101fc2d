package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/gradeflow/gradeflow/database"
	"github.com/gradeflow/gradeflow/handlers"
	answerkey_handlers "github.com/gradeflow/gradeflow/handlers/answerkey"
	grading_handlers "github.com/gradeflow/gradeflow/handlers/grading"
	"github.com/gradeflow/gradeflow/services"
	"github.com/gradeflow/gradeflow/utils/validation"
)

// Dependencies are the constructed services the routes dispatch to
type Dependencies struct {
	Store        *database.GORMStore
	AnswerKeys   *database.AnswerKeyStore
	Pipeline     *services.GradingPipeline
	Tracker      *services.GradingProgressTracker
	ContentCache *services.ContentAddressedCache
	Validation   *services.AnswerKeyValidationService
	OCR          *services.OCRClient
}

// SetupRoutes registers all API routes
func SetupRoutes(app *fiber.App, deps Dependencies) {
	validator := validation.NewValidator()

	healthHandler := handlers.NewHealthHandler(deps.Store, deps.OCR)
	batchHandler := grading_handlers.NewBatchHandler(deps.Pipeline, deps.Tracker)
	cacheHandler := grading_handlers.NewCacheHandler(deps.ContentCache)
	answerKeyHandler := answerkey_handlers.NewAnswerKeyHandler(deps.AnswerKeys, deps.Validation, validator)

	app.Get("/health", healthHandler.Check)

	v1 := app.Group("/api/v1")

	grading := v1.Group("/grading")
	grading.Post("/batches", batchHandler.UploadBatch)
	grading.Get("/batches/:job_id", batchHandler.GetJob)
	grading.Get("/batches/:job_id/report", batchHandler.GetReport)

	cacheRoutes := v1.Group("/cache")
	cacheRoutes.Get("/stats", cacheHandler.GetStats)
	cacheRoutes.Post("/cleanup", cacheHandler.Cleanup)

	answerKeys := v1.Group("/answer-keys")
	answerKeys.Post("/", answerKeyHandler.Upsert)
	answerKeys.Get("/:exam_id", answerKeyHandler.List)
}
