package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/gradeflow/gradeflow/database"
	"github.com/gradeflow/gradeflow/services"
	"github.com/gradeflow/gradeflow/utils/response"
)

// HealthHandler reports service liveness and dependency reachability
type HealthHandler struct {
	store *database.GORMStore
	ocr   *services.OCRClient
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(store *database.GORMStore, ocr *services.OCRClient) *HealthHandler {
	return &HealthHandler{store: store, ocr: ocr}
}

// Check handles GET /health
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	dbStatus := "ok"
	if err := h.store.HealthCheck(); err != nil {
		dbStatus = "unavailable"
	}

	ocrStatus := "ok"
	if err := h.ocr.HealthCheck(c.Context()); err != nil {
		ocrStatus = "unavailable"
	}

	return response.Success(c, fiber.Map{
		"status":   "ok",
		"database": dbStatus,
		"ocr":      ocrStatus,
	})
}
