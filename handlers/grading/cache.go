package grading

import (
	"github.com/gofiber/fiber/v2"

	"github.com/gradeflow/gradeflow/services"
	"github.com/gradeflow/gradeflow/utils/response"
)

// CacheHandler exposes extraction cache statistics and maintenance
type CacheHandler struct {
	cache *services.ContentAddressedCache
}

// NewCacheHandler creates a new cache handler
func NewCacheHandler(cache *services.ContentAddressedCache) *CacheHandler {
	return &CacheHandler{cache: cache}
}

// GetStats handles GET /api/v1/cache/stats
func (h *CacheHandler) GetStats(c *fiber.Ctx) error {
	return response.Success(c, h.cache.Stats())
}

// Cleanup handles POST /api/v1/cache/cleanup
// Purges expired entries from both cache tiers immediately
func (h *CacheHandler) Cleanup(c *fiber.Ctx) error {
	memRemoved, storeRemoved := h.cache.CleanupExpired(c.Context())
	return response.Success(c, fiber.Map{
		"memory_entries_removed": memRemoved,
		"stored_entries_removed": storeRemoved,
	})
}
