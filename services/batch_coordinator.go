package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gradeflow/gradeflow/model"
)

// extractionChunkSize bounds how many scans hit the OCR service at once.
// Chunks run sequentially; files within a chunk run concurrently.
const extractionChunkSize = 3

// Extractor processes one scan file into an ExtractionResult
type Extractor interface {
	Ready() error
	Extract(ctx context.Context, file model.FileInput) (*model.ExtractionResult, error)
}

// BatchExtractionCoordinator fans a batch of scans through the extraction
// service in bounded chunks, consulting the content cache before each
// extraction and writing fresh results back. A single file failing never
// aborts the batch.
type BatchExtractionCoordinator struct {
	extractor Extractor
	cache     *ContentAddressedCache
}

// NewBatchExtractionCoordinator creates a new batch coordinator
func NewBatchExtractionCoordinator(extractor Extractor, cache *ContentAddressedCache) *BatchExtractionCoordinator {
	return &BatchExtractionCoordinator{
		extractor: extractor,
		cache:     cache,
	}
}

// ProcessBatch runs every file through cache lookup or extraction and
// returns per-file results, per-file errors and batch statistics. The only
// batch-fatal condition is a missing capability binding.
func (c *BatchExtractionCoordinator) ProcessBatch(ctx context.Context, files []model.FileInput) (*model.BatchExtractionReport, error) {
	if err := c.extractor.Ready(); err != nil {
		return nil, fmt.Errorf("batch aborted: %w", err)
	}

	started := time.Now()
	report := &model.BatchExtractionReport{
		Results: make([]*model.ExtractionResult, len(files)),
		Errors:  []model.FileError{},
		Stats: model.ProcessingStats{
			TotalFiles: len(files),
		},
	}

	var mu sync.Mutex

	for chunkStart := 0; chunkStart < len(files); chunkStart += extractionChunkSize {
		chunkEnd := chunkStart + extractionChunkSize
		if chunkEnd > len(files) {
			chunkEnd = len(files)
		}

		var wg sync.WaitGroup
		for i := chunkStart; i < chunkEnd; i++ {
			wg.Add(1)
			go func(idx int, file model.FileInput) {
				defer wg.Done()

				result, fromCache, err := c.processFile(ctx, file)

				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					log.Printf("[BATCH] %s failed: %v", file.FileName, err)
					report.Errors = append(report.Errors, model.FileError{
						FileName: file.FileName,
						Error:    err.Error(),
					})
					report.Stats.FailedFiles++
					return
				}
				report.Results[idx] = result
				report.Stats.SuccessfulFiles++
				if fromCache {
					report.Stats.CacheHits++
				}
			}(i, files[i])
		}
		wg.Wait()
	}

	// Compact out failed slots so Results holds only successes
	compacted := report.Results[:0]
	for _, r := range report.Results {
		if r != nil {
			compacted = append(compacted, r)
		}
	}
	report.Results = compacted

	report.Stats.TotalProcessingTimeMs = time.Since(started).Milliseconds()
	log.Printf("[BATCH] processed %d files: %d ok, %d failed, %d cache hits in %dms",
		report.Stats.TotalFiles, report.Stats.SuccessfulFiles, report.Stats.FailedFiles,
		report.Stats.CacheHits, report.Stats.TotalProcessingTimeMs)

	return report, nil
}

func (c *BatchExtractionCoordinator) processFile(ctx context.Context, file model.FileInput) (*model.ExtractionResult, bool, error) {
	hash := HashBytes(file.RawBytes)

	if cached := c.cache.Get(ctx, hash); cached != nil {
		hit := *cached
		hit.FileName = file.FileName
		hit.FromCache = true
		return &hit, true, nil
	}

	result, err := c.extractor.Extract(ctx, file)
	if err != nil {
		return nil, false, err
	}

	c.cache.Put(ctx, hash, file.FileName, int64(len(file.RawBytes)), result)
	return result, false, nil
}
