package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/gradeflow/gradeflow/model"
)

type scriptedExtractor struct {
	mu       sync.Mutex
	calls    int
	failing  map[string]error
	notReady error
}

func (s *scriptedExtractor) Ready() error {
	return s.notReady
}

func (s *scriptedExtractor) Extract(ctx context.Context, file model.FileInput) (*model.ExtractionResult, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()

	if err, ok := s.failing[file.FileName]; ok {
		return nil, err
	}
	return &model.ExtractionResult{
		FileName:   file.FileName,
		ExamID:     "MATH-101",
		Confidence: 0.9,
	}, nil
}

func (s *scriptedExtractor) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func newTestCoordinator(extractor Extractor) *BatchExtractionCoordinator {
	return NewBatchExtractionCoordinator(extractor, NewContentAddressedCache(DefaultCacheConfig(), nil))
}

func batchFiles(n int) []model.FileInput {
	files := make([]model.FileInput, n)
	for i := range files {
		files[i] = model.FileInput{
			FileName: fmt.Sprintf("scan_%02d.pdf", i+1),
			RawBytes: []byte(fmt.Sprintf("content of scan %d", i+1)),
		}
	}
	return files
}

func TestProcessBatchAllSucceed(t *testing.T) {
	extractor := &scriptedExtractor{}
	coordinator := newTestCoordinator(extractor)

	report, err := coordinator.ProcessBatch(context.Background(), batchFiles(7))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Stats.SuccessfulFiles != 7 || report.Stats.FailedFiles != 0 {
		t.Fatalf("unexpected stats: %+v", report.Stats)
	}
	if len(report.Results) != 7 {
		t.Fatalf("expected 7 results, got %d", len(report.Results))
	}
	if len(report.Errors) != 0 {
		t.Fatalf("expected no errors, got %+v", report.Errors)
	}
}

func TestProcessBatchIsolatesFileFailures(t *testing.T) {
	extractor := &scriptedExtractor{
		failing: map[string]error{
			"scan_02.pdf": errors.New("unreadable scan"),
			"scan_05.pdf": errors.New("ocr timeout"),
		},
	}
	coordinator := newTestCoordinator(extractor)

	report, err := coordinator.ProcessBatch(context.Background(), batchFiles(6))
	if err != nil {
		t.Fatalf("per-file failures must not abort the batch: %v", err)
	}
	if report.Stats.SuccessfulFiles != 4 || report.Stats.FailedFiles != 2 {
		t.Fatalf("unexpected stats: %+v", report.Stats)
	}
	if len(report.Errors) != 2 {
		t.Fatalf("expected 2 file errors, got %d", len(report.Errors))
	}
	for _, result := range report.Results {
		if result.FileName == "scan_02.pdf" || result.FileName == "scan_05.pdf" {
			t.Fatalf("failed file leaked into results: %s", result.FileName)
		}
	}
}

func TestProcessBatchCacheHitSkipsExtraction(t *testing.T) {
	extractor := &scriptedExtractor{}
	coordinator := newTestCoordinator(extractor)
	ctx := context.Background()

	files := []model.FileInput{
		{FileName: "original.pdf", RawBytes: []byte("identical bytes")},
	}
	if _, err := coordinator.ProcessBatch(ctx, files); err != nil {
		t.Fatalf("first batch failed: %v", err)
	}
	if extractor.callCount() != 1 {
		t.Fatalf("expected 1 extraction, got %d", extractor.callCount())
	}

	// Same content under a different name must hit the cache
	resubmitted := []model.FileInput{
		{FileName: "resubmitted.pdf", RawBytes: []byte("identical bytes")},
	}
	report, err := coordinator.ProcessBatch(ctx, resubmitted)
	if err != nil {
		t.Fatalf("second batch failed: %v", err)
	}
	if extractor.callCount() != 1 {
		t.Fatalf("cache hit must skip extraction, extractor called %d times", extractor.callCount())
	}
	if report.Stats.CacheHits != 1 || report.Stats.SuccessfulFiles != 1 {
		t.Fatalf("unexpected stats: %+v", report.Stats)
	}
	if len(report.Results) != 1 || !report.Results[0].FromCache {
		t.Fatal("expected cached result flagged FromCache")
	}
	if report.Results[0].FileName != "resubmitted.pdf" {
		t.Fatalf("cached result must carry the submitted name, got %s", report.Results[0].FileName)
	}
}

func TestProcessBatchMissingBindingIsFatal(t *testing.T) {
	extractor := &scriptedExtractor{notReady: ErrExtractionNotConfigured}
	coordinator := newTestCoordinator(extractor)

	_, err := coordinator.ProcessBatch(context.Background(), batchFiles(2))
	if !errors.Is(err, ErrExtractionNotConfigured) {
		t.Fatalf("expected configuration failure to abort the batch, got %v", err)
	}
	if extractor.callCount() != 0 {
		t.Fatal("no file may be processed when the service is not configured")
	}
}
