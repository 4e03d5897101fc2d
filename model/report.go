package model

// FileError attributes one extraction failure to its file
type FileError struct {
	FileName string `json:"file_name"`
	Error    string `json:"error"`
}

// ProcessingStats summarizes one batch extraction run
type ProcessingStats struct {
	TotalFiles            int   `json:"total_files"`
	SuccessfulFiles       int   `json:"successful_files"`
	FailedFiles           int   `json:"failed_files"`
	CacheHits             int   `json:"cache_hits"`
	TotalProcessingTimeMs int64 `json:"total_processing_time_ms"`
}

// BatchExtractionReport is the coordinator's aggregate output
type BatchExtractionReport struct {
	Results []*ExtractionResult `json:"results"`
	Errors  []FileError         `json:"errors"`
	Stats   ProcessingStats     `json:"stats"`
}

// BatchReport is the full pipeline output consumed by reporting callers
type BatchReport struct {
	Extraction *BatchExtractionReport  `json:"extraction"`
	Grouping   *GroupingReport         `json:"grouping"`
	Validation *BatchValidationSummary `json:"validation"`
	TextReport string                  `json:"text_report"`
}
