package pdfvalidation

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ScanLimits defines the validation limits for scan uploads
type ScanLimits struct {
	MaxFileSizeMB int // Maximum file size in MB
	MaxPages      int // Maximum number of pages (PDF only)
}

// DefaultScanLimits covers scanned test papers
var DefaultScanLimits = ScanLimits{
	MaxFileSizeMB: 25,
	MaxPages:      30,
}

// scanExtensions are the upload types the extraction pipeline accepts
var scanExtensions = map[string]bool{
	".pdf":  true,
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".tif":  true,
	".tiff": true,
}

// UploadCheck contains the result of scan upload validation
type UploadCheck struct {
	Valid     bool
	PageCount int // 0 for image uploads
	FileSize  int64
	Content   []byte
	Error     string
}

// ValidateScanFile validates an uploaded scan against the given limits and
// returns its content. PDF uploads also get a page count for grouping hints.
func ValidateScanFile(file *multipart.FileHeader, limits ScanLimits) (*UploadCheck, error) {
	check := &UploadCheck{
		FileSize: file.Size,
	}

	maxSize := int64(limits.MaxFileSizeMB) * 1024 * 1024
	if file.Size > maxSize {
		check.Error = fmt.Sprintf("File size exceeds maximum allowed size of %dMB", limits.MaxFileSizeMB)
		return check, nil
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !scanExtensions[ext] {
		check.Error = fmt.Sprintf("Unsupported file type %q. Supported: PDF, PNG, JPG, TIFF", ext)
		return check, nil
	}

	fileContent, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer fileContent.Close()

	content, err := io.ReadAll(fileContent)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	check.Content = content

	if ext != ".pdf" {
		check.Valid = true
		return check, nil
	}

	if !bytes.HasPrefix(content, []byte("%PDF-")) {
		check.Error = "Invalid PDF file: missing PDF header"
		return check, nil
	}

	pageCount, err := getPDFPageCount(content)
	if err != nil {
		check.Error = fmt.Sprintf("Failed to read PDF: %v", err)
		return check, nil
	}
	check.PageCount = pageCount

	if pageCount == 0 {
		check.Error = "PDF has no pages"
		return check, nil
	}

	if pageCount > limits.MaxPages {
		check.Error = fmt.Sprintf("PDF has %d pages, which exceeds the maximum of %d pages per scan",
			pageCount, limits.MaxPages)
		return check, nil
	}

	check.Valid = true
	return check, nil
}

// getPDFPageCount returns the number of pages in a PDF
func getPDFPageCount(content []byte) (int, error) {
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return 0, err
	}
	return reader.NumPage(), nil
}
