package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gradeflow/gradeflow/model"
)

// ErrDetectionNotConfigured means no bubble-sheet detection service is bound
var ErrDetectionNotConfigured = errors.New("detection service not configured")

// DetectionClient handles communication with the bubble/mark detection service
type DetectionClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewDetectionClient creates a new detection client. An empty baseURL leaves
// the capability unbound; calls then fail and the pipeline degrades.
func NewDetectionClient(baseURL string) *DetectionClient {
	return &DetectionClient{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
	}
}

// Detect submits scan bytes and returns detected bubble/mark structure
func (c *DetectionClient) Detect(ctx context.Context, imageBytes []byte, filename string) (*model.DetectionSummary, error) {
	if c.BaseURL == "" {
		return nil, ErrDetectionNotConfigured
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}

	if _, err := part.Write(imageBytes); err != nil {
		return nil, fmt.Errorf("failed to write file content: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+"/detect", body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("detection service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("detection service returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var summary model.DetectionSummary
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &summary, nil
}
