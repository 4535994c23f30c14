package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"canhoto-ocr/internal/models"
	"canhoto-ocr/pkg/config"

	"go.uber.org/zap"
)

// ErrPollTimeout is returned when the OCR job does not reach a terminal
// status within the configured number of polling attempts.
var ErrPollTimeout = fmt.Errorf("ocr polling timed out")

// Datalab talks to the asynchronous Datalab OCR REST API: one multipart
// submit followed by fixed-interval polling of the check URL.
type Datalab struct {
	config     *config.DatalabConfig
	logger     *zap.Logger
	httpClient *http.Client
}

func NewDatalab(cfg *config.DatalabConfig, logger *zap.Logger) *Datalab {
	return &Datalab{
		config: cfg,
		logger: logger,
		httpClient: &http.Client{
			Timeout: cfg.HTTPTimeout,
		},
	}
}

func (d *Datalab) Name() string {
	return config.ModeDatalab
}

func (d *Datalab) Close() error {
	d.httpClient.CloseIdleConnections()
	return nil
}

// submitResponse is the immediate reply to a submit request; the final OCR
// payload only becomes available at the check URL.
type submitResponse struct {
	RequestID       string `json:"request_id"`
	RequestCheckURL string `json:"request_check_url"`
	Success         *bool  `json:"success,omitempty"`
	Error           string `json:"error,omitempty"`
}

func (d *Datalab) Process(ctx context.Context, path string) (*models.Normalized, error) {
	submitted, err := d.submit(ctx, path)
	if err != nil {
		return nil, err
	}

	d.logger.Info("OCR request submitted",
		zap.String("request_id", submitted.RequestID),
		zap.String("file", filepath.Base(path)),
	)

	raw, err := d.poll(ctx, submitted.RequestCheckURL)
	if err != nil {
		return nil, err
	}

	var parsed models.OCRResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse OCR payload: %w", err)
	}

	return NormalizeResponse(&parsed, raw, submitted.RequestID), nil
}

func (d *Datalab) submit(ctx context.Context, path string) (*submitResponse, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreatePart(map[string][]string{
		"Content-Type":        {GuessMimeType(path)},
		"Content-Disposition": {fmt.Sprintf(`form-data; name="file"; filename="%s"`, filepath.Base(path))},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("failed to copy file: %w", err)
	}

	for field, value := range d.formFields() {
		if err := writer.WriteField(field, value); err != nil {
			return nil, fmt.Errorf("failed to write %s field: %w", field, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", d.endpointURL(), &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create submit request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("X-API-Key", d.config.APIKey)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to submit OCR request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("submit failed with status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var submitted submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&submitted); err != nil {
		return nil, fmt.Errorf("failed to decode submit response: %w", err)
	}
	if submitted.RequestID == "" || submitted.RequestCheckURL == "" {
		return nil, fmt.Errorf("unexpected submit response: missing request_id or request_check_url")
	}
	if submitted.Success != nil && !*submitted.Success {
		return nil, fmt.Errorf("submit rejected: %s", submitted.Error)
	}

	return &submitted, nil
}

// poll checks the request URL until the job reports a terminal status. A
// "complete" status with success=false is still a failure.
func (d *Datalab) poll(ctx context.Context, checkURL string) (json.RawMessage, error) {
	for attempt := 0; attempt < d.config.MaxPollAttempts; attempt++ {
		raw, status, errMessage, success, err := d.check(ctx, checkURL)
		if err != nil {
			return nil, err
		}

		switch status {
		case "complete":
			if success != nil && !*success {
				return nil, fmt.Errorf("ocr returned error: %s", errMessage)
			}
			return raw, nil
		case "failed", "error":
			return nil, fmt.Errorf("ocr failed: %s", errMessage)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(d.config.PollInterval):
		}
	}

	return nil, fmt.Errorf("%w after %d attempts", ErrPollTimeout, d.config.MaxPollAttempts)
}

func (d *Datalab) check(ctx context.Context, checkURL string) (json.RawMessage, string, string, *bool, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", checkURL, nil)
	if err != nil {
		return nil, "", "", nil, fmt.Errorf("failed to create poll request: %w", err)
	}
	req.Header.Set("X-API-Key", d.config.APIKey)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, "", "", nil, fmt.Errorf("failed to poll OCR request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", "", nil, fmt.Errorf("failed to read poll response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, "", "", nil, fmt.Errorf("poll failed with status %d: %s", resp.StatusCode, string(raw))
	}

	var payload struct {
		Status  string `json:"status"`
		Success *bool  `json:"success"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, "", "", nil, fmt.Errorf("failed to decode poll response: %w", err)
	}

	return raw, strings.ToLower(payload.Status), payload.Error, payload.Success, nil
}

func (d *Datalab) formFields() map[string]string {
	fields := make(map[string]string)
	if d.config.PageRange != "" {
		fields["page_range"] = d.config.PageRange
	}
	if d.config.MaxPages > 0 {
		fields["max_pages"] = strconv.Itoa(d.config.MaxPages)
	}
	if d.config.SkipCache {
		fields["skip_cache"] = "true"
	}
	if d.config.Langs != "" {
		fields["langs"] = d.config.Langs
	}
	return fields
}

func (d *Datalab) endpointURL() string {
	base := strings.TrimRight(d.config.BaseURL, "/")
	endpoint := strings.Trim(d.config.Endpoint, "/")
	return base + "/" + endpoint
}
