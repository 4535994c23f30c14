// Package backend holds the interchangeable OCR providers and the mapping of
// their heterogeneous response schemas into the common normalized structure.
package backend

import (
	"context"
	"fmt"
	"mime"
	"path/filepath"

	"canhoto-ocr/internal/models"
	"canhoto-ocr/pkg/config"

	"go.uber.org/zap"
)

// Backend is one OCR/document-processing provider. Process reads the file at
// path, runs it through the provider and returns the normalized result.
type Backend interface {
	Name() string
	Process(ctx context.Context, path string) (*models.Normalized, error)
	Close() error
}

// New builds the backend selected by mode.
func New(ctx context.Context, mode string, cfg *config.Config, logger *zap.Logger) (Backend, error) {
	switch mode {
	case config.ModeDatalab:
		return NewDatalab(&cfg.Datalab, logger), nil
	case config.ModeTesseract:
		return NewTesseract(&cfg.Tesseract, logger)
	case config.ModeGigaChat:
		return NewGigaChat(ctx, &cfg.GigaChat, logger)
	case config.ModeDocAI:
		return NewDocAI(ctx, &cfg.DocAI, logger)
	default:
		return nil, fmt.Errorf("unknown pipeline mode: %s", mode)
	}
}

// GuessMimeType infers a MIME type from the file name, defaulting to
// application/octet-stream.
func GuessMimeType(filename string) string {
	if filename == "" {
		return "application/octet-stream"
	}
	if mimeType := mime.TypeByExtension(filepath.Ext(filename)); mimeType != "" {
		return mimeType
	}
	switch filepath.Ext(filename) {
	case ".pdf":
		return "application/pdf"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	}
	return "application/octet-stream"
}
