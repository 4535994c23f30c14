package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"canhoto-ocr/internal/models"
	"canhoto-ocr/pkg/config"

	"github.com/gen2brain/go-fitz"
	"github.com/otiai10/gosseract/v2"
	"go.uber.org/zap"
)

// Tesseract runs OCR locally through the tesseract engine. PDFs are read
// page by page: the embedded text layer is used when present, otherwise the
// page is rasterized and recognized like an image.
type Tesseract struct {
	config *config.TesseractConfig
	logger *zap.Logger
}

func NewTesseract(cfg *config.TesseractConfig, logger *zap.Logger) (*Tesseract, error) {
	if len(cfg.Languages) == 0 {
		return nil, fmt.Errorf("no tesseract languages configured")
	}
	return &Tesseract{config: cfg, logger: logger}, nil
}

func (t *Tesseract) Name() string {
	return config.ModeTesseract
}

func (t *Tesseract) Close() error {
	return nil
}

func (t *Tesseract) Process(ctx context.Context, path string) (*models.Normalized, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var pages []models.OCRPage
	var err error
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		pages, err = t.processPDF(ctx, path)
	} else {
		var page models.OCRPage
		page, err = t.recognizeImage(path, 1)
		pages = []models.OCRPage{page}
	}
	if err != nil {
		return nil, err
	}

	resp := &models.OCRResponse{
		Status:    "complete",
		PageCount: len(pages),
		Pages:     pages,
	}

	raw, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal OCR payload: %w", err)
	}

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return NormalizeResponse(resp, raw, "tesseract-"+stem), nil
}

func (t *Tesseract) processPDF(ctx context.Context, path string) ([]models.OCRPage, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}
	defer doc.Close()

	tempDir, err := os.MkdirTemp("", "canhoto-ocr-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tempDir)

	var pages []models.OCRPage
	for i := 0; i < doc.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		text, err := doc.Text(i)
		if err == nil && strings.TrimSpace(text) != "" {
			pages = append(pages, textLayerPage(text, i+1))
			continue
		}

		imagePath, err := t.rasterizePage(doc, i, tempDir)
		if err != nil {
			return nil, err
		}
		page, err := t.recognizeImage(imagePath, i+1)
		if err != nil {
			return nil, err
		}
		pages = append(pages, page)
	}

	return pages, nil
}

func (t *Tesseract) rasterizePage(doc *fitz.Document, index int, tempDir string) (string, error) {
	img, err := doc.Image(index)
	if err != nil {
		return "", fmt.Errorf("failed to render pdf page %d: %w", index+1, err)
	}

	imagePath := filepath.Join(tempDir, fmt.Sprintf("page_%d.png", index+1))
	file, err := os.Create(imagePath)
	if err != nil {
		return "", fmt.Errorf("failed to create temp image: %w", err)
	}
	defer file.Close()

	if err := png.Encode(file, img); err != nil {
		return "", fmt.Errorf("failed to encode temp image: %w", err)
	}
	return imagePath, nil
}

func (t *Tesseract) recognizeImage(path string, pageNumber int) (models.OCRPage, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(t.config.Languages...); err != nil {
		return models.OCRPage{}, fmt.Errorf("failed to set languages: %w", err)
	}
	if err := client.SetImage(path); err != nil {
		return models.OCRPage{}, fmt.Errorf("failed to load image: %w", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return models.OCRPage{}, fmt.Errorf("failed to recognize image: %w", err)
	}

	var lines []models.OCRLine
	for _, box := range boxes {
		text := strings.TrimSpace(box.Word)
		if text == "" {
			continue
		}
		lines = append(lines, models.OCRLine{
			Text:       text,
			Confidence: floatPtr(box.Confidence / 100.0),
			BBox: []float64{
				float64(box.Box.Min.X),
				float64(box.Box.Min.Y),
				float64(box.Box.Max.X),
				float64(box.Box.Max.Y),
			},
		})
	}

	t.logger.Debug("Local OCR page recognized",
		zap.String("image", filepath.Base(path)),
		zap.Int("page", pageNumber),
		zap.Int("lines", len(lines)),
	)

	return models.OCRPage{Page: pageNumber, TextLines: lines}, nil
}

// textLayerPage builds a page from the PDF's embedded text. The text layer
// carries no confidence, so lines keep a nil score.
func textLayerPage(text string, pageNumber int) models.OCRPage {
	var lines []models.OCRLine
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lines = append(lines, models.OCRLine{Text: line})
	}
	return models.OCRPage{Page: pageNumber, TextLines: lines}
}
