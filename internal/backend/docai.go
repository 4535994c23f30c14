package backend

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"google.golang.org/api/option"
	"google.golang.org/protobuf/encoding/protojson"

	"canhoto-ocr/internal/models"
	"canhoto-ocr/pkg/config"

	"go.uber.org/zap"
)

// DocAI runs documents through a Google Document AI OCR processor with image
// quality scores enabled, so the same call serves both as a full backend and
// as the capture-quality gate.
type DocAI struct {
	client        *documentai.DocumentProcessorClient
	processorName string
	logger        *zap.Logger
}

func NewDocAI(ctx context.Context, cfg *config.DocAIConfig, logger *zap.Logger) (*DocAI, error) {
	if !cfg.Configured() {
		return nil, fmt.Errorf("GDOC_PROJECT_ID, GDOC_LOCATION and GDOC_PROCESSOR_ID must be defined")
	}

	endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", cfg.Location)
	client, err := documentai.NewDocumentProcessorClient(ctx, option.WithEndpoint(endpoint))
	if err != nil {
		return nil, fmt.Errorf("failed to create Document AI client: %w", err)
	}

	return &DocAI{
		client: client,
		processorName: fmt.Sprintf("projects/%s/locations/%s/processors/%s",
			cfg.ProjectID, cfg.Location, cfg.ProcessorID),
		logger: logger,
	}, nil
}

func (d *DocAI) Name() string {
	return config.ModeDocAI
}

func (d *DocAI) Close() error {
	return d.client.Close()
}

func (d *DocAI) Process(ctx context.Context, path string) (*models.Normalized, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	doc, err := d.processBytes(ctx, content, GuessMimeType(path))
	if err != nil {
		return nil, err
	}

	raw, err := protojson.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal raw payload: %w", err)
	}

	lines := documentLines(doc)
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	d.logger.Debug("Document processed",
		zap.String("file", filepath.Base(path)),
		zap.Int("pages", len(doc.GetPages())),
		zap.Int("lines", len(lines)),
	)

	return &models.Normalized{
		Lines:     lines,
		FullText:  joinLineText(lines),
		Quality:   documentQuality(doc.GetPages()),
		Raw:       raw,
		RequestID: "docai-" + stem,
		PageCount: len(doc.GetPages()),
	}, nil
}

// AssessQuality runs the processor only for its image quality scores.
func (d *DocAI) AssessQuality(ctx context.Context, path string) (models.Quality, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return models.Quality{}, fmt.Errorf("failed to read file: %w", err)
	}

	doc, err := d.processBytes(ctx, content, GuessMimeType(path))
	if err != nil {
		return models.Quality{}, err
	}
	return documentQuality(doc.GetPages()), nil
}

func (d *DocAI) processBytes(ctx context.Context, content []byte, mimeType string) (*documentaipb.Document, error) {
	req := &documentaipb.ProcessRequest{
		Name: d.processorName,
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  content,
				MimeType: mimeType,
			},
		},
		ProcessOptions: &documentaipb.ProcessOptions{
			OcrConfig: &documentaipb.OcrConfig{
				EnableImageQualityScores: true,
			},
		},
	}

	resp, err := d.client.ProcessDocument(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to process document: %w", err)
	}

	doc := resp.GetDocument()
	if doc == nil {
		return nil, fmt.Errorf("empty document in Document AI response")
	}
	return doc, nil
}

// documentLines flattens the per-page layout lines. Line text comes from the
// text anchor segments over the full document text.
func documentLines(doc *documentaipb.Document) []models.Line {
	text := doc.GetText()
	var lines []models.Line
	for pageIndex, page := range doc.GetPages() {
		for _, line := range page.GetLines() {
			layout := line.GetLayout()
			lineText := layoutText(layout, text)
			if lineText == "" {
				continue
			}
			confidence := float64(layout.GetConfidence())
			lines = append(lines, models.Line{
				Text:       lineText,
				Confidence: &confidence,
				BBox:       layoutBBox(layout.GetBoundingPoly()),
				Page:       pageIndex + 1,
			})
		}
	}
	return lines
}

func layoutText(layout *documentaipb.Document_Page_Layout, text string) string {
	segments := layout.GetTextAnchor().GetTextSegments()
	if len(segments) == 0 {
		return ""
	}
	var builder strings.Builder
	for _, segment := range segments {
		start := int(segment.GetStartIndex())
		end := int(segment.GetEndIndex())
		if start < 0 || end > len(text) || start > end {
			continue
		}
		builder.WriteString(text[start:end])
	}
	return strings.TrimSpace(builder.String())
}

// layoutBBox reduces the bounding polygon to [x_min, y_min, x_max, y_max]
// clamped to the normalized [0, 1] range.
func layoutBBox(poly *documentaipb.BoundingPoly) []float64 {
	vertices := poly.GetNormalizedVertices()
	if len(vertices) == 0 {
		return []float64{0, 0, 0, 0}
	}
	var xs, ys []float64
	for _, vertex := range vertices {
		xs = append(xs, float64(vertex.GetX()))
		ys = append(ys, float64(vertex.GetY()))
	}
	return []float64{
		clamp01(minOf(xs), false),
		clamp01(minOf(ys), false),
		clamp01(maxOf(xs), true),
		clamp01(maxOf(ys), true),
	}
}

func clamp01(v float64, upper bool) float64 {
	if upper {
		if v > 1 {
			return 1
		}
		return v
	}
	if v < 0 {
		return 0
	}
	return v
}

// documentQuality aggregates quality scores and detected defects across
// pages. Defects are formatted as "type (confidence)" and deduplicated.
func documentQuality(pages []*documentaipb.Document_Page) models.Quality {
	var scores []float64
	defects := make(map[string]struct{})
	for _, page := range pages {
		quality := page.GetImageQualityScores()
		if quality == nil {
			continue
		}
		if score := float64(quality.GetQualityScore()); score > 0 {
			scores = append(scores, score)
		}
		for _, defect := range quality.GetDetectedDefects() {
			reason := defect.GetType()
			if reason == "" {
				reason = "unknown"
			}
			if confidence := defect.GetConfidence(); confidence > 0 {
				reason = fmt.Sprintf("%s (%.2f)", reason, confidence)
			}
			defects[reason] = struct{}{}
		}
	}

	var quality models.Quality
	if len(scores) > 0 {
		quality.ScoreMin = floatPtr(minOf(scores))
		sum := 0.0
		for _, score := range scores {
			sum += score
		}
		quality.ScoreAvg = floatPtr(sum / float64(len(scores)))
	}
	for reason := range defects {
		quality.Reasons = append(quality.Reasons, reason)
	}
	sort.Strings(quality.Reasons)
	return quality
}

func joinLineText(lines []models.Line) string {
	var texts []string
	for _, line := range lines {
		texts = append(texts, line.Text)
	}
	return strings.Join(texts, "\n")
}
