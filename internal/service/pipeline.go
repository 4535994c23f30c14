package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"canhoto-ocr/internal/backend"
	"canhoto-ocr/internal/extract"
	"canhoto-ocr/internal/models"
	"canhoto-ocr/internal/quality"
	"canhoto-ocr/internal/validate"
	"canhoto-ocr/pkg/config"

	"go.uber.org/zap"
)

// supportedExtensions are the file types the pipeline picks up when
// scanning the input directory.
var supportedExtensions = map[string]struct{}{
	".pdf":  {},
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".gif":  {},
	".webp": {},
	".tiff": {},
	".bmp":  {},
}

// QualityAssessor is the optional pre-OCR capture-quality check. It runs
// before the main backend and can short-circuit extraction.
type QualityAssessor interface {
	AssessQuality(ctx context.Context, path string) (models.Quality, error)
}

// Pipeline drives one document through the quality gate, the selected OCR
// backend, field extraction and validation.
type Pipeline struct {
	backend backend.Backend
	gate    QualityAssessor
	config  *config.PipelineConfig
	logger  *zap.Logger
}

func NewPipeline(b backend.Backend, gate QualityAssessor, cfg *config.PipelineConfig, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		backend: b,
		gate:    gate,
		config:  cfg,
		logger:  logger,
	}
}

// ListFiles returns the supported files in the input directory in name
// order. Dotfiles and subdirectories are skipped.
func (p *Pipeline) ListFiles() ([]string, error) {
	entries, err := os.ReadDir(p.config.ImagesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read input dir: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if _, ok := supportedExtensions[strings.ToLower(filepath.Ext(entry.Name()))]; !ok {
			continue
		}
		files = append(files, filepath.Join(p.config.ImagesDir, entry.Name()))
	}
	return files, nil
}

// ProcessFile runs the full per-document flow and returns the outcome
// together with the validation verdict.
func (p *Pipeline) ProcessFile(ctx context.Context, path string) (*models.Outcome, models.Validation, error) {
	outcome := &models.Outcome{
		SourcePath: path,
		Mode:       p.config.Mode,
		Latencies:  make(map[string]float64),
	}
	thresholds := models.Thresholds{
		FieldMinConfidence: p.config.FieldMinConfidence,
		QualityMinScore:    p.config.QualityMinScore,
	}

	// The standalone quality gate only makes sense in front of backends
	// that do not score capture quality themselves.
	if p.gate != nil && p.backend.Name() != config.ModeDocAI {
		start := time.Now()
		gateQuality, err := p.gate.AssessQuality(ctx, path)
		if err != nil {
			return nil, models.Validation{}, fmt.Errorf("quality gate failed: %w", err)
		}
		outcome.Latencies["docai_gate"] = time.Since(start).Seconds()
		outcome.EngineChain = append(outcome.EngineChain, "docai_gate")

		gate := quality.Assess(gateQuality, p.config.QualityMinScore)
		if !gate.Pass {
			p.logger.Warn("Document blocked by quality gate",
				zap.String("file", filepath.Base(path)),
				zap.Float64p("score_min", gateQuality.ScoreMin),
				zap.Float64("threshold", p.config.QualityMinScore),
			)
			outcome.EngineUsed = "docai_gate"
			outcome.SkippedExtraction = true
			outcome.Normalized = &models.Normalized{Quality: gateQuality}
			outcome.Gate = gate

			validation := validate.Run(
				extract.Fields(nil, ""),
				gate,
				thresholds,
				outcome.EngineUsed,
				outcome.EngineChain,
			)
			return outcome, validation, nil
		}
		outcome.Gate = gate
	}

	start := time.Now()
	normalized, err := p.backend.Process(ctx, path)
	if err != nil {
		return nil, models.Validation{}, fmt.Errorf("backend %s failed: %w", p.backend.Name(), err)
	}
	outcome.Latencies[p.backend.Name()] = time.Since(start).Seconds()
	outcome.EngineChain = append(outcome.EngineChain, p.backend.Name())
	outcome.EngineUsed = p.backend.Name()
	outcome.Normalized = normalized

	// A passing gate still contributes its scores when the main backend
	// reported none of its own.
	if normalized.Quality.ScoreMin == nil && outcome.Gate.ScoreMin != nil {
		normalized.Quality = outcome.Gate.Quality
	}

	gate := quality.Assess(normalized.Quality, p.config.QualityMinScore)
	outcome.Gate = gate
	if !gate.Pass {
		p.logger.Warn("Document failed the quality gate",
			zap.String("file", filepath.Base(path)),
			zap.Float64p("score_min", normalized.Quality.ScoreMin),
			zap.Float64("threshold", p.config.QualityMinScore),
		)
	}

	fields := extract.Fields(normalized.Lines, normalized.FullText)
	validation := validate.Run(fields, gate, thresholds, outcome.EngineUsed, outcome.EngineChain)
	return outcome, validation, nil
}
