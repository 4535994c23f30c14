package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"canhoto-ocr/internal/api"
	"canhoto-ocr/internal/api/handlers"
	"canhoto-ocr/internal/artifact"
	"canhoto-ocr/internal/backend"
	"canhoto-ocr/internal/models"
	"canhoto-ocr/internal/repository"
	"canhoto-ocr/internal/service"
	"canhoto-ocr/pkg/config"
	"canhoto-ocr/pkg/logger"
	"canhoto-ocr/pkg/postgres"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func main() {
	app := &cli.App{
		Name:  "canhoto-ocr",
		Usage: "OCR validation pipeline for delivery receipts",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Process every supported file in the input directory",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "mode", Usage: "OCR backend: datalab, tesseract, gigachat or docai"},
					&cli.StringFlag{Name: "images-dir", Usage: "Directory with input files"},
					&cli.StringFlag{Name: "output-dir", Usage: "Directory for per-file artifacts"},
					&cli.StringFlag{Name: "file", Usage: "Process a single file instead of the whole directory"},
					&cli.BoolFlag{Name: "use-gate", Usage: "Run the Document AI quality gate before the backend"},
				},
				Action: runAction,
			},
			{
				Name:   "serve",
				Usage:  "Expose the pipeline as an HTTP API",
				Action: serveAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runAction(c *cli.Context) error {
	cfg, appLogger, err := setup(c)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, gate, err := buildBackends(ctx, cfg, appLogger)
	if err != nil {
		return err
	}
	defer b.Close()

	pipeline := service.NewPipeline(b, gate, &cfg.Pipeline, appLogger)
	writer := artifact.NewWriter(cfg.Pipeline.OutputDir, appLogger)

	files, err := inputFiles(c, pipeline)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		appLogger.Warn("No supported files found", zap.String("dir", cfg.Pipeline.ImagesDir))
		return nil
	}

	var store *runStore
	if cfg.Pipeline.Persist {
		store, err = newRunStore(ctx, cfg, appLogger)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	failures := 0
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			appLogger.Warn("Run interrupted", zap.Int("remaining", len(files)-failures))
			return err
		}
		if err := processOne(ctx, file, pipeline, writer, store, cfg, appLogger); err != nil {
			failures++
			appLogger.Error("Failed to process file",
				zap.String("file", filepath.Base(file)),
				zap.Error(err),
			)
		}
	}

	appLogger.Info("Run finished",
		zap.Int("total", len(files)),
		zap.Int("failed", failures),
	)
	if failures > 0 {
		return fmt.Errorf("%d of %d files failed", failures, len(files))
	}
	return nil
}

func processOne(
	ctx context.Context,
	file string,
	pipeline *service.Pipeline,
	writer *artifact.Writer,
	store *runStore,
	cfg *config.Config,
	appLogger *zap.Logger,
) error {
	outcome, validation, err := pipeline.ProcessFile(ctx, file)
	if err != nil {
		return err
	}

	paths, err := writer.Write(outcome, validation)
	if err != nil {
		return err
	}

	fields := []zap.Field{
		zap.String("file", filepath.Base(file)),
		zap.String("engine", outcome.EngineUsed),
		zap.String("decision", string(validation.Decision)),
		zap.Float64("decision_score", validation.DecisionScore),
		zap.Float64p("quality_score_min", validation.Quality.ScoreMin),
		zap.Bool("skipped_extraction", outcome.SkippedExtraction),
		zap.Any("latencies", outcome.Latencies),
		zap.String("artifacts", paths.Dir),
	}
	appLogger.Info("run_summary", fields...)
	if len(validation.Issues) > 0 {
		appLogger.Warn("Validation issues",
			zap.String("file", filepath.Base(file)),
			zap.Strings("issues", validation.Issues),
		)
	}

	if store != nil {
		if err := store.Save(ctx, outcome, validation); err != nil {
			appLogger.Warn("Failed to persist result", zap.Error(err))
		}
	}
	return nil
}

func serveAction(c *cli.Context) error {
	cfg, appLogger, err := setup(c)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.NewPool(ctx, &cfg.Database, appLogger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	b, gate, err := buildBackends(ctx, cfg, appLogger)
	if err != nil {
		return err
	}
	defer b.Close()

	pipeline := service.NewPipeline(b, gate, &cfg.Pipeline, appLogger)
	writer := artifact.NewWriter(cfg.Pipeline.OutputDir, appLogger)

	docRepo := repository.NewDocumentRepository(db, appLogger)
	resultRepo := repository.NewResultRepository(db, appLogger)
	docService := service.NewDocumentService(docRepo, resultRepo, pipeline, writer, cfg.Server.UploadDir, appLogger)
	docHandler := handlers.NewDocumentHandler(docService, appLogger)

	app := api.SetupRouter(docHandler, cfg.Server.APIToken, appLogger)

	go func() {
		<-ctx.Done()
		appLogger.Info("Shutting down server")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			appLogger.Error("Server shutdown failed", zap.Error(err))
		}
	}()

	appLogger.Info("Starting server", zap.String("port", cfg.Server.Port))
	if err := app.Listen(":" + cfg.Server.Port); err != nil {
		return fmt.Errorf("server stopped: %w", err)
	}
	return nil
}

// setup loads the configuration, applies CLI overrides and initializes the
// global logger.
func setup(c *cli.Context) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	if mode := c.String("mode"); mode != "" {
		cfg.Pipeline.Mode = mode
	}
	if dir := c.String("images-dir"); dir != "" {
		cfg.Pipeline.ImagesDir = dir
	}
	if dir := c.String("output-dir"); dir != "" {
		cfg.Pipeline.OutputDir = dir
	}
	if c.IsSet("use-gate") {
		cfg.Pipeline.UseDocAIGate = c.Bool("use-gate")
	}

	if err := logger.Init(cfg.Logger.Level); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, logger.Get(), nil
}

// buildBackends creates the selected OCR backend and, when enabled and
// credentials are complete, the standalone Document AI quality gate.
func buildBackends(ctx context.Context, cfg *config.Config, appLogger *zap.Logger) (backend.Backend, service.QualityAssessor, error) {
	b, err := backend.New(ctx, cfg.Pipeline.Mode, cfg, appLogger)
	if err != nil {
		return nil, nil, err
	}

	var gate service.QualityAssessor
	if cfg.Pipeline.UseDocAIGate && cfg.Pipeline.Mode != config.ModeDocAI {
		if !cfg.DocAI.Configured() {
			appLogger.Warn("USE_DOCAI_GATE is enabled but Document AI credentials are incomplete")
		} else {
			docai, err := backend.NewDocAI(ctx, &cfg.DocAI, appLogger)
			if err != nil {
				b.Close()
				return nil, nil, err
			}
			gate = docai
		}
	}
	return b, gate, nil
}

func inputFiles(c *cli.Context, pipeline *service.Pipeline) ([]string, error) {
	if file := c.String("file"); file != "" {
		if _, err := os.Stat(file); err != nil {
			return nil, fmt.Errorf("input file not found: %w", err)
		}
		return []string{file}, nil
	}
	return pipeline.ListFiles()
}

// runStore persists run-mode outcomes the same way serve mode does.
type runStore struct {
	db         *pgxpool.Pool
	docRepo    *repository.DocumentRepository
	resultRepo *repository.ResultRepository
}

func newRunStore(ctx context.Context, cfg *config.Config, appLogger *zap.Logger) (*runStore, error) {
	db, err := postgres.NewPool(ctx, &cfg.Database, appLogger)
	if err != nil {
		return nil, fmt.Errorf("RESULTS_PERSIST is enabled but the database is unreachable: %w", err)
	}
	return &runStore{
		db:         db,
		docRepo:    repository.NewDocumentRepository(db, appLogger),
		resultRepo: repository.NewResultRepository(db, appLogger),
	}, nil
}

func (s *runStore) Save(ctx context.Context, outcome *models.Outcome, validation models.Validation) error {
	info, err := os.Stat(outcome.SourcePath)
	if err != nil {
		return err
	}

	now := time.Now()
	doc := &models.Document{
		ID:            uuid.New(),
		FileName:      filepath.Base(outcome.SourcePath),
		FileSize:      info.Size(),
		FilePath:      outcome.SourcePath,
		ExtractedText: outcome.Normalized.FullText,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.docRepo.Create(ctx, doc); err != nil {
		return err
	}

	validationJSON, err := json.Marshal(validation)
	if err != nil {
		return err
	}
	return s.resultRepo.Create(ctx, &models.ProcessingResult{
		ID:            uuid.New(),
		DocumentID:    doc.ID,
		Mode:          outcome.Mode,
		EngineUsed:    outcome.EngineUsed,
		Decision:      validation.Decision,
		DecisionScore: validation.DecisionScore,
		Validation:    validationJSON,
		CreatedAt:     now,
	})
}

func (s *runStore) Close() {
	s.db.Close()
}
