package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"canhoto-ocr/internal/artifact"
	"canhoto-ocr/internal/dto"
	"canhoto-ocr/internal/models"
	"canhoto-ocr/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DocumentService backs the HTTP surface: it stores uploaded files, runs
// them through the pipeline and persists the outcome.
type DocumentService struct {
	docRepo    *repository.DocumentRepository
	resultRepo *repository.ResultRepository
	pipeline   *Pipeline
	writer     *artifact.Writer
	uploadDir  string
	logger     *zap.Logger
}

func NewDocumentService(
	docRepo *repository.DocumentRepository,
	resultRepo *repository.ResultRepository,
	pipeline *Pipeline,
	writer *artifact.Writer,
	uploadDir string,
	logger *zap.Logger,
) *DocumentService {
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		logger.Warn("Failed to create upload directory", zap.Error(err))
	}

	return &DocumentService{
		docRepo:    docRepo,
		resultRepo: resultRepo,
		pipeline:   pipeline,
		writer:     writer,
		uploadDir:  uploadDir,
		logger:     logger,
	}
}

// UploadDocument stores the file under a generated name and records it.
func (s *DocumentService) UploadDocument(ctx context.Context, file io.Reader, fileName string) (*dto.DocumentResponse, error) {
	fileID := uuid.New()
	ext := filepath.Ext(fileName)
	filePath := filepath.Join(s.uploadDir, fileID.String()+ext)

	dst, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	defer dst.Close()

	fileSize, err := io.Copy(dst, file)
	if err != nil {
		os.Remove(filePath)
		return nil, fmt.Errorf("failed to save file: %w", err)
	}

	now := time.Now()
	doc := &models.Document{
		ID:        fileID,
		FileName:  fileName,
		FileSize:  fileSize,
		FilePath:  filePath,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.docRepo.Create(ctx, doc); err != nil {
		os.Remove(filePath)
		return nil, fmt.Errorf("failed to create document record: %w", err)
	}

	return documentResponse(doc), nil
}

// ProcessDocument runs the pipeline over a stored document, writes the
// artifacts and persists the validation result.
func (s *DocumentService) ProcessDocument(ctx context.Context, documentID uuid.UUID) (*dto.ProcessDocumentResponse, error) {
	doc, err := s.docRepo.GetByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("document not found: %w", err)
	}

	outcome, validation, err := s.pipeline.ProcessFile(ctx, doc.FilePath)
	if err != nil {
		return nil, err
	}

	paths, err := s.writer.Write(outcome, validation)
	if err != nil {
		return nil, err
	}

	if fullText := sanitizeUTF8(outcome.Normalized.FullText); fullText != "" {
		doc.ExtractedText = fullText
		if err := s.docRepo.UpdateExtractedText(ctx, documentID, fullText); err != nil {
			s.logger.Warn("Failed to update extracted text", zap.Error(err))
		}
	}

	validationJSON, err := json.Marshal(validation)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal validation: %w", err)
	}
	result := &models.ProcessingResult{
		ID:            uuid.New(),
		DocumentID:    documentID,
		Mode:          outcome.Mode,
		EngineUsed:    outcome.EngineUsed,
		Decision:      validation.Decision,
		DecisionScore: validation.DecisionScore,
		Validation:    validationJSON,
		CreatedAt:     time.Now(),
	}
	if err := s.resultRepo.Create(ctx, result); err != nil {
		s.logger.Warn("Failed to persist processing result", zap.Error(err))
	}

	return &dto.ProcessDocumentResponse{
		Document:   *documentResponse(doc),
		Validation: validation,
		Latencies:  outcome.Latencies,
		Artifacts:  artifactMap(paths),
	}, nil
}

func (s *DocumentService) GetDocument(ctx context.Context, documentID uuid.UUID) (*dto.DocumentResponse, error) {
	doc, err := s.docRepo.GetByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("document not found: %w", err)
	}
	return documentResponse(doc), nil
}

func (s *DocumentService) ListDocuments(ctx context.Context, limit, offset int) (*dto.ListDocumentsResponse, error) {
	docs, err := s.docRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	responses := make([]dto.DocumentResponse, len(docs))
	for i, doc := range docs {
		responses[i] = *documentResponse(doc)
	}
	return &dto.ListDocumentsResponse{
		Documents: responses,
		Limit:     limit,
		Offset:    offset,
	}, nil
}

func (s *DocumentService) GetResults(ctx context.Context, documentID uuid.UUID) ([]dto.ResultResponse, error) {
	results, err := s.resultRepo.GetByDocumentID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load results: %w", err)
	}

	responses := make([]dto.ResultResponse, len(results))
	for i, result := range results {
		responses[i] = dto.ResultResponse{
			ID:            result.ID.String(),
			DocumentID:    result.DocumentID.String(),
			Mode:          result.Mode,
			EngineUsed:    result.EngineUsed,
			Decision:      string(result.Decision),
			DecisionScore: result.DecisionScore,
			CreatedAt:     result.CreatedAt.Format(time.RFC3339),
		}
	}
	return responses, nil
}

// ListResultsByDecision pages through results with a given decision, the
// review-queue view of the stored outcomes.
func (s *DocumentService) ListResultsByDecision(ctx context.Context, decision models.Decision, limit, offset int) ([]dto.ResultResponse, error) {
	results, err := s.resultRepo.ListByDecision(ctx, decision, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to load results: %w", err)
	}

	responses := make([]dto.ResultResponse, len(results))
	for i, result := range results {
		responses[i] = dto.ResultResponse{
			ID:            result.ID.String(),
			DocumentID:    result.DocumentID.String(),
			Mode:          result.Mode,
			EngineUsed:    result.EngineUsed,
			Decision:      string(result.Decision),
			DecisionScore: result.DecisionScore,
			CreatedAt:     result.CreatedAt.Format(time.RFC3339),
		}
	}
	return responses, nil
}

func documentResponse(doc *models.Document) *dto.DocumentResponse {
	return &dto.DocumentResponse{
		ID:            doc.ID.String(),
		FileName:      doc.FileName,
		FileSize:      doc.FileSize,
		ExtractedText: doc.ExtractedText,
		CreatedAt:     doc.CreatedAt.Format(time.RFC3339),
	}
}

func artifactMap(paths *artifact.Paths) map[string]string {
	out := map[string]string{
		"json":       paths.OCRJSON,
		"text":       paths.Text,
		"validation": paths.Validation,
		"report":     paths.Report,
	}
	if paths.Raw != "" {
		out["raw"] = paths.Raw
	}
	return out
}
