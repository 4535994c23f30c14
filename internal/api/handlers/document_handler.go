package handlers

import (
	"canhoto-ocr/internal/models"
	"canhoto-ocr/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type DocumentHandler struct {
	docService *service.DocumentService
	logger     *zap.Logger
}

func NewDocumentHandler(docService *service.DocumentService, logger *zap.Logger) *DocumentHandler {
	return &DocumentHandler{
		docService: docService,
		logger:     logger,
	}
}

// UploadDocument godoc
// @Summary Upload a delivery receipt
// @Description Upload a receipt image or PDF for OCR validation
// @Tags documents
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Document file (image or PDF)"
// @Success 201 {object} dto.DocumentResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/v1/documents/upload [post]
func (h *DocumentHandler) UploadDocument(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "File is required",
		})
	}

	src, err := file.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Failed to open file",
		})
	}
	defer src.Close()

	doc, err := h.docService.UploadDocument(c.Context(), src, file.Filename)
	if err != nil {
		h.logger.Error("Failed to upload document", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to upload document",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(doc)
}

// ProcessDocument godoc
// @Summary Process a document
// @Description Run OCR, quality gate, field extraction and validation
// @Tags documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} dto.ProcessDocumentResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/documents/{id}/process [post]
func (h *DocumentHandler) ProcessDocument(c *fiber.Ctx) error {
	documentID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid document ID",
		})
	}

	result, err := h.docService.ProcessDocument(c.Context(), documentID)
	if err != nil {
		h.logger.Error("Failed to process document",
			zap.String("document_id", documentID.String()),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to process document",
		})
	}

	return c.JSON(result)
}

// GetDocument godoc
// @Summary Get a document
// @Tags documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} dto.DocumentResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/documents/{id} [get]
func (h *DocumentHandler) GetDocument(c *fiber.Ctx) error {
	documentID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid document ID",
		})
	}

	doc, err := h.docService.GetDocument(c.Context(), documentID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Document not found",
		})
	}

	return c.JSON(doc)
}

// ListDocuments godoc
// @Summary List documents
// @Tags documents
// @Produce json
// @Param limit query int false "Limit (default 20)"
// @Param offset query int false "Offset (default 0)"
// @Success 200 {object} dto.ListDocumentsResponse
// @Router /api/v1/documents [get]
func (h *DocumentHandler) ListDocuments(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 20)
	offset := c.QueryInt("offset", 0)
	if limit < 1 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	docs, err := h.docService.ListDocuments(c.Context(), limit, offset)
	if err != nil {
		h.logger.Error("Failed to list documents", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list documents",
		})
	}

	return c.JSON(docs)
}

// GetResults godoc
// @Summary Get processing results for a document
// @Tags documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {array} dto.ResultResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/v1/documents/{id}/results [get]
func (h *DocumentHandler) GetResults(c *fiber.Ctx) error {
	documentID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid document ID",
		})
	}

	results, err := h.docService.GetResults(c.Context(), documentID)
	if err != nil {
		h.logger.Error("Failed to load results",
			zap.String("document_id", documentID.String()),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load results",
		})
	}

	return c.JSON(results)
}

// ListResults godoc
// @Summary List processing results by decision
// @Description Review queue: results filtered by OK, NEEDS_REVIEW or REJECTED
// @Tags results
// @Produce json
// @Param decision query string true "Decision filter"
// @Param limit query int false "Limit (default 20)"
// @Param offset query int false "Offset (default 0)"
// @Success 200 {array} dto.ResultResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/v1/results [get]
func (h *DocumentHandler) ListResults(c *fiber.Ctx) error {
	decision := models.Decision(c.Query("decision"))
	switch decision {
	case models.DecisionOK, models.DecisionNeedsReview, models.DecisionRejected:
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "decision must be OK, NEEDS_REVIEW or REJECTED",
		})
	}

	limit := c.QueryInt("limit", 20)
	offset := c.QueryInt("offset", 0)
	if limit < 1 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	results, err := h.docService.ListResultsByDecision(c.Context(), decision, limit, offset)
	if err != nil {
		h.logger.Error("Failed to list results",
			zap.String("decision", string(decision)),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list results",
		})
	}

	return c.JSON(results)
}
