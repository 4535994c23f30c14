package dto

import "canhoto-ocr/internal/models"

type DocumentResponse struct {
	ID            string `json:"id"`
	FileName      string `json:"file_name"`
	FileSize      int64  `json:"file_size"`
	ExtractedText string `json:"extracted_text,omitempty"`
	CreatedAt     string `json:"created_at"`
}

type ProcessDocumentResponse struct {
	Document   DocumentResponse   `json:"document"`
	Validation models.Validation  `json:"validation"`
	Latencies  map[string]float64 `json:"latencies"`
	Artifacts  map[string]string  `json:"artifacts"`
}

type ListDocumentsResponse struct {
	Documents []DocumentResponse `json:"documents"`
	Limit     int                `json:"limit"`
	Offset    int                `json:"offset"`
}

type ResultResponse struct {
	ID            string  `json:"id"`
	DocumentID    string  `json:"document_id"`
	Mode          string  `json:"mode"`
	EngineUsed    string  `json:"engine_used"`
	Decision      string  `json:"decision"`
	DecisionScore float64 `json:"decision_score"`
	CreatedAt     string  `json:"created_at"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
