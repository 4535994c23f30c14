package models

import (
	"time"

	"github.com/google/uuid"
)

// Document is an uploaded source file tracked by the serve mode.
type Document struct {
	ID            uuid.UUID `db:"id"`
	FileName      string    `db:"file_name"`
	FileSize      int64     `db:"file_size"`
	FilePath      string    `db:"file_path"`
	ExtractedText string    `db:"extracted_text"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

// ProcessingResult is the persisted record of one pipeline run over a
// document. The full validation payload is kept as JSON next to the columns
// that are queried directly.
type ProcessingResult struct {
	ID            uuid.UUID `db:"id"`
	DocumentID    uuid.UUID `db:"document_id"`
	Mode          string    `db:"mode"`
	EngineUsed    string    `db:"engine_used"`
	Decision      Decision  `db:"decision"`
	DecisionScore float64   `db:"decision_score"`
	Validation    []byte    `db:"validation"`
	CreatedAt     time.Time `db:"created_at"`
}
