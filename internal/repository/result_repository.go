package repository

import (
	"context"

	"canhoto-ocr/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type ResultRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewResultRepository(db *pgxpool.Pool, logger *zap.Logger) *ResultRepository {
	return &ResultRepository{
		db:     db,
		logger: logger,
	}
}

func (r *ResultRepository) Create(ctx context.Context, result *models.ProcessingResult) error {
	query := squirrel.Insert("processing_results").
		Columns("id", "document_id", "mode", "engine_used", "decision", "decision_score", "validation", "created_at").
		Values(result.ID, result.DocumentID, result.Mode, result.EngineUsed, result.Decision, result.DecisionScore, result.Validation, result.CreatedAt).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

func (r *ResultRepository) GetByDocumentID(ctx context.Context, documentID uuid.UUID) ([]*models.ProcessingResult, error) {
	query := squirrel.Select("id", "document_id", "mode", "engine_used", "decision", "decision_score", "validation", "created_at").
		From("processing_results").
		Where(squirrel.Eq{"document_id": documentID}).
		OrderBy("created_at DESC").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*models.ProcessingResult
	for rows.Next() {
		var result models.ProcessingResult
		if err := rows.Scan(
			&result.ID, &result.DocumentID, &result.Mode, &result.EngineUsed,
			&result.Decision, &result.DecisionScore, &result.Validation, &result.CreatedAt,
		); err != nil {
			return nil, err
		}
		results = append(results, &result)
	}

	return results, nil
}

func (r *ResultRepository) ListByDecision(ctx context.Context, decision models.Decision, limit, offset int) ([]*models.ProcessingResult, error) {
	query := squirrel.Select("id", "document_id", "mode", "engine_used", "decision", "decision_score", "validation", "created_at").
		From("processing_results").
		Where(squirrel.Eq{"decision": decision}).
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*models.ProcessingResult
	for rows.Next() {
		var result models.ProcessingResult
		if err := rows.Scan(
			&result.ID, &result.DocumentID, &result.Mode, &result.EngineUsed,
			&result.Decision, &result.DecisionScore, &result.Validation, &result.CreatedAt,
		); err != nil {
			return nil, err
		}
		results = append(results, &result)
	}

	return results, nil
}
