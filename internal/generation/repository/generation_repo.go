package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/pageforge-dev/pageforge-backend/internal/generation/domain"
)

// GenerationRepository provides persistence operations for generation records.
type GenerationRepository struct {
	db *sql.DB
}

// NewGenerationRepository creates a new generation repository.
func NewGenerationRepository(db *sql.DB) *GenerationRepository {
	return &GenerationRepository{db: db}
}

// CreateGeneration inserts a new generation record. The canonical project is
// stored as jsonb alongside the legacy single-file columns.
func (r *GenerationRepository) CreateGeneration(ctx context.Context, gen *domain.Generation) error {
	if gen.ID == "" {
		gen.ID = uuid.New().String()
	}
	if gen.CreatedAt.IsZero() {
		gen.CreatedAt = time.Now().UTC()
	}

	var filesJSON []byte
	if gen.Files != nil {
		b, err := json.Marshal(gen.Files)
		if err != nil {
			return fmt.Errorf("marshal files: %w", err)
		}
		filesJSON = b
	}

	const q = `
INSERT INTO generations (id, prompt, generated_html, generated_css, generated_js, files, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7);
`
	_, err := r.db.ExecContext(ctx, q,
		gen.ID, gen.Prompt, gen.GeneratedHTML, gen.GeneratedCSS, gen.GeneratedJS, filesJSON, gen.CreatedAt)
	if err != nil {
		var pgErr *pq.Error
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("generation id collision: %w", err)
		}
		return err
	}
	return nil
}

// ListGenerations returns all generations, newest first.
func (r *GenerationRepository) ListGenerations(ctx context.Context) ([]domain.Generation, error) {
	const q = `
SELECT id, prompt, generated_html, generated_css, generated_js, files, created_at
FROM generations
ORDER BY created_at DESC;
`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Generation, 0, 16)
	for rows.Next() {
		gen, err := scanGeneration(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *gen)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetGeneration returns a single generation by id.
func (r *GenerationRepository) GetGeneration(ctx context.Context, id string) (*domain.Generation, error) {
	const q = `
SELECT id, prompt, generated_html, generated_css, generated_js, files, created_at
FROM generations
WHERE id = $1;
`
	row := r.db.QueryRowContext(ctx, q, id)
	gen, err := scanGeneration(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return gen, nil
}

// DeleteGeneration removes a generation by id.
func (r *GenerationRepository) DeleteGeneration(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM generations WHERE id = $1;`, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteOlderThan removes generations created before the cutoff and returns
// how many were deleted. Used by the retention sweeper.
func (r *GenerationRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM generations WHERE created_at < $1;`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGeneration(row rowScanner) (*domain.Generation, error) {
	var gen domain.Generation
	var filesJSON []byte

	if err := row.Scan(&gen.ID, &gen.Prompt, &gen.GeneratedHTML, &gen.GeneratedCSS, &gen.GeneratedJS, &filesJSON, &gen.CreatedAt); err != nil {
		return nil, err
	}

	if len(filesJSON) > 0 {
		var project domain.CanonicalProject
		if err := json.Unmarshal(filesJSON, &project); err != nil {
			return nil, fmt.Errorf("unmarshal files: %w", err)
		}
		gen.Files = &project
	}
	return &gen, nil
}
