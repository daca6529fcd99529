package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nazir74680/Tumor-segmeantation/internal/models"
)

var ErrAnalysisNotFound = errors.New("analysis not found")

type AnalysisRepository struct {
	pool *pgxpool.Pool
}

func NewAnalysisRepository(pool *pgxpool.Pool) *AnalysisRepository {
	return &AnalysisRepository{pool: pool}
}

const analysisColumns = `
	id, user_id, file_name, bucket, object_key, format, size_bytes,
	tumor_percentage, width, height, source, created_at,
	annotation_image_key, mask_key, annotated_at
`

func (r *AnalysisRepository) Create(ctx context.Context, a models.Analysis) error {
	const query = `
		INSERT INTO analyses (
			id, user_id, file_name, bucket, object_key, format, size_bytes,
			tumor_percentage, width, height, source, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)
	`

	_, err := r.pool.Exec(ctx, query,
		a.ID,
		a.UserID,
		a.FileName,
		a.Bucket,
		a.ObjectKey,
		a.Format,
		a.SizeBytes,
		a.TumorPercentage,
		a.Width,
		a.Height,
		a.Source,
		a.CreatedAt,
	)
	return err
}

func (r *AnalysisRepository) GetByID(ctx context.Context, id string) (models.Analysis, error) {
	query := `SELECT ` + analysisColumns + ` FROM analyses WHERE id = $1`

	a, err := scanAnalysis(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Analysis{}, ErrAnalysisNotFound
		}
		return models.Analysis{}, err
	}
	return a, nil
}

// SetAnnotation records the stored annotation objects on an analysis owned
// by userID.
func (r *AnalysisRepository) SetAnnotation(ctx context.Context, id, userID, imageKey, maskKey string, at time.Time) error {
	const query = `
		UPDATE analyses
		SET annotation_image_key = $3, mask_key = $4, annotated_at = $5
		WHERE id = $1 AND user_id = $2
	`

	tag, err := r.pool.Exec(ctx, query, id, userID, imageKey, maskKey, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAnalysisNotFound
	}
	return nil
}

func (r *AnalysisRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Analysis, error) {
	query := `SELECT ` + analysisColumns + `
		FROM analyses
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	return collectAnalyses(rows)
}

func (r *AnalysisRepository) List(ctx context.Context, limit, offset int) ([]models.Analysis, error) {
	query := `SELECT ` + analysisColumns + `
		FROM analyses
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	return collectAnalyses(rows)
}

func (r *AnalysisRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM analyses`).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func collectAnalyses(rows pgx.Rows) ([]models.Analysis, error) {
	defer rows.Close()

	analyses := make([]models.Analysis, 0)
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		analyses = append(analyses, a)
	}
	return analyses, rows.Err()
}

func scanAnalysis(row pgx.Row) (models.Analysis, error) {
	var a models.Analysis
	err := row.Scan(
		&a.ID,
		&a.UserID,
		&a.FileName,
		&a.Bucket,
		&a.ObjectKey,
		&a.Format,
		&a.SizeBytes,
		&a.TumorPercentage,
		&a.Width,
		&a.Height,
		&a.Source,
		&a.CreatedAt,
		&a.AnnotationImageKey,
		&a.MaskKey,
		&a.AnnotatedAt,
	)
	return a, err
}
