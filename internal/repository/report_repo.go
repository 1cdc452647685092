package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Enkhtuvshin02/realstateagent/internal/models"
)

// ReportRepo is the registry of generated report artifacts.
type ReportRepo struct {
	pool *pgxpool.Pool
}

func NewReportRepo(pool *pgxpool.Pool) *ReportRepo {
	return &ReportRepo{pool: pool}
}

func (r *ReportRepo) Create(ctx context.Context, rep *models.Report) error {
	rep.ID = uuid.New()

	query := `INSERT INTO reports (id, session_id, kind, filename, file_path, size_bytes)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING created_at`

	return r.pool.QueryRow(ctx, query,
		rep.ID, rep.SessionID, rep.Kind, rep.Filename, rep.FilePath, rep.SizeBytes,
	).Scan(&rep.CreatedAt)
}

// List returns the newest reports first.
func (r *ReportRepo) List(ctx context.Context, limit int) ([]models.Report, error) {
	query := `SELECT id, session_id, kind, filename, file_path, size_bytes, created_at
		FROM reports ORDER BY created_at DESC LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []models.Report
	for rows.Next() {
		var rep models.Report
		if err := rows.Scan(&rep.ID, &rep.SessionID, &rep.Kind, &rep.Filename,
			&rep.FilePath, &rep.SizeBytes, &rep.CreatedAt); err != nil {
			return nil, err
		}
		reports = append(reports, rep)
	}

	return reports, nil
}

func (r *ReportRepo) Count(ctx context.Context) (int, error) {
	var total int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM reports").Scan(&total)
	return total, err
}
