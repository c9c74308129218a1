package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/authenticity-service/internal/domain"
)

// ScanAttemptRepository stores the append-only scan audit trail. Attempts are
// never updated or deleted, and token_id carries no foreign key so attempts
// against unknown ids are recorded too.
type ScanAttemptRepository interface {
	Create(ctx context.Context, attempt *domain.ScanAttempt) error
	CountTotal(ctx context.Context) (int64, error)
	CountAuthentic(ctx context.Context) (int64, error)
	ListRecent(ctx context.Context, limit int) ([]domain.ScanAttempt, error)
}

type scanAttemptRepository struct {
	pool *pgxpool.Pool
}

// NewScanAttemptRepository builds repository.
func NewScanAttemptRepository(pool *pgxpool.Pool) ScanAttemptRepository {
	return &scanAttemptRepository{pool: pool}
}

func (r *scanAttemptRepository) Create(ctx context.Context, attempt *domain.ScanAttempt) error {
	const query = `
        INSERT INTO scan_attempts (scan_id, token_id, latitude, longitude, region, device_info, authentic)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING created_at`
	return r.pool.QueryRow(ctx, query,
		attempt.ScanID,
		attempt.TokenID,
		attempt.Location.Latitude,
		attempt.Location.Longitude,
		attempt.Location.Region,
		attempt.DeviceInfo,
		attempt.Authentic,
	).Scan(&attempt.CreatedAt)
}

func (r *scanAttemptRepository) CountTotal(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM scan_attempts`).Scan(&count)
	return count, err
}

func (r *scanAttemptRepository) CountAuthentic(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM scan_attempts WHERE authentic=true`).Scan(&count)
	return count, err
}

func (r *scanAttemptRepository) ListRecent(ctx context.Context, limit int) ([]domain.ScanAttempt, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
        SELECT scan_id, token_id, latitude, longitude, region, device_info, authentic, created_at
        FROM scan_attempts ORDER BY created_at DESC LIMIT $1`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ScanAttempt
	for rows.Next() {
		var attempt domain.ScanAttempt
		if err := rows.Scan(
			&attempt.ScanID,
			&attempt.TokenID,
			&attempt.Location.Latitude,
			&attempt.Location.Longitude,
			&attempt.Location.Region,
			&attempt.DeviceInfo,
			&attempt.Authentic,
			&attempt.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, attempt)
	}
	return result, rows.Err()
}
