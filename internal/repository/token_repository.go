package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/authenticity-service/internal/domain"
)

// TokenFilter captures listing parameters for admin views.
type TokenFilter struct {
	Consumed *bool
	Region   *string
	Limit    int
	Offset   int
}

// RegionCount is one row of the regional consumption breakdown.
type RegionCount struct {
	Region string
	Count  int64
}

// TokenRepository encapsulates token persistence. Consume is the only write
// path after creation; tokens are never deleted.
type TokenRepository interface {
	Create(ctx context.Context, token *domain.Token) error
	GetByID(ctx context.Context, id string) (*domain.Token, error)
	// Consume performs the ISSUED_UNUSED -> CONSUMED transition as a single
	// conditional update. It returns true only for the call that actually
	// flipped the flag; concurrent callers for the same id see false.
	Consume(ctx context.Context, id, region string, at time.Time) (bool, error)
	List(ctx context.Context, filter TokenFilter) ([]domain.Token, error)
	CountTotal(ctx context.Context) (int64, error)
	CountConsumed(ctx context.Context) (int64, error)
	RegionCounts(ctx context.Context) ([]RegionCount, error)
}

type tokenRepository struct {
	pool *pgxpool.Pool
}

// NewTokenRepository instantiates repository.
func NewTokenRepository(pool *pgxpool.Pool) TokenRepository {
	return &tokenRepository{pool: pool}
}

func (r *tokenRepository) Create(ctx context.Context, token *domain.Token) error {
	const query = `
        INSERT INTO tokens (id, secret, consumed, product_info, region)
        VALUES ($1,$2,false,$3,'')
        RETURNING created_at`
	return r.pool.QueryRow(ctx, query,
		token.ID,
		token.Secret,
		token.ProductInfo,
	).Scan(&token.CreatedAt)
}

func (r *tokenRepository) GetByID(ctx context.Context, id string) (*domain.Token, error) {
	const query = `
        SELECT id, secret, consumed, consumed_at, product_info, region, created_at
        FROM tokens WHERE id=$1`
	var token domain.Token
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&token.ID,
		&token.Secret,
		&token.Consumed,
		&token.ConsumedAt,
		&token.ProductInfo,
		&token.Region,
		&token.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &token, nil
}

func (r *tokenRepository) Consume(ctx context.Context, id, region string, at time.Time) (bool, error) {
	// Compare-and-set in one statement; a plain read-then-update would let two
	// scans of the same label both succeed.
	const query = `
        UPDATE tokens SET consumed=true, consumed_at=$2, region=$3
        WHERE id=$1 AND consumed=false`
	cmd, err := r.pool.Exec(ctx, query, id, at, region)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

func (r *tokenRepository) List(ctx context.Context, filter TokenFilter) ([]domain.Token, error) {
	base := `SELECT id, secret, consumed, consumed_at, product_info, region, created_at
             FROM tokens`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.Consumed != nil {
		args = append(args, *filter.Consumed)
		clauses = append(clauses, fmt.Sprintf("consumed=$%d", len(args)))
	}
	if filter.Region != nil {
		args = append(args, *filter.Region)
		clauses = append(clauses, fmt.Sprintf("region=$%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTokens(rows)
}

func (r *tokenRepository) CountTotal(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tokens`).Scan(&count)
	return count, err
}

func (r *tokenRepository) CountConsumed(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tokens WHERE consumed=true`).Scan(&count)
	return count, err
}

func (r *tokenRepository) RegionCounts(ctx context.Context) ([]RegionCount, error) {
	const query = `
        SELECT region, COUNT(*) FROM tokens
        WHERE consumed=true GROUP BY region ORDER BY COUNT(*) DESC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []RegionCount
	for rows.Next() {
		var rc RegionCount
		if err := rows.Scan(&rc.Region, &rc.Count); err != nil {
			return nil, err
		}
		result = append(result, rc)
	}
	return result, rows.Err()
}

func scanTokens(rows pgx.Rows) ([]domain.Token, error) {
	var result []domain.Token
	for rows.Next() {
		var token domain.Token
		if err := rows.Scan(
			&token.ID,
			&token.Secret,
			&token.Consumed,
			&token.ConsumedAt,
			&token.ProductInfo,
			&token.Region,
			&token.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, token)
	}
	return result, rows.Err()
}
