package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/formalis/backoffice/internal/domain"
)

type AdminRepo struct {
	pool *pgxpool.Pool
}

func NewAdminRepo(pool *pgxpool.Pool) *AdminRepo {
	return &AdminRepo{pool: pool}
}

// HighestRole prefers superadmin when a user holds several role rows.
func (r *AdminRepo) HighestRole(ctx context.Context, userID uuid.UUID) (*domain.AdminRole, error) {
	query := `
		SELECT role FROM admin_roles
		WHERE user_id = $1
		ORDER BY CASE role WHEN 'superadmin' THEN 0 ELSE 1 END
		LIMIT 1`
	var raw string
	err := r.pool.QueryRow(ctx, query, userID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	role, err := domain.ParseAdminRole(raw)
	if err != nil {
		return nil, fmt.Errorf("admin role for %s: %w", userID, err)
	}
	return &role, nil
}
