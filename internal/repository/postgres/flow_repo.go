package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"eventcheckin/internal/domain"
)

type authFlowRepository struct {
	DB *sql.DB
}

// NewAuthFlowRepository returns an AuthFlowRepository backed by the auth_flows table.
func NewAuthFlowRepository(db *sql.DB) domain.AuthFlowRepository {
	return &authFlowRepository{DB: db}
}

func (r *authFlowRepository) Create(ctx context.Context, flow *domain.AuthFlow) error {
	query := `
		INSERT INTO auth_flows (state, status, created_at)
		VALUES ($1, $2, $3)
	`
	_, err := r.DB.ExecContext(ctx, query, flow.State, flow.Status, flow.CreatedAt)
	return err
}

func (r *authFlowRepository) Get(ctx context.Context, state string) (*domain.AuthFlow, error) {
	query := `
		SELECT state, status, created_at, completed_at
		FROM auth_flows
		WHERE state = $1
	`
	f := &domain.AuthFlow{}
	err := r.DB.QueryRowContext(ctx, query, state).Scan(&f.State, &f.Status, &f.CreatedAt, &f.CompletedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrFlowNotFound
		}
		return nil, err
	}
	return f, nil
}

func (r *authFlowRepository) Consume(ctx context.Context, state string, status domain.AuthFlowStatus, completedAt time.Time) (bool, error) {
	query := `
		UPDATE auth_flows
		SET status = $2, completed_at = $3
		WHERE state = $1 AND status = 'pending'
	`
	res, err := r.DB.ExecContext(ctx, query, state, status, completedAt)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *authFlowRepository) ExpirePending(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		UPDATE auth_flows
		SET status = 'expired'
		WHERE status = 'pending' AND created_at < $1
	`
	res, err := r.DB.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
