package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/complaint-portal/internal/domain"
)

// EmployeeRequestRepository persists staff-access petitions.
type EmployeeRequestRepository interface {
	Create(ctx context.Context, request *domain.EmployeeRequest) error
	GetByID(ctx context.Context, id string) (*domain.EmployeeRequest, error)
	List(ctx context.Context, status *domain.EmployeeRequestStatus, limit, offset int) ([]domain.EmployeeRequest, error)
	Update(ctx context.Context, request *domain.EmployeeRequest) error
	CountByStatus(ctx context.Context, status domain.EmployeeRequestStatus) (int64, error)
}

type employeeRequestRepository struct {
	pool *pgxpool.Pool
}

// NewEmployeeRequestRepository constructs repository.
func NewEmployeeRequestRepository(pool *pgxpool.Pool) EmployeeRequestRepository {
	return &employeeRequestRepository{pool: pool}
}

const employeeRequestColumns = `id, email, reason, status, requested_at, reviewed_at, reviewed_by`

func (r *employeeRequestRepository) Create(ctx context.Context, request *domain.EmployeeRequest) error {
	const query = `
        INSERT INTO employee_requests (email, reason, status, requested_at)
        VALUES ($1,$2,$3,$4)
        RETURNING id`
	return r.pool.QueryRow(ctx, query,
		request.Email,
		request.Reason,
		request.Status,
		request.RequestedAt,
	).Scan(&request.ID)
}

func (r *employeeRequestRepository) GetByID(ctx context.Context, id string) (*domain.EmployeeRequest, error) {
	const query = `SELECT ` + employeeRequestColumns + ` FROM employee_requests WHERE id=$1`
	var request domain.EmployeeRequest
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&request.ID,
		&request.Email,
		&request.Reason,
		&request.Status,
		&request.RequestedAt,
		&request.ReviewedAt,
		&request.ReviewedByID,
	); err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *employeeRequestRepository) List(ctx context.Context, status *domain.EmployeeRequestStatus, limit, offset int) ([]domain.EmployeeRequest, error) {
	query := `SELECT ` + employeeRequestColumns + ` FROM employee_requests`
	args := []any{}
	if status != nil {
		args = append(args, *status)
		query += ` WHERE status=$1`
	}
	args = append(args, normalizeLimit(limit), normalizeOffset(offset))
	query += fmt.Sprintf(` ORDER BY requested_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.EmployeeRequest
	for rows.Next() {
		var request domain.EmployeeRequest
		if err := rows.Scan(
			&request.ID,
			&request.Email,
			&request.Reason,
			&request.Status,
			&request.RequestedAt,
			&request.ReviewedAt,
			&request.ReviewedByID,
		); err != nil {
			return nil, err
		}
		result = append(result, request)
	}
	return result, rows.Err()
}

func (r *employeeRequestRepository) Update(ctx context.Context, request *domain.EmployeeRequest) error {
	const query = `
        UPDATE employee_requests SET status=$1, reviewed_at=$2, reviewed_by=$3
        WHERE id=$4`
	cmd, err := r.pool.Exec(ctx, query,
		request.Status,
		request.ReviewedAt,
		request.ReviewedByID,
		request.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *employeeRequestRepository) CountByStatus(ctx context.Context, status domain.EmployeeRequestStatus) (int64, error) {
	var count int64
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM employee_requests WHERE status=$1`, status,
	).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
