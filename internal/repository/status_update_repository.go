package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/complaint-portal/internal/domain"
)

// StatusUpdateRepository reads the audit trail. Writes happen only through
// ComplaintRepository.Save so each audit append commits with its complaint.
type StatusUpdateRepository interface {
	ListByComplaint(ctx context.Context, complaintID string) ([]domain.StatusUpdate, error)
}

type statusUpdateRepository struct {
	pool *pgxpool.Pool
}

// NewStatusUpdateRepository builds repository.
func NewStatusUpdateRepository(pool *pgxpool.Pool) StatusUpdateRepository {
	return &statusUpdateRepository{pool: pool}
}

func (r *statusUpdateRepository) ListByComplaint(ctx context.Context, complaintID string) ([]domain.StatusUpdate, error) {
	const query = `
        SELECT id, complaint_id, status, comment, is_public, is_private_note, updated_by, created_at
        FROM status_updates WHERE complaint_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, complaintID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.StatusUpdate
	for rows.Next() {
		var update domain.StatusUpdate
		if err := rows.Scan(
			&update.ID,
			&update.ComplaintID,
			&update.Status,
			&update.Comment,
			&update.IsPublic,
			&update.IsPrivateNote,
			&update.UpdatedByID,
			&update.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, update)
	}
	return result, rows.Err()
}
