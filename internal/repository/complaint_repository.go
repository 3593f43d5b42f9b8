package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/complaint-portal/internal/domain"
)

// ComplaintFilter captures triage search parameters.
type ComplaintFilter struct {
	UserID       *string
	AssignedToID *string
	Unassigned   bool
	Statuses     []domain.ComplaintStatus
	Categories   []domain.ComplaintCategory
	Priorities   []domain.ComplaintPriority
	SearchTerm   *string
	CreatedFrom  *time.Time
	CreatedTo    *time.Time
	Limit        int
	Offset       int
}

// ComplaintRepository encapsulates complaint persistence. Create and Save
// commit the complaint row together with any appended status updates in one
// transaction; audit entries are never written outside of them.
type ComplaintRepository interface {
	Create(ctx context.Context, complaint *domain.Complaint, updates []*domain.StatusUpdate) error
	Save(ctx context.Context, complaint *domain.Complaint, updates []*domain.StatusUpdate) error
	GetByCode(ctx context.Context, code string) (*domain.Complaint, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.Complaint, error)
	ListWithFilter(ctx context.Context, filter ComplaintFilter) ([]domain.Complaint, error)
	ListEscalationCandidates(ctx context.Context, cutoff time.Time) ([]domain.Complaint, error)
	ListCreatedBetween(ctx context.Context, from, to time.Time) ([]domain.Complaint, error)
	CountByStatuses(ctx context.Context, statuses []domain.ComplaintStatus) (int64, error)
	Count(ctx context.Context) (int64, error)
	AverageResolutionDays(ctx context.Context) (float64, error)
	NextCodeSeq(ctx context.Context) (int64, error)
}

type complaintRepository struct {
	pool *pgxpool.Pool
}

// NewComplaintRepository instantiates repository.
func NewComplaintRepository(pool *pgxpool.Pool) ComplaintRepository {
	return &complaintRepository{pool: pool}
}

const complaintColumns = `id, code, user_id, assigned_to, subject, description, category, priority,
               status, submission_type, created_at, updated_at, resolved_at, escalation_eligible_at`

func (r *complaintRepository) Create(ctx context.Context, complaint *domain.Complaint, updates []*domain.StatusUpdate) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const query = `
        INSERT INTO complaints (code, user_id, assigned_to, subject, description, category, priority,
            status, submission_type, created_at, updated_at, escalation_eligible_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
        RETURNING id`
	if err := tx.QueryRow(ctx, query,
		complaint.Code,
		complaint.UserID,
		complaint.AssignedToID,
		complaint.Subject,
		complaint.Description,
		complaint.Category,
		complaint.Priority,
		complaint.Status,
		complaint.SubmissionType,
		complaint.CreatedAt,
		complaint.UpdatedAt,
		complaint.EscalationEligibleAt,
	).Scan(&complaint.ID); err != nil {
		return err
	}

	if err := insertStatusUpdates(ctx, tx, complaint, updates); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *complaintRepository) Save(ctx context.Context, complaint *domain.Complaint, updates []*domain.StatusUpdate) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const updateQuery = `
        UPDATE complaints SET assigned_to=$1, subject=$2, description=$3, category=$4, priority=$5,
            status=$6, updated_at=$7, resolved_at=$8
        WHERE id=$9`
	cmd, err := tx.Exec(ctx, updateQuery,
		complaint.AssignedToID,
		complaint.Subject,
		complaint.Description,
		complaint.Category,
		complaint.Priority,
		complaint.Status,
		complaint.UpdatedAt,
		complaint.ResolvedAt,
		complaint.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}

	if err := insertStatusUpdates(ctx, tx, complaint, updates); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func insertStatusUpdates(ctx context.Context, tx pgx.Tx, complaint *domain.Complaint, updates []*domain.StatusUpdate) error {
	const insertUpdate = `
        INSERT INTO status_updates (complaint_id, status, comment, is_public, is_private_note, updated_by, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id`
	for _, update := range updates {
		update.ComplaintID = complaint.ID
		if err := tx.QueryRow(ctx, insertUpdate,
			update.ComplaintID,
			update.Status,
			update.Comment,
			update.IsPublic,
			update.IsPrivateNote,
			update.UpdatedByID,
			update.CreatedAt,
		).Scan(&update.ID); err != nil {
			return err
		}
	}
	return nil
}

func (r *complaintRepository) GetByCode(ctx context.Context, code string) (*domain.Complaint, error) {
	query := fmt.Sprintf(`SELECT %s FROM complaints WHERE code=$1`, complaintColumns)
	var complaint domain.Complaint
	if err := r.pool.QueryRow(ctx, query, code).Scan(
		&complaint.ID,
		&complaint.Code,
		&complaint.UserID,
		&complaint.AssignedToID,
		&complaint.Subject,
		&complaint.Description,
		&complaint.Category,
		&complaint.Priority,
		&complaint.Status,
		&complaint.SubmissionType,
		&complaint.CreatedAt,
		&complaint.UpdatedAt,
		&complaint.ResolvedAt,
		&complaint.EscalationEligibleAt,
	); err != nil {
		return nil, err
	}
	return &complaint, nil
}

func (r *complaintRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]domain.Complaint, error) {
	return r.ListWithFilter(ctx, ComplaintFilter{
		UserID: &userID,
		Limit:  limit,
		Offset: offset,
	})
}

func (r *complaintRepository) ListWithFilter(ctx context.Context, filter ComplaintFilter) ([]domain.Complaint, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		clauses = append(clauses, fmt.Sprintf("user_id=$%d", len(args)))
	}
	if filter.Unassigned {
		clauses = append(clauses, "assigned_to IS NULL")
	} else if filter.AssignedToID != nil {
		args = append(args, *filter.AssignedToID)
		clauses = append(clauses, fmt.Sprintf("assigned_to=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Categories) > 0 {
		placeholders := make([]string, len(filter.Categories))
		for i, category := range filter.Categories {
			args = append(args, category)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("category IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, priority := range filter.Priorities {
			args = append(args, priority)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf(
			"(LOWER(subject) LIKE %s OR LOWER(description) LIKE %s OR LOWER(code) LIKE %s)",
			placeholder, placeholder, placeholder))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM complaints WHERE %s ORDER BY updated_at DESC LIMIT %d OFFSET %d`,
		complaintColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanComplaints(rows)
}

// ListEscalationCandidates returns PUBLIC complaints created before cutoff
// that have not yet escalated or reached a terminal status. The query is
// executed freshly on every call; the status filter is what keeps repeated
// sweeps from double-processing a candidate.
func (r *complaintRepository) ListEscalationCandidates(ctx context.Context, cutoff time.Time) ([]domain.Complaint, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM complaints
        WHERE created_at < $1
          AND status NOT IN ($2,$3,$4)
          AND submission_type = $5
        ORDER BY created_at ASC`, complaintColumns)
	rows, err := r.pool.Query(ctx, query,
		cutoff,
		domain.StatusEscalated,
		domain.StatusResolved,
		domain.StatusClosed,
		domain.SubmissionPublic,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanComplaints(rows)
}

func (r *complaintRepository) ListCreatedBetween(ctx context.Context, from, to time.Time) ([]domain.Complaint, error) {
	query := fmt.Sprintf(`SELECT %s FROM complaints WHERE created_at >= $1 AND created_at <= $2 ORDER BY created_at ASC`, complaintColumns)
	rows, err := r.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanComplaints(rows)
}

func (r *complaintRepository) CountByStatuses(ctx context.Context, statuses []domain.ComplaintStatus) (int64, error) {
	if len(statuses) == 0 {
		return r.Count(ctx)
	}
	placeholders := make([]string, len(statuses))
	args := make([]any, len(statuses))
	for i, status := range statuses {
		args[i] = status
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	query := fmt.Sprintf(`SELECT COUNT(*) FROM complaints WHERE status IN (%s)`, strings.Join(placeholders, ","))
	var count int64
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *complaintRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM complaints`).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// AverageResolutionDays computes the mean complaint lifetime in days across
// resolved and closed complaints. The aggregate runs in SQL so the result
// stays exact regardless of table size.
func (r *complaintRepository) AverageResolutionDays(ctx context.Context) (float64, error) {
	const query = `
        SELECT COALESCE(AVG(EXTRACT(EPOCH FROM (resolved_at - created_at)) / 86400.0), 0)
        FROM complaints
        WHERE status IN ($1,$2) AND resolved_at IS NOT NULL`
	var avg float64
	if err := r.pool.QueryRow(ctx, query, domain.StatusResolved, domain.StatusClosed).Scan(&avg); err != nil {
		return 0, err
	}
	return avg, nil
}

// NextCodeSeq draws the next ticket-code sequence value. A database sequence
// keeps concurrent submissions from colliding on the same code.
func (r *complaintRepository) NextCodeSeq(ctx context.Context) (int64, error) {
	var seq int64
	if err := r.pool.QueryRow(ctx, `SELECT nextval('complaint_code_seq')`).Scan(&seq); err != nil {
		return 0, err
	}
	return seq, nil
}

func scanComplaints(rows pgx.Rows) ([]domain.Complaint, error) {
	var result []domain.Complaint
	for rows.Next() {
		var complaint domain.Complaint
		if err := rows.Scan(
			&complaint.ID,
			&complaint.Code,
			&complaint.UserID,
			&complaint.AssignedToID,
			&complaint.Subject,
			&complaint.Description,
			&complaint.Category,
			&complaint.Priority,
			&complaint.Status,
			&complaint.SubmissionType,
			&complaint.CreatedAt,
			&complaint.UpdatedAt,
			&complaint.ResolvedAt,
			&complaint.EscalationEligibleAt,
		); err != nil {
			return nil, err
		}
		result = append(result, complaint)
	}
	return result, rows.Err()
}
