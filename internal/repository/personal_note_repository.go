package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/complaint-portal/internal/domain"
)

// PersonalNoteRepository persists admin-to-staff messages.
type PersonalNoteRepository interface {
	Create(ctx context.Context, note *domain.PersonalNote) error
	GetByID(ctx context.Context, id string) (*domain.PersonalNote, error)
	ListForRecipient(ctx context.Context, recipientID string, limit, offset int) ([]domain.PersonalNote, error)
	ListFromSender(ctx context.Context, senderID string, limit, offset int) ([]domain.PersonalNote, error)
	ListUnread(ctx context.Context, recipientID string) ([]domain.PersonalNote, error)
	CountUnread(ctx context.Context, recipientID string) (int64, error)
	MarkRead(ctx context.Context, id string, readAt time.Time) error
	Delete(ctx context.Context, id string) error
}

type personalNoteRepository struct {
	pool *pgxpool.Pool
}

// NewPersonalNoteRepository constructs repository.
func NewPersonalNoteRepository(pool *pgxpool.Pool) PersonalNoteRepository {
	return &personalNoteRepository{pool: pool}
}

const personalNoteColumns = `id, message, sender_id, recipient_id, is_read, created_at, read_at`

func (r *personalNoteRepository) Create(ctx context.Context, note *domain.PersonalNote) error {
	const query = `
        INSERT INTO personal_notes (message, sender_id, recipient_id, is_read, created_at)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id`
	return r.pool.QueryRow(ctx, query,
		note.Message,
		note.SenderID,
		note.RecipientID,
		note.IsRead,
		note.CreatedAt,
	).Scan(&note.ID)
}

func (r *personalNoteRepository) GetByID(ctx context.Context, id string) (*domain.PersonalNote, error) {
	const query = `SELECT ` + personalNoteColumns + ` FROM personal_notes WHERE id=$1`
	var note domain.PersonalNote
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&note.ID,
		&note.Message,
		&note.SenderID,
		&note.RecipientID,
		&note.IsRead,
		&note.CreatedAt,
		&note.ReadAt,
	); err != nil {
		return nil, err
	}
	return &note, nil
}

func (r *personalNoteRepository) ListForRecipient(ctx context.Context, recipientID string, limit, offset int) ([]domain.PersonalNote, error) {
	const query = `
        SELECT ` + personalNoteColumns + ` FROM personal_notes
        WHERE recipient_id=$1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, recipientID, normalizeLimit(limit), normalizeOffset(offset))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPersonalNotes(rows)
}

func (r *personalNoteRepository) ListFromSender(ctx context.Context, senderID string, limit, offset int) ([]domain.PersonalNote, error) {
	const query = `
        SELECT ` + personalNoteColumns + ` FROM personal_notes
        WHERE sender_id=$1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.pool.Query(ctx, query, senderID, normalizeLimit(limit), normalizeOffset(offset))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPersonalNotes(rows)
}

func (r *personalNoteRepository) ListUnread(ctx context.Context, recipientID string) ([]domain.PersonalNote, error) {
	const query = `
        SELECT ` + personalNoteColumns + ` FROM personal_notes
        WHERE recipient_id=$1 AND is_read=FALSE ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, recipientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPersonalNotes(rows)
}

func (r *personalNoteRepository) CountUnread(ctx context.Context, recipientID string) (int64, error) {
	var count int64
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM personal_notes WHERE recipient_id=$1 AND is_read=FALSE`,
		recipientID,
	).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// MarkRead stamps read_at on the first read only; re-reading keeps the
// original timestamp.
func (r *personalNoteRepository) MarkRead(ctx context.Context, id string, readAt time.Time) error {
	const query = `
        UPDATE personal_notes SET is_read=TRUE, read_at=COALESCE(read_at, $2)
        WHERE id=$1`
	cmd, err := r.pool.Exec(ctx, query, id, readAt)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *personalNoteRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM personal_notes WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanPersonalNotes(rows pgx.Rows) ([]domain.PersonalNote, error) {
	var result []domain.PersonalNote
	for rows.Next() {
		var note domain.PersonalNote
		if err := rows.Scan(
			&note.ID,
			&note.Message,
			&note.SenderID,
			&note.RecipientID,
			&note.IsRead,
			&note.CreatedAt,
			&note.ReadAt,
		); err != nil {
			return nil, err
		}
		result = append(result, note)
	}
	return result, rows.Err()
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
