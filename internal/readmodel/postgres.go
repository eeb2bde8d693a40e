package readmodel

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type postgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) Save(ctx context.Context, view *LoanView) error {
	query := `
		INSERT INTO loan_views (loan_id, book_id, member_id, loaned_at, due_date, returned_at, extension_count, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (loan_id) DO UPDATE SET
			book_id = EXCLUDED.book_id,
			member_id = EXCLUDED.member_id,
			loaned_at = EXCLUDED.loaned_at,
			due_date = EXCLUDED.due_date,
			returned_at = EXCLUDED.returned_at,
			extension_count = EXCLUDED.extension_count,
			status = EXCLUDED.status,
			created_at = EXCLUDED.created_at,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		view.LoanID,
		view.BookID,
		view.MemberID,
		view.LoanedAt,
		view.DueDate,
		view.ReturnedAt,
		view.ExtensionCount,
		view.Status,
		view.CreatedAt,
		view.UpdatedAt,
	)

	return err
}

func (r *postgresRepository) GetByID(ctx context.Context, loanID uuid.UUID) (*LoanView, error) {
	query := `
		SELECT loan_id, book_id, member_id, loaned_at, due_date, returned_at, extension_count, status, created_at, updated_at
		FROM loan_views
		WHERE loan_id = $1
	`

	var view LoanView
	err := r.db.GetContext(ctx, &view, query, loanID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &view, nil
}

func (r *postgresRepository) FindByMemberID(ctx context.Context, memberID uuid.UUID) ([]*LoanView, error) {
	query := `
		SELECT loan_id, book_id, member_id, loaned_at, due_date, returned_at, extension_count, status, created_at, updated_at
		FROM loan_views
		WHERE member_id = $1
		ORDER BY loaned_at DESC
	`

	var views []*LoanView
	if err := r.db.SelectContext(ctx, &views, query, memberID); err != nil {
		return nil, err
	}

	return views, nil
}

func (r *postgresRepository) CountActiveForMember(ctx context.Context, memberID uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM loan_views
		WHERE member_id = $1 AND status IN ('active', 'overdue')
	`

	var count int
	if err := r.db.GetContext(ctx, &count, query, memberID); err != nil {
		return 0, err
	}

	return count, nil
}

func (r *postgresRepository) FindOverdueCandidates(ctx context.Context, cutoff time.Time) ([]*LoanView, error) {
	query := `
		SELECT loan_id, book_id, member_id, loaned_at, due_date, returned_at, extension_count, status, created_at, updated_at
		FROM loan_views
		WHERE status = 'active' AND due_date < $1
		ORDER BY due_date ASC
	`

	var views []*LoanView
	if err := r.db.SelectContext(ctx, &views, query, cutoff); err != nil {
		return nil, err
	}

	return views, nil
}
