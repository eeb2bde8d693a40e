package readmodel

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no view exists for the requested loan.
var ErrNotFound = errors.New("loan view not found")

// LoanView is the denormalized current state of one loan, always written as a
// whole row. It must equal "replay of all events so far" at every point, so
// partial field updates are not part of the contract at all.
type LoanView struct {
	LoanID         uuid.UUID  `json:"loan_id" db:"loan_id"`
	BookID         uuid.UUID  `json:"book_id" db:"book_id"`
	MemberID       uuid.UUID  `json:"member_id" db:"member_id"`
	LoanedAt       time.Time  `json:"loaned_at" db:"loaned_at"`
	DueDate        time.Time  `json:"due_date" db:"due_date"`
	ReturnedAt     *time.Time `json:"returned_at,omitempty" db:"returned_at"`
	ExtensionCount uint8      `json:"extension_count" db:"extension_count"`
	Status         string     `json:"status" db:"status"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

// Repository defines the read-model store. Save has insert-or-replace
// semantics and is the only mutation.
type Repository interface {
	Save(ctx context.Context, view *LoanView) error

	GetByID(ctx context.Context, loanID uuid.UUID) (*LoanView, error)

	FindByMemberID(ctx context.Context, memberID uuid.UUID) ([]*LoanView, error)

	CountActiveForMember(ctx context.Context, memberID uuid.UUID) (int, error)

	// FindOverdueCandidates returns active loans whose due date lies before
	// the cutoff. Candidates only: the sweep re-checks each one against the
	// event log before acting.
	FindOverdueCandidates(ctx context.Context, cutoff time.Time) ([]*LoanView, error)
}
