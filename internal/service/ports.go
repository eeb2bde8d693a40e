package service

import (
	"context"
	"time"

	"github.com/cozy-corner/library-lending/internal/domain"
)

// Capability ports consumed by orchestration. The core never depends on their
// implementations, only on these contracts.

// MemberService answers questions about the membership context.
type MemberService interface {
	Exists(ctx context.Context, memberID domain.MemberID) (bool, error)
	HasOverdueLoans(ctx context.Context, memberID domain.MemberID) (bool, error)
}

// CatalogService answers questions about the catalog context.
type CatalogService interface {
	IsAvailableForLoan(ctx context.Context, bookID domain.BookID) (bool, error)
	GetBookTitle(ctx context.Context, bookID domain.BookID) (string, error)
}

// NotificationService delivers member-facing notifications. Failures are
// logged by callers, never turned into command failures.
type NotificationService interface {
	SendOverdueNotification(ctx context.Context, memberID domain.MemberID, bookTitle string, dueDate time.Time) error
	SendExtensionConfirmation(ctx context.Context, memberID domain.MemberID, bookTitle string, newDueDate time.Time) error
	SendReturnConfirmation(ctx context.Context, memberID domain.MemberID, bookTitle string, wasOverdue bool) error
}
