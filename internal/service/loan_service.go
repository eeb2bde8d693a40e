package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/cozy-corner/library-lending/internal/domain"
	"github.com/cozy-corner/library-lending/internal/eventstore"
	"github.com/cozy-corner/library-lending/internal/projection"
	"github.com/cozy-corner/library-lending/internal/readmodel"
	customError "github.com/cozy-corner/library-lending/pkg/errors"
)

// maxActiveLoans is how many loans a member may hold at once. A fixed
// business rule, like the extension limit.
const maxActiveLoans = 5

// LoanService sequences each command: consult collaborators, load and replay
// the aggregate, invoke the state machine, append, project.
type LoanService struct {
	store      eventstore.Store
	views      readmodel.Repository
	projector  *projection.Projector
	members    MemberService
	catalog    CatalogService
	notifier   NotificationService
	maxRetries int
}

func NewLoanService(
	store eventstore.Store,
	views readmodel.Repository,
	members MemberService,
	catalog CatalogService,
	notifier NotificationService,
) *LoanService {
	return &LoanService{
		store:      store,
		views:      views,
		projector:  projection.NewProjector(views),
		members:    members,
		catalog:    catalog,
		notifier:   notifier,
		maxRetries: defaultMaxAttempts,
	}
}

// LoanBookCommand carries the inputs for creating a loan.
type LoanBookCommand struct {
	BookID   domain.BookID
	MemberID domain.MemberID
	StaffID  domain.StaffID
	LoanedAt time.Time
}

// LoanBook checks the external facts (member, availability, overdue state,
// loan limit), then creates the aggregate with its first event. The new
// stream starts at version 0, so a duplicate creation of the same stream
// would surface as a concurrency conflict.
func (s *LoanService) LoanBook(ctx context.Context, cmd LoanBookCommand) (domain.LoanID, error) {
	exists, err := s.members.Exists(ctx, cmd.MemberID)
	if err != nil {
		return domain.LoanID{}, customError.WrapCollaboratorError("member service", err)
	}
	if !exists {
		return domain.LoanID{}, customError.WrapMemberNotFound(cmd.MemberID.String())
	}

	available, err := s.catalog.IsAvailableForLoan(ctx, cmd.BookID)
	if err != nil {
		return domain.LoanID{}, customError.WrapCollaboratorError("catalog service", err)
	}
	if !available {
		return domain.LoanID{}, customError.WrapBookNotAvailable(cmd.BookID.String())
	}

	hasOverdue, err := s.members.HasOverdueLoans(ctx, cmd.MemberID)
	if err != nil {
		return domain.LoanID{}, customError.WrapCollaboratorError("member service", err)
	}
	if hasOverdue {
		return domain.LoanID{}, customError.WrapMemberHasOverdueLoans(cmd.MemberID.String())
	}

	activeCount, err := s.views.CountActiveForMember(ctx, cmd.MemberID.UUID())
	if err != nil {
		return domain.LoanID{}, customError.WrapReadModelError(err)
	}
	if activeCount >= maxActiveLoans {
		return domain.LoanID{}, customError.WrapLoanLimitExceeded(cmd.MemberID.String(), activeCount)
	}

	loan, event := domain.LoanBook(cmd.BookID, cmd.MemberID, cmd.LoanedAt, cmd.StaffID)

	if err := s.store.Append(ctx, loan.LoanID.UUID(), 0, []domain.DomainEvent{event}); err != nil {
		if errors.Is(err, eventstore.ErrConcurrencyConflict) {
			return domain.LoanID{}, customError.WrapConflictExhausted(loan.LoanID.String(), 1)
		}
		return domain.LoanID{}, customError.WrapEventStoreError(err)
	}

	if err := s.projector.Project(ctx, loan); err != nil {
		return domain.LoanID{}, customError.WrapReadModelError(err)
	}

	return loan.LoanID, nil
}

// ExtendLoan extends an active loan once. Concurrency conflicts trigger a
// reload-replay-redecide retry; every other failure surfaces immediately.
func (s *LoanService) ExtendLoan(ctx context.Context, loanID domain.LoanID, extendedAt time.Time) error {
	err := retryOnConflict(ctx, s.maxRetries, func(ctx context.Context) error {
		loan, version, err := s.loadLoan(ctx, loanID)
		if err != nil {
			return err
		}

		active, ok := loan.(domain.ActiveLoan)
		if !ok {
			if loan.Status() == domain.StatusReturned {
				return customError.WrapAlreadyReturned(loanID.String(), domain.ErrAlreadyReturned)
			}
			return customError.WrapInvalidLoanState(loanID.String(), string(loan.Status()), "extend")
		}

		extended, event, err := domain.ExtendLoan(active, extendedAt)
		if err != nil {
			return customError.WrapExtensionLimitExceeded(loanID.String(), err)
		}

		if err := s.appendAndProject(ctx, extended, version, event); err != nil {
			return err
		}

		s.notifyExtension(ctx, extended, event)
		return nil
	})

	if errors.Is(err, eventstore.ErrConcurrencyConflict) {
		return customError.WrapConflictExhausted(loanID.String(), s.maxRetries)
	}
	return err
}

// ReturnBook returns an active or overdue loan. Lateness never refuses a
// return; the event records whether the loan was overdue.
func (s *LoanService) ReturnBook(ctx context.Context, loanID domain.LoanID, returnedAt time.Time) error {
	err := retryOnConflict(ctx, s.maxRetries, func(ctx context.Context) error {
		loan, version, err := s.loadLoan(ctx, loanID)
		if err != nil {
			return err
		}

		returned, event, err := domain.ReturnBook(loan, returnedAt)
		if err != nil {
			return customError.WrapAlreadyReturned(loanID.String(), err)
		}

		if err := s.appendAndProject(ctx, returned, version, event); err != nil {
			return err
		}

		s.notifyReturn(ctx, returned, event)
		return nil
	})

	if errors.Is(err, eventstore.ErrConcurrencyConflict) {
		return customError.WrapConflictExhausted(loanID.String(), s.maxRetries)
	}
	return err
}

// GetLoan reads the current view. The view may lag the log briefly after an
// append; readers tolerate that.
func (s *LoanService) GetLoan(ctx context.Context, loanID domain.LoanID) (*readmodel.LoanView, error) {
	view, err := s.views.GetByID(ctx, loanID.UUID())
	if errors.Is(err, readmodel.ErrNotFound) {
		return nil, customError.WrapLoanNotFound(loanID.String())
	}
	if err != nil {
		return nil, customError.WrapReadModelError(err)
	}
	return view, nil
}

// ListMemberLoans returns every loan view for a member, newest first.
func (s *LoanService) ListMemberLoans(ctx context.Context, memberID domain.MemberID) ([]*readmodel.LoanView, error) {
	views, err := s.views.FindByMemberID(ctx, memberID.UUID())
	if err != nil {
		return nil, customError.WrapReadModelError(err)
	}
	return views, nil
}

// loadLoan replays the full event history, the source of truth. The returned
// version is the expected version for the next append.
func (s *LoanService) loadLoan(ctx context.Context, loanID domain.LoanID) (domain.Loan, int, error) {
	events, err := s.store.Load(ctx, loanID.UUID())
	if err != nil {
		return nil, 0, customError.WrapEventStoreError(err)
	}
	if len(events) == 0 {
		return nil, 0, customError.WrapLoanNotFound(loanID.String())
	}

	loan, err := domain.ReplayEvents(events)
	if err != nil {
		// Corrupted history or a logic defect; surfaced loudly, never masked.
		return nil, 0, customError.WrapCorruptedHistory(loanID.String(), err)
	}

	return loan, len(events), nil
}

func (s *LoanService) appendAndProject(ctx context.Context, loan domain.Loan, expectedVersion int, event domain.DomainEvent) error {
	err := s.store.Append(ctx, loan.Core().LoanID.UUID(), expectedVersion, []domain.DomainEvent{event})
	if err != nil {
		if errors.Is(err, eventstore.ErrConcurrencyConflict) {
			return err // retried by the caller
		}
		return customError.WrapEventStoreError(err)
	}

	if err := s.projector.Project(ctx, loan); err != nil {
		return customError.WrapReadModelError(err)
	}

	return nil
}

func (s *LoanService) notifyExtension(ctx context.Context, loan domain.ActiveLoan, event domain.LoanExtended) {
	title, err := s.catalog.GetBookTitle(ctx, loan.BookID)
	if err != nil {
		log.Printf("extension confirmation for loan %s: book title lookup failed: %v", loan.LoanID, err)
		return
	}
	if err := s.notifier.SendExtensionConfirmation(ctx, loan.MemberID, title, event.NewDueDate); err != nil {
		log.Printf("extension confirmation for loan %s failed: %v", loan.LoanID, err)
	}
}

func (s *LoanService) notifyReturn(ctx context.Context, loan domain.ReturnedLoan, event domain.BookReturned) {
	title, err := s.catalog.GetBookTitle(ctx, loan.BookID)
	if err != nil {
		log.Printf("return confirmation for loan %s: book title lookup failed: %v", loan.LoanID, err)
		return
	}
	if err := s.notifier.SendReturnConfirmation(ctx, loan.MemberID, title, event.WasOverdue); err != nil {
		log.Printf("return confirmation for loan %s failed: %v", loan.LoanID, err)
	}
}
