package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/cozy-corner/library-lending/internal/domain"
	"github.com/cozy-corner/library-lending/internal/eventstore"
	"github.com/cozy-corner/library-lending/internal/readmodel"
	"github.com/cozy-corner/library-lending/internal/service"
	customError "github.com/cozy-corner/library-lending/pkg/errors"
	"github.com/cozy-corner/library-lending/tests/mocks"
)

var loanedAt = time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)

type fixture struct {
	store    *eventstore.MemoryStore
	views    *readmodel.MemoryRepository
	members  *mocks.MockMemberService
	catalog  *mocks.MockCatalogService
	notifier *mocks.MockNotificationService
	service  *service.LoanService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:    eventstore.NewMemoryStore(),
		views:    readmodel.NewMemoryRepository(),
		members:  &mocks.MockMemberService{},
		catalog:  &mocks.MockCatalogService{},
		notifier: &mocks.MockNotificationService{},
	}
	f.service = service.NewLoanService(f.store, f.views, f.members, f.catalog, f.notifier)
	return f
}

func (f *fixture) allowCreation() {
	f.members.On("Exists", mock.Anything, mock.Anything).Return(true, nil)
	f.members.On("HasOverdueLoans", mock.Anything, mock.Anything).Return(false, nil)
	f.catalog.On("IsAvailableForLoan", mock.Anything, mock.Anything).Return(true, nil)
}

func (f *fixture) loanBook(t *testing.T) domain.LoanID {
	t.Helper()
	loanID, err := f.service.LoanBook(context.Background(), service.LoanBookCommand{
		BookID:   domain.NewBookID(),
		MemberID: domain.NewMemberID(),
		StaffID:  domain.NewStaffID(),
		LoanedAt: loanedAt,
	})
	assert.NoError(t, err)
	return loanID
}

func TestLoanBook(t *testing.T) {
	tests := []struct {
		name        string
		setupMocks  func(*fixture)
		wantErr     error
		wantErrCode string
	}{
		{
			name: "success",
			setupMocks: func(f *fixture) {
				f.allowCreation()
			},
		},
		{
			name: "member does not exist",
			setupMocks: func(f *fixture) {
				f.members.On("Exists", mock.Anything, mock.Anything).Return(false, nil)
			},
			wantErr: customError.ErrMemberNotFound,
		},
		{
			name: "book not available",
			setupMocks: func(f *fixture) {
				f.members.On("Exists", mock.Anything, mock.Anything).Return(true, nil)
				f.catalog.On("IsAvailableForLoan", mock.Anything, mock.Anything).Return(false, nil)
			},
			wantErr: customError.ErrBookNotAvailable,
		},
		{
			name: "member has overdue loans",
			setupMocks: func(f *fixture) {
				f.members.On("Exists", mock.Anything, mock.Anything).Return(true, nil)
				f.catalog.On("IsAvailableForLoan", mock.Anything, mock.Anything).Return(true, nil)
				f.members.On("HasOverdueLoans", mock.Anything, mock.Anything).Return(true, nil)
			},
			wantErr: customError.ErrMemberHasOverdue,
		},
		{
			name: "member service unreachable",
			setupMocks: func(f *fixture) {
				f.members.On("Exists", mock.Anything, mock.Anything).Return(false, errors.New("connection refused"))
			},
			wantErrCode: customError.ErrCodeCollaboratorError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.setupMocks(f)

			loanID, err := f.service.LoanBook(context.Background(), service.LoanBookCommand{
				BookID:   domain.NewBookID(),
				MemberID: domain.NewMemberID(),
				StaffID:  domain.NewStaffID(),
				LoanedAt: loanedAt,
			})

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			if tt.wantErrCode != "" {
				var businessErr *customError.BusinessError
				assert.ErrorAs(t, err, &businessErr)
				assert.Equal(t, tt.wantErrCode, businessErr.Code)
				return
			}

			assert.NoError(t, err)

			// The event is in the log and the view reflects it.
			events, loadErr := f.store.Load(context.Background(), loanID.UUID())
			assert.NoError(t, loadErr)
			assert.Len(t, events, 1)

			view, viewErr := f.views.GetByID(context.Background(), loanID.UUID())
			assert.NoError(t, viewErr)
			assert.Equal(t, "active", view.Status)
			assert.Equal(t, loanedAt.Add(14*24*time.Hour), view.DueDate)
		})
	}
}

func TestLoanBookEnforcesLoanLimit(t *testing.T) {
	f := newFixture(t)
	f.allowCreation()
	memberID := domain.NewMemberID()

	for i := 0; i < 5; i++ {
		_, err := f.service.LoanBook(context.Background(), service.LoanBookCommand{
			BookID:   domain.NewBookID(),
			MemberID: memberID,
			StaffID:  domain.NewStaffID(),
			LoanedAt: loanedAt,
		})
		assert.NoError(t, err)
	}

	_, err := f.service.LoanBook(context.Background(), service.LoanBookCommand{
		BookID:   domain.NewBookID(),
		MemberID: memberID,
		StaffID:  domain.NewStaffID(),
		LoanedAt: loanedAt,
	})
	assert.ErrorIs(t, err, customError.ErrLoanLimitExceeded)
}

func TestExtendLoan(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		f := newFixture(t)
		f.allowCreation()
		f.catalog.On("GetBookTitle", mock.Anything, mock.Anything).Return("The Go Programming Language", nil)
		f.notifier.On("SendExtensionConfirmation", mock.Anything, mock.Anything, "The Go Programming Language", mock.Anything).Return(nil)

		loanID := f.loanBook(t)

		err := f.service.ExtendLoan(context.Background(), loanID, loanedAt.Add(5*24*time.Hour))
		assert.NoError(t, err)

		view, err := f.views.GetByID(context.Background(), loanID.UUID())
		assert.NoError(t, err)
		assert.Equal(t, loanedAt.Add(28*24*time.Hour), view.DueDate)
		assert.Equal(t, uint8(1), view.ExtensionCount)

		f.notifier.AssertCalled(t, "SendExtensionConfirmation", mock.Anything, mock.Anything, "The Go Programming Language", loanedAt.Add(28*24*time.Hour))
	})

	t.Run("second extension is rejected", func(t *testing.T) {
		f := newFixture(t)
		f.allowCreation()
		f.catalog.On("GetBookTitle", mock.Anything, mock.Anything).Return("title", nil)
		f.notifier.On("SendExtensionConfirmation", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

		loanID := f.loanBook(t)
		assert.NoError(t, f.service.ExtendLoan(context.Background(), loanID, loanedAt.Add(24*time.Hour)))

		err := f.service.ExtendLoan(context.Background(), loanID, loanedAt.Add(48*time.Hour))
		assert.ErrorIs(t, err, domain.ErrExtensionLimitExceeded)
	})

	t.Run("unknown loan", func(t *testing.T) {
		f := newFixture(t)

		err := f.service.ExtendLoan(context.Background(), domain.NewLoanID(), loanedAt)
		assert.ErrorIs(t, err, customError.ErrLoanNotFound)
	})

	t.Run("returned loan cannot be extended", func(t *testing.T) {
		f := newFixture(t)
		f.allowCreation()
		f.catalog.On("GetBookTitle", mock.Anything, mock.Anything).Return("title", nil)
		f.notifier.On("SendReturnConfirmation", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

		loanID := f.loanBook(t)
		assert.NoError(t, f.service.ReturnBook(context.Background(), loanID, loanedAt.Add(24*time.Hour)))

		err := f.service.ExtendLoan(context.Background(), loanID, loanedAt.Add(48*time.Hour))
		assert.ErrorIs(t, err, domain.ErrAlreadyReturned)
	})

	t.Run("notification failure does not fail the command", func(t *testing.T) {
		f := newFixture(t)
		f.allowCreation()
		f.catalog.On("GetBookTitle", mock.Anything, mock.Anything).Return("", errors.New("catalog down"))

		loanID := f.loanBook(t)

		err := f.service.ExtendLoan(context.Background(), loanID, loanedAt.Add(24*time.Hour))
		assert.NoError(t, err)
	})
}

func TestReturnBook(t *testing.T) {
	t.Run("on-time return records was_overdue false", func(t *testing.T) {
		f := newFixture(t)
		f.allowCreation()
		f.catalog.On("GetBookTitle", mock.Anything, mock.Anything).Return("title", nil)
		f.notifier.On("SendReturnConfirmation", mock.Anything, mock.Anything, "title", false).Return(nil)

		loanID := f.loanBook(t)

		err := f.service.ReturnBook(context.Background(), loanID, loanedAt.Add(10*24*time.Hour))
		assert.NoError(t, err)

		view, err := f.views.GetByID(context.Background(), loanID.UUID())
		assert.NoError(t, err)
		assert.Equal(t, "returned", view.Status)
		assert.NotNil(t, view.ReturnedAt)

		f.notifier.AssertCalled(t, "SendReturnConfirmation", mock.Anything, mock.Anything, "title", false)
	})

	t.Run("late return records was_overdue true", func(t *testing.T) {
		f := newFixture(t)
		f.allowCreation()
		f.catalog.On("GetBookTitle", mock.Anything, mock.Anything).Return("title", nil)
		f.notifier.On("SendReturnConfirmation", mock.Anything, mock.Anything, "title", true).Return(nil)

		loanID := f.loanBook(t)

		err := f.service.ReturnBook(context.Background(), loanID, loanedAt.Add(20*24*time.Hour))
		assert.NoError(t, err)

		f.notifier.AssertCalled(t, "SendReturnConfirmation", mock.Anything, mock.Anything, "title", true)
	})

	t.Run("second return is rejected", func(t *testing.T) {
		f := newFixture(t)
		f.allowCreation()
		f.catalog.On("GetBookTitle", mock.Anything, mock.Anything).Return("title", nil)
		f.notifier.On("SendReturnConfirmation", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

		loanID := f.loanBook(t)
		assert.NoError(t, f.service.ReturnBook(context.Background(), loanID, loanedAt.Add(24*time.Hour)))

		err := f.service.ReturnBook(context.Background(), loanID, loanedAt.Add(48*time.Hour))
		assert.ErrorIs(t, err, domain.ErrAlreadyReturned)
	})
}

// flakyStore injects version conflicts on the first appends, then delegates.
type flakyStore struct {
	*eventstore.MemoryStore
	conflicts int
}

func (s *flakyStore) Append(ctx context.Context, aggregateID uuid.UUID, expectedVersion int, events []domain.DomainEvent) error {
	if s.conflicts > 0 {
		s.conflicts--
		return eventstore.ErrConcurrencyConflict
	}
	return s.MemoryStore.Append(ctx, aggregateID, expectedVersion, events)
}

func TestExtendLoanRetriesOnConflict(t *testing.T) {
	f := newFixture(t)
	f.allowCreation()
	f.catalog.On("GetBookTitle", mock.Anything, mock.Anything).Return("title", nil)
	f.notifier.On("SendExtensionConfirmation", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	loanID := f.loanBook(t)

	store := &flakyStore{MemoryStore: f.store, conflicts: 2}
	svc := service.NewLoanService(store, f.views, f.members, f.catalog, f.notifier)

	err := svc.ExtendLoan(context.Background(), loanID, loanedAt.Add(24*time.Hour))
	assert.NoError(t, err)
	assert.Zero(t, store.conflicts)

	view, err := f.views.GetByID(context.Background(), loanID.UUID())
	assert.NoError(t, err)
	assert.Equal(t, uint8(1), view.ExtensionCount)
}

func TestExtendLoanGivesUpAfterRetries(t *testing.T) {
	f := newFixture(t)
	f.allowCreation()

	loanID := f.loanBook(t)

	store := &flakyStore{MemoryStore: f.store, conflicts: 100}
	svc := service.NewLoanService(store, f.views, f.members, f.catalog, f.notifier)

	err := svc.ExtendLoan(context.Background(), loanID, loanedAt.Add(24*time.Hour))
	assert.ErrorIs(t, err, customError.ErrConflictExhausted)

	// The view still shows the unextended state.
	view, viewErr := f.views.GetByID(context.Background(), loanID.UUID())
	assert.NoError(t, viewErr)
	assert.Equal(t, uint8(0), view.ExtensionCount)
}

func TestGetLoan(t *testing.T) {
	f := newFixture(t)
	f.allowCreation()

	loanID := f.loanBook(t)

	view, err := f.service.GetLoan(context.Background(), loanID)
	assert.NoError(t, err)
	assert.Equal(t, loanID.UUID(), view.LoanID)

	_, err = f.service.GetLoan(context.Background(), domain.NewLoanID())
	assert.ErrorIs(t, err, customError.ErrLoanNotFound)
}

func TestListMemberLoans(t *testing.T) {
	f := newFixture(t)
	f.allowCreation()
	memberID := domain.NewMemberID()

	for i := 0; i < 3; i++ {
		_, err := f.service.LoanBook(context.Background(), service.LoanBookCommand{
			BookID:   domain.NewBookID(),
			MemberID: memberID,
			StaffID:  domain.NewStaffID(),
			LoanedAt: loanedAt.Add(time.Duration(i) * time.Hour),
		})
		assert.NoError(t, err)
	}

	views, err := f.service.ListMemberLoans(context.Background(), memberID)
	assert.NoError(t, err)
	assert.Len(t, views, 3)

	// Newest first.
	assert.True(t, views[0].LoanedAt.After(views[1].LoanedAt))
	assert.True(t, views[1].LoanedAt.After(views[2].LoanedAt))
}
