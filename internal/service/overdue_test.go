package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/cozy-corner/library-lending/internal/domain"
	"github.com/cozy-corner/library-lending/internal/eventstore"
	"github.com/cozy-corner/library-lending/internal/projection"
	"github.com/cozy-corner/library-lending/internal/readmodel"
	"github.com/cozy-corner/library-lending/tests/mocks"
)

var (
	sweepLoanedAt = time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	sweepAt       = time.Date(2025, 2, 1, 2, 0, 0, 0, time.UTC)
)

type sweepFixture struct {
	store    *eventstore.MemoryStore
	views    *readmodel.MemoryRepository
	catalog  *mocks.MockCatalogService
	notifier *mocks.MockNotificationService
	detector *OverdueDetector
}

func newSweepFixture(t *testing.T, at time.Time) *sweepFixture {
	t.Helper()
	f := &sweepFixture{
		store:    eventstore.NewMemoryStore(),
		views:    readmodel.NewMemoryRepository(),
		catalog:  &mocks.MockCatalogService{},
		notifier: &mocks.MockNotificationService{},
	}
	f.detector = NewOverdueDetector(f.store, f.views, f.catalog, f.notifier)
	f.detector.now = func() time.Time { return at }
	return f
}

func (f *sweepFixture) seedLoan(t *testing.T, loanedAt time.Time) domain.ActiveLoan {
	t.Helper()
	ctx := context.Background()

	loan, event := domain.LoanBook(domain.NewBookID(), domain.NewMemberID(), loanedAt, domain.NewStaffID())
	assert.NoError(t, f.store.Append(ctx, loan.LoanID.UUID(), 0, []domain.DomainEvent{event}))
	assert.NoError(t, projection.NewProjector(f.views).Project(ctx, loan))
	return loan
}

func TestOverdueSweepMarksPastDueLoans(t *testing.T) {
	f := newSweepFixture(t, sweepAt)
	f.catalog.On("GetBookTitle", mock.Anything, mock.Anything).Return("title", nil)
	f.notifier.On("SendOverdueNotification", mock.Anything, mock.Anything, "title", mock.Anything).Return(nil)

	pastDue := f.seedLoan(t, sweepLoanedAt)
	notDue := f.seedLoan(t, time.Date(2025, 1, 25, 10, 0, 0, 0, time.UTC))

	marked, err := f.detector.Run(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 1, marked)

	view, err := f.views.GetByID(context.Background(), pastDue.LoanID.UUID())
	assert.NoError(t, err)
	assert.Equal(t, "overdue", view.Status)

	view, err = f.views.GetByID(context.Background(), notDue.LoanID.UUID())
	assert.NoError(t, err)
	assert.Equal(t, "active", view.Status)

	events, err := f.store.Load(context.Background(), pastDue.LoanID.UUID())
	assert.NoError(t, err)
	assert.Len(t, events, 2)
	assert.Equal(t, domain.EventTypeLoanBecameOverdue, events[1].EventType())

	f.notifier.AssertCalled(t, "SendOverdueNotification", mock.Anything, pastDue.MemberID, "title", pastDue.DueDate)
}

func TestOverdueSweepIsIdempotent(t *testing.T) {
	f := newSweepFixture(t, sweepAt)
	f.catalog.On("GetBookTitle", mock.Anything, mock.Anything).Return("title", nil)
	f.notifier.On("SendOverdueNotification", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	loan := f.seedLoan(t, sweepLoanedAt)

	marked, err := f.detector.Run(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 1, marked)

	marked, err = f.detector.Run(context.Background())
	assert.NoError(t, err)
	assert.Zero(t, marked)

	// Still exactly one LoanBecameOverdue in the log.
	events, err := f.store.Load(context.Background(), loan.LoanID.UUID())
	assert.NoError(t, err)
	assert.Len(t, events, 2)

	f.notifier.AssertNumberOfCalls(t, "SendOverdueNotification", 1)
}

func TestOverdueSweepSkipsStaleCandidates(t *testing.T) {
	f := newSweepFixture(t, sweepAt)

	loan := f.seedLoan(t, sweepLoanedAt)

	// The loan was returned but the view still says active, as if the
	// projection lagged: the sweep must trust the log, not the view.
	_, returnEvent, err := domain.ReturnBook(loan, time.Date(2025, 1, 28, 10, 0, 0, 0, time.UTC))
	assert.NoError(t, err)
	assert.NoError(t, f.store.Append(context.Background(), loan.LoanID.UUID(), 1, []domain.DomainEvent{returnEvent}))

	marked, err := f.detector.Run(context.Background())
	assert.NoError(t, err)
	assert.Zero(t, marked)

	events, err := f.store.Load(context.Background(), loan.LoanID.UUID())
	assert.NoError(t, err)
	assert.Len(t, events, 2)
	assert.Equal(t, domain.EventTypeBookReturned, events[1].EventType())

	f.notifier.AssertNotCalled(t, "SendOverdueNotification", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestOverdueSweepSkipsViewWithoutHistory(t *testing.T) {
	f := newSweepFixture(t, sweepAt)

	orphan := &readmodel.LoanView{
		LoanID:    domain.NewLoanID().UUID(),
		BookID:    domain.NewBookID().UUID(),
		MemberID:  domain.NewMemberID().UUID(),
		LoanedAt:  sweepLoanedAt,
		DueDate:   sweepLoanedAt.Add(14 * 24 * time.Hour),
		Status:    "active",
		CreatedAt: sweepLoanedAt,
		UpdatedAt: sweepLoanedAt,
	}
	assert.NoError(t, f.views.Save(context.Background(), orphan))

	marked, err := f.detector.Run(context.Background())
	assert.NoError(t, err)
	assert.Zero(t, marked)
}

func TestOverdueSweepNotificationFailureDoesNotAbort(t *testing.T) {
	f := newSweepFixture(t, sweepAt)
	f.catalog.On("GetBookTitle", mock.Anything, mock.Anything).Return("title", nil)
	f.notifier.On("SendOverdueNotification", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(assert.AnError)

	loan := f.seedLoan(t, sweepLoanedAt)

	marked, err := f.detector.Run(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 1, marked)

	view, err := f.views.GetByID(context.Background(), loan.LoanID.UUID())
	assert.NoError(t, err)
	assert.Equal(t, "overdue", view.Status)
}
