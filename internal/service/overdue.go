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

// OverdueDetector is the scheduled sweep that marks overdue loans. The read
// model only nominates candidates; the decision to emit LoanBecameOverdue is
// taken against a fresh replay of the event log, so a loan returned between
// the query and processing is left alone.
type OverdueDetector struct {
	store     eventstore.Store
	views     readmodel.Repository
	projector *projection.Projector
	catalog   CatalogService
	notifier  NotificationService
	now       func() time.Time
}

func NewOverdueDetector(
	store eventstore.Store,
	views readmodel.Repository,
	catalog CatalogService,
	notifier NotificationService,
) *OverdueDetector {
	return &OverdueDetector{
		store:     store,
		views:     views,
		projector: projection.NewProjector(views),
		catalog:   catalog,
		notifier:  notifier,
		now:       time.Now,
	}
}

// Run performs one sweep and returns how many loans it marked overdue.
// Already-marked loans replay to OverdueLoan and are skipped, which makes a
// repeated sweep a no-op.
func (d *OverdueDetector) Run(ctx context.Context) (int, error) {
	now := d.now().UTC()

	candidates, err := d.views.FindOverdueCandidates(ctx, now)
	if err != nil {
		return 0, customError.WrapReadModelError(err)
	}

	detected := 0
	for _, candidate := range candidates {
		marked, err := d.processCandidate(ctx, candidate, now)
		if err != nil {
			return detected, err
		}
		if marked {
			detected++
		}
	}

	return detected, nil
}

func (d *OverdueDetector) processCandidate(ctx context.Context, candidate *readmodel.LoanView, now time.Time) (bool, error) {
	events, err := d.store.Load(ctx, candidate.LoanID)
	if err != nil {
		return false, customError.WrapEventStoreError(err)
	}
	if len(events) == 0 {
		// View without history: the projection outran a deleted stream or
		// the candidate query raced a rebuild. Nothing to act on.
		return false, nil
	}

	loan, err := domain.ReplayEvents(events)
	if err != nil {
		return false, customError.WrapCorruptedHistory(candidate.LoanID.String(), err)
	}

	// Double-check against the authoritative log, not the cached view.
	active, ok := loan.(domain.ActiveLoan)
	if !ok {
		return false, nil
	}

	overdue, event, err := domain.MarkOverdue(active, now)
	if errors.Is(err, domain.ErrNotOverdueYet) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	err = d.store.Append(ctx, active.LoanID.UUID(), len(events), []domain.DomainEvent{event})
	if errors.Is(err, eventstore.ErrConcurrencyConflict) {
		// Another writer touched the loan mid-sweep; the next run decides.
		log.Printf("overdue sweep: loan %s changed concurrently, skipping", active.LoanID)
		return false, nil
	}
	if err != nil {
		return false, customError.WrapEventStoreError(err)
	}

	if err := d.projector.Project(ctx, overdue); err != nil {
		return false, customError.WrapReadModelError(err)
	}

	d.notifyOverdue(ctx, overdue)
	return true, nil
}

func (d *OverdueDetector) notifyOverdue(ctx context.Context, loan domain.OverdueLoan) {
	title, err := d.catalog.GetBookTitle(ctx, loan.BookID)
	if err != nil {
		log.Printf("overdue notification for loan %s: book title lookup failed: %v", loan.LoanID, err)
		return
	}
	if err := d.notifier.SendOverdueNotification(ctx, loan.MemberID, title, loan.DueDate); err != nil {
		log.Printf("overdue notification for loan %s failed: %v", loan.LoanID, err)
	}
}
