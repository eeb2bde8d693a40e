// Package projection derives the queryable LoanView from aggregate state.
//
// The projector always rebuilds the complete view from the replayed
// aggregate and replaces the row wholesale. There is deliberately no
// field-level update path: a partial patch could drift from "replay of all
// events", a full rebuild cannot.
package projection

import (
	"context"

	"github.com/cozy-corner/library-lending/internal/domain"
	"github.com/cozy-corner/library-lending/internal/readmodel"
)

type Projector struct {
	views readmodel.Repository
}

func NewProjector(views readmodel.Repository) *Projector {
	return &Projector{views: views}
}

// Project writes the view for the loan's current state. Idempotent: the same
// state projects to the same row.
func (p *Projector) Project(ctx context.Context, loan domain.Loan) error {
	return p.views.Save(ctx, BuildLoanView(loan))
}

// BuildLoanView flattens an aggregate into its read-model row.
func BuildLoanView(loan domain.Loan) *readmodel.LoanView {
	core := loan.Core()

	view := &readmodel.LoanView{
		LoanID:         core.LoanID.UUID(),
		BookID:         core.BookID.UUID(),
		MemberID:       core.MemberID.UUID(),
		LoanedAt:       core.LoanedAt,
		DueDate:        core.DueDate,
		ExtensionCount: core.ExtensionCount.Value(),
		Status:         string(loan.Status()),
		CreatedAt:      core.CreatedAt,
		UpdatedAt:      core.UpdatedAt,
	}

	if returned, ok := loan.(domain.ReturnedLoan); ok {
		returnedAt := returned.ReturnedAt
		view.ReturnedAt = &returnedAt
	}

	return view
}
