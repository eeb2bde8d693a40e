package domain

import "fmt"

// ApplyEvent is the single transition function used for both live command
// handling and history replay. The (state, event) pairing is exhaustive;
// every combination outside the lifecycle is an invariant violation and comes
// back as an ErrInvariantViolation error, never as a silently defaulted state.
func ApplyEvent(loan Loan, event DomainEvent) (Loan, error) {
	switch e := event.(type) {
	case BookLoaned:
		if loan != nil {
			return nil, fmt.Errorf("%w: BookLoaned applied to existing loan %s", ErrInvariantViolation, e.LoanID)
		}
		return ActiveLoan{
			LoanCore: LoanCore{
				LoanID:         e.LoanID,
				BookID:         e.BookID,
				MemberID:       e.MemberID,
				LoanedAt:       e.LoanedAt,
				DueDate:        e.DueDate,
				ExtensionCount: NewExtensionCount(),
				CreatedBy:      e.LoanedBy,
				CreatedAt:      e.LoanedAt,
				UpdatedAt:      e.LoanedAt,
			},
		}, nil

	case LoanExtended:
		active, err := requireActive(loan, e.LoanID, "LoanExtended")
		if err != nil {
			return nil, err
		}
		count, err := ExtensionCountFrom(e.ExtensionCount)
		if err != nil {
			return nil, fmt.Errorf("%w: LoanExtended for %s: %v", ErrInvariantViolation, e.LoanID, err)
		}
		core := active.LoanCore
		core.DueDate = e.NewDueDate
		core.ExtensionCount = count
		core.UpdatedAt = e.ExtendedAt
		return ActiveLoan{LoanCore: core}, nil

	case BookReturned:
		var core LoanCore
		switch l := loan.(type) {
		case ActiveLoan:
			core = l.LoanCore
		case OverdueLoan:
			core = l.LoanCore
		default:
			return nil, transitionViolation(loan, e.LoanID, "BookReturned")
		}
		if core.LoanID != e.LoanID {
			return nil, mismatchViolation(core.LoanID, e.LoanID, "BookReturned")
		}
		core.UpdatedAt = e.ReturnedAt
		return ReturnedLoan{LoanCore: core, ReturnedAt: e.ReturnedAt}, nil

	case LoanBecameOverdue:
		active, err := requireActive(loan, e.LoanID, "LoanBecameOverdue")
		if err != nil {
			return nil, err
		}
		core := active.LoanCore
		core.UpdatedAt = e.DetectedAt
		return OverdueLoan{LoanCore: core}, nil

	default:
		return nil, fmt.Errorf("%w: unknown event type %T", ErrInvariantViolation, event)
	}
}

// ReplayEvents folds a version-ordered history into the current state.
// Deterministic: the same sequence always yields the same state. Returns nil
// for an empty history.
func ReplayEvents(events []DomainEvent) (Loan, error) {
	var loan Loan
	for _, event := range events {
		next, err := ApplyEvent(loan, event)
		if err != nil {
			return nil, err
		}
		loan = next
	}
	return loan, nil
}

func requireActive(loan Loan, eventLoanID LoanID, eventType string) (ActiveLoan, error) {
	active, ok := loan.(ActiveLoan)
	if !ok {
		return ActiveLoan{}, transitionViolation(loan, eventLoanID, eventType)
	}
	if active.LoanID != eventLoanID {
		return ActiveLoan{}, mismatchViolation(active.LoanID, eventLoanID, eventType)
	}
	return active, nil
}

func transitionViolation(loan Loan, loanID LoanID, eventType string) error {
	state := "none"
	if loan != nil {
		state = string(loan.Status())
	}
	return fmt.Errorf("%w: %s cannot apply to %s loan %s", ErrInvariantViolation, eventType, state, loanID)
}

func mismatchViolation(current, event LoanID, eventType string) error {
	return fmt.Errorf("%w: %s loan id %s does not match current loan %s", ErrInvariantViolation, eventType, event, current)
}
