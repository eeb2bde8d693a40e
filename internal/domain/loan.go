package domain

import "time"

// LoanPeriod is the lending period granted at creation and added again by an
// extension.
const LoanPeriod = 14 * 24 * time.Hour

type LoanStatus string

const (
	StatusActive   LoanStatus = "active"
	StatusOverdue  LoanStatus = "overdue"
	StatusReturned LoanStatus = "returned"
)

// LoanCore holds the fields shared by every loan state.
type LoanCore struct {
	LoanID         LoanID
	BookID         BookID
	MemberID       MemberID
	LoanedAt       time.Time
	DueDate        time.Time
	ExtensionCount ExtensionCount
	CreatedBy      StaffID
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Loan is the aggregate, a closed union over exactly three states. Each state
// carries only the fields valid for it: a ReturnedLoan always has a return
// timestamp, and no other state can have one.
type Loan interface {
	Core() LoanCore
	Status() LoanStatus

	// sealed restricts implementations to this package.
	sealed()
}

// ActiveLoan is a loan within its due date.
type ActiveLoan struct {
	LoanCore
}

func (l ActiveLoan) Core() LoanCore     { return l.LoanCore }
func (l ActiveLoan) Status() LoanStatus { return StatusActive }
func (ActiveLoan) sealed()              {}

// OverdueLoan is a loan whose due date has passed and which has been
// explicitly marked overdue. Only reachable from ActiveLoan.
type OverdueLoan struct {
	LoanCore
}

func (l OverdueLoan) Core() LoanCore     { return l.LoanCore }
func (l OverdueLoan) Status() LoanStatus { return StatusOverdue }
func (OverdueLoan) sealed()              {}

// ReturnedLoan is terminal. No operation accepts it and produces a different
// committed state.
type ReturnedLoan struct {
	LoanCore
	ReturnedAt time.Time
}

func (l ReturnedLoan) Core() LoanCore     { return l.LoanCore }
func (l ReturnedLoan) Status() LoanStatus { return StatusReturned }
func (ReturnedLoan) sealed()              {}

// LoanBook creates a new loan. Availability and member checks are the
// orchestration layer's job; given valid inputs this cannot fail.
func LoanBook(bookID BookID, memberID MemberID, loanedAt time.Time, staffID StaffID) (ActiveLoan, BookLoaned) {
	loanID := NewLoanID()
	dueDate := loanedAt.Add(LoanPeriod)

	loan := ActiveLoan{
		LoanCore: LoanCore{
			LoanID:         loanID,
			BookID:         bookID,
			MemberID:       memberID,
			LoanedAt:       loanedAt,
			DueDate:        dueDate,
			ExtensionCount: NewExtensionCount(),
			CreatedBy:      staffID,
			CreatedAt:      loanedAt,
			UpdatedAt:      loanedAt,
		},
	}

	event := BookLoaned{
		LoanID:   loanID,
		BookID:   bookID,
		MemberID: memberID,
		LoanedAt: loanedAt,
		DueDate:  dueDate,
		LoanedBy: staffID,
	}

	return loan, event
}

// ExtendLoan advances the due date by one loan period. Overdue and returned
// loans cannot reach this function at all; the remaining failure is the
// extension limit.
func ExtendLoan(loan ActiveLoan, extendedAt time.Time) (ActiveLoan, LoanExtended, error) {
	newCount, err := loan.ExtensionCount.Increment()
	if err != nil {
		return ActiveLoan{}, LoanExtended{}, err
	}

	oldDueDate := loan.DueDate
	newDueDate := oldDueDate.Add(LoanPeriod)

	extended := ActiveLoan{LoanCore: loan.LoanCore}
	extended.DueDate = newDueDate
	extended.ExtensionCount = newCount
	extended.UpdatedAt = extendedAt

	event := LoanExtended{
		LoanID:         loan.LoanID,
		OldDueDate:     oldDueDate,
		NewDueDate:     newDueDate,
		ExtendedAt:     extendedAt,
		ExtensionCount: newCount.Value(),
	}

	return extended, event, nil
}

// ReturnBook accepts active and overdue loans; a return is never refused for
// lateness. Returning an already returned loan fails with ErrAlreadyReturned.
func ReturnBook(loan Loan, returnedAt time.Time) (ReturnedLoan, BookReturned, error) {
	var core LoanCore
	var wasOverdue bool

	switch l := loan.(type) {
	case ActiveLoan:
		core = l.LoanCore
		wasOverdue = returnedAt.After(l.DueDate)
	case OverdueLoan:
		core = l.LoanCore
		wasOverdue = true
	case ReturnedLoan:
		return ReturnedLoan{}, BookReturned{}, ErrAlreadyReturned
	}

	core.UpdatedAt = returnedAt
	returned := ReturnedLoan{
		LoanCore:   core,
		ReturnedAt: returnedAt,
	}

	event := BookReturned{
		LoanID:     core.LoanID,
		BookID:     core.BookID,
		MemberID:   core.MemberID,
		ReturnedAt: returnedAt,
		WasOverdue: wasOverdue,
	}

	return returned, event, nil
}

// MarkOverdue transitions an active loan past its due date to overdue. Loans
// already overdue or returned are excluded by the parameter type, which keeps
// the sweep idempotent.
func MarkOverdue(loan ActiveLoan, detectedAt time.Time) (OverdueLoan, LoanBecameOverdue, error) {
	if !detectedAt.After(loan.DueDate) {
		return OverdueLoan{}, LoanBecameOverdue{}, ErrNotOverdueYet
	}

	core := loan.LoanCore
	core.UpdatedAt = detectedAt

	event := LoanBecameOverdue{
		LoanID:     core.LoanID,
		BookID:     core.BookID,
		MemberID:   core.MemberID,
		DueDate:    core.DueDate,
		DetectedAt: detectedAt,
	}

	return OverdueLoan{LoanCore: core}, event, nil
}

// IsOverdue reports whether the loan is past due at the given instant.
func IsOverdue(loan Loan, now time.Time) bool {
	switch l := loan.(type) {
	case ActiveLoan:
		return now.After(l.DueDate)
	case OverdueLoan:
		return true
	default:
		return false
	}
}
