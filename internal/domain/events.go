package domain

import "time"

// Event type names as persisted in the event store.
const (
	EventTypeBookLoaned        = "BookLoaned"
	EventTypeLoanExtended      = "LoanExtended"
	EventTypeBookReturned      = "BookReturned"
	EventTypeLoanBecameOverdue = "LoanBecameOverdue"
)

// DomainEvent is an immutable, past-tense fact about a loan. Each event is
// self-contained: applying it never requires consulting other events.
type DomainEvent interface {
	EventType() string
	AggregateID() LoanID
	OccurredAt() time.Time
}

// BookLoaned records the creation of a loan.
type BookLoaned struct {
	LoanID   LoanID    `json:"loan_id"`
	BookID   BookID    `json:"book_id"`
	MemberID MemberID  `json:"member_id"`
	LoanedAt time.Time `json:"loaned_at"`
	DueDate  time.Time `json:"due_date"`
	LoanedBy StaffID   `json:"loaned_by"`
}

func (e BookLoaned) EventType() string     { return EventTypeBookLoaned }
func (e BookLoaned) AggregateID() LoanID   { return e.LoanID }
func (e BookLoaned) OccurredAt() time.Time { return e.LoanedAt }

// LoanExtended records a successful extension. It carries both the previous
// and the new due date so the fact stands on its own.
type LoanExtended struct {
	LoanID         LoanID    `json:"loan_id"`
	OldDueDate     time.Time `json:"old_due_date"`
	NewDueDate     time.Time `json:"new_due_date"`
	ExtendedAt     time.Time `json:"extended_at"`
	ExtensionCount uint8     `json:"extension_count"`
}

func (e LoanExtended) EventType() string     { return EventTypeLoanExtended }
func (e LoanExtended) AggregateID() LoanID   { return e.LoanID }
func (e LoanExtended) OccurredAt() time.Time { return e.ExtendedAt }

// BookReturned records a return. WasOverdue states whether the loan was past
// its due date at return time.
type BookReturned struct {
	LoanID     LoanID    `json:"loan_id"`
	BookID     BookID    `json:"book_id"`
	MemberID   MemberID  `json:"member_id"`
	ReturnedAt time.Time `json:"returned_at"`
	WasOverdue bool      `json:"was_overdue"`
}

func (e BookReturned) EventType() string     { return EventTypeBookReturned }
func (e BookReturned) AggregateID() LoanID   { return e.LoanID }
func (e BookReturned) OccurredAt() time.Time { return e.ReturnedAt }

// LoanBecameOverdue records the detection of an overdue loan by the sweep.
type LoanBecameOverdue struct {
	LoanID     LoanID    `json:"loan_id"`
	BookID     BookID    `json:"book_id"`
	MemberID   MemberID  `json:"member_id"`
	DueDate    time.Time `json:"due_date"`
	DetectedAt time.Time `json:"detected_at"`
}

func (e LoanBecameOverdue) EventType() string     { return EventTypeLoanBecameOverdue }
func (e LoanBecameOverdue) AggregateID() LoanID   { return e.LoanID }
func (e LoanBecameOverdue) OccurredAt() time.Time { return e.DetectedAt }
