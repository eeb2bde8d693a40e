package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func loanedHistory(t *testing.T) ([]DomainEvent, ActiveLoan) {
	t.Helper()
	loan, event := LoanBook(NewBookID(), NewMemberID(), loanedAt, NewStaffID())
	return []DomainEvent{event}, loan
}

func TestReplayEvents(t *testing.T) {
	t.Run("empty history yields no loan", func(t *testing.T) {
		loan, err := ReplayEvents(nil)

		assert.NoError(t, err)
		assert.Nil(t, loan)
	})

	t.Run("single BookLoaned yields an active loan", func(t *testing.T) {
		history, live := loanedHistory(t)

		replayed, err := ReplayEvents(history)

		assert.NoError(t, err)
		assert.Equal(t, Loan(live), replayed)
	})

	t.Run("loan extend return", func(t *testing.T) {
		history, live := loanedHistory(t)

		extended, extendEvent, err := ExtendLoan(live, loanedAt.Add(24*time.Hour))
		assert.NoError(t, err)
		returned, returnEvent, err := ReturnBook(extended, loanedAt.Add(48*time.Hour))
		assert.NoError(t, err)

		history = append(history, extendEvent, returnEvent)
		replayed, err := ReplayEvents(history)

		assert.NoError(t, err)
		assert.Equal(t, Loan(returned), replayed)
	})

	t.Run("loan overdue return", func(t *testing.T) {
		history, live := loanedHistory(t)

		overdue, overdueEvent, err := MarkOverdue(live, dueDate.Add(time.Hour))
		assert.NoError(t, err)
		returned, returnEvent, err := ReturnBook(overdue, dueDate.Add(48*time.Hour))
		assert.NoError(t, err)

		history = append(history, overdueEvent, returnEvent)
		replayed, err := ReplayEvents(history)

		assert.NoError(t, err)
		assert.Equal(t, Loan(returned), replayed)
	})
}

func TestApplyEventViolations(t *testing.T) {
	history, live := loanedHistory(t)
	creation := history[0].(BookLoaned)

	returned, returnEvent, err := ReturnBook(live, loanedAt.Add(24*time.Hour))
	assert.NoError(t, err)

	overdueEvent := LoanBecameOverdue{
		LoanID:     live.LoanID,
		BookID:     live.BookID,
		MemberID:   live.MemberID,
		DueDate:    live.DueDate,
		DetectedAt: dueDate.Add(time.Hour),
	}
	extendEvent := LoanExtended{
		LoanID:         live.LoanID,
		OldDueDate:     live.DueDate,
		NewDueDate:     live.DueDate.Add(LoanPeriod),
		ExtendedAt:     loanedAt.Add(24 * time.Hour),
		ExtensionCount: 1,
	}

	tests := []struct {
		name  string
		loan  Loan
		event DomainEvent
	}{
		{name: "BookLoaned on existing loan", loan: live, event: creation},
		{name: "LoanExtended without loan", loan: nil, event: extendEvent},
		{name: "LoanExtended on returned loan", loan: returned, event: extendEvent},
		{name: "BookReturned without loan", loan: nil, event: returnEvent},
		{name: "BookReturned twice", loan: returned, event: returnEvent},
		{name: "LoanBecameOverdue without loan", loan: nil, event: overdueEvent},
		{name: "LoanBecameOverdue on returned loan", loan: returned, event: overdueEvent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ApplyEvent(tt.loan, tt.event)
			assert.ErrorIs(t, err, ErrInvariantViolation)
		})
	}
}

func TestApplyEventRejectsForeignLoanID(t *testing.T) {
	_, live := loanedHistory(t)

	foreign := LoanExtended{
		LoanID:         NewLoanID(),
		OldDueDate:     live.DueDate,
		NewDueDate:     live.DueDate.Add(LoanPeriod),
		ExtendedAt:     loanedAt.Add(24 * time.Hour),
		ExtensionCount: 1,
	}

	_, err := ApplyEvent(live, foreign)
	assert.ErrorIs(t, err, ErrInvariantViolation)
}

func TestApplyEventRejectsCorruptExtensionCount(t *testing.T) {
	_, live := loanedHistory(t)

	corrupt := LoanExtended{
		LoanID:         live.LoanID,
		OldDueDate:     live.DueDate,
		NewDueDate:     live.DueDate.Add(LoanPeriod),
		ExtendedAt:     loanedAt.Add(24 * time.Hour),
		ExtensionCount: 7,
	}

	_, err := ApplyEvent(live, corrupt)
	assert.ErrorIs(t, err, ErrInvariantViolation)
}

// Replay is a pure fold: any valid history replays to the same state every
// time, and matches the state reached by applying the operations live.
func TestReplayDeterminism(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		loan, event := LoanBook(NewBookID(), NewMemberID(), loanedAt, NewStaffID())
		history := []DomainEvent{event}
		var current Loan = loan

		steps := rapid.IntRange(0, 4).Draw(rt, "steps")
		now := loanedAt
		for i := 0; i < steps; i++ {
			now = now.Add(time.Duration(rapid.IntRange(1, 72).Draw(rt, "hours")) * time.Hour)

			switch rapid.IntRange(0, 2).Draw(rt, "op") {
			case 0:
				active, ok := current.(ActiveLoan)
				if !ok {
					continue
				}
				extended, e, err := ExtendLoan(active, now)
				if err != nil {
					continue
				}
				current = extended
				history = append(history, e)
			case 1:
				active, ok := current.(ActiveLoan)
				if !ok {
					continue
				}
				overdue, e, err := MarkOverdue(active, now)
				if err != nil {
					continue
				}
				current = overdue
				history = append(history, e)
			case 2:
				returned, e, err := ReturnBook(current, now)
				if err != nil {
					continue
				}
				current = returned
				history = append(history, e)
			}
		}

		first, err := ReplayEvents(history)
		if err != nil {
			rt.Fatalf("replay failed: %v", err)
		}
		second, err := ReplayEvents(history)
		if err != nil {
			rt.Fatalf("second replay failed: %v", err)
		}

		assert.Equal(rt, current, first)
		assert.Equal(rt, first, second)
	})
}
