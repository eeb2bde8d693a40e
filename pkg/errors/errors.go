package errors

import (
	"errors"
	"fmt"
)

// Application errors
var (
	ErrLoanNotFound      = errors.New("loan not found")
	ErrMemberNotFound    = errors.New("member not found")
	ErrBookNotAvailable  = errors.New("book is not available for loan")
	ErrMemberHasOverdue  = errors.New("member has overdue loans")
	ErrLoanLimitExceeded = errors.New("member has reached the loan limit")
	ErrInvalidLoanState  = errors.New("operation is not valid for the loan state")
	ErrConflictExhausted = errors.New("concurrent updates exhausted retries")
)

// BusinessError represents a business logic error
type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// NewBusinessError creates a new business error
func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	ErrCodeLoanNotFound           = "LOAN_NOT_FOUND"
	ErrCodeMemberNotFound         = "MEMBER_NOT_FOUND"
	ErrCodeBookNotAvailable       = "BOOK_NOT_AVAILABLE"
	ErrCodeMemberHasOverdueLoans  = "MEMBER_HAS_OVERDUE_LOANS"
	ErrCodeLoanLimitExceeded      = "LOAN_LIMIT_EXCEEDED"
	ErrCodeExtensionLimitExceeded = "EXTENSION_LIMIT_EXCEEDED"
	ErrCodeAlreadyReturned        = "ALREADY_RETURNED"
	ErrCodeInvalidLoanState       = "INVALID_LOAN_STATE"
	ErrCodeConflictExhausted      = "CONCURRENT_UPDATE_CONFLICT"
	ErrCodeEventStoreError        = "EVENT_STORE_ERROR"
	ErrCodeReadModelError         = "READ_MODEL_ERROR"
	ErrCodeCollaboratorError      = "COLLABORATOR_ERROR"
	ErrCodeCorruptedHistory       = "CORRUPTED_HISTORY"
)

// Wrap common errors with business context
func WrapLoanNotFound(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanNotFound,
		fmt.Sprintf("loan %s not found", loanID),
		ErrLoanNotFound,
	)
}

func WrapMemberNotFound(memberID string) *BusinessError {
	return NewBusinessError(
		ErrCodeMemberNotFound,
		fmt.Sprintf("member %s not found", memberID),
		ErrMemberNotFound,
	)
}

func WrapBookNotAvailable(bookID string) *BusinessError {
	return NewBusinessError(
		ErrCodeBookNotAvailable,
		fmt.Sprintf("book %s is not available for loan", bookID),
		ErrBookNotAvailable,
	)
}

func WrapMemberHasOverdueLoans(memberID string) *BusinessError {
	return NewBusinessError(
		ErrCodeMemberHasOverdueLoans,
		fmt.Sprintf("member %s has overdue loans", memberID),
		ErrMemberHasOverdue,
	)
}

func WrapLoanLimitExceeded(memberID string, limit int) *BusinessError {
	return NewBusinessError(
		ErrCodeLoanLimitExceeded,
		fmt.Sprintf("member %s already has %d active loans", memberID, limit),
		ErrLoanLimitExceeded,
	)
}

func WrapExtensionLimitExceeded(loanID string, err error) *BusinessError {
	return NewBusinessError(
		ErrCodeExtensionLimitExceeded,
		fmt.Sprintf("loan %s has already been extended", loanID),
		err,
	)
}

func WrapAlreadyReturned(loanID string, err error) *BusinessError {
	return NewBusinessError(
		ErrCodeAlreadyReturned,
		fmt.Sprintf("loan %s has already been returned", loanID),
		err,
	)
}

func WrapInvalidLoanState(loanID, status, operation string) *BusinessError {
	return NewBusinessError(
		ErrCodeInvalidLoanState,
		fmt.Sprintf("cannot %s loan %s in status %s", operation, loanID, status),
		ErrInvalidLoanState,
	)
}

func WrapConflictExhausted(loanID string, attempts int) *BusinessError {
	return NewBusinessError(
		ErrCodeConflictExhausted,
		fmt.Sprintf("loan %s was modified concurrently, gave up after %d attempts", loanID, attempts),
		ErrConflictExhausted,
	)
}

func WrapEventStoreError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeEventStoreError,
		"event store operation failed",
		err,
	)
}

func WrapReadModelError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeReadModelError,
		"read model operation failed",
		err,
	)
}

func WrapCollaboratorError(collaborator string, err error) *BusinessError {
	return NewBusinessError(
		ErrCodeCollaboratorError,
		fmt.Sprintf("%s call failed", collaborator),
		err,
	)
}

func WrapCorruptedHistory(loanID string, err error) *BusinessError {
	return NewBusinessError(
		ErrCodeCorruptedHistory,
		fmt.Sprintf("event history for loan %s violates invariants", loanID),
		err,
	)
}
