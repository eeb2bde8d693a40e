package domain

import (
	"github.com/google/uuid"
)

// LoanID identifies a loan aggregate.
type LoanID struct {
	value uuid.UUID
}

func NewLoanID() LoanID {
	return LoanID{value: uuid.New()}
}

func LoanIDFrom(id uuid.UUID) LoanID {
	return LoanID{value: id}
}

func ParseLoanID(s string) (LoanID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return LoanID{}, err
	}
	return LoanID{value: id}, nil
}

func (id LoanID) UUID() uuid.UUID {
	return id.value
}

func (id LoanID) String() string {
	return id.value.String()
}

func (id LoanID) MarshalText() ([]byte, error) {
	return []byte(id.value.String()), nil
}

func (id *LoanID) UnmarshalText(data []byte) error {
	parsed, err := uuid.ParseBytes(data)
	if err != nil {
		return err
	}
	id.value = parsed
	return nil
}

// BookID references a book in the catalog context. Only the id crosses the
// context boundary, never catalog data.
type BookID struct {
	value uuid.UUID
}

func NewBookID() BookID {
	return BookID{value: uuid.New()}
}

func BookIDFrom(id uuid.UUID) BookID {
	return BookID{value: id}
}

func ParseBookID(s string) (BookID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return BookID{}, err
	}
	return BookID{value: id}, nil
}

func (id BookID) UUID() uuid.UUID {
	return id.value
}

func (id BookID) String() string {
	return id.value.String()
}

func (id BookID) MarshalText() ([]byte, error) {
	return []byte(id.value.String()), nil
}

func (id *BookID) UnmarshalText(data []byte) error {
	parsed, err := uuid.ParseBytes(data)
	if err != nil {
		return err
	}
	id.value = parsed
	return nil
}

// MemberID references a member in the membership context.
type MemberID struct {
	value uuid.UUID
}

func NewMemberID() MemberID {
	return MemberID{value: uuid.New()}
}

func MemberIDFrom(id uuid.UUID) MemberID {
	return MemberID{value: id}
}

func ParseMemberID(s string) (MemberID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return MemberID{}, err
	}
	return MemberID{value: id}, nil
}

func (id MemberID) UUID() uuid.UUID {
	return id.value
}

func (id MemberID) String() string {
	return id.value.String()
}

func (id MemberID) MarshalText() ([]byte, error) {
	return []byte(id.value.String()), nil
}

func (id *MemberID) UnmarshalText(data []byte) error {
	parsed, err := uuid.ParseBytes(data)
	if err != nil {
		return err
	}
	id.value = parsed
	return nil
}

// StaffID references the staff member who recorded an action.
type StaffID struct {
	value uuid.UUID
}

func NewStaffID() StaffID {
	return StaffID{value: uuid.New()}
}

func StaffIDFrom(id uuid.UUID) StaffID {
	return StaffID{value: id}
}

func ParseStaffID(s string) (StaffID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return StaffID{}, err
	}
	return StaffID{value: id}, nil
}

func (id StaffID) UUID() uuid.UUID {
	return id.value
}

func (id StaffID) String() string {
	return id.value.String()
}

func (id StaffID) MarshalText() ([]byte, error) {
	return []byte(id.value.String()), nil
}

func (id *StaffID) UnmarshalText(data []byte) error {
	parsed, err := uuid.ParseBytes(data)
	if err != nil {
		return err
	}
	id.value = parsed
	return nil
}
