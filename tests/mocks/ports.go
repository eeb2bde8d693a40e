package mocks

import (
	"context"
	"time"

	"github.com/cozy-corner/library-lending/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockMemberService struct {
	mock.Mock
}

func (m *MockMemberService) Exists(ctx context.Context, memberID domain.MemberID) (bool, error) {
	args := m.Called(ctx, memberID)
	return args.Bool(0), args.Error(1)
}

func (m *MockMemberService) HasOverdueLoans(ctx context.Context, memberID domain.MemberID) (bool, error) {
	args := m.Called(ctx, memberID)
	return args.Bool(0), args.Error(1)
}

type MockCatalogService struct {
	mock.Mock
}

func (m *MockCatalogService) IsAvailableForLoan(ctx context.Context, bookID domain.BookID) (bool, error) {
	args := m.Called(ctx, bookID)
	return args.Bool(0), args.Error(1)
}

func (m *MockCatalogService) GetBookTitle(ctx context.Context, bookID domain.BookID) (string, error) {
	args := m.Called(ctx, bookID)
	return args.String(0), args.Error(1)
}

type MockNotificationService struct {
	mock.Mock
}

func (m *MockNotificationService) SendOverdueNotification(ctx context.Context, memberID domain.MemberID, bookTitle string, dueDate time.Time) error {
	args := m.Called(ctx, memberID, bookTitle, dueDate)
	return args.Error(0)
}

func (m *MockNotificationService) SendExtensionConfirmation(ctx context.Context, memberID domain.MemberID, bookTitle string, newDueDate time.Time) error {
	args := m.Called(ctx, memberID, bookTitle, newDueDate)
	return args.Error(0)
}

func (m *MockNotificationService) SendReturnConfirmation(ctx context.Context, memberID domain.MemberID, bookTitle string, wasOverdue bool) error {
	args := m.Called(ctx, memberID, bookTitle, wasOverdue)
	return args.Error(0)
}
