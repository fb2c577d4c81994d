package service_test

import (
	"context"
	"time"

	"musicclub-backend/internal/domain"
	"musicclub-backend/internal/roster"

	"github.com/stretchr/testify/mock"
)

// MockApplicationRepo
type MockApplicationRepo struct {
	mock.Mock
}

func (m *MockApplicationRepo) Create(ctx context.Context, app *domain.Application) error {
	args := m.Called(ctx, app)
	return args.Error(0)
}

func (m *MockApplicationRepo) GetByID(ctx context.Context, id string) (*domain.Application, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Application), args.Error(1)
}

func (m *MockApplicationRepo) List(ctx context.Context, filter domain.ApplicationFilter) ([]domain.Application, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Application), args.Error(1)
}

func (m *MockApplicationRepo) FindByIdentification(ctx context.Context, nationalID, studentNumber string) (*domain.Application, error) {
	args := m.Called(ctx, nationalID, studentNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Application), args.Error(1)
}

func (m *MockApplicationRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockApplicationRepo) ExistsByNationalID(ctx context.Context, nationalID string) (bool, error) {
	args := m.Called(ctx, nationalID)
	return args.Bool(0), args.Error(1)
}

func (m *MockApplicationRepo) ExistsByStudentNumber(ctx context.Context, studentNumber string) (bool, error) {
	args := m.Called(ctx, studentNumber)
	return args.Bool(0), args.Error(1)
}

func (m *MockApplicationRepo) Transition(ctx context.Context, id string, from domain.ApplicationStatus, update domain.StatusUpdate) (*domain.Application, error) {
	args := m.Called(ctx, id, from, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Application), args.Error(1)
}

func (m *MockApplicationRepo) RecordRosterCheck(ctx context.Context, id string, status domain.RosterCheckStatus, memberRef *string, at time.Time) error {
	args := m.Called(ctx, id, status, memberRef, at)
	return args.Error(0)
}

func (m *MockApplicationRepo) RecordAccountCreated(ctx context.Context, id, accountRef string) (*domain.Application, error) {
	args := m.Called(ctx, id, accountRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Application), args.Error(1)
}

func (m *MockApplicationRepo) ListPendingByRosterStatus(ctx context.Context, status domain.RosterCheckStatus, limit int) ([]domain.Application, error) {
	args := m.Called(ctx, status, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Application), args.Error(1)
}

// MockAccountRepo
type MockAccountRepo struct {
	mock.Mock
}

func (m *MockAccountRepo) Create(ctx context.Context, account *domain.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepo) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockAccountRepo) ExistsByNationalID(ctx context.Context, nationalID string) (bool, error) {
	args := m.Called(ctx, nationalID)
	return args.Bool(0), args.Error(1)
}

func (m *MockAccountRepo) ExistsByStudentNumber(ctx context.Context, studentNumber string) (bool, error) {
	args := m.Called(ctx, studentNumber)
	return args.Bool(0), args.Error(1)
}

// MockRosterChecker
type MockRosterChecker struct {
	mock.Mock
}

func (m *MockRosterChecker) CheckStudentNumber(ctx context.Context, studentNumber string) (roster.Result, error) {
	args := m.Called(ctx, studentNumber)
	return args.Get(0).(roster.Result), args.Error(1)
}

// MockEmailService
type MockEmailService struct {
	mock.Mock
}

func (m *MockEmailService) SendApplicationApproved(ctx context.Context, app *domain.Application) error {
	args := m.Called(ctx, app)
	return args.Error(0)
}

func (m *MockEmailService) SendApplicationRejected(ctx context.Context, app *domain.Application) error {
	args := m.Called(ctx, app)
	return args.Error(0)
}

func (m *MockEmailService) SendAccountCreated(ctx context.Context, app *domain.Application, temporaryPassword string) error {
	args := m.Called(ctx, app, temporaryPassword)
	return args.Error(0)
}

// MockApprovalListener
type MockApprovalListener struct {
	mock.Mock
}

func (m *MockApprovalListener) OnApproved(ctx context.Context, app *domain.Application) error {
	args := m.Called(ctx, app)
	return args.Error(0)
}

// MockAccountLinker
type MockAccountLinker struct {
	mock.Mock
}

func (m *MockAccountLinker) RecordAccountCreated(ctx context.Context, id, accountRef string) (*domain.Application, error) {
	args := m.Called(ctx, id, accountRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Application), args.Error(1)
}

func strPtr(s string) *string { return &s }
