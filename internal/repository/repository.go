package repository

import (
	"context"
	"errors"
	"time"

	"musicclub-backend/internal/domain"
)

// ErrStaleState is returned by guarded updates when the row no longer has
// the expected status.
var ErrStaleState = errors.New("application status changed concurrently")

type ApplicationRepository interface {
	Create(ctx context.Context, app *domain.Application) error
	GetByID(ctx context.Context, id string) (*domain.Application, error)
	List(ctx context.Context, filter domain.ApplicationFilter) ([]domain.Application, error)

	// Identity lookups
	FindByIdentification(ctx context.Context, nationalID, studentNumber string) (*domain.Application, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByNationalID(ctx context.Context, nationalID string) (bool, error)
	ExistsByStudentNumber(ctx context.Context, studentNumber string) (bool, error)

	// Guarded writes
	Transition(ctx context.Context, id string, from domain.ApplicationStatus, update domain.StatusUpdate) (*domain.Application, error)
	RecordRosterCheck(ctx context.Context, id string, status domain.RosterCheckStatus, memberRef *string, at time.Time) error
	RecordAccountCreated(ctx context.Context, id, accountRef string) (*domain.Application, error)
	ListPendingByRosterStatus(ctx context.Context, status domain.RosterCheckStatus, limit int) ([]domain.Application, error)
}

type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByNationalID(ctx context.Context, nationalID string) (bool, error)
	ExistsByStudentNumber(ctx context.Context, studentNumber string) (bool, error)
}

type MemberRepository interface {
	GetByStudentNumber(ctx context.Context, studentNumber string) (*domain.CommunityMember, error)
	Upsert(ctx context.Context, member *domain.CommunityMember) error
}
