package service

import (
	"context"
	"strings"

	"musicclub-backend/internal/domain"
)

// SubmitInput is a membership application as received from the website or
// entered by an admin.
type SubmitInput struct {
	FirstName       string                   `json:"firstName" validate:"required,max=100"`
	LastName        string                   `json:"lastName" validate:"required,max=100"`
	Email           string                   `json:"email" validate:"required,email,max=254"`
	NationalID      string                   `json:"nationalId" validate:"omitempty,national_id"`
	StudentNumber   string                   `json:"studentNumber" validate:"omitempty,max=32"`
	Phone           string                   `json:"phone" validate:"omitempty,number,min=10,max=11"`
	Department      string                   `json:"department" validate:"omitempty,max=100"`
	ProcessingNotes string                   `json:"processingNotes" validate:"max=1000"`
	Source          domain.ApplicationSource `json:"source"`
	IPAddress       string                   `json:"-"`
	UserAgent       string                   `json:"-"`
}

func (in *SubmitInput) normalize() {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.NationalID = strings.TrimSpace(in.NationalID)
	in.StudentNumber = strings.TrimSpace(in.StudentNumber)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Department = strings.TrimSpace(in.Department)
	if in.Source == "" {
		in.Source = domain.ApplicationSourceWebsite
	}
}

type ApplicationService interface {
	Submit(ctx context.Context, in SubmitInput) (*domain.Application, error)
	Approve(ctx context.Context, id, reviewerID, reason string) (*domain.Application, error)
	Reject(ctx context.Context, id, reviewerID, reason string) (*domain.Application, error)
	Get(ctx context.Context, id string) (*domain.Application, error)
	List(ctx context.Context, filter domain.ApplicationFilter) ([]domain.Application, error)
	FindByIdentification(ctx context.Context, nationalID, studentNumber string) (*domain.Application, error)
	RecordAccountCreated(ctx context.Context, id, accountRef string) (*domain.Application, error)
	RecheckDeferred(ctx context.Context, limit int) (int, error)
	Subscribe(listener ApprovalListener)
}

// ApprovalListener is notified after an application has been committed as
// APPROVED, whether automatically or by an admin. Errors are logged and do
// not undo the approval.
type ApprovalListener interface {
	OnApproved(ctx context.Context, app *domain.Application) error
}

// AccountLinker records the account created for an approved application.
type AccountLinker interface {
	RecordAccountCreated(ctx context.Context, id, accountRef string) (*domain.Application, error)
}

type EmailService interface {
	SendApplicationApproved(ctx context.Context, app *domain.Application) error
	SendApplicationRejected(ctx context.Context, app *domain.Application) error
	SendAccountCreated(ctx context.Context, app *domain.Application, temporaryPassword string) error
}
