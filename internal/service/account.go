package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"musicclub-backend/internal/domain"
	"musicclub-backend/internal/logger"
	"musicclub-backend/internal/repository"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const temporaryPasswordBytes = 12

// AccountProvisioner creates a member account for every approved
// application and links it back to the application.
type AccountProvisioner struct {
	accounts repository.AccountRepository
	linker   AccountLinker
	emailSvc EmailService
	now      func() time.Time
}

func NewAccountProvisioner(accounts repository.AccountRepository, linker AccountLinker, emailSvc EmailService) *AccountProvisioner {
	return &AccountProvisioner{accounts: accounts, linker: linker, emailSvc: emailSvc, now: time.Now}
}

func (p *AccountProvisioner) OnApproved(ctx context.Context, app *domain.Application) error {
	if app.CreatedAccountRef != nil {
		return nil
	}

	password, err := temporaryPassword()
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	account := &domain.Account{
		ID:            uuid.NewString(),
		Email:         app.Email,
		NationalID:    app.NationalID,
		StudentNumber: app.StudentNumber,
		FullName:      app.FullName(),
		Role:          domain.AccountRoleMember,
		PasswordHash:  string(hash),
		CreatedAt:     p.now().UTC(),
	}
	if err := p.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			logger.Warn("Account already exists for approved applicant", "applicationID", app.ID, "error", err)
		}
		return fmt.Errorf("failed to create account for application %s: %w", app.ID, err)
	}

	if _, err := p.linker.RecordAccountCreated(ctx, app.ID, account.ID); err != nil {
		return fmt.Errorf("failed to link account %s: %w", account.ID, err)
	}
	logger.Info("Account provisioned", "applicationID", app.ID, "accountID", account.ID)

	if p.emailSvc != nil {
		if err := p.emailSvc.SendAccountCreated(ctx, app, password); err != nil {
			logger.Error("Failed to send account email", "applicationID", app.ID, "error", err)
		}
	}
	return nil
}

func temporaryPassword() (string, error) {
	b := make([]byte, temporaryPasswordBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate password: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
