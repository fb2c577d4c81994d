package service

import (
	"context"
	"fmt"

	"musicclub-backend/internal/domain"
	"musicclub-backend/internal/logger"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

type sendGridEmailService struct {
	apiKey    string
	fromEmail string
	fromName  string
	endpoint  string
}

// NewEmailService returns a SendGrid-backed sender, or a sender that only
// logs when apiKey is empty.
func NewEmailService(apiKey, fromEmail, fromName string) EmailService {
	if apiKey == "" {
		logger.Warn("SendGrid API key not configured, outbound email is disabled")
		return logOnlyEmailService{}
	}
	return &sendGridEmailService{apiKey: apiKey, fromEmail: fromEmail, fromName: fromName}
}

func (s *sendGridEmailService) SendApplicationApproved(ctx context.Context, app *domain.Application) error {
	subject := "Your membership application was approved"
	body := fmt.Sprintf("Hello %s,\n\nWelcome to the club! Your membership application has been approved.", app.FirstName)
	if app.AutoApproved {
		body += "\n\nYou were found on the community roster, so no manual review was needed."
	}
	body += "\n\nSee you at the next rehearsal,\nThe Music Club Team"
	return s.send(ctx, app, subject, body)
}

func (s *sendGridEmailService) SendApplicationRejected(ctx context.Context, app *domain.Application) error {
	subject := "Your membership application"
	body := fmt.Sprintf("Hello %s,\n\nUnfortunately your membership application was not accepted.", app.FirstName)
	if app.RejectionReason != "" {
		body += fmt.Sprintf("\n\nReason: %s", app.RejectionReason)
	}
	body += "\n\nBest regards,\nThe Music Club Team"
	return s.send(ctx, app, subject, body)
}

func (s *sendGridEmailService) SendAccountCreated(ctx context.Context, app *domain.Application, temporaryPassword string) error {
	subject := "Your music club account"
	body := fmt.Sprintf("Hello %s,\n\nAn account has been created for %s.\n\nTemporary password: %s\n\nPlease change it after your first sign-in.\n\nBest regards,\nThe Music Club Team",
		app.FirstName, app.Email, temporaryPassword)
	return s.send(ctx, app, subject, body)
}

func (s *sendGridEmailService) send(ctx context.Context, app *domain.Application, subject, plainText string) error {
	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail(app.FullName(), app.Email)
	message := mail.NewSingleEmail(from, subject, to, plainText, "")

	client := sendgrid.NewSendClient(s.apiKey)
	if s.endpoint != "" {
		client.BaseURL = s.endpoint
	}

	logger.ExternalServiceCall("sendgrid", "mail.send", "applicationID", app.ID, "subject", subject)
	response, err := client.SendWithContext(ctx, message)
	if err == nil && response.StatusCode >= 400 {
		err = fmt.Errorf("sendgrid error: status %d, body: %s", response.StatusCode, response.Body)
	}
	logger.ExternalServiceResult("sendgrid", "mail.send", err, "applicationID", app.ID)
	if err != nil {
		return &domain.ExternalServiceError{Service: "sendgrid", Err: err}
	}
	return nil
}

type logOnlyEmailService struct{}

func (logOnlyEmailService) SendApplicationApproved(ctx context.Context, app *domain.Application) error {
	logger.InfoContext(ctx, "Email disabled, skipping approval email", "applicationID", app.ID, "to", app.Email)
	return nil
}

func (logOnlyEmailService) SendApplicationRejected(ctx context.Context, app *domain.Application) error {
	logger.InfoContext(ctx, "Email disabled, skipping rejection email", "applicationID", app.ID, "to", app.Email)
	return nil
}

func (logOnlyEmailService) SendAccountCreated(ctx context.Context, app *domain.Application, _ string) error {
	logger.InfoContext(ctx, "Email disabled, skipping account email", "applicationID", app.ID, "to", app.Email)
	return nil
}
