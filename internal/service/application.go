package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"musicclub-backend/internal/domain"
	"musicclub-backend/internal/logger"
	"musicclub-backend/internal/repository"
	"musicclub-backend/internal/roster"

	"github.com/google/uuid"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

type applicationService struct {
	apps          repository.ApplicationRepository
	validator     *IdentityValidator
	checker       roster.Checker
	rosterEnabled bool
	emailSvc      EmailService

	mu        sync.RWMutex
	listeners []ApprovalListener

	now   func() time.Time
	newID func() string
}

// NewApplicationService wires the submission workflow. checker may be nil
// when rosterEnabled is false.
func NewApplicationService(
	apps repository.ApplicationRepository,
	validator *IdentityValidator,
	checker roster.Checker,
	rosterEnabled bool,
	emailSvc EmailService,
) ApplicationService {
	return &applicationService{
		apps:          apps,
		validator:     validator,
		checker:       checker,
		rosterEnabled: rosterEnabled && checker != nil,
		emailSvc:      emailSvc,
		now:           time.Now,
		newID:         uuid.NewString,
	}
}

func (s *applicationService) Subscribe(listener ApprovalListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, listener)
}

func (s *applicationService) Submit(ctx context.Context, in SubmitInput) (*domain.Application, error) {
	logger.EnterMethod("applicationService.Submit", "email", in.Email, "source", in.Source)

	in.normalize()
	if err := s.validator.ValidateFormat(&in); err != nil {
		logger.ExitMethodWithError("applicationService.Submit", err, "stage", "format")
		return nil, err
	}
	if err := s.validator.CheckUniqueness(ctx, in.Email, in.NationalID, in.StudentNumber); err != nil {
		logger.ExitMethodWithError("applicationService.Submit", err, "stage", "uniqueness")
		return nil, err
	}

	check := s.checkRoster(ctx, in.StudentNumber)
	decision, err := Decide(s.rosterEnabled, check)
	if err != nil {
		logger.Warn("Application refused: student number not on roster",
			"email", in.Email, "studentNumber", in.StudentNumber, "ip", in.IPAddress)
		logger.ExitMethodWithError("applicationService.Submit", err, "stage", "decision")
		return nil, err
	}

	now := s.now().UTC()
	app := &domain.Application{
		ID:                 s.newID(),
		FirstName:          in.FirstName,
		LastName:           in.LastName,
		Email:              in.Email,
		NationalID:         optional(in.NationalID),
		StudentNumber:      optional(in.StudentNumber),
		Phone:              optional(in.Phone),
		Department:         optional(in.Department),
		RosterCheckStatus:  check.Status,
		Status:             decision.Status,
		AutoApproved:       decision.AutoApproved,
		AutoApprovalReason: decision.AutoApprovalReason,
		Source:             in.Source,
		SubmittedAt:        now,
		IPAddress:          in.IPAddress,
		UserAgent:          in.UserAgent,
		ProcessingNotes:    in.ProcessingNotes,
		UpdatedAt:          now,
	}
	if check.Status != domain.RosterCheckNotChecked {
		app.RosterCheckedAt = &now
	}
	if check.Found() {
		app.MatchedMemberRef = check.MatchedMemberRef
	}
	if decision.Status == domain.ApplicationStatusApproved {
		app.ApprovalDate = &now
	}

	if !app.HasIdentification() {
		return nil, domain.NewValidationError("identification", "missing identification: national ID or student number is required")
	}
	if err := s.apps.Create(ctx, app); err != nil {
		logger.ExitMethodWithError("applicationService.Submit", err, "stage", "create")
		return nil, err
	}

	logger.Info("Application submitted", "applicationID", app.ID, "status", app.Status, "rosterCheck", app.RosterCheckStatus)
	if app.Status == domain.ApplicationStatusApproved {
		s.afterApproval(ctx, app)
	}
	logger.ExitMethod("applicationService.Submit", "applicationID", app.ID)
	return app, nil
}

// checkRoster never fails the submission; lookup errors degrade to ERROR.
func (s *applicationService) checkRoster(ctx context.Context, studentNumber string) roster.Result {
	if !s.rosterEnabled || studentNumber == "" {
		return roster.Result{Status: domain.RosterCheckNotChecked}
	}
	res, err := s.checker.CheckStudentNumber(ctx, studentNumber)
	if err != nil {
		logger.Warn("Roster lookup failed, deferring to manual review", "studentNumber", studentNumber, "error", err)
		return roster.Result{Status: domain.RosterCheckError}
	}
	return res
}

func (s *applicationService) Approve(ctx context.Context, id, reviewerID, reason string) (*domain.Application, error) {
	logger.EnterMethod("applicationService.Approve", "applicationID", id, "reviewer", reviewerID)

	reviewerID = strings.TrimSpace(reviewerID)
	if reviewerID == "" {
		return nil, domain.NewValidationError("reviewer", "reviewer is required")
	}
	reason = strings.TrimSpace(reason)
	explicitReason := reason
	if reason == "" {
		reason = defaultApprovalReason
	}
	if utf8.RuneCountInString(reason) > domain.MaxAutoApprovalReasonLength {
		return nil, domain.NewValidationError("reason", fmt.Sprintf("must be at most %d characters", domain.MaxAutoApprovalReasonLength))
	}

	app, err := s.apps.GetByID(ctx, id)
	if err != nil {
		logger.ExitMethodWithError("applicationService.Approve", err, "applicationID", id)
		return nil, err
	}
	if !app.Status.CanTransitionTo(domain.ApplicationStatusApproved) {
		return approvedOrConflict(app, reviewerID, explicitReason)
	}

	updated, err := s.apps.Transition(ctx, id, domain.ApplicationStatusPending, domain.StatusUpdate{
		Status:             domain.ApplicationStatusApproved,
		ReviewerRef:        reviewerID,
		AutoApprovalReason: reason,
		At:                 s.now().UTC(),
	})
	if errors.Is(err, repository.ErrStaleState) {
		current, gerr := s.apps.GetByID(ctx, id)
		if gerr != nil {
			return nil, gerr
		}
		return approvedOrConflict(current, reviewerID, explicitReason)
	}
	if err != nil {
		logger.ExitMethodWithError("applicationService.Approve", err, "applicationID", id)
		return nil, fmt.Errorf("failed to approve application %s: %w", id, err)
	}

	logger.WithApplication(id).Info("Application approved", "reviewer", reviewerID)
	s.afterApproval(ctx, updated)
	logger.ExitMethod("applicationService.Approve", "applicationID", id)
	return updated, nil
}

// approvedOrConflict resolves an approve request against a record that is
// no longer PENDING. A repeat by the same reviewer is a no-op unless it
// carries a different explicit reason.
func approvedOrConflict(app *domain.Application, reviewerID, explicitReason string) (*domain.Application, error) {
	switch app.Status {
	case domain.ApplicationStatusApproved:
		if app.ReviewerRef == nil || *app.ReviewerRef != reviewerID {
			return nil, domain.NewConflictError("status", "application is already approved")
		}
		if explicitReason != "" && explicitReason != app.AutoApprovalReason {
			return nil, domain.NewConflictError("reason", "application is already approved with a different reason")
		}
		return app, nil
	default:
		return nil, &domain.InvalidTransitionError{From: app.Status, To: domain.ApplicationStatusApproved}
	}
}

func (s *applicationService) Reject(ctx context.Context, id, reviewerID, reason string) (*domain.Application, error) {
	logger.EnterMethod("applicationService.Reject", "applicationID", id, "reviewer", reviewerID)

	reviewerID = strings.TrimSpace(reviewerID)
	if reviewerID == "" {
		return nil, domain.NewValidationError("reviewer", "reviewer is required")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, domain.NewValidationError("reason", "rejection reason is required")
	}
	if utf8.RuneCountInString(reason) > domain.MaxRejectionReasonLength {
		return nil, domain.NewValidationError("reason", fmt.Sprintf("must be at most %d characters", domain.MaxRejectionReasonLength))
	}

	app, err := s.apps.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !app.Status.CanTransitionTo(domain.ApplicationStatusRejected) {
		return nil, &domain.InvalidTransitionError{From: app.Status, To: domain.ApplicationStatusRejected}
	}

	updated, err := s.apps.Transition(ctx, id, domain.ApplicationStatusPending, domain.StatusUpdate{
		Status:          domain.ApplicationStatusRejected,
		ReviewerRef:     reviewerID,
		RejectionReason: reason,
		At:              s.now().UTC(),
	})
	if errors.Is(err, repository.ErrStaleState) {
		current, gerr := s.apps.GetByID(ctx, id)
		if gerr != nil {
			return nil, gerr
		}
		return nil, &domain.InvalidTransitionError{From: current.Status, To: domain.ApplicationStatusRejected}
	}
	if err != nil {
		logger.ExitMethodWithError("applicationService.Reject", err, "applicationID", id)
		return nil, fmt.Errorf("failed to reject application %s: %w", id, err)
	}

	log := logger.WithApplication(id)
	log.Info("Application rejected", "reviewer", reviewerID)
	if s.emailSvc != nil {
		if err := s.emailSvc.SendApplicationRejected(ctx, updated); err != nil {
			log.Error("Failed to send rejection email", "error", err)
		}
	}
	logger.ExitMethod("applicationService.Reject", "applicationID", id)
	return updated, nil
}

// afterApproval runs once per committed APPROVED transition. Nothing here
// can undo the approval.
func (s *applicationService) afterApproval(ctx context.Context, app *domain.Application) {
	if s.emailSvc != nil {
		if err := s.emailSvc.SendApplicationApproved(ctx, app); err != nil {
			logger.Error("Failed to send approval email", "applicationID", app.ID, "error", err)
		}
	}

	s.mu.RLock()
	listeners := append([]ApprovalListener(nil), s.listeners...)
	s.mu.RUnlock()

	for _, l := range listeners {
		if err := l.OnApproved(ctx, app); err != nil {
			logger.Error("Approval listener failed", "applicationID", app.ID, "error", err)
		}
	}
}

func (s *applicationService) Get(ctx context.Context, id string) (*domain.Application, error) {
	return s.apps.GetByID(ctx, id)
}

func (s *applicationService) List(ctx context.Context, filter domain.ApplicationFilter) ([]domain.Application, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, domain.NewValidationError("status", fmt.Sprintf("unknown status %q", *filter.Status))
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.apps.List(ctx, filter)
}

func (s *applicationService) FindByIdentification(ctx context.Context, nationalID, studentNumber string) (*domain.Application, error) {
	return s.validator.FindByIdentification(ctx, nationalID, studentNumber)
}

func (s *applicationService) RecordAccountCreated(ctx context.Context, id, accountRef string) (*domain.Application, error) {
	if strings.TrimSpace(accountRef) == "" {
		return nil, domain.NewValidationError("accountRef", "account reference is required")
	}

	app, err := s.apps.RecordAccountCreated(ctx, id, accountRef)
	if errors.Is(err, repository.ErrStaleState) {
		current, gerr := s.apps.GetByID(ctx, id)
		if gerr != nil {
			return nil, gerr
		}
		return nil, domain.NewConflictError("status", fmt.Sprintf("cannot link an account to a %s application", current.Status))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to record account for application %s: %w", id, err)
	}
	return app, nil
}

// RecheckDeferred retries roster lookups for pending applications whose
// submission-time lookup failed. Only the roster fields are updated; the
// application stays PENDING for an administrator. Returns the number of
// applications whose roster status was resolved.
func (s *applicationService) RecheckDeferred(ctx context.Context, limit int) (int, error) {
	if !s.rosterEnabled {
		return 0, nil
	}

	apps, err := s.apps.ListPendingByRosterStatus(ctx, domain.RosterCheckError, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to list deferred applications: %w", err)
	}

	resolved := 0
	for _, app := range apps {
		if ctx.Err() != nil {
			return resolved, ctx.Err()
		}
		if app.StudentNumber == nil || *app.StudentNumber == "" {
			continue
		}

		res, err := s.checker.CheckStudentNumber(ctx, *app.StudentNumber)
		if err != nil {
			logger.Warn("Roster recheck failed", "applicationID", app.ID, "error", err)
			continue
		}

		var ref *string
		if res.Found() {
			ref = res.MatchedMemberRef
		}
		err = s.apps.RecordRosterCheck(ctx, app.ID, res.Status, ref, s.now().UTC())
		if errors.Is(err, repository.ErrStaleState) {
			continue
		}
		if err != nil {
			return resolved, fmt.Errorf("failed to record roster check for %s: %w", app.ID, err)
		}
		resolved++
	}
	return resolved, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
