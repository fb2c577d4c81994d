package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"musicclub-backend/internal/domain"
	"musicclub-backend/internal/logger"
	"musicclub-backend/internal/repository"
)

const applicationColumns = `id, first_name, last_name, email, national_id, student_number, phone, department,
	roster_check_status, roster_checked_at, matched_member_ref,
	status, auto_approved, auto_approval_reason, rejection_reason, rejected_at, approval_date, reviewer_ref,
	created_account_ref, account_created_at,
	source, submitted_at, ip_address, user_agent, processing_notes, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanApplication(row rowScanner) (*domain.Application, error) {
	a := &domain.Application{}
	err := row.Scan(
		&a.ID, &a.FirstName, &a.LastName, &a.Email, &a.NationalID, &a.StudentNumber, &a.Phone, &a.Department,
		&a.RosterCheckStatus, &a.RosterCheckedAt, &a.MatchedMemberRef,
		&a.Status, &a.AutoApproved, &a.AutoApprovalReason, &a.RejectionReason, &a.RejectedAt, &a.ApprovalDate, &a.ReviewerRef,
		&a.CreatedAccountRef, &a.AccountCreatedAt,
		&a.Source, &a.SubmittedAt, &a.IPAddress, &a.UserAgent, &a.ProcessingNotes, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

type applicationRepository struct {
	db *sql.DB
}

func NewApplicationRepository(db *sql.DB) repository.ApplicationRepository {
	return &applicationRepository{db: db}
}

func (r *applicationRepository) Create(ctx context.Context, a *domain.Application) error {
	logger.EnterMethod("applicationRepository.Create", "applicationID", a.ID)

	query := `INSERT INTO applications (id, first_name, last_name, email, national_id, student_number, phone, department,
	              roster_check_status, roster_checked_at, matched_member_ref,
	              status, auto_approved, auto_approval_reason, approval_date,
	              source, submitted_at, ip_address, user_agent, processing_notes, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`
	logger.DatabaseCall("INSERT", "applications", "applicationID", a.ID)

	res, err := r.db.ExecContext(ctx, query,
		a.ID, a.FirstName, a.LastName, a.Email, a.NationalID, a.StudentNumber, a.Phone, a.Department,
		a.RosterCheckStatus, a.RosterCheckedAt, a.MatchedMemberRef,
		a.Status, a.AutoApproved, a.AutoApprovalReason, a.ApprovalDate,
		a.Source, a.SubmittedAt, a.IPAddress, a.UserAgent, a.ProcessingNotes, a.UpdatedAt,
	)
	if err != nil {
		logger.DatabaseResult("INSERT", 0, err, "applicationID", a.ID)
		logger.ExitMethodWithError("applicationRepository.Create", err, "applicationID", a.ID)
		return translateError(err)
	}
	n, _ := res.RowsAffected()
	logger.DatabaseResult("INSERT", n, nil, "applicationID", a.ID)
	logger.ExitMethod("applicationRepository.Create", "applicationID", a.ID)
	return nil
}

func (r *applicationRepository) GetByID(ctx context.Context, id string) (*domain.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE id = $1`
	a, err := scanApplication(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Resource: "application", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *applicationRepository) List(ctx context.Context, filter domain.ApplicationFilter) ([]domain.Application, error) {
	var (
		where []string
		args  []any
	)
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}

	query := `SELECT ` + applicationColumns + ` FROM applications`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY submitted_at DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	return r.queryList(ctx, query, args...)
}

func (r *applicationRepository) ListPendingByRosterStatus(ctx context.Context, status domain.RosterCheckStatus, limit int) ([]domain.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications
	          WHERE status = 'PENDING' AND roster_check_status = $1 AND student_number IS NOT NULL
	          ORDER BY submitted_at ASC LIMIT $2`
	return r.queryList(ctx, query, status, limit)
}

func (r *applicationRepository) queryList(ctx context.Context, query string, args ...any) ([]domain.Application, error) {
	logger.DatabaseCall("SELECT", "applications", "args", len(args))
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		logger.DatabaseResult("SELECT", 0, err)
		return nil, err
	}
	defer rows.Close()

	var apps []domain.Application
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	logger.DatabaseResult("SELECT", int64(len(apps)), nil)
	return apps, nil
}

// FindByIdentification returns the first application whose national ID or
// student number matches. Empty arguments are ignored; with both empty it
// returns nil without querying.
func (r *applicationRepository) FindByIdentification(ctx context.Context, nationalID, studentNumber string) (*domain.Application, error) {
	var (
		conds []string
		args  []any
	)
	if nationalID != "" {
		args = append(args, nationalID)
		conds = append(conds, fmt.Sprintf("national_id = $%d", len(args)))
	}
	if studentNumber != "" {
		args = append(args, studentNumber)
		conds = append(conds, fmt.Sprintf("student_number = $%d", len(args)))
	}
	if len(conds) == 0 {
		return nil, nil
	}

	query := `SELECT ` + applicationColumns + ` FROM applications WHERE ` + strings.Join(conds, " OR ") +
		` ORDER BY submitted_at ASC LIMIT 1`
	a, err := scanApplication(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *applicationRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return exists(ctx, r.db, `SELECT EXISTS (SELECT 1 FROM applications WHERE LOWER(email) = LOWER($1))`, email)
}

func (r *applicationRepository) ExistsByNationalID(ctx context.Context, nationalID string) (bool, error) {
	return exists(ctx, r.db, `SELECT EXISTS (SELECT 1 FROM applications WHERE national_id = $1)`, nationalID)
}

func (r *applicationRepository) ExistsByStudentNumber(ctx context.Context, studentNumber string) (bool, error) {
	return exists(ctx, r.db, `SELECT EXISTS (SELECT 1 FROM applications WHERE student_number = $1)`, studentNumber)
}

// Transition applies an admin decision only while the row still has status
// from. Approval and rejection timestamps are written only when NULL.
func (r *applicationRepository) Transition(ctx context.Context, id string, from domain.ApplicationStatus, u domain.StatusUpdate) (*domain.Application, error) {
	logger.EnterMethod("applicationRepository.Transition", "applicationID", id, "from", from, "to", u.Status)

	query := `UPDATE applications SET
	              status = $3::text,
	              reviewer_ref = $4,
	              auto_approved = CASE WHEN $3::text = 'APPROVED' THEN FALSE ELSE auto_approved END,
	              auto_approval_reason = CASE WHEN $3::text = 'APPROVED' THEN $5 ELSE auto_approval_reason END,
	              approval_date = CASE WHEN $3::text = 'APPROVED' THEN COALESCE(approval_date, $7) ELSE approval_date END,
	              rejection_reason = CASE WHEN $3::text = 'REJECTED' THEN $6 ELSE rejection_reason END,
	              rejected_at = CASE WHEN $3::text = 'REJECTED' THEN COALESCE(rejected_at, $7) ELSE rejected_at END,
	              updated_at = $7
	          WHERE id = $1 AND status = $2
	          RETURNING ` + applicationColumns
	logger.DatabaseCall("UPDATE", "applications", "applicationID", id)

	a, err := scanApplication(r.db.QueryRowContext(ctx, query,
		id, from, u.Status, u.ReviewerRef, u.AutoApprovalReason, u.RejectionReason, u.At,
	))
	if errors.Is(err, sql.ErrNoRows) {
		logger.DatabaseResult("UPDATE", 0, nil, "applicationID", id)
		logger.ExitMethod("applicationRepository.Transition", "applicationID", id, "stale", true)
		return nil, repository.ErrStaleState
	}
	if err != nil {
		logger.DatabaseResult("UPDATE", 0, err, "applicationID", id)
		logger.ExitMethodWithError("applicationRepository.Transition", err, "applicationID", id)
		return nil, translateError(err)
	}
	logger.DatabaseResult("UPDATE", 1, nil, "applicationID", id)
	logger.ExitMethod("applicationRepository.Transition", "applicationID", id)
	return a, nil
}

// RecordRosterCheck stores a later roster result on a still-pending
// application.
func (r *applicationRepository) RecordRosterCheck(ctx context.Context, id string, status domain.RosterCheckStatus, memberRef *string, at time.Time) error {
	query := `UPDATE applications SET roster_check_status = $2, roster_checked_at = $3,
	              matched_member_ref = COALESCE($4, matched_member_ref), updated_at = $3
	          WHERE id = $1 AND status = 'PENDING'`
	res, err := r.db.ExecContext(ctx, query, id, status, at, memberRef)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrStaleState
	}
	return nil
}

// RecordAccountCreated links the account created for an approved
// application. The first recorded reference and timestamp win.
func (r *applicationRepository) RecordAccountCreated(ctx context.Context, id, accountRef string) (*domain.Application, error) {
	query := `UPDATE applications SET
	              created_account_ref = COALESCE(created_account_ref, $2),
	              account_created_at = COALESCE(account_created_at, $3),
	              updated_at = $3
	          WHERE id = $1 AND status = 'APPROVED'
	          RETURNING ` + applicationColumns
	a, err := scanApplication(r.db.QueryRowContext(ctx, query, id, accountRef, time.Now().UTC()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrStaleState
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func exists(ctx context.Context, db *sql.DB, query string, arg any) (bool, error) {
	var found bool
	if err := db.QueryRowContext(ctx, query, arg).Scan(&found); err != nil {
		return false, err
	}
	return found, nil
}
