package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"musicclub-backend/internal/domain"
	"musicclub-backend/internal/logger"
	"musicclub-backend/internal/repository"

	"github.com/lib/pq"
)

type Store struct {
	db *sql.DB
	repository.ApplicationRepository
	repository.AccountRepository
	repository.MemberRepository
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:                    db,
		ApplicationRepository: NewApplicationRepository(db),
		AccountRepository:     NewAccountRepository(db),
		MemberRepository:      NewMemberRepository(db),
	}
}

// EnsureSchema creates tables and indexes that do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for i, stmt := range schema {
		logger.DatabaseCall("DDL", "schema", "statement", i)
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			logger.DatabaseResult("DDL", 0, err, "statement", i)
			return fmt.Errorf("failed to apply schema statement %d: %w", i, err)
		}
	}
	return nil
}

const (
	pqUniqueViolation = "23505"
	pqCheckViolation  = "23514"
)

// uniqueFields maps constraint and index names to the identity field they
// protect.
var uniqueFields = map[string]string{
	"applications_email_key":          "email",
	"applications_national_id_key":    "nationalId",
	"applications_student_number_key": "studentNumber",
	"accounts_email_key":              "email",
	"accounts_national_id_key":        "nationalId",
	"accounts_student_number_key":     "studentNumber",
}

// translateError turns driver constraint violations into domain errors so a
// lost race surfaces as a normal conflict.
func translateError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code {
	case pqUniqueViolation:
		field := uniqueFields[pqErr.Constraint]
		return domain.NewConflictError(field, "value is already registered")
	case pqCheckViolation:
		return domain.NewValidationError("", fmt.Sprintf("constraint %s violated", pqErr.Constraint))
	}
	return err
}
