package postgres

import (
	"context"
	"database/sql"
	"errors"

	"musicclub-backend/internal/domain"
	"musicclub-backend/internal/repository"
)

type accountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) repository.AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) Create(ctx context.Context, a *domain.Account) error {
	query := `INSERT INTO accounts (id, email, national_id, student_number, full_name, role, password_hash, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.db.ExecContext(ctx, query, a.ID, a.Email, a.NationalID, a.StudentNumber, a.FullName, a.Role, a.PasswordHash, a.CreatedAt)
	return translateError(err)
}

func (r *accountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	a := &domain.Account{}
	query := `SELECT id, email, national_id, student_number, full_name, role, password_hash, created_at FROM accounts WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&a.ID, &a.Email, &a.NationalID, &a.StudentNumber, &a.FullName, &a.Role, &a.PasswordHash, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Resource: "account", ID: id}
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *accountRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return exists(ctx, r.db, `SELECT EXISTS (SELECT 1 FROM accounts WHERE LOWER(email) = LOWER($1))`, email)
}

func (r *accountRepository) ExistsByNationalID(ctx context.Context, nationalID string) (bool, error) {
	return exists(ctx, r.db, `SELECT EXISTS (SELECT 1 FROM accounts WHERE national_id = $1)`, nationalID)
}

func (r *accountRepository) ExistsByStudentNumber(ctx context.Context, studentNumber string) (bool, error) {
	return exists(ctx, r.db, `SELECT EXISTS (SELECT 1 FROM accounts WHERE student_number = $1)`, studentNumber)
}
