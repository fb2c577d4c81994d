package postgres

import (
	"context"
	"testing"
	"time"

	"musicclub-backend/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewAccountRepository(db)
	ctx := context.Background()
	sn := "201912345"
	account := &domain.Account{
		ID:            "U1",
		Email:         "ada@example.edu",
		StudentNumber: &sn,
		FullName:      "Ada Lovelace",
		Role:          domain.AccountRoleMember,
		PasswordHash:  "hash",
		CreatedAt:     time.Now(),
	}

	t.Run("Success", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO accounts").
			WithArgs(account.ID, account.Email, nil, account.StudentNumber, account.FullName, account.Role, account.PasswordHash, account.CreatedAt).
			WillReturnResult(sqlmock.NewResult(1, 1))

		assert.NoError(t, repo.Create(ctx, account))
	})

	t.Run("DuplicateEmail", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO accounts").
			WillReturnError(&pq.Error{Code: "23505", Constraint: "accounts_email_key"})

		err := repo.Create(ctx, account)
		var ce *domain.ConflictError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, "email", ce.Field)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepository_GetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewAccountRepository(db)
	ctx := context.Background()
	columns := []string{"id", "email", "national_id", "student_number", "full_name", "role", "password_hash", "created_at"}

	t.Run("Found", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, email, national_id, student_number, full_name, role, password_hash, created_at FROM accounts").
			WithArgs("U1").
			WillReturnRows(sqlmock.NewRows(columns).AddRow("U1", "ada@example.edu", nil, "201912345", "Ada Lovelace", "MEMBER", "hash", time.Now()))

		a, err := repo.GetByID(ctx, "U1")
		require.NoError(t, err)
		assert.Equal(t, "ada@example.edu", a.Email)
		assert.Nil(t, a.NationalID)
		require.NotNil(t, a.StudentNumber)
		assert.Equal(t, "201912345", *a.StudentNumber)
		assert.Equal(t, domain.AccountRoleMember, a.Role)
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, email").
			WithArgs("missing").
			WillReturnRows(sqlmock.NewRows(columns))

		a, err := repo.GetByID(ctx, "missing")
		assert.Nil(t, a)
		var nf *domain.NotFoundError
		assert.ErrorAs(t, err, &nf)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAccountRepository_Exists(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewAccountRepository(db)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM accounts WHERE LOWER\(email\)`).
		WithArgs("Ada@Example.edu").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM accounts WHERE national_id`).
		WithArgs("12345678901").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM accounts WHERE student_number`).
		WithArgs("201912345").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	found, err := repo.ExistsByEmail(ctx, "Ada@Example.edu")
	require.NoError(t, err)
	assert.True(t, found)

	found, err = repo.ExistsByNationalID(ctx, "12345678901")
	require.NoError(t, err)
	assert.False(t, found)

	found, err = repo.ExistsByStudentNumber(ctx, "201912345")
	require.NoError(t, err)
	assert.True(t, found)

	assert.NoError(t, mock.ExpectationsWereMet())
}
