package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"musicclub-backend/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemberRepository_GetByStudentNumber(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewMemberRepository(db)
	ctx := context.Background()
	columns := []string{"id", "student_number", "full_name", "department", "email", "source", "imported_at"}

	t.Run("Found", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, student_number, full_name, department, email, source, imported_at FROM community_members").
			WithArgs("201912345").
			WillReturnRows(sqlmock.NewRows(columns).AddRow("M1", "201912345", "Ada Lovelace", "Music", "ada@example.edu", "ROSTER", time.Now()))

		m, err := repo.GetByStudentNumber(ctx, "201912345")
		require.NoError(t, err)
		require.NotNil(t, m)
		assert.Equal(t, "M1", m.ID)
		assert.Equal(t, domain.MemberSourceRoster, m.Source)
	})

	t.Run("Missing", func(t *testing.T) {
		mock.ExpectQuery("SELECT id, student_number").
			WithArgs("000").
			WillReturnRows(sqlmock.NewRows(columns))

		m, err := repo.GetByStudentNumber(ctx, "000")
		assert.NoError(t, err)
		assert.Nil(t, m)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMemberRepository_Upsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewMemberRepository(db)
	ctx := context.Background()
	member := &domain.CommunityMember{
		ID:            "new-id",
		StudentNumber: "201912345",
		FullName:      "Ada Lovelace",
		Source:        domain.MemberSourceRoster,
		ImportedAt:    time.Now(),
	}

	t.Run("KeepsStoredID", func(t *testing.T) {
		mock.ExpectQuery("INSERT INTO community_members").
			WithArgs("new-id", member.StudentNumber, member.FullName, "", "", member.Source, member.ImportedAt).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("M1"))

		require.NoError(t, repo.Upsert(ctx, member))
		assert.Equal(t, "M1", member.ID)
	})

	t.Run("Error", func(t *testing.T) {
		mock.ExpectQuery("INSERT INTO community_members").
			WillReturnError(errors.New("db down"))

		assert.Error(t, repo.Upsert(ctx, member))
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}
