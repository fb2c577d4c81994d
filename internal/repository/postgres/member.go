package postgres

import (
	"context"
	"database/sql"
	"errors"

	"musicclub-backend/internal/domain"
	"musicclub-backend/internal/logger"
	"musicclub-backend/internal/repository"
)

type memberRepository struct {
	db *sql.DB
}

func NewMemberRepository(db *sql.DB) repository.MemberRepository {
	return &memberRepository{db: db}
}

// GetByStudentNumber returns nil, nil when no member has the number.
func (r *memberRepository) GetByStudentNumber(ctx context.Context, studentNumber string) (*domain.CommunityMember, error) {
	m := &domain.CommunityMember{}
	query := `SELECT id, student_number, full_name, department, email, source, imported_at FROM community_members WHERE student_number = $1`
	err := r.db.QueryRowContext(ctx, query, studentNumber).Scan(&m.ID, &m.StudentNumber, &m.FullName, &m.Department, &m.Email, &m.Source, &m.ImportedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Upsert inserts the member or refreshes the row holding the same student
// number. m.ID is replaced with the stored ID.
func (r *memberRepository) Upsert(ctx context.Context, m *domain.CommunityMember) error {
	query := `INSERT INTO community_members (id, student_number, full_name, department, email, source, imported_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)
	          ON CONFLICT (student_number) DO UPDATE SET
	              full_name = EXCLUDED.full_name,
	              department = EXCLUDED.department,
	              email = EXCLUDED.email,
	              imported_at = EXCLUDED.imported_at
	          RETURNING id`
	logger.DatabaseCall("UPSERT", "community_members", "studentNumber", m.StudentNumber)
	err := r.db.QueryRowContext(ctx, query, m.ID, m.StudentNumber, m.FullName, m.Department, m.Email, m.Source, m.ImportedAt).Scan(&m.ID)
	if err != nil {
		logger.DatabaseResult("UPSERT", 0, err, "studentNumber", m.StudentNumber)
		return err
	}
	logger.DatabaseResult("UPSERT", 1, nil, "studentNumber", m.StudentNumber)
	return nil
}
