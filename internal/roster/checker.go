package roster

import (
	"context"
	"fmt"
	"strings"
	"time"

	"musicclub-backend/internal/domain"
	"musicclub-backend/internal/logger"
	"musicclub-backend/internal/repository"

	"github.com/google/uuid"
)

// SourceChecker answers lookups from a roster Source and mirrors each match
// into the member collection. Members already in the collection also count
// as matches, so an imported member is still found while the source is
// unreachable.
type SourceChecker struct {
	source  Source
	members repository.MemberRepository
	now     func() time.Time
}

func NewSourceChecker(source Source, members repository.MemberRepository) *SourceChecker {
	return &SourceChecker{source: source, members: members, now: time.Now}
}

func (c *SourceChecker) CheckStudentNumber(ctx context.Context, studentNumber string) (Result, error) {
	studentNumber = strings.TrimSpace(studentNumber)
	if studentNumber == "" {
		return Result{Status: domain.RosterCheckNotFound}, nil
	}

	rows, err := c.source.Rows(ctx)
	if err != nil {
		member, lerr := c.members.GetByStudentNumber(ctx, studentNumber)
		if lerr == nil && member != nil {
			logger.Warn("Roster source unavailable, matched stored member", "memberID", member.ID, "error", err)
			return found(member.ID), nil
		}
		return errorResult(err)
	}

	for _, row := range rows {
		if row.StudentNumber != studentNumber {
			continue
		}
		member, err := c.mirror(ctx, row)
		if err != nil {
			return errorResult(fmt.Errorf("failed to record roster member: %w", err))
		}
		logger.Debug("Roster match", "line", row.Line, "memberID", member.ID)
		return found(member.ID), nil
	}

	member, err := c.members.GetByStudentNumber(ctx, studentNumber)
	if err != nil {
		return errorResult(fmt.Errorf("failed to look up member: %w", err))
	}
	if member != nil {
		logger.Debug("Member collection match", "memberID", member.ID, "source", member.Source)
		return found(member.ID), nil
	}
	return Result{Status: domain.RosterCheckNotFound}, nil
}

func found(memberID string) Result {
	return Result{Status: domain.RosterCheckFound, MatchedMemberRef: &memberID}
}

func (c *SourceChecker) mirror(ctx context.Context, row Row) (*domain.CommunityMember, error) {
	m := memberFromRow(row, c.now())
	if err := c.members.Upsert(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func memberFromRow(row Row, at time.Time) *domain.CommunityMember {
	return &domain.CommunityMember{
		ID:            uuid.NewString(),
		StudentNumber: row.StudentNumber,
		FullName:      row.FullName,
		Department:    row.Department,
		Email:         row.Email,
		Source:        domain.MemberSourceRoster,
		ImportedAt:    at.UTC(),
	}
}

// Importer copies the whole roster into the member collection.
type Importer struct {
	source  Source
	members repository.MemberRepository
}

func NewImporter(source Source, members repository.MemberRepository) *Importer {
	return &Importer{source: source, members: members}
}

// Import upserts every roster row and returns how many were written. Rows
// that fail are logged and skipped.
func (im *Importer) Import(ctx context.Context) (int, error) {
	rows, err := im.source.Rows(ctx)
	if err != nil {
		return 0, &domain.ExternalServiceError{Service: serviceName, Err: err}
	}

	now := time.Now()
	imported := 0
	for _, row := range rows {
		if err := im.members.Upsert(ctx, memberFromRow(row, now)); err != nil {
			logger.Error("Failed to import roster row", "line", row.Line, "error", err)
			continue
		}
		imported++
	}
	return imported, nil
}
