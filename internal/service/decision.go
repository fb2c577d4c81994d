package service

import (
	"fmt"
	"unicode/utf8"

	"musicclub-backend/internal/domain"
	"musicclub-backend/internal/roster"
)

const defaultApprovalReason = "Approved by administrator"

// Decision is the initial state of a newly submitted application.
type Decision struct {
	Status             domain.ApplicationStatus
	AutoApproved       bool
	AutoApprovalReason string
}

// Decide maps a roster outcome to the initial application state. A
// NOT_FOUND outcome fails the submission. Decide is pure.
func Decide(rosterEnabled bool, r roster.Result) (Decision, error) {
	pending := Decision{Status: domain.ApplicationStatusPending}
	if !rosterEnabled {
		return pending, nil
	}

	switch r.Status {
	case domain.RosterCheckFound:
		if !r.Found() {
			return pending, nil
		}
		return Decision{
			Status:             domain.ApplicationStatusApproved,
			AutoApproved:       true,
			AutoApprovalReason: autoApprovalReason(*r.MatchedMemberRef),
		}, nil
	case domain.RosterCheckNotFound:
		return Decision{}, domain.NewValidationError("studentNumber", "student number not found in roster")
	default:
		return pending, nil
	}
}

func autoApprovalReason(memberRef string) string {
	reason := fmt.Sprintf("Matched community roster (member %s)", memberRef)
	return truncateRunes(reason, domain.MaxAutoApprovalReasonLength)
}

// truncateRunes cuts s to at most n characters without splitting a rune.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
