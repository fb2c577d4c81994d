package domain

import "time"

type MemberSource string

const (
	MemberSourceRoster MemberSource = "ROSTER"
	MemberSourceManual MemberSource = "MANUAL"
)

// CommunityMember is a known member of the club, usually imported from the
// roster spreadsheet.
type CommunityMember struct {
	ID            string       `json:"id"`
	StudentNumber string       `json:"studentNumber"`
	FullName      string       `json:"fullName"`
	Department    string       `json:"department,omitempty"`
	Email         string       `json:"email,omitempty"`
	Source        MemberSource `json:"source"`
	ImportedAt    time.Time    `json:"importedAt"`
}
