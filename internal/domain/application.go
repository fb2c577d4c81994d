package domain

import (
	"regexp"
	"strings"
	"time"
)

type ApplicationStatus string

const (
	ApplicationStatusPending  ApplicationStatus = "PENDING"
	ApplicationStatusApproved ApplicationStatus = "APPROVED"
	ApplicationStatusRejected ApplicationStatus = "REJECTED"
)

// Valid reports whether s is one of the known statuses.
func (s ApplicationStatus) Valid() bool {
	switch s {
	case ApplicationStatusPending, ApplicationStatusApproved, ApplicationStatusRejected:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition may leave s.
func (s ApplicationStatus) IsTerminal() bool {
	return s == ApplicationStatusApproved || s == ApplicationStatusRejected
}

// CanTransitionTo encodes the application state machine. PENDING is the
// only state with outgoing edges.
func (s ApplicationStatus) CanTransitionTo(next ApplicationStatus) bool {
	switch s {
	case ApplicationStatusPending:
		return next == ApplicationStatusApproved || next == ApplicationStatusRejected
	case ApplicationStatusApproved, ApplicationStatusRejected:
		return false
	}
	return false
}

type RosterCheckStatus string

const (
	RosterCheckNotChecked RosterCheckStatus = "NOT_CHECKED"
	RosterCheckFound      RosterCheckStatus = "FOUND"
	RosterCheckNotFound   RosterCheckStatus = "NOT_FOUND"
	RosterCheckError      RosterCheckStatus = "ERROR"
)

func (s RosterCheckStatus) Valid() bool {
	switch s {
	case RosterCheckNotChecked, RosterCheckFound, RosterCheckNotFound, RosterCheckError:
		return true
	}
	return false
}

type ApplicationSource string

const (
	ApplicationSourceWebsite ApplicationSource = "WEBSITE"
	ApplicationSourceAdmin   ApplicationSource = "ADMIN"
)

func (s ApplicationSource) Valid() bool {
	return s == ApplicationSourceWebsite || s == ApplicationSourceAdmin
}

// Field limits shared by validation and the schema.
const (
	MaxNameLength               = 100
	MaxAutoApprovalReasonLength = 200
	MaxRejectionReasonLength    = 500
	MaxProcessingNotesLength    = 1000
)

var nationalIDPattern = regexp.MustCompile(`^[1-9][0-9]{10}$`)

// IsValidNationalID reports whether id is exactly 11 digits with a non-zero
// first digit.
func IsValidNationalID(id string) bool {
	return nationalIDPattern.MatchString(id)
}

// Application is one membership request. MatchedMemberRef, ReviewerRef and
// CreatedAccountRef are lookup keys only; the referenced rows may disappear
// without affecting the application.
type Application struct {
	ID            string  `json:"id"`
	FirstName     string  `json:"firstName"`
	LastName      string  `json:"lastName"`
	Email         string  `json:"email"`
	NationalID    *string `json:"nationalId,omitempty"`
	StudentNumber *string `json:"studentNumber,omitempty"`
	Phone         *string `json:"phone,omitempty"`
	Department    *string `json:"department,omitempty"`

	RosterCheckStatus RosterCheckStatus `json:"rosterCheckStatus"`
	RosterCheckedAt   *time.Time        `json:"rosterCheckedAt,omitempty"`
	MatchedMemberRef  *string           `json:"matchedMemberRef,omitempty"`

	Status             ApplicationStatus `json:"status"`
	AutoApproved       bool              `json:"autoApproved"`
	AutoApprovalReason string            `json:"autoApprovalReason,omitempty"`
	RejectionReason    string            `json:"rejectionReason,omitempty"`
	RejectedAt         *time.Time        `json:"rejectedAt,omitempty"`
	ApprovalDate       *time.Time        `json:"approvalDate,omitempty"`
	ReviewerRef        *string           `json:"reviewerRef,omitempty"`

	CreatedAccountRef *string    `json:"createdAccountRef,omitempty"`
	AccountCreatedAt  *time.Time `json:"accountCreatedAt,omitempty"`

	Source          ApplicationSource `json:"source"`
	SubmittedAt     time.Time         `json:"submittedAt"`
	IPAddress       string            `json:"ipAddress,omitempty"`
	UserAgent       string            `json:"userAgent,omitempty"`
	ProcessingNotes string            `json:"processingNotes,omitempty"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}

// HasIdentification reports whether at least one of national ID and student
// number is present.
func (a *Application) HasIdentification() bool {
	return nonEmpty(a.NationalID) || nonEmpty(a.StudentNumber)
}

func (a *Application) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// StatusLabel is the display text shown in the admin panel.
func (a *Application) StatusLabel() string {
	switch a.Status {
	case ApplicationStatusPending:
		return "Pending review"
	case ApplicationStatusApproved:
		if a.AutoApproved {
			return "Approved (automatic)"
		}
		return "Approved"
	case ApplicationStatusRejected:
		return "Rejected"
	}
	return string(a.Status)
}

// ApplicationFilter narrows List results. A nil Status returns every status.
type ApplicationFilter struct {
	Status *ApplicationStatus
	Limit  int
	Offset int
}

// StatusUpdate carries the fields written by an admin transition. Timestamp
// fields are only written when the stored value is still NULL.
type StatusUpdate struct {
	Status             ApplicationStatus
	ReviewerRef        string
	AutoApprovalReason string
	RejectionReason    string
	At                 time.Time
}

func nonEmpty(s *string) bool {
	return s != nil && strings.TrimSpace(*s) != ""
}
