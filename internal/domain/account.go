package domain

import "time"

type AccountRole string

const (
	AccountRoleMember AccountRole = "MEMBER"
	AccountRoleAdmin  AccountRole = "ADMIN"
)

// Account is a login account owned by the account subsystem. The workflow
// only reads it for uniqueness checks, and the provisioner creates one per
// approved application.
type Account struct {
	ID            string      `json:"id"`
	Email         string      `json:"email"`
	NationalID    *string     `json:"nationalId,omitempty"`
	StudentNumber *string     `json:"studentNumber,omitempty"`
	FullName      string      `json:"fullName"`
	Role          AccountRole `json:"role"`
	PasswordHash  string      `json:"-"`
	CreatedAt     time.Time   `json:"createdAt"`
}
