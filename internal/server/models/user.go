// Package models defines the server-side data models of the identity service.
package models

import "time"

// AccountStatus is the lock state of an account.
type AccountStatus string

const (
	StatusActive AccountStatus = "active"
	StatusLocked AccountStatus = "locked"
)

// DefaultRoleID is assigned to every self-registered account.
const DefaultRoleID = 2

// User is a row of the users table. Secrets are stored only as hashes:
// bcrypt for the password and the recovery answer, hex SHA-256 for the
// biometric login token.
type User struct {
	ID        string
	Username  string
	Email     string
	Phone     string
	FirstName string
	LastName  string
	BirthDate time.Time
	Address   string
	RoleID    int

	PasswordHash       []byte
	RecoveryQuestionID int
	RecoveryAnswerHash []byte

	AllowBiometric bool
	TokenHash      string

	FailedAttempts int
	Status         AccountStatus
	CreatedAt      time.Time
}

// Locked reports whether the account refuses logins.
func (u *User) Locked() bool {
	return u.Status == StatusLocked
}
