// Package models defines the client-side data models of the IntelliHome CLI.
package models

import "time"

// Identity is the account returned by the identity service on a
// successful login or token lookup.
type Identity struct {
	ID            string
	Username      string
	Email         string
	Phone         string
	FirstName     string
	LastName      string
	RoleID        int
	AccountStatus string
}

// DisplayName prefers the person's name and falls back to the username.
func (i Identity) DisplayName() string {
	switch {
	case i.FirstName != "" && i.LastName != "":
		return i.FirstName + " " + i.LastName
	case i.FirstName != "":
		return i.FirstName
	default:
		return i.Username
	}
}

// Session is the result of a password login.
type Session struct {
	Identity    Identity
	AccessToken string
}

// Registration carries the fields of a new account. Token is the opaque
// biometric login token and is only set together with AllowBiometric.
type Registration struct {
	Username  string
	Email     string
	Phone     string
	FirstName string
	LastName  string
	BirthDate time.Time
	Address   string
	Password  string

	RecoveryQuestionID int
	RecoveryAnswer     string

	AllowBiometric bool
	Token          string
}

// RecoveryQuestion is the security question registered for an account.
type RecoveryQuestion struct {
	Identifier string
	QuestionID int
	Text       string
}

// EncryptedTokenRecord is the persisted form of the biometric login token.
// IV is the one used for encryption and is required for decryption.
type EncryptedTokenRecord struct {
	Ciphertext []byte
	IV         []byte
}
