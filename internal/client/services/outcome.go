package services

import (
	"fmt"

	"github.com/intelliworks/intellihome/internal/client/models"
)

// State is the position of BiometricAuthenticator in its current flow.
type State int32

const (
	StateIdle State = iota
	StateAwaitingBiometric
	StateEncrypting
	StateDecrypting
	StateCallingRemote
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingBiometric:
		return "awaiting_biometric"
	case StateEncrypting:
		return "encrypting"
	case StateDecrypting:
		return "decrypting"
	case StateCallingRemote:
		return "calling_remote"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	// OutcomeNotOffered means no token record exists; the biometric path
	// was skipped without prompting.
	OutcomeNotOffered
	OutcomeBiometricCancelled
	OutcomeBiometricError
	OutcomeKeyInvalidated
	OutcomeKeyNotFound
	OutcomeCipherInitError
	OutcomeDecryptFailure
	OutcomeInvalidCredentials
	OutcomeNetworkError
	OutcomeValidationFailed
	OutcomeAccountLocked
	OutcomeStorageError
	OutcomeBusy
)

var outcomeNames = map[OutcomeKind]string{
	OutcomeSuccess:            "success",
	OutcomeNotOffered:         "not_offered",
	OutcomeBiometricCancelled: "biometric_cancelled",
	OutcomeBiometricError:     "biometric_error",
	OutcomeKeyInvalidated:     "key_invalidated",
	OutcomeKeyNotFound:        "key_not_found",
	OutcomeCipherInitError:    "cipher_init_error",
	OutcomeDecryptFailure:     "decrypt_failure",
	OutcomeInvalidCredentials: "invalid_credentials",
	OutcomeNetworkError:       "network_error",
	OutcomeValidationFailed:   "validation_failed",
	OutcomeAccountLocked:      "account_locked",
	OutcomeStorageError:       "storage_error",
	OutcomeBusy:               "busy",
}

func (k OutcomeKind) String() string {
	if n, ok := outcomeNames[k]; ok {
		return n
	}
	return fmt.Sprintf("OutcomeKind(%d)", int(k))
}

// Outcome is the single result of a biometric flow. Err keeps the cause
// for logging and is never shown to the user; Validation holds per-field
// messages for OutcomeValidationFailed.
type Outcome struct {
	Kind       OutcomeKind
	Identity   *models.Identity
	Err        error
	Validation map[string]string
}

const invalidCredentialsMessage = "Invalid credentials."

// Message returns the user-facing text for the outcome. Decrypt failures
// read the same as rejected credentials.
func (o Outcome) Message() string {
	switch o.Kind {
	case OutcomeSuccess:
		if o.Identity != nil {
			return "Welcome, " + o.Identity.DisplayName() + "."
		}
		return "Done."
	case OutcomeNotOffered:
		return "Biometric login is not set up on this device."
	case OutcomeBiometricCancelled:
		return "Biometric authentication cancelled."
	case OutcomeBiometricError:
		return "Biometric authentication failed."
	case OutcomeKeyInvalidated:
		return "Your biometric enrollment changed. Log in with your password and enable biometric login again."
	case OutcomeKeyNotFound:
		return "Biometric login is no longer set up on this device. Log in with your password."
	case OutcomeCipherInitError:
		return "Biometric login is unavailable right now."
	case OutcomeDecryptFailure, OutcomeInvalidCredentials:
		return invalidCredentialsMessage
	case OutcomeNetworkError:
		return "Cannot reach the server. Try again later."
	case OutcomeValidationFailed:
		return "The server rejected the registration data."
	case OutcomeAccountLocked:
		return "Account locked. Reset your password to unlock it."
	case OutcomeStorageError:
		return "Local storage is unavailable."
	case OutcomeBusy:
		return "Another authentication is already in progress."
	default:
		return "Unexpected error."
	}
}
