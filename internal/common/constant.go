// Package common contains shared constants and sentinel errors used across
// IntelliHome components.
package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the
// access token on outbound requests.
const AccessTokenHeaderName = "access_token"

// MaxFailedLogins is the default number of consecutive wrong passwords after
// which an account is locked.
const MaxFailedLogins = 3
