// Package client contains the client-side building blocks for talking to
// the IntelliHome identity service and for bootstrapping local storage.
//
// # Overview
//
//  1. IdentityClient is the transport-agnostic contract of the identity
//     service: Register, Login, LookupByToken, BindToken, RecoveryQuestion,
//     ResetPassword and Ping.
//  2. GRPCClient implements it over gRPC using the identityrpc contract.
//     Calls without a deadline get the configured request timeout.
//  3. InitDatabase and RunMigrations open the local SQLite database and
//     apply the embedded goose migrations.
//
// # Error Handling
//
// gRPC status codes are mapped to sentinel errors matched with errors.Is:
// ErrUnavailable (Unavailable, DeadlineExceeded), ErrUnauthorized
// (Unauthenticated), ErrNotFound (NotFound) and ErrAccountLocked
// (PermissionDenied). InvalidArgument becomes a *common.ValidationError
// carrying the per-field violations sent by the server.
package client
