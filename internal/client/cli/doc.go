// Package cli provides the interactive IntelliHome command-line client.
//
// It wires configuration, the local SQLite database, the identity server
// client and the biometric login stack, then runs a REPL. Typical flow:
// register (optionally enabling fingerprint login), log in with a
// password or with "fp", and manage fingerprint login with "enable-fp" and
// "disable-fp".
//
// The REPL is started via App.Root(ctx), which blocks until the user exits.
// See App and runREPL for details.
package cli
