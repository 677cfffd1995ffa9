// Package migrations embeds the goose migrations of the identity server
// PostgreSQL database.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
