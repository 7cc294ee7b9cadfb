// Package migrations embeds the goose migrations that define the modhub schema.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
