// Package migrations embeds the goose SQL migrations defining the durable
// schema: accounts and their owned entries.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
