// Package migrations embeds the schema migrations and development seed data.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS

//go:embed seed/*.sql
var Seed embed.FS
