// Package migrations embeds SQL migration files for the SQLite store.
//
// Files are applied in lexical order and tracked by name, so a new migration
// must sort after every existing one.
package migrations

import "embed"

// FS contains all SQL migration files embedded at compile time.
//
//go:embed *.sql
var FS embed.FS
