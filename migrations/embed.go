// Package migrations embeds the catalog schema scripts.
package migrations

import "embed"

// FS holds the V{version}__{description}.sql scripts applied at startup.
//
//go:embed *.sql
var FS embed.FS
