// Package migrations embeds the postgres schema of the indexer.
package migrations

import "embed"

// FS contains all migration SQL files.
//
//go:embed *.sql
var FS embed.FS
