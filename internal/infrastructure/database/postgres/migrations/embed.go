// Package migrations embeds the PostgreSQL schema for the pairs store.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS

//Personal.AI order the ending
