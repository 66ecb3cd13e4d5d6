// Package migrations ships the goose SQL migrations inside the binaries.
package migrations

import "embed"

// FS holds every *.sql migration in this directory.
//
//go:embed *.sql
var FS embed.FS
