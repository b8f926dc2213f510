package migrations

import "embed"

// Files holds forward-only Postgres migrations, applied in version order.
//
//go:embed *.sql
var Files embed.FS
