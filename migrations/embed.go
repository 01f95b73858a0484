// Package migrations embeds the SQL schema files so services can apply them
// at startup without shipping loose files next to the binary.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
