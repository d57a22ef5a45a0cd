// Package migrations embeds the numbered schema files applied by
// "barberia-server migrate up".
package migrations

import "embed"

//go:embed *.sql
var Files embed.FS
