// Package migrations embeds the SQL schema migrations and seed files.
package migrations

import (
	"embed"
	"io/fs"
)

//go:embed *.sql
var Files embed.FS

//go:embed seeds/*.sql
var seedTree embed.FS

// Seeds returns the seed files rooted at their own directory.
func Seeds() (fs.FS, error) {
	return fs.Sub(seedTree, "seeds")
}
