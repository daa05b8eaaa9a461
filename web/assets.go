package webassets

import "embed"

// Files contains the embedded single-page UI.
//
//go:embed *.html
var Files embed.FS
