package web

import "embed"

// Templates embeds HTML templates.
//
//go:embed templates/pages/*.html
var Templates embed.FS
