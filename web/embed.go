package web

import "embed"

// Content holds the embedded status page served at "/".
//
//go:embed index.html
var Content embed.FS
