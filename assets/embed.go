// Package assets holds files compiled into the server binary.
package assets

import (
	_ "embed"
)

// IndexHTML is the single-page client served at /play.
//
//go:embed index.html
var IndexHTML []byte
