// Package web embeds the fallback frontend served when no static
// directory is configured.
package web

import (
	"embed"
	"io/fs"
)

//go:embed dist/*
var dist embed.FS

func Dist() (fs.FS, error) {
	return fs.Sub(dist, "dist")
}
