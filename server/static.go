package server

import (
	"embed"
	"io/fs"
)

//go:embed web
var webFS embed.FS

var staticFS = mustSub(webFS, "web/static")

func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(err)
	}
	return sub
}
