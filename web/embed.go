// Package web embeds the admin page templates and static assets.
package web

import (
	"embed"
	"io/fs"

	"go.uber.org/zap"
)

//go:embed static templates
var content embed.FS

func sub(dir string) fs.FS {
	s, err := fs.Sub(content, dir)
	if err != nil {
		zap.L().Fatal("failed to create sub-filesystem", zap.String("dir", dir), zap.Error(err))
	}
	return s
}

// StaticFS returns the static file system.
func StaticFS() fs.FS { return sub("static") }

// TemplatesFS returns the templates file system.
func TemplatesFS() fs.FS { return sub("templates") }
