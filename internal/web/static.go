package web

import (
	"embed"
)

// staticFiles holds the web UI served under /static/ and at /.
//
//go:embed static/*
var staticFiles embed.FS
