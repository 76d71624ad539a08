package jarvis

import "embed"

// TemplateFS holds the page templates, split into layout, pages and partials.
//
//go:embed templates/*
var TemplateFS embed.FS

// StaticFS holds the stylesheet and the browser chat widget.
//
//go:embed static/*
var StaticFS embed.FS
