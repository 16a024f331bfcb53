// Package web embeds the page templates and static assets into the budget
// binary.
package web

import "embed"

// TemplatesFS holds the layout and one template per page.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS holds style.css and scripts.js, served under /static/.
//
//go:embed static/*
var StaticFS embed.FS
