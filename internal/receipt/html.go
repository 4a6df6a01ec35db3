package receipt

import (
	"embed"
	"html/template"
	"time"

	"github.com/dustin/go-humanize"
)

//go:embed static/*.html
var templatesFS embed.FS

//go:embed static/app.css
var appCSS []byte

// parseTemplates builds the page templates. Parsing embedded files only
// fails on a broken build, so it panics.
func parseTemplates(service *Service) *template.Template {
	funcs := template.FuncMap{
		"currency": FormatCurrency,
		"date":     FormatDate,
		"fileSize": FormatFileSize,
		"imageURL": service.ImageURL,
		"add":      func(a, b int) int { return a + b },
		"ago": func(t time.Time) string {
			if t.IsZero() {
				return "never"
			}
			return humanize.Time(t)
		},
	}
	return template.Must(template.New("receipt").Funcs(funcs).ParseFS(templatesFS, "static/*.html"))
}
