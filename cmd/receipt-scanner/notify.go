package main

import (
	"io"

	"github.com/fatih/color"
)

var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	detailColor  = color.New(color.Faint)
)

// notifySuccess prints a green notice with an optional detail line
func notifySuccess(w io.Writer, title, detail string) {
	successColor.Fprintf(w, "✓ %s\n", title)
	if detail != "" {
		detailColor.Fprintf(w, "  %s\n", detail)
	}
}

// notifyError prints a red notice with an optional detail line
func notifyError(w io.Writer, title, detail string) {
	errorColor.Fprintf(w, "✗ %s\n", title)
	if detail != "" {
		detailColor.Fprintf(w, "  %s\n", detail)
	}
}
