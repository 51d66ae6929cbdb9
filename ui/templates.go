package ui

import (
	"bytes"
	"net/http"
)

// renderTemplate executes into a buffer first so a template error never leaves a half-written page
func (a *App) renderTemplate(w http.ResponseWriter, name string, data any) {
	var buf bytes.Buffer
	if err := a.templates.ExecuteTemplate(&buf, name, data); err != nil {
		a.logger.Error("template error", "template", name, "error", err)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := buf.WriteTo(w); err != nil {
		a.logger.Warn("failed to write template response", "template", name, "error", err)
	}
}
