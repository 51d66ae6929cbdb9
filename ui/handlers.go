package ui

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"intakegate/adapters/render"
	"intakegate/domain/core"
	"intakegate/domain/intake"
	"intakegate/ports"
)

type indexPage struct {
	Verdict intake.Verdict
	Runs    []ports.RunSummary
	Offset  int
	Next    int
	Prev    int
	HasMore bool
}

const pageSize = 25

func (a *App) handleIndex(w http.ResponseWriter, r *http.Request) {
	page := indexPage{Verdict: intake.Verdict(r.URL.Query().Get("verdict"))}
	if page.Verdict != "" && page.Verdict != intake.VerdictProceed && page.Verdict != intake.VerdictHalt {
		http.Error(w, "verdict must be proceed or halt", http.StatusBadRequest)
		return
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			http.Error(w, "offset must be a non-negative integer", http.StatusBadRequest)
			return
		}
		page.Offset = n
	}

	// one extra row tells us whether a next page exists
	runs, err := a.runs.ListRuns(r.Context(), ports.RunFilter{Verdict: page.Verdict, Limit: pageSize + 1, Offset: page.Offset})
	if err != nil {
		a.logger.Error("list runs failed", "error", err)
		http.Error(w, "failed to list runs", http.StatusInternalServerError)
		return
	}
	if len(runs) > pageSize {
		page.HasMore = true
		runs = runs[:pageSize]
	}
	page.Runs = runs
	page.Next = page.Offset + pageSize
	page.Prev = max(page.Offset-pageSize, 0)

	a.renderTemplate(w, "index.html", page)
}

func (a *App) handleRun(w http.ResponseWriter, r *http.Request) {
	run, ok := a.loadRun(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(render.HTML(run))
}

func (a *App) handleRunMarkdown(w http.ResponseWriter, r *http.Request) {
	run, ok := a.loadRun(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", "inline; filename=\"readiness-"+run.ID.String()+".md\"")
	_, _ = w.Write(render.Markdown(run))
}

func (a *App) loadRun(w http.ResponseWriter, r *http.Request) (*ports.StoredRun, bool) {
	id, err := core.ParseRunID(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}
	run, err := a.runs.GetRun(r.Context(), id)
	switch {
	case errors.Is(err, core.ErrRunNotFound):
		http.Error(w, "run not found", http.StatusNotFound)
		return nil, false
	case err != nil:
		a.logger.Error("get run failed", "run_id", id.String(), "error", err)
		http.Error(w, "failed to load run", http.StatusInternalServerError)
		return nil, false
	}
	return run, true
}
