package web

import (
	"database/sql"
	"net/http"
	"strconv"

	"github.com/hpungsan/docuverse/internal/ops"
)

// Handlers holds dependencies for the build history pages.
type Handlers struct {
	db       *sql.DB
	renderer *Renderer
}

// HandleBuilds lists recent publish runs, newest first.
func (h *Handlers) HandleBuilds(w http.ResponseWriter, r *http.Request) {
	out, err := ops.History(r.Context(), h.db, ops.HistoryInput{
		Limit: parseIntParam(r, "limit", ops.DefaultHistoryLimit),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, out)
		return
	}

	h.renderer.renderPage(w, http.StatusOK, "builds", BuildsPageData{
		PageData: h.renderer.page("Builds"),
		Builds:   out.Builds,
	})
}

// HandleBuild shows a single publish run.
func (h *Handlers) HandleBuild(w http.ResponseWriter, r *http.Request) {
	out, err := ops.History(r.Context(), h.db, ops.HistoryInput{ID: r.PathValue("id")})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	b := out.Builds[0]

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, b)
		return
	}

	h.renderer.renderPage(w, http.StatusOK, "build", BuildPageData{
		PageData: h.renderer.page("Build " + shortID(b.ID)),
		Build:    b,
	})
}

// parseIntParam reads an integer query parameter, falling back on absence or junk.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}
