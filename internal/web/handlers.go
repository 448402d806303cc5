package web

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/sloppy/nucleireport/internal/export"
)

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/runs", http.StatusFound)
}

func (s *Server) handleRunsList(w http.ResponseWriter, r *http.Request) {
	runs, err := s.DB.ListRuns()
	if err != nil {
		http.Error(w, "failed to list runs", http.StatusInternalServerError)
		return
	}
	render(w, r, runsListPage(runs))
}

func (s *Server) handleRunDetail(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	run, rep, found, err := s.DB.LoadReport(id)
	if err != nil {
		http.Error(w, "failed to load run", http.StatusInternalServerError)
		return
	}
	if !found {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}
	render(w, r, runDetailPage(run, rep, s.Locale))
}

func (s *Server) handleRunExport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	query := r.URL.Query()

	formatStr := strings.TrimSpace(query.Get("format"))
	if formatStr == "" {
		formatStr = string(export.FormatJSON)
	}
	format, err := export.ParseFormat(formatStr)
	if err != nil || format == export.FormatSQLite {
		http.Error(w, "invalid export format", http.StatusBadRequest)
		return
	}
	table := strings.ToLower(strings.TrimSpace(query.Get("table")))
	if table == "" {
		table = "summary"
	}
	if table != "summary" && table != "vulnerabilities" {
		http.Error(w, "invalid table", http.StatusBadRequest)
		return
	}
	locale := strings.TrimSpace(query.Get("locale"))
	if locale == "" {
		locale = s.Locale
	}

	run, rep, found, err := s.DB.LoadReport(id)
	if err != nil {
		http.Error(w, "failed to load run", http.StatusInternalServerError)
		return
	}
	if !found {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}
	opts := export.Options{Locale: locale, Meta: metaFor(run)}
	base := export.BaseName(run.InventoryPath)

	switch format {
	case export.FormatCSV:
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", base+"-"+table+".csv"))
		if table == "vulnerabilities" {
			err = export.WriteVulnerabilitiesCSV(w, rep, locale)
		} else {
			err = export.WriteSummaryCSV(w, rep, locale)
		}
	case export.FormatJSON:
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", base+"-report.json"))
		err = export.WriteJSON(w, rep, opts)
	case export.FormatText:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", base+"-report.txt"))
		err = export.WriteText(w, rep, opts)
	case export.FormatHTML:
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", base+"-report.html"))
		err = export.WriteHTML(r.Context(), w, rep, opts)
	}
	if err != nil {
		s.Logger.WithError(err).WithField("run", id).Error("export failed")
		http.Error(w, "export failed", http.StatusInternalServerError)
	}
}

func (s *Server) handleAPIRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.DB.ListRuns()
	if err != nil {
		s.serverError(w, err)
		return
	}
	out := make([]RunInfo, 0, len(runs))
	for _, run := range runs {
		out = append(out, toRunInfo(run))
	}
	s.jsonResponse(w, out, http.StatusOK)
}

func (s *Server) handleAPIRun(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		s.badRequest(w, errors.New("missing run id"))
		return
	}
	run, rep, found, err := s.DB.LoadReport(id)
	if err != nil {
		s.serverError(w, err)
		return
	}
	if !found {
		s.errorResponse(w, errors.New("run not found"), http.StatusNotFound)
		return
	}
	s.jsonResponse(w, RunDetail{
		Run:             toRunInfo(run),
		Summary:         rep.Summary,
		Vulnerabilities: rep.Vulnerabilities,
		Diagnostics:     toDiagnosticInfos(run.Diagnostics),
	}, http.StatusOK)
}
