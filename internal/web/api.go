package web

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/sloppy/nucleireport/internal/db"
	"github.com/sloppy/nucleireport/internal/importer"
	"github.com/sloppy/nucleireport/internal/inventory"
	"github.com/sloppy/nucleireport/internal/report"
)

// RunInfo is the API shape of an archived run.
type RunInfo struct {
	ID            string         `json:"id"`
	CreatedAt     time.Time      `json:"created_at"`
	Mode          inventory.Mode `json:"mode"`
	InventoryPath string         `json:"inventory_path"`
	ScanPath      string         `json:"scan_path"`
	Encoding      string         `json:"encoding"`
	Lines         int            `json:"lines"`
	StrictLines   int            `json:"strict_lines"`
	FallbackLines int            `json:"fallback_lines"`
	FailedLines   int            `json:"failed_lines"`
	Findings      int            `json:"findings"`
	Totals        report.Totals  `json:"totals"`
	Warnings      []string       `json:"warnings,omitempty"`
}

// DiagnosticInfo is the API shape of a failed scan line.
type DiagnosticInfo struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
	Text   string `json:"text"`
}

// RunDetail is a run together with its tables and diagnostics.
type RunDetail struct {
	Run             RunInfo                   `json:"run"`
	Summary         []report.SummaryRow       `json:"summary"`
	Vulnerabilities []report.VulnerabilityRow `json:"vulnerabilities"`
	Diagnostics     []DiagnosticInfo          `json:"diagnostics"`
}

func toRunInfo(r db.Run) RunInfo {
	return RunInfo{
		ID:            r.ID,
		CreatedAt:     r.CreatedAt,
		Mode:          r.Mode,
		InventoryPath: r.InventoryPath,
		ScanPath:      r.ScanPath,
		Encoding:      r.Encoding,
		Lines:         r.Lines,
		StrictLines:   r.StrictLines,
		FallbackLines: r.FallbackLines,
		FailedLines:   r.FailedLines,
		Findings:      r.Findings,
		Totals:        r.Totals,
		Warnings:      r.Warnings,
	}
}

func toDiagnosticInfos(diags []importer.Diagnostic) []DiagnosticInfo {
	out := make([]DiagnosticInfo, 0, len(diags))
	for _, d := range diags {
		out = append(out, DiagnosticInfo{Line: d.Line, Reason: d.Reason, Text: d.Text})
	}
	return out
}

func (s *Server) jsonResponse(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			s.Logger.WithError(err).Warn("encode json response")
		}
	}
}

func (s *Server) errorResponse(w http.ResponseWriter, err error, status int) {
	http.Error(w, err.Error(), status)
}

func (s *Server) badRequest(w http.ResponseWriter, err error) {
	s.errorResponse(w, err, http.StatusBadRequest)
}

func (s *Server) serverError(w http.ResponseWriter, err error) {
	s.Logger.WithError(err).Error("request failed")
	s.errorResponse(w, err, http.StatusInternalServerError)
}
