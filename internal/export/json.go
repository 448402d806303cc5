package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/sloppy/nucleireport/internal/inventory"
	"github.com/sloppy/nucleireport/internal/report"
)

// ReportExport is the JSON document for one report.
type ReportExport struct {
	Meta            Meta                      `json:"meta"`
	Mode            inventory.Mode            `json:"mode"`
	Totals          report.Totals             `json:"totals"`
	Summary         []report.SummaryRow       `json:"summary"`
	Vulnerabilities []report.VulnerabilityRow `json:"vulnerabilities"`
	Warnings        []string                  `json:"warnings,omitempty"`
}

// WriteJSON writes both tables plus metadata as indented JSON.
func WriteJSON(w io.Writer, rep report.Report, opts Options) error {
	payload := ReportExport{
		Meta:            opts.Meta,
		Mode:            rep.Mode,
		Totals:          rep.Totals,
		Summary:         nonNil(rep.Summary),
		Vulnerabilities: nonNil(rep.Vulnerabilities),
		Warnings:        rep.Warnings,
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(payload); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

func nonNil[T any](rows []T) []T {
	if rows == nil {
		return []T{}
	}
	return rows
}
