package db

import (
	"time"

	"github.com/sloppy/nucleireport/internal/importer"
	"github.com/sloppy/nucleireport/internal/inventory"
	"github.com/sloppy/nucleireport/internal/report"
)

// Run is one archived (inventory, scan) report.
type Run struct {
	ID            string
	CreatedAt     time.Time
	Mode          inventory.Mode
	InventoryPath string
	ScanPath      string
	Encoding      string
	Lines         int
	StrictLines   int
	FallbackLines int
	FailedLines   int
	Findings      int
	Totals        report.Totals
	Warnings      []string
	Diagnostics   []importer.Diagnostic
}

// NewRun builds a Run from a parsed scan and its report. The ID is assigned by
// SaveReport when empty.
func NewRun(inventoryPath, scanPath string, scan importer.ScanResult, rep report.Report) Run {
	return Run{
		Mode:          rep.Mode,
		InventoryPath: inventoryPath,
		ScanPath:      scanPath,
		Encoding:      string(scan.Encoding),
		Lines:         scan.Stats.Lines,
		StrictLines:   scan.Stats.Strict,
		FallbackLines: scan.Stats.Fallback,
		FailedLines:   scan.Stats.Failed,
		Findings:      len(scan.Findings),
		Totals:        rep.Totals,
		Warnings:      rep.Warnings,
		Diagnostics:   scan.Diagnostics,
	}
}
