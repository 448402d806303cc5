package db

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/sloppy/nucleireport/internal/importer"
	"github.com/sloppy/nucleireport/internal/report"
)

// Tx wraps sql.Tx to reuse DB helpers within a transaction.
type Tx struct {
	*sql.Tx
}

// Begin starts a transaction on the DB.
func (db *DB) Begin() (*Tx, error) {
	tx, err := db.DB.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return &Tx{Tx: tx}, nil
}

// InsertRun records run metadata within a transaction.
func (tx *Tx) InsertRun(r Run) (Run, error) {
	warnings, err := json.Marshal(nonNilStrings(r.Warnings))
	if err != nil {
		return Run{}, fmt.Errorf("encode warnings: %w", err)
	}
	err = tx.QueryRow(
		`INSERT INTO report_run (id, mode, inventory_path, scan_path, encoding, lines, strict_lines, fallback_lines, failed_lines,
		   findings, total_high, total_medium, total_low, total_info, warnings)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 RETURNING created_at`,
		r.ID, string(r.Mode), r.InventoryPath, r.ScanPath, r.Encoding, r.Lines, r.StrictLines, r.FallbackLines, r.FailedLines,
		r.Findings, r.Totals.High, r.Totals.Medium, r.Totals.Low, r.Totals.Info, string(warnings),
	).Scan(&r.CreatedAt)
	if err != nil {
		return Run{}, fmt.Errorf("insert report_run: %w", err)
	}
	return r, nil
}

// InsertSummaryRow stores one summary row for a run within a transaction.
func (tx *Tx) InsertSummaryRow(runID string, row report.SummaryRow) error {
	_, err := tx.Exec(
		`INSERT INTO summary_row (run_id, sequence, subject_key, subject_label, system_version, high, medium, low, info, subtotal)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, row.Sequence, row.SubjectKey, row.SubjectLabel, row.SystemVersion, row.High, row.Medium, row.Low, row.Info, row.Subtotal,
	)
	if err != nil {
		return fmt.Errorf("insert summary_row: %w", err)
	}
	return nil
}

// InsertVulnerabilityRow stores one vulnerability row for a run within a
// transaction.
func (tx *Tx) InsertVulnerabilityRow(runID string, row report.VulnerabilityRow) error {
	subjects, err := json.Marshal(nonNilStrings(row.AssociatedSubjects))
	if err != nil {
		return fmt.Errorf("encode subjects: %w", err)
	}
	_, err = tx.Exec(
		`INSERT INTO vulnerability_row (run_id, sequence, name, severity, subjects) VALUES (?, ?, ?, ?, ?)`,
		runID, row.Sequence, row.VulnerabilityName, row.Severity.String(), string(subjects),
	)
	if err != nil {
		return fmt.Errorf("insert vulnerability_row: %w", err)
	}
	return nil
}

// InsertDiagnostic stores one parse diagnostic for a run within a
// transaction.
func (tx *Tx) InsertDiagnostic(runID string, d importer.Diagnostic) error {
	_, err := tx.Exec(
		`INSERT INTO parse_diagnostic (run_id, line, reason, text) VALUES (?, ?, ?, ?)`,
		runID, d.Line, d.Reason, d.Text,
	)
	if err != nil {
		return fmt.Errorf("insert parse_diagnostic: %w", err)
	}
	return nil
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
