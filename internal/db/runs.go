package db

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/sloppy/nucleireport/internal/importer"
	"github.com/sloppy/nucleireport/internal/inventory"
	"github.com/sloppy/nucleireport/internal/report"
	"github.com/sloppy/nucleireport/internal/severity"
)

const runColumns = `id, created_at, mode, inventory_path, scan_path, encoding, lines, strict_lines, fallback_lines, failed_lines,
	findings, total_high, total_medium, total_low, total_info, warnings`

// SaveReport stores a run and both of its tables in one transaction. A new
// UUID is assigned when run.ID is empty.
func (db *DB) SaveReport(run Run, rep report.Report) (Run, error) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.Mode == "" {
		run.Mode = rep.Mode
	}
	run.Totals = rep.Totals
	run.Warnings = rep.Warnings

	tx, err := db.Begin()
	if err != nil {
		return Run{}, err
	}
	defer tx.Rollback()

	saved, err := tx.InsertRun(run)
	if err != nil {
		return Run{}, err
	}
	for _, row := range rep.Summary {
		if err := tx.InsertSummaryRow(saved.ID, row); err != nil {
			return Run{}, err
		}
	}
	for _, row := range rep.Vulnerabilities {
		if err := tx.InsertVulnerabilityRow(saved.ID, row); err != nil {
			return Run{}, err
		}
	}
	for _, d := range run.Diagnostics {
		if err := tx.InsertDiagnostic(saved.ID, d); err != nil {
			return Run{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("commit report: %w", err)
	}
	return saved, nil
}

// ListRuns returns all runs, newest first. Diagnostics are not loaded.
func (db *DB) ListRuns() ([]Run, error) {
	rows, err := db.Query(`SELECT ` + runColumns + ` FROM report_run ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return runs, nil
}

// GetRun returns a run with its diagnostics.
func (db *DB) GetRun(id string) (Run, bool, error) {
	r, err := scanRun(db.QueryRow(`SELECT `+runColumns+` FROM report_run WHERE id = ?`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return Run{}, false, nil
		}
		return Run{}, false, fmt.Errorf("get run: %w", err)
	}

	r.Diagnostics, err = db.ListDiagnostics(id)
	if err != nil {
		return Run{}, false, err
	}
	return r, true, nil
}

// LoadReport rebuilds the stored report for a run.
func (db *DB) LoadReport(id string) (Run, report.Report, bool, error) {
	run, found, err := db.GetRun(id)
	if err != nil || !found {
		return Run{}, report.Report{}, found, err
	}

	rep := report.Report{Mode: run.Mode, Totals: run.Totals}
	if len(run.Warnings) > 0 {
		rep.Warnings = run.Warnings
	}
	rep.Summary, err = db.listSummaryRows(id)
	if err != nil {
		return Run{}, report.Report{}, false, err
	}
	rep.Vulnerabilities, err = db.listVulnerabilityRows(id)
	if err != nil {
		return Run{}, report.Report{}, false, err
	}
	return run, rep, true, nil
}

// ListDiagnostics returns the parse diagnostics of a run ordered by line.
func (db *DB) ListDiagnostics(runID string) ([]importer.Diagnostic, error) {
	rows, err := db.Query(`SELECT line, reason, text FROM parse_diagnostic WHERE run_id = ? ORDER BY line`, runID)
	if err != nil {
		return nil, fmt.Errorf("list diagnostics: %w", err)
	}
	defer rows.Close()

	var out []importer.Diagnostic
	for rows.Next() {
		var d importer.Diagnostic
		if err := rows.Scan(&d.Line, &d.Reason, &d.Text); err != nil {
			return nil, fmt.Errorf("scan diagnostic: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteRun removes a run and its rows.
func (db *DB) DeleteRun(id string) error {
	res, err := db.Exec(`DELETE FROM report_run WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (db *DB) listSummaryRows(runID string) ([]report.SummaryRow, error) {
	rows, err := db.Query(
		`SELECT sequence, subject_key, subject_label, system_version, high, medium, low, info, subtotal
		 FROM summary_row WHERE run_id = ? ORDER BY sequence`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list summary rows: %w", err)
	}
	defer rows.Close()

	out := []report.SummaryRow{}
	for rows.Next() {
		var r report.SummaryRow
		if err := rows.Scan(&r.Sequence, &r.SubjectKey, &r.SubjectLabel, &r.SystemVersion, &r.High, &r.Medium, &r.Low, &r.Info, &r.Subtotal); err != nil {
			return nil, fmt.Errorf("scan summary row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (db *DB) listVulnerabilityRows(runID string) ([]report.VulnerabilityRow, error) {
	rows, err := db.Query(`SELECT sequence, name, severity, subjects FROM vulnerability_row WHERE run_id = ? ORDER BY sequence`, runID)
	if err != nil {
		return nil, fmt.Errorf("list vulnerability rows: %w", err)
	}
	defer rows.Close()

	out := []report.VulnerabilityRow{}
	for rows.Next() {
		var (
			r        report.VulnerabilityRow
			sev      string
			subjects string
		)
		if err := rows.Scan(&r.Sequence, &r.VulnerabilityName, &sev, &subjects); err != nil {
			return nil, fmt.Errorf("scan vulnerability row: %w", err)
		}
		level, ok := severity.Parse(sev)
		if !ok {
			return nil, fmt.Errorf("vulnerability row %d: unknown severity %q", r.Sequence, sev)
		}
		r.Severity = level
		if err := json.Unmarshal([]byte(subjects), &r.AssociatedSubjects); err != nil {
			return nil, fmt.Errorf("decode subjects: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(s rowScanner) (Run, error) {
	var (
		r        Run
		mode     string
		warnings string
	)
	err := s.Scan(&r.ID, &r.CreatedAt, &mode, &r.InventoryPath, &r.ScanPath, &r.Encoding, &r.Lines, &r.StrictLines, &r.FallbackLines, &r.FailedLines,
		&r.Findings, &r.Totals.High, &r.Totals.Medium, &r.Totals.Low, &r.Totals.Info, &warnings)
	if err != nil {
		if err == sql.ErrNoRows {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	r.Mode = inventory.Mode(mode)
	r.Totals.Findings = r.Totals.High + r.Totals.Medium + r.Totals.Low + r.Totals.Info
	if err := json.Unmarshal([]byte(warnings), &r.Warnings); err != nil {
		return Run{}, fmt.Errorf("decode warnings: %w", err)
	}
	if len(r.Warnings) == 0 {
		r.Warnings = nil
	}
	return r, nil
}
