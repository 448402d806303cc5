package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/sloppy/nucleireport/internal/inventory"
	"github.com/sloppy/nucleireport/internal/report"
)

// WriteSummaryCSV writes the summary table with localized headers.
func WriteSummaryCSV(w io.Writer, rep report.Report, locale string) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(summaryHeader(rep.Mode, locale)); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, row := range rep.Summary {
		if err := writer.Write(summaryRecord(rep.Mode, row)); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// WriteVulnerabilitiesCSV writes the vulnerability table with localized
// headers and severity labels.
func WriteVulnerabilitiesCSV(w io.Writer, rep report.Report, locale string) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(vulnerabilityHeader(locale)); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, row := range rep.Vulnerabilities {
		record := []string{
			strconv.Itoa(row.Sequence),
			row.VulnerabilityName,
			row.Subjects(),
			row.Severity.Label(locale),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

func summaryRecord(mode inventory.Mode, row report.SummaryRow) []string {
	record := []string{strconv.Itoa(row.Sequence), row.SubjectLabel}
	if mode == inventory.ModeDevice {
		record = append(record, row.SystemVersion)
	}
	return append(record,
		strconv.Itoa(row.High),
		strconv.Itoa(row.Medium),
		strconv.Itoa(row.Low),
		strconv.Itoa(row.Info),
		strconv.Itoa(row.Subtotal),
	)
}
