package export

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sloppy/nucleireport/internal/report"
)

// WriteText writes a readable rendering of both tables.
func WriteText(w io.Writer, rep report.Report, opts Options) error {
	l := labelsFor(opts.Locale)
	meta := opts.Meta

	if meta.InventoryPath != "" {
		fmt.Fprintf(w, "Inventory: %s (%s)\n", meta.InventoryPath, rep.Mode)
	}
	if meta.ScanPath != "" {
		fmt.Fprintf(w, "Scan: %s\n", meta.ScanPath)
	}
	generated := meta.GeneratedAt
	if generated.IsZero() {
		generated = time.Now()
	}
	fmt.Fprintf(w, "Generated: %s\n", generated.UTC().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Findings: %s (%s %s, %s %s, %s %s, %s %s)\n",
		humanize.Comma(int64(rep.Totals.Findings)),
		humanize.Comma(int64(rep.Totals.High)), l.High,
		humanize.Comma(int64(rep.Totals.Medium)), l.Medium,
		humanize.Comma(int64(rep.Totals.Low)), l.Low,
		humanize.Comma(int64(rep.Totals.Info)), l.Info,
	)
	if meta.Lines > 0 {
		fmt.Fprintf(w, "Lines: %s read, %s strict, %s fallback, %s failed\n",
			humanize.Comma(int64(meta.Lines)),
			humanize.Comma(int64(meta.StrictLines)),
			humanize.Comma(int64(meta.FallbackLines)),
			humanize.Comma(int64(meta.FailedLines)),
		)
	}
	for _, warning := range rep.Warnings {
		fmt.Fprintf(w, "Warning: %s\n", warning)
	}
	fmt.Fprintln(w, "")

	fmt.Fprintf(w, "%s\n", l.SummaryTitle)
	if len(rep.Summary) == 0 {
		fmt.Fprintln(w, "  No subjects.")
	} else {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "  "+strings.Join(summaryHeader(rep.Mode, opts.Locale), "\t"))
		for _, row := range rep.Summary {
			fmt.Fprintln(tw, "  "+strings.Join(summaryRecord(rep.Mode, row), "\t"))
		}
		if err := tw.Flush(); err != nil {
			return fmt.Errorf("flush summary: %w", err)
		}
	}
	fmt.Fprintln(w, "")

	fmt.Fprintf(w, "%s\n", l.DetailTitle)
	if len(rep.Vulnerabilities) == 0 {
		fmt.Fprintln(w, "  No vulnerabilities.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  "+strings.Join(vulnerabilityHeader(opts.Locale), "\t"))
	for _, row := range rep.Vulnerabilities {
		fmt.Fprintf(tw, "  %d\t%s\t%s\t%s\n", row.Sequence, row.VulnerabilityName, row.Subjects(), row.Severity.Label(opts.Locale))
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flush vulnerabilities: %w", err)
	}
	return nil
}
