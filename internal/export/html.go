package export

import (
	"context"
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/a-h/templ"
	"github.com/dustin/go-humanize"
	"github.com/sloppy/nucleireport/internal/report"
	"github.com/sloppy/nucleireport/internal/severity"
)

// WriteHTML writes a standalone HTML document for rep.
func WriteHTML(ctx context.Context, w io.Writer, rep report.Report, opts Options) error {
	title := "Nuclei Report"
	if opts.Meta.InventoryPath != "" {
		title += " - " + BaseName(opts.Meta.InventoryPath)
	}
	if err := Page(title, ReportBody(rep, opts)).Render(ctx, w); err != nil {
		return fmt.Errorf("render html: %w", err)
	}
	return nil
}

// Page wraps body in the shared document shell.
func Page(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, "<!doctype html><html><head><meta charset=\"utf-8\">"); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "<meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">"); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "<title>%s</title>", html.EscapeString(title)); err != nil {
			return err
		}
		if _, err := io.WriteString(w, Styles); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "</head><body><main class=\"shell\">"); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "</main></body></html>"); err != nil {
			return err
		}
		return nil
	})
}

// ReportBody renders the header card and both tables of rep.
func ReportBody(rep report.Report, opts Options) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		l := labelsFor(opts.Locale)
		meta := opts.Meta

		heading := "Report"
		if meta.InventoryPath != "" {
			heading = BaseName(meta.InventoryPath)
		}
		if _, err := fmt.Fprintf(w, "<header class=\"page-header\"><p class=\"eyebrow\">%s report</p><h1>%s</h1>", html.EscapeString(string(rep.Mode)), html.EscapeString(heading)); err != nil {
			return err
		}
		if meta.ScanPath != "" {
			if _, err := fmt.Fprintf(w, "<p class=\"subhead\">Scan: %s</p>", html.EscapeString(meta.ScanPath)); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, "</header>"); err != nil {
			return err
		}

		if _, err := io.WriteString(w, "<section class=\"card\"><div class=\"stats-grid\">"); err != nil {
			return err
		}
		stats := []struct {
			label string
			value int
			class string
		}{
			{"Findings", rep.Totals.Findings, ""},
			{l.High, rep.Totals.High, severityClass(severity.High)},
			{l.Medium, rep.Totals.Medium, severityClass(severity.Medium)},
			{l.Low, rep.Totals.Low, severityClass(severity.Low)},
			{l.Info, rep.Totals.Info, severityClass(severity.Info)},
		}
		for _, s := range stats {
			if _, err := fmt.Fprintf(w, "<div class=\"%s\"><p class=\"stat-label\">%s</p><p class=\"stat-value\">%s</p></div>", s.class, html.EscapeString(s.label), humanize.Comma(int64(s.value))); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, "</div>"); err != nil {
			return err
		}
		for _, warning := range rep.Warnings {
			if _, err := fmt.Fprintf(w, "<p class=\"warning\">%s</p>", html.EscapeString(warning)); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, "</section>"); err != nil {
			return err
		}

		if err := SummaryTable(rep, opts.Locale).Render(ctx, w); err != nil {
			return err
		}
		return VulnerabilityTable(rep, opts.Locale).Render(ctx, w)
	})
}

// SummaryTable renders the summary rows. Rows without findings are muted.
func SummaryTable(rep report.Report, locale string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		l := labelsFor(locale)
		if _, err := fmt.Fprintf(w, "<section class=\"card\"><h2>%s</h2>", html.EscapeString(l.SummaryTitle)); err != nil {
			return err
		}
		if len(rep.Summary) == 0 {
			_, err := io.WriteString(w, "<p class=\"empty\">No subjects.</p></section>")
			return err
		}
		if _, err := fmt.Fprintf(w, "<table class=\"report-table\"><thead><tr>%s</tr></thead><tbody>", headerCells(summaryHeader(rep.Mode, locale))); err != nil {
			return err
		}
		for _, row := range rep.Summary {
			class := ""
			if row.Subtotal == 0 {
				class = " class=\"row-empty\""
			}
			var cells strings.Builder
			for _, value := range summaryRecord(rep.Mode, row) {
				cells.WriteString("<td>")
				cells.WriteString(html.EscapeString(value))
				cells.WriteString("</td>")
			}
			if _, err := fmt.Fprintf(w, "<tr%s>%s</tr>", class, cells.String()); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "</tbody></table></section>")
		return err
	})
}

// VulnerabilityTable renders the vulnerability rows with a class per level.
func VulnerabilityTable(rep report.Report, locale string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		l := labelsFor(locale)
		if _, err := fmt.Fprintf(w, "<section class=\"card\"><h2>%s</h2>", html.EscapeString(l.DetailTitle)); err != nil {
			return err
		}
		if len(rep.Vulnerabilities) == 0 {
			_, err := io.WriteString(w, "<p class=\"empty\">No vulnerabilities.</p></section>")
			return err
		}
		if _, err := fmt.Fprintf(w, "<table class=\"report-table\"><thead><tr>%s</tr></thead><tbody>", headerCells(vulnerabilityHeader(locale))); err != nil {
			return err
		}
		for _, row := range rep.Vulnerabilities {
			if _, err := fmt.Fprintf(w, "<tr><td>%d</td><td>%s</td><td>%s</td><td class=\"%s\">%s</td></tr>",
				row.Sequence,
				html.EscapeString(row.VulnerabilityName),
				html.EscapeString(row.Subjects()),
				severityClass(row.Severity),
				html.EscapeString(row.Severity.Label(locale)),
			); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "</tbody></table></section>")
		return err
	})
}

func headerCells(columns []string) string {
	var b strings.Builder
	for _, c := range columns {
		b.WriteString("<th>")
		b.WriteString(html.EscapeString(c))
		b.WriteString("</th>")
	}
	return b.String()
}

func severityClass(level severity.Level) string {
	return "sev-" + strings.ToLower(level.String())
}

// Styles is the stylesheet shared by exported documents and the viewer.
const Styles = `<style>
:root {
  color-scheme: light;
  --bg: #f4f5f7;
  --ink: #1d232a;
  --muted: #66707a;
  --card: #ffffff;
  --stroke: rgba(29, 35, 42, 0.12);
  --accent: #2f5f8f;
}
* { box-sizing: border-box; }
body {
  margin: 0;
  font-family: "Segoe UI", "Microsoft YaHei", sans-serif;
  background: var(--bg);
  color: var(--ink);
}
a { color: var(--accent); }
.shell { max-width: 1100px; margin: 0 auto; padding: 32px 20px 64px; }
.page-header h1 { margin: 4px 0; }
.eyebrow { text-transform: uppercase; letter-spacing: 0.12em; font-size: 12px; color: var(--muted); margin: 0; }
.subhead { color: var(--muted); margin: 4px 0 0; }
.card { background: var(--card); border: 1px solid var(--stroke); border-radius: 10px; padding: 18px 20px; margin-top: 20px; }
.card h2 { margin-top: 0; font-size: 18px; }
.stats-grid { display: grid; grid-template-columns: repeat(auto-fit, minmax(120px, 1fr)); gap: 12px; }
.stats-grid > div { padding: 10px 12px; border-radius: 8px; }
.stat-label { margin: 0; font-size: 12px; color: var(--muted); }
.stat-value { margin: 4px 0 0; font-size: 22px; font-weight: 600; }
.report-table { width: 100%; border-collapse: collapse; font-size: 14px; }
.report-table th, .report-table td { border: 1px solid var(--stroke); padding: 6px 8px; text-align: left; vertical-align: top; }
.report-table th { background: #e7ecf2; }
.row-empty td { background: #f0f0f0; color: var(--muted); }
.sev-high { background: #ffc7ce; }
.sev-medium { background: #ffeb9c; }
.sev-low { background: #c6efce; }
.sev-info { background: #bdd7ee; }
.warning { color: #8a5a00; margin: 10px 0 0; }
.empty { color: var(--muted); }
.run-list { list-style: none; padding: 0; margin: 0; }
.run-list li { display: flex; justify-content: space-between; gap: 12px; padding: 8px 0; border-bottom: 1px solid var(--stroke); }
.actions a { margin-right: 12px; }
</style>`
