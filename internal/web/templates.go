package web

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"

	"github.com/a-h/templ"
	"github.com/dustin/go-humanize"
	"github.com/sloppy/nucleireport/internal/db"
	"github.com/sloppy/nucleireport/internal/export"
	"github.com/sloppy/nucleireport/internal/report"
)

func render(w http.ResponseWriter, r *http.Request, component templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := component.Render(r.Context(), w); err != nil {
		http.Error(w, "render failed", http.StatusInternalServerError)
	}
}

func metaFor(run db.Run) export.Meta {
	return export.Meta{
		RunID:         run.ID,
		InventoryPath: run.InventoryPath,
		ScanPath:      run.ScanPath,
		GeneratedAt:   run.CreatedAt,
		Lines:         run.Lines,
		StrictLines:   run.StrictLines,
		FallbackLines: run.FallbackLines,
		FailedLines:   run.FailedLines,
	}
}

func runsListPage(runs []db.Run) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, "<header class=\"page-header\"><p class=\"eyebrow\">nuclei-report</p><h1>Runs</h1><p class=\"subhead\">Archived inventory and scan reports.</p></header>"); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "<section class=\"card\">"); err != nil {
			return err
		}
		if len(runs) == 0 {
			_, err := io.WriteString(w, "<p class=\"empty\">No runs archived yet. Generate a report with --db to add one.</p></section>")
			return err
		}
		if _, err := io.WriteString(w, "<ul class=\"run-list\">"); err != nil {
			return err
		}
		for _, run := range runs {
			if _, err := fmt.Fprintf(w, "<li><a href=\"/runs/%s\">%s</a><span>%s &middot; %s findings &middot; %s</span></li>",
				url.PathEscape(run.ID),
				html.EscapeString(export.BaseName(run.InventoryPath)),
				html.EscapeString(string(run.Mode)),
				humanize.Comma(int64(run.Findings)),
				humanize.Time(run.CreatedAt),
			); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "</ul></section>")
		return err
	})
	return export.Page("nuclei-report - Runs", body)
}

func runDetailPage(run db.Run, rep report.Report, locale string) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, "<p><a href=\"/runs\">&larr; All runs</a></p>"); err != nil {
			return err
		}
		opts := export.Options{Locale: locale, Meta: metaFor(run)}
		if err := export.ReportBody(rep, opts).Render(ctx, w); err != nil {
			return err
		}

		id := url.PathEscape(run.ID)
		if _, err := io.WriteString(w, "<section class=\"card\"><h2>Export</h2><p class=\"actions\">"); err != nil {
			return err
		}
		links := []struct{ label, query string }{
			{"Summary CSV", "format=csv&table=summary"},
			{"Vulnerabilities CSV", "format=csv&table=vulnerabilities"},
			{"JSON", "format=json"},
			{"Text", "format=text"},
			{"HTML", "format=html"},
		}
		for _, link := range links {
			if _, err := fmt.Fprintf(w, "<a href=\"/runs/%s/export?%s\">%s</a>", id, html.EscapeString(link.query), link.label); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, "</p></section>"); err != nil {
			return err
		}

		if _, err := fmt.Fprintf(w, "<section class=\"card\"><h2>Parse diagnostics</h2><p class=\"subhead\">%s lines read, %s strict, %s fallback, %s failed (%s).</p>",
			humanize.Comma(int64(run.Lines)),
			humanize.Comma(int64(run.StrictLines)),
			humanize.Comma(int64(run.FallbackLines)),
			humanize.Comma(int64(run.FailedLines)),
			html.EscapeString(run.Encoding),
		); err != nil {
			return err
		}
		if len(run.Diagnostics) == 0 {
			_, err := io.WriteString(w, "<p class=\"empty\">No failed lines.</p></section>")
			return err
		}
		if _, err := io.WriteString(w, "<table class=\"report-table\"><thead><tr><th>Line</th><th>Reason</th><th>Text</th></tr></thead><tbody>"); err != nil {
			return err
		}
		for _, d := range run.Diagnostics {
			if _, err := fmt.Fprintf(w, "<tr><td>%d</td><td>%s</td><td><code>%s</code></td></tr>", d.Line, html.EscapeString(d.Reason), html.EscapeString(d.Text)); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "</tbody></table></section>")
		return err
	})
	return export.Page("nuclei-report - "+export.BaseName(run.InventoryPath), body)
}
