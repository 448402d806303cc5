package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sloppy/nucleireport/internal/report"
)

// ErrUnknownFormat is returned by ParseFormat for unsupported names.
var ErrUnknownFormat = errors.New("unknown export format")

// Format names an output artifact kind.
type Format string

const (
	FormatCSV    Format = "csv"
	FormatJSON   Format = "json"
	FormatText   Format = "text"
	FormatHTML   Format = "html"
	FormatSQLite Format = "sqlite"
)

// Formats lists every supported format.
var Formats = []Format{FormatCSV, FormatJSON, FormatText, FormatHTML, FormatSQLite}

// ParseFormat validates a single format name. "txt" is accepted for text.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatJSON, FormatText, FormatHTML, FormatSQLite:
		return f, nil
	case "txt":
		return FormatText, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// ParseFormats parses a list of names, each of which may itself be comma
// separated. Duplicates are dropped.
func ParseFormats(values []string) ([]Format, error) {
	var out []Format
	seen := make(map[Format]bool)
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			f, err := ParseFormat(part)
			if err != nil {
				return nil, err
			}
			if !seen[f] {
				seen[f] = true
				out = append(out, f)
			}
		}
	}
	return out, nil
}

// Meta describes where a report came from.
type Meta struct {
	RunID         string    `json:"run_id,omitempty"`
	InventoryPath string    `json:"inventory_path,omitempty"`
	ScanPath      string    `json:"scan_path,omitempty"`
	GeneratedAt   time.Time `json:"generated_at"`
	Lines         int       `json:"lines"`
	StrictLines   int       `json:"strict_lines"`
	FallbackLines int       `json:"fallback_lines"`
	FailedLines   int       `json:"failed_lines"`
}

// Options control localisation and metadata of exported artifacts.
type Options struct {
	Locale string
	Meta   Meta
}

// WriteFiles writes rep into dir once per format and returns the created
// paths. CSV yields base-summary.csv and base-vulnerabilities.csv, the other
// file formats yield base-report.<ext>. FormatSQLite is written by the
// archive and skipped here.
func WriteFiles(dir, base string, formats []Format, rep report.Report, opts Options) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	var paths []string
	for _, f := range formats {
		switch f {
		case FormatCSV:
			summary := filepath.Join(dir, base+"-summary.csv")
			if err := writeFile(summary, func(w io.Writer) error { return WriteSummaryCSV(w, rep, opts.Locale) }); err != nil {
				return paths, err
			}
			vulns := filepath.Join(dir, base+"-vulnerabilities.csv")
			if err := writeFile(vulns, func(w io.Writer) error { return WriteVulnerabilitiesCSV(w, rep, opts.Locale) }); err != nil {
				return paths, err
			}
			paths = append(paths, summary, vulns)
		case FormatJSON:
			path := filepath.Join(dir, base+"-report.json")
			if err := writeFile(path, func(w io.Writer) error { return WriteJSON(w, rep, opts) }); err != nil {
				return paths, err
			}
			paths = append(paths, path)
		case FormatText:
			path := filepath.Join(dir, base+"-report.txt")
			if err := writeFile(path, func(w io.Writer) error { return WriteText(w, rep, opts) }); err != nil {
				return paths, err
			}
			paths = append(paths, path)
		case FormatHTML:
			path := filepath.Join(dir, base+"-report.html")
			if err := writeFile(path, func(w io.Writer) error { return WriteHTML(context.Background(), w, rep, opts) }); err != nil {
				return paths, err
			}
			paths = append(paths, path)
		case FormatSQLite:
			continue
		default:
			return paths, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
		}
	}
	return paths, nil
}

// BaseName derives the artifact base name from an inventory path, e.g.
// "lists/devices.txt" becomes "devices".
func BaseName(inventoryPath string) string {
	base := filepath.Base(inventoryPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", filepath.Base(path), err)
	}
	return nil
}
