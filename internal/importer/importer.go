package importer

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/sloppy/nucleireport/internal/target"
	"github.com/sloppy/nucleireport/internal/textio"
)

// reFinding matches: [template] [protocol] [severity] target ["extra info"]
var reFinding = regexp.MustCompile(`^\[([^\]]+)\] \[([^\]]+)\] \[([^\]]+)\] (.+?)(?: \["(.*)"\])?$`)

const fieldSeparator = "] ["

var errMissingTemplate = errors.New("missing template name")

// Grammar identifies which pass produced a Finding.
type Grammar string

const (
	GrammarStrict   Grammar = "strict"
	GrammarFallback Grammar = "fallback"
)

// Finding is one parsed result line from scanner output.
type Finding struct {
	Template   string
	Protocol   string
	Severity   string
	Target     string
	ExtraInfo  string
	SourceLine int
	Grammar    Grammar
}

// Outcome tags the result of parsing a single line.
type Outcome int

const (
	OutcomeSkipped Outcome = iota
	OutcomeStrict
	OutcomeFallback
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeStrict:
		return "strict"
	case OutcomeFallback:
		return "fallback"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// LineResult is the tagged result of ParseLine. Finding is set only for the
// strict and fallback outcomes, Reason only for failures.
type LineResult struct {
	Outcome Outcome
	Finding Finding
	Reason  string
}

// Diagnostic describes a line that looked like a finding but could not be parsed.
type Diagnostic struct {
	Line   int
	Reason string
	Text   string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("line %d: %s", d.Line, d.Reason)
}

// ParseStats counts line outcomes for one scan file.
type ParseStats struct {
	Lines    int
	Strict   int
	Fallback int
	Failed   int
	Skipped  int
}

// ScanResult holds everything parsed from one scan file.
type ScanResult struct {
	Findings    []Finding
	Diagnostics []Diagnostic
	Stats       ParseStats
	Encoding    textio.Encoding
}

// ParseFile reads a scan output file (UTF-8, GBK fallback) and parses it.
func ParseFile(path string) (ScanResult, error) {
	content, enc, err := textio.ReadFile(path)
	if err != nil {
		return ScanResult{}, fmt.Errorf("open scan file: %w", err)
	}
	res := Parse(content)
	res.Encoding = enc
	return res, nil
}

// ParseReader parses scan output from a reader.
func ParseReader(r io.Reader) (ScanResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return ScanResult{}, fmt.Errorf("read scan output: %w", err)
	}
	content, enc, err := textio.Decode(data)
	if err != nil {
		return ScanResult{}, err
	}
	res := Parse(content)
	res.Encoding = enc
	return res, nil
}

// Parse converts scan output into Findings line by line. A malformed line is
// recorded as a Diagnostic and never stops the parse.
func Parse(content string) ScanResult {
	res := ScanResult{Encoding: textio.UTF8}
	content = strings.TrimSuffix(content, "\n")
	if content == "" {
		return res
	}
	for i, line := range strings.Split(content, "\n") {
		lineNum := i + 1
		res.Stats.Lines++

		lr := ParseLine(line, lineNum)
		switch lr.Outcome {
		case OutcomeStrict:
			res.Stats.Strict++
			res.Findings = append(res.Findings, lr.Finding)
		case OutcomeFallback:
			res.Stats.Fallback++
			res.Findings = append(res.Findings, lr.Finding)
		case OutcomeFailed:
			res.Stats.Failed++
			res.Diagnostics = append(res.Diagnostics, Diagnostic{
				Line:   lineNum,
				Reason: lr.Reason,
				Text:   strings.TrimSpace(line),
			})
		default:
			res.Stats.Skipped++
		}
	}
	return res
}

// ParseLine parses one raw line. Lines that do not look like findings at all
// (blank, not starting with "[", or lacking "] [") are skipped silently.
func ParseLine(raw string, lineNum int) LineResult {
	line := strings.TrimSpace(raw)
	if line == "" || !strings.HasPrefix(line, "[") || !strings.Contains(line, fieldSeparator) {
		return LineResult{Outcome: OutcomeSkipped}
	}

	if f, ok := parseStrict(line); ok {
		f.SourceLine = lineNum
		return LineResult{Outcome: OutcomeStrict, Finding: f}
	}

	f, err := parseFallback(line)
	if err != nil {
		return LineResult{Outcome: OutcomeFailed, Reason: err.Error()}
	}
	f.SourceLine = lineNum
	return LineResult{Outcome: OutcomeFallback, Finding: f}
}

func parseStrict(line string) (Finding, bool) {
	m := reFinding.FindStringSubmatch(line)
	if m == nil {
		return Finding{}, false
	}
	f := Finding{
		Template:  strings.TrimSpace(m[1]),
		Protocol:  strings.TrimSpace(m[2]),
		Severity:  strings.TrimSpace(m[3]),
		Target:    target.Clean(m[4]),
		ExtraInfo: m[5],
		Grammar:   GrammarStrict,
	}
	if f.Template == "" {
		return Finding{}, false
	}
	return f, true
}

func parseFallback(line string) (Finding, error) {
	parts := strings.SplitN(line, fieldSeparator, 4)
	if len(parts) < 3 {
		return Finding{}, fmt.Errorf("expected at least 3 bracketed fields, found %d", len(parts))
	}

	template := strings.TrimSpace(strings.Trim(parts[0], "["))
	if template == "" {
		return Finding{}, errMissingTemplate
	}

	var severity, rest string
	if before, after, ok := strings.Cut(parts[2], "]"); ok {
		severity, rest = before, after
		if len(parts) > 3 {
			rest += fieldSeparator + parts[3]
		}
	} else {
		severity = parts[2]
		if len(parts) > 3 {
			rest = parts[3]
		}
	}

	return Finding{
		Template: template,
		Protocol: strings.TrimSpace(parts[1]),
		Severity: strings.TrimSpace(severity),
		Target:   target.Clean(rest),
		Grammar:  GrammarFallback,
	}, nil
}
