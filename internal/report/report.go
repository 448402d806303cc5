package report

import (
	"sort"
	"strings"

	"github.com/sloppy/nucleireport/internal/importer"
	"github.com/sloppy/nucleireport/internal/inventory"
	"github.com/sloppy/nucleireport/internal/severity"
	"github.com/sloppy/nucleireport/internal/target"
)

// Warning messages attached to a Report.
const (
	WarnNoFindings       = "no findings parsed from scan file"
	WarnEmptyInventory   = "inventory contains no subjects"
	WarnNoSubjectMatched = "no finding matched an inventory subject"
)

// SummaryRow counts findings per subject.
type SummaryRow struct {
	Sequence      int    `json:"sequence"`
	SubjectKey    string `json:"subject_key"`
	SubjectLabel  string `json:"subject_label"`
	SystemVersion string `json:"system_version,omitempty"`
	High          int    `json:"high"`
	Medium        int    `json:"medium"`
	Low           int    `json:"low"`
	Info          int    `json:"info"`
	Subtotal      int    `json:"subtotal"`
}

// Count returns the counter for level.
func (r SummaryRow) Count(level severity.Level) int {
	switch level {
	case severity.High:
		return r.High
	case severity.Medium:
		return r.Medium
	case severity.Low:
		return r.Low
	default:
		return r.Info
	}
}

func (r *SummaryRow) add(level severity.Level) {
	switch level {
	case severity.High:
		r.High++
	case severity.Medium:
		r.Medium++
	case severity.Low:
		r.Low++
	default:
		r.Info++
	}
	r.Subtotal++
}

// VulnerabilityRow lists the subjects affected by one template.
type VulnerabilityRow struct {
	Sequence           int            `json:"sequence"`
	VulnerabilityName  string         `json:"vulnerability_name"`
	AssociatedSubjects []string       `json:"associated_subjects"`
	Severity           severity.Level `json:"severity"`
}

// Subjects joins the associated subjects for display.
func (r VulnerabilityRow) Subjects() string {
	return strings.Join(r.AssociatedSubjects, ", ")
}

// Totals are finding counts per severity across all subjects.
type Totals struct {
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
	Info     int `json:"info"`
	Findings int `json:"findings"`
}

// Report is the aggregated output for one inventory and scan.
type Report struct {
	Mode            inventory.Mode     `json:"mode"`
	Summary         []SummaryRow       `json:"summary"`
	Vulnerabilities []VulnerabilityRow `json:"vulnerabilities"`
	Totals          Totals             `json:"totals"`
	Warnings        []string           `json:"warnings,omitempty"`
}

// summaryIndex is an insertion-ordered map from subject key to row.
type summaryIndex struct {
	rows  []*SummaryRow
	byKey map[string]*SummaryRow
}

func (s *summaryIndex) get(key string) (*SummaryRow, bool) {
	row, ok := s.byKey[key]
	return row, ok
}

func (s *summaryIndex) getOrInsert(key, label, version string) *SummaryRow {
	if row, ok := s.byKey[key]; ok {
		return row
	}
	row := &SummaryRow{SubjectKey: key, SubjectLabel: label, SystemVersion: version}
	s.byKey[key] = row
	s.rows = append(s.rows, row)
	return row
}

type vulnEntry struct {
	name     string
	level    severity.Level
	subjects map[string]struct{}
}

// Build aggregates findings against an inventory. It is deterministic for a
// given input order and never fails.
func Build(inv inventory.Inventory, findings []importer.Finding) Report {
	rep := Report{Mode: inv.Mode}

	summary := summaryIndex{byKey: make(map[string]*SummaryRow)}
	entries := inv.Entries()
	for _, e := range entries {
		summary.getOrInsert(e.Key, e.Label, e.SystemVersion)
	}

	var vulns []*vulnEntry
	vulnByName := make(map[string]*vulnEntry)
	matched := 0

	for _, f := range findings {
		level := severity.Classify(f.Severity)
		key := target.MatchKey(f.Target)

		v, ok := vulnByName[f.Template]
		if !ok {
			v = &vulnEntry{name: f.Template, level: level, subjects: make(map[string]struct{})}
			vulnByName[f.Template] = v
			vulns = append(vulns, v)
		}

		if key == "" {
			continue
		}

		row, seeded := summary.get(key)
		if seeded {
			matched++
		} else {
			row = summary.getOrInsert(key, unseededLabel(inv.Mode, key, f.Target), "")
		}
		row.add(level)
		v.subjects[row.SubjectLabel] = struct{}{}

		switch level {
		case severity.High:
			rep.Totals.High++
		case severity.Medium:
			rep.Totals.Medium++
		case severity.Low:
			rep.Totals.Low++
		default:
			rep.Totals.Info++
		}
		rep.Totals.Findings++
	}

	rep.Summary = make([]SummaryRow, 0, len(summary.rows))
	for _, row := range summary.rows {
		rep.Summary = append(rep.Summary, *row)
	}
	sort.SliceStable(rep.Summary, func(i, j int) bool {
		a, b := rep.Summary[i], rep.Summary[j]
		if a.Subtotal != b.Subtotal {
			return a.Subtotal > b.Subtotal
		}
		return a.SubjectLabel < b.SubjectLabel
	})
	for i := range rep.Summary {
		rep.Summary[i].Sequence = i + 1
	}

	rep.Vulnerabilities = make([]VulnerabilityRow, 0, len(vulns))
	for _, v := range vulns {
		subjects := make([]string, 0, len(v.subjects))
		for s := range v.subjects {
			subjects = append(subjects, s)
		}
		sort.Strings(subjects)
		rep.Vulnerabilities = append(rep.Vulnerabilities, VulnerabilityRow{
			VulnerabilityName:  v.name,
			AssociatedSubjects: subjects,
			Severity:           v.level,
		})
	}
	sort.SliceStable(rep.Vulnerabilities, func(i, j int) bool {
		a, b := rep.Vulnerabilities[i], rep.Vulnerabilities[j]
		if a.Severity.Rank() != b.Severity.Rank() {
			return a.Severity.Rank() < b.Severity.Rank()
		}
		return a.VulnerabilityName < b.VulnerabilityName
	})
	for i := range rep.Vulnerabilities {
		rep.Vulnerabilities[i].Sequence = i + 1
	}

	if len(findings) == 0 {
		rep.Warnings = append(rep.Warnings, WarnNoFindings)
	}
	if len(entries) == 0 {
		rep.Warnings = append(rep.Warnings, WarnEmptyInventory)
	} else if len(findings) > 0 && matched == 0 {
		rep.Warnings = append(rep.Warnings, WarnNoSubjectMatched)
	}
	return rep
}

func unseededLabel(mode inventory.Mode, key, rawTarget string) string {
	if mode == inventory.ModeTarget {
		if label := target.DisplayForm(rawTarget); label != "" {
			return label
		}
	}
	return key
}
