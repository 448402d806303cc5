package report

import (
	"reflect"
	"testing"

	"github.com/sloppy/nucleireport/internal/importer"
	"github.com/sloppy/nucleireport/internal/inventory"
	"github.com/sloppy/nucleireport/internal/severity"
)

func finding(template, sev, tgt string) importer.Finding {
	return importer.Finding{Template: template, Protocol: "http", Severity: sev, Target: tgt}
}

func findRow(t *testing.T, rows []SummaryRow, label string) SummaryRow {
	t.Helper()
	for _, r := range rows {
		if r.SubjectLabel == label {
			return r
		}
	}
	t.Fatalf("no summary row labelled %q in %+v", label, rows)
	return SummaryRow{}
}

func TestBuildDeviceSingleFinding(t *testing.T) {
	inv := inventory.ParseDevices("DeviceA\tLinux 5.10\t10.0.0.1\n")
	rep := Build(inv, []importer.Finding{finding("weak-cipher", "low", "10.0.0.1")})

	if len(rep.Summary) != 1 {
		t.Fatalf("expected 1 summary row, got %+v", rep.Summary)
	}
	want := SummaryRow{Sequence: 1, SubjectKey: "10.0.0.1", SubjectLabel: "DeviceA", SystemVersion: "Linux 5.10", Low: 1, Subtotal: 1}
	if rep.Summary[0] != want {
		t.Fatalf("got %+v want %+v", rep.Summary[0], want)
	}
	if len(rep.Warnings) != 0 {
		t.Fatalf("unexpected warnings %v", rep.Warnings)
	}
}

func TestBuildMergesSubjectsPerTemplate(t *testing.T) {
	inv := inventory.ParseDevices("DeviceB\tv\t10.0.0.2\nDeviceA\tv\t10.0.0.1\n")
	rep := Build(inv, []importer.Finding{
		finding("Exposed Panel", "medium", "http://10.0.0.2:8080/admin"),
		finding("Exposed Panel", "critical", "10.0.0.1"),
		finding("Exposed Panel", "medium", "https://10.0.0.1/login"),
	})

	if len(rep.Vulnerabilities) != 1 {
		t.Fatalf("expected one row per template, got %+v", rep.Vulnerabilities)
	}
	row := rep.Vulnerabilities[0]
	if !reflect.DeepEqual(row.AssociatedSubjects, []string{"DeviceA", "DeviceB"}) {
		t.Fatalf("subjects=%v", row.AssociatedSubjects)
	}
	if row.Subjects() != "DeviceA, DeviceB" {
		t.Fatalf("joined subjects=%q", row.Subjects())
	}
	if row.Severity != severity.Medium {
		t.Fatalf("expected first-seen severity Medium, got %v", row.Severity)
	}

	// Later findings still count under their own classification.
	a := findRow(t, rep.Summary, "DeviceA")
	if a.High != 1 || a.Medium != 1 || a.Subtotal != 2 {
		t.Fatalf("DeviceA row %+v", a)
	}
}

func TestBuildSummaryOrdering(t *testing.T) {
	inv := inventory.ParseTargets("10.0.0.9\nbeta.example\nalpha.example\n10.0.0.3\n")
	var findings []importer.Finding
	for i := 0; i < 3; i++ {
		findings = append(findings, finding("t", "info", "10.0.0.3"))
	}
	for i := 0; i < 5; i++ {
		findings = append(findings, finding("t", "info", "zulu.example"))
	}
	findings = append(findings,
		finding("t", "info", "beta.example:443"),
		finding("t", "info", "https://alpha.example/x"),
	)
	rep := Build(inv, findings)

	var labels []string
	for i, r := range rep.Summary {
		if r.Sequence != i+1 {
			t.Fatalf("row %d has sequence %d", i, r.Sequence)
		}
		labels = append(labels, r.SubjectLabel)
	}
	want := []string{"zulu.example", "10.0.0.3", "alpha.example", "beta.example", "10.0.0.9"}
	if !reflect.DeepEqual(labels, want) {
		t.Fatalf("order=%v want %v", labels, want)
	}
}

func TestBuildVulnerabilityOrdering(t *testing.T) {
	inv := inventory.ParseTargets("10.0.0.1\n")
	rep := Build(inv, []importer.Finding{
		finding("b-info", "info", "10.0.0.1"),
		finding("z-high", "high", "10.0.0.1"),
		finding("a-low", "low", "10.0.0.1"),
		finding("a-high", "critical", "10.0.0.1"),
		finding("m-medium", "medium", "10.0.0.1"),
		finding("a-info", "unknown", "10.0.0.1"),
	})

	var names []string
	for i, r := range rep.Vulnerabilities {
		if r.Sequence != i+1 {
			t.Fatalf("row %d has sequence %d", i, r.Sequence)
		}
		names = append(names, r.VulnerabilityName)
	}
	want := []string{"a-high", "z-high", "m-medium", "a-low", "a-info", "b-info"}
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("order=%v want %v", names, want)
	}
}

func TestBuildUnseededSubjects(t *testing.T) {
	devices := inventory.ParseDevices("DeviceA\tv\t10.0.0.1\n")
	rep := Build(devices, []importer.Finding{finding("x", "high", "http://10.0.0.7:8080/a")})
	row := findRow(t, rep.Summary, "10.0.0.7")
	if row.High != 1 || row.SystemVersion != "" {
		t.Fatalf("unseeded device row %+v", row)
	}
	if rep.Vulnerabilities[0].Subjects() != "10.0.0.7" {
		t.Fatalf("expected bare key as subject, got %q", rep.Vulnerabilities[0].Subjects())
	}
	if len(rep.Warnings) != 1 || rep.Warnings[0] != WarnNoSubjectMatched {
		t.Fatalf("warnings=%v", rep.Warnings)
	}

	targets := inventory.ParseTargets("")
	rep = Build(targets, []importer.Finding{finding("x", "high", "http://10.0.0.7:8080/a")})
	findRow(t, rep.Summary, "http://10.0.0.7/a")
	if len(rep.Warnings) != 1 || rep.Warnings[0] != WarnEmptyInventory {
		t.Fatalf("warnings=%v", rep.Warnings)
	}
}

func TestBuildSubtotalInvariant(t *testing.T) {
	inv := inventory.ParseTargets("10.0.0.1\nexample.com\n")
	findings := []importer.Finding{
		finding("a", "high", "10.0.0.1:80"),
		finding("a", "high", "example.com"),
		finding("b", "low", ""),
		finding("c", "info", "other.net:8443"),
		finding("c", "medium", "https://10. 0. 0. 1/x"),
	}
	rep := Build(inv, findings)

	sum := 0
	for _, r := range rep.Summary {
		sum += r.Subtotal
		if r.High+r.Medium+r.Low+r.Info != r.Subtotal {
			t.Fatalf("row counters do not add up: %+v", r)
		}
	}
	if sum != 4 || rep.Totals.Findings != 4 {
		t.Fatalf("sum=%d totals=%+v, want 4 resolvable findings", sum, rep.Totals)
	}
	if rep.Totals.High != 2 || rep.Totals.Medium != 1 || rep.Totals.Info != 1 {
		t.Fatalf("totals=%+v", rep.Totals)
	}

	// A template whose only finding lacks a subject still gets a row.
	if len(rep.Vulnerabilities) != 3 {
		t.Fatalf("expected 3 vulnerability rows, got %+v", rep.Vulnerabilities)
	}
	for _, v := range rep.Vulnerabilities {
		if v.VulnerabilityName == "b" && len(v.AssociatedSubjects) != 0 {
			t.Fatalf("expected no subjects for b, got %v", v.AssociatedSubjects)
		}
	}
}

func TestBuildNoDuplicateSubjects(t *testing.T) {
	inv := inventory.ParseDevices("DeviceA\tv\t10.0.0.1\n")
	rep := Build(inv, []importer.Finding{
		finding("x", "low", "10.0.0.1"),
		finding("x", "low", "10.0.0.1:22"),
		finding("x", "low", "https://10.0.0.1/"),
	})
	if !reflect.DeepEqual(rep.Vulnerabilities[0].AssociatedSubjects, []string{"DeviceA"}) {
		t.Fatalf("subjects=%v", rep.Vulnerabilities[0].AssociatedSubjects)
	}
}

func TestBuildNoFindings(t *testing.T) {
	inv := inventory.ParseDevices("DeviceA\tv\t10.0.0.1\nDeviceB\tv\t10.0.0.2\n")
	rep := Build(inv, nil)
	if len(rep.Summary) != 2 || len(rep.Vulnerabilities) != 0 {
		t.Fatalf("unexpected tables %+v", rep)
	}
	for _, r := range rep.Summary {
		if r.Subtotal != 0 {
			t.Fatalf("expected all-zero rows, got %+v", r)
		}
	}
	if rep.Summary[0].SubjectLabel != "DeviceA" {
		t.Fatalf("zero rows should sort by label, got %+v", rep.Summary)
	}
	if !reflect.DeepEqual(rep.Warnings, []string{WarnNoFindings}) {
		t.Fatalf("warnings=%v", rep.Warnings)
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	inv := inventory.ParseTargets("10.0.0.1\n10.0.0.2\n")
	findings := []importer.Finding{
		finding("x", "low", "10.0.0.2"),
		finding("y", "high", "10.0.0.1"),
		finding("x", "low", "10.0.0.1"),
		finding("z", "info", "10.0.0.3"),
	}
	first := Build(inv, findings)
	for i := 0; i < 10; i++ {
		if again := Build(inv, findings); !reflect.DeepEqual(first, again) {
			t.Fatalf("build %d differs:\n%+v\n%+v", i, first, again)
		}
	}
}

func TestSummaryRowCount(t *testing.T) {
	r := SummaryRow{High: 1, Medium: 2, Low: 3, Info: 4}
	for i, level := range severity.Levels {
		if r.Count(level) != i+1 {
			t.Fatalf("Count(%v)=%d", level, r.Count(level))
		}
	}
}
