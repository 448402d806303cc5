package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sloppy/nucleireport/internal/importer"
	"github.com/sloppy/nucleireport/internal/inventory"
	"github.com/sloppy/nucleireport/internal/report"
	"github.com/sloppy/nucleireport/internal/severity"
	"github.com/sloppy/nucleireport/internal/testutil"
)

func deviceReport() report.Report {
	inv := inventory.ParseDevices("DeviceA\tLinux 5.10\t10.0.0.1\nDeviceB\tWindows, 2019\t10.0.0.2\nIdle\tBSD\t10.0.0.3\n")
	return report.Build(inv, []importer.Finding{
		{Template: "Exposed Panel", Severity: "high", Target: "http://10.0.0.1:8080"},
		{Template: "Exposed Panel", Severity: "high", Target: "10.0.0.2"},
		{Template: "<script>", Severity: "info", Target: "10.0.0.1"},
	})
}

func targetReport() report.Report {
	inv := inventory.ParseTargets("10.0.0.1\nexample.com\n")
	return report.Build(inv, []importer.Finding{
		{Template: "weak-tls", Severity: "low", Target: "example.com:443"},
	})
}

func TestWriteSummaryCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSummaryCSV(&buf, deviceReport(), "en"); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	expected := strings.Join([]string{
		"No.,Device,System Version,High,Medium,Low,Info,Subtotal",
		"1,DeviceA,Linux 5.10,1,0,0,1,2",
		"2,DeviceB,\"Windows, 2019\",1,0,0,0,1",
		"3,Idle,BSD,0,0,0,0,0",
	}, "\n")
	if strings.TrimSpace(buf.String()) != expected {
		t.Fatalf("csv mismatch\nexpected:\n%s\n\ngot:\n%s", expected, buf.String())
	}
}

func TestWriteSummaryCSVTargetModeChinese(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSummaryCSV(&buf, targetReport(), "zh"); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if lines[0] != "序号,检测目标,高,中,低,信息,小计" {
		t.Fatalf("unexpected header %q", lines[0])
	}
	if lines[1] != "1,example.com,0,0,1,0,1" {
		t.Fatalf("unexpected first row %q", lines[1])
	}
}

func TestWriteVulnerabilitiesCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteVulnerabilitiesCSV(&buf, deviceReport(), "zh"); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	expected := strings.Join([]string{
		"序号,安全漏洞名称,关联目标,严重程度",
		"1,Exposed Panel,\"DeviceA, DeviceB\",高",
		"2,<script>,DeviceA,信息",
	}, "\n")
	if strings.TrimSpace(buf.String()) != expected {
		t.Fatalf("csv mismatch\nexpected:\n%s\n\ngot:\n%s", expected, buf.String())
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	meta := Meta{RunID: "run-1", InventoryPath: "devices.txt", GeneratedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)}
	if err := WriteJSON(&buf, deviceReport(), Options{Meta: meta}); err != nil {
		t.Fatalf("write json: %v", err)
	}

	var decoded ReportExport
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Meta.RunID != "run-1" || decoded.Mode != inventory.ModeDevice {
		t.Fatalf("unexpected meta %+v mode %q", decoded.Meta, decoded.Mode)
	}
	if len(decoded.Summary) != 3 || len(decoded.Vulnerabilities) != 2 {
		t.Fatalf("unexpected tables %+v", decoded)
	}
	if decoded.Vulnerabilities[0].Severity != severity.High {
		t.Fatalf("severity=%v", decoded.Vulnerabilities[0].Severity)
	}
	if !strings.Contains(buf.String(), `"severity": "High"`) {
		t.Fatalf("expected severity vocabulary in output:\n%s", buf.String())
	}
}

func TestWriteJSONEmptyTables(t *testing.T) {
	var buf bytes.Buffer
	rep := report.Build(inventory.ParseTargets(""), nil)
	if err := WriteJSON(&buf, rep, Options{}); err != nil {
		t.Fatalf("write json: %v", err)
	}
	if !strings.Contains(buf.String(), `"summary": []`) || !strings.Contains(buf.String(), `"vulnerabilities": []`) {
		t.Fatalf("expected empty arrays, got:\n%s", buf.String())
	}
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	opts := Options{Meta: Meta{InventoryPath: "devices.txt", ScanPath: "scan.txt", Lines: 1200, StrictLines: 1100, FallbackLines: 90, FailedLines: 10}}
	if err := WriteText(&buf, deviceReport(), opts); err != nil {
		t.Fatalf("write text: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"Inventory: devices.txt (device)",
		"Findings: 3 (2 High, 0 Medium, 0 Low, 1 Info)",
		"Lines: 1,200 read, 1,100 strict, 90 fallback, 10 failed",
		"Summary",
		"DeviceA",
		"Exposed Panel",
		"DeviceA, DeviceB",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestWriteTextEmpty(t *testing.T) {
	var buf bytes.Buffer
	rep := report.Build(inventory.ParseTargets(""), nil)
	if err := WriteText(&buf, rep, Options{}); err != nil {
		t.Fatalf("write text: %v", err)
	}
	if !strings.Contains(buf.String(), "No subjects.") || !strings.Contains(buf.String(), "No vulnerabilities.") {
		t.Fatalf("expected empty table notes:\n%s", buf.String())
	}
	if !strings.Contains(buf.String(), "Warning: "+report.WarnNoFindings) {
		t.Fatalf("expected warning line:\n%s", buf.String())
	}
}

func TestWriteHTML(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteHTML(context.Background(), &buf, deviceReport(), Options{Meta: Meta{InventoryPath: "lists/devices.txt"}}); err != nil {
		t.Fatalf("write html: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "<!doctype html>") {
		t.Fatalf("expected html document, got %q", out[:40])
	}
	for _, want := range []string{
		"<title>Nuclei Report - devices</title>",
		"<tr class=\"row-empty\"><td>3</td><td>Idle</td>",
		"<td class=\"sev-high\">High</td>",
		"&lt;script&gt;",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
	if strings.Contains(out, "<td><script>") {
		t.Fatalf("template names must be escaped")
	}
}

func TestParseFormats(t *testing.T) {
	got, err := ParseFormats([]string{"csv,json", "TXT", "csv", " html "})
	if err != nil {
		t.Fatalf("parse formats: %v", err)
	}
	want := []Format{FormatCSV, FormatJSON, FormatText, FormatHTML}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v want %v", got, want)
		}
	}

	if _, err := ParseFormats([]string{"xlsx"}); !errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("expected ErrUnknownFormat, got %v", err)
	}
}

func TestWriteFiles(t *testing.T) {
	dir := filepath.Join(testutil.TempDir(t), "out")
	paths, err := WriteFiles(dir, "devices", []Format{FormatCSV, FormatJSON, FormatText, FormatHTML, FormatSQLite}, deviceReport(), Options{})
	if err != nil {
		t.Fatalf("write files: %v", err)
	}
	want := []string{
		"devices-summary.csv",
		"devices-vulnerabilities.csv",
		"devices-report.json",
		"devices-report.txt",
		"devices-report.html",
	}
	if len(paths) != len(want) {
		t.Fatalf("paths=%v", paths)
	}
	for i, name := range want {
		if filepath.Base(paths[i]) != name {
			t.Fatalf("path[%d]=%s want %s", i, paths[i], name)
		}
		info, err := os.Stat(paths[i])
		if err != nil || info.Size() == 0 {
			t.Fatalf("expected non-empty %s: %v", name, err)
		}
	}
}

func TestBaseName(t *testing.T) {
	cases := map[string]string{
		"lists/devices.txt":   "devices",
		"targets":             "targets",
		"/tmp/a.b/ips.v2.txt": "ips.v2",
	}
	for in, want := range cases {
		if got := BaseName(in); got != want {
			t.Fatalf("BaseName(%q)=%q want %q", in, got, want)
		}
	}
}
