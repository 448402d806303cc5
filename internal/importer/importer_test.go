package importer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sloppy/nucleireport/internal/testutil"
	"github.com/sloppy/nucleireport/internal/textio"
	"golang.org/x/text/encoding/simplifiedchinese"
)

func TestParseLineStrict(t *testing.T) {
	lr := ParseLine(`[CVE-2021-Test] [http] [high] 172. 16. 0. 1:8080 ["leaked creds"]`, 7)
	if lr.Outcome != OutcomeStrict {
		t.Fatalf("expected strict outcome, got %v (%s)", lr.Outcome, lr.Reason)
	}
	want := Finding{
		Template:   "CVE-2021-Test",
		Protocol:   "http",
		Severity:   "high",
		Target:     "172.16.0.1:8080",
		ExtraInfo:  "leaked creds",
		SourceLine: 7,
		Grammar:    GrammarStrict,
	}
	if lr.Finding != want {
		t.Fatalf("unexpected finding\nwant %+v\ngot  %+v", want, lr.Finding)
	}
}

func TestParseLineStrictWithoutExtraInfo(t *testing.T) {
	lr := ParseLine(`[tech-detect:nginx] [http] [info] https://example.com:8443/admin`, 1)
	if lr.Outcome != OutcomeStrict {
		t.Fatalf("expected strict outcome, got %v", lr.Outcome)
	}
	if lr.Finding.Target != "https://example.com:8443/admin" {
		t.Fatalf("target=%q", lr.Finding.Target)
	}
	if lr.Finding.ExtraInfo != "" {
		t.Fatalf("expected empty extra info, got %q", lr.Finding.ExtraInfo)
	}
}

func TestParseLineStrictTrailingBracket(t *testing.T) {
	lr := ParseLine(`[ssh-auth-methods] [javascript] [info] 10.0.0.3:22 ["[\"publickey\",\"password\"]"]`, 1)
	if lr.Outcome != OutcomeStrict {
		t.Fatalf("expected strict outcome, got %v", lr.Outcome)
	}
	if lr.Finding.Target != "10.0.0.3:22" {
		t.Fatalf("target=%q", lr.Finding.Target)
	}
	if !strings.Contains(lr.Finding.ExtraInfo, "publickey") {
		t.Fatalf("extra info=%q", lr.Finding.ExtraInfo)
	}
}

func TestParseLineFallback(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		template string
		protocol string
		severity string
		target   string
	}{
		{
			name:     "no space before target",
			line:     "[weak-cipher] [ssl] [medium]10.0.0.8:443",
			template: "weak-cipher",
			protocol: "ssl",
			severity: "medium",
			target:   "10.0.0.8:443",
		},
		{
			name:     "empty severity",
			line:     "[panel] [http] [] http://10.0.0.9",
			template: "panel",
			protocol: "http",
			severity: "",
			target:   "http://10.0.0.9",
		},
		{
			name:     "fourth part rejoined",
			line:     "[a] [b] [low]x] [y",
			template: "a",
			protocol: "b",
			severity: "low",
			target:   "x] [y",
		},
		{
			name:     "truncated severity",
			line:     "[dns-rebind] [dns] [high",
			template: "dns-rebind",
			protocol: "dns",
			severity: "high",
			target:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lr := ParseLine(tt.line, 3)
			if lr.Outcome != OutcomeFallback {
				t.Fatalf("expected fallback outcome, got %v (%s)", lr.Outcome, lr.Reason)
			}
			f := lr.Finding
			if f.Template != tt.template || f.Protocol != tt.protocol || f.Severity != tt.severity || f.Target != tt.target {
				t.Fatalf("unexpected finding %+v", f)
			}
			if f.ExtraInfo != "" {
				t.Fatalf("fallback must not set extra info, got %q", f.ExtraInfo)
			}
			if f.Grammar != GrammarFallback || f.SourceLine != 3 {
				t.Fatalf("unexpected grammar/line %s/%d", f.Grammar, f.SourceLine)
			}
		})
	}
}

func TestParseLineSkipped(t *testing.T) {
	lines := []string{
		"",
		"   ",
		"garbage no brackets here",
		"[INF] Current nuclei version: v3.1.0",
		"\x00\x01binary] [junk",
	}
	for _, line := range lines {
		if lr := ParseLine(line, 1); lr.Outcome != OutcomeSkipped {
			t.Fatalf("expected %q to be skipped, got %v", line, lr.Outcome)
		}
	}
}

func TestParseLineFailed(t *testing.T) {
	tests := []string{
		"[only] [two",
		"[] [http] [high] 10.0.0.1",
	}
	for _, line := range tests {
		lr := ParseLine(line, 9)
		if lr.Outcome != OutcomeFailed {
			t.Fatalf("expected %q to fail, got %v", line, lr.Outcome)
		}
		if lr.Reason == "" {
			t.Fatalf("expected a failure reason for %q", line)
		}
	}
}

func TestParseCollectsDiagnosticsAndContinues(t *testing.T) {
	content := strings.Join([]string{
		"[INF] Loading templates",
		"[tpl-a] [http] [high] 10.0.0.1",
		"garbage no brackets here",
		"[only] [two",
		"[tpl-b] [tcp] [low]10.0.0.2:22",
		"",
	}, "\r\n")

	res := Parse(content)
	if len(res.Findings) != 2 {
		t.Fatalf("expected 2 findings, got %d", len(res.Findings))
	}
	if res.Findings[0].SourceLine != 2 || res.Findings[1].SourceLine != 5 {
		t.Fatalf("unexpected source lines %d, %d", res.Findings[0].SourceLine, res.Findings[1].SourceLine)
	}
	if res.Findings[1].Target != "10.0.0.2:22" {
		t.Fatalf("expected carriage return trimmed, got %q", res.Findings[1].Target)
	}
	if len(res.Diagnostics) != 1 || res.Diagnostics[0].Line != 4 {
		t.Fatalf("unexpected diagnostics %+v", res.Diagnostics)
	}
	want := ParseStats{Lines: 5, Strict: 1, Fallback: 1, Failed: 1, Skipped: 2}
	if res.Stats != want {
		t.Fatalf("stats=%+v want %+v", res.Stats, want)
	}
}

func TestParseEmpty(t *testing.T) {
	res := Parse("")
	if len(res.Findings) != 0 || len(res.Diagnostics) != 0 || res.Stats.Lines != 0 {
		t.Fatalf("expected nothing parsed, got %+v", res)
	}
	if res := Parse("[a] [b] [c] d\n"); res.Stats.Lines != 1 {
		t.Fatalf("trailing newline should not count as a line, got %+v", res.Stats)
	}
}

func TestParseFileGBK(t *testing.T) {
	dir := testutil.TempDir(t)
	encoded, err := simplifiedchinese.GBK.NewEncoder().String("[弱口令检测] [ssh] [critical] 10.0.0.7:22\n")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	path := filepath.Join(dir, "scan.txt")
	if err := os.WriteFile(path, []byte(encoded), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	res, err := ParseFile(path)
	if err != nil {
		t.Fatalf("parse file: %v", err)
	}
	if res.Encoding != textio.GBK {
		t.Fatalf("expected gbk encoding, got %s", res.Encoding)
	}
	if len(res.Findings) != 1 || res.Findings[0].Template != "弱口令检测" {
		t.Fatalf("unexpected findings %+v", res.Findings)
	}
}

func TestParseFileMissing(t *testing.T) {
	dir := testutil.TempDir(t)
	res, err := ParseFile(filepath.Join(dir, "nope.txt"))
	if err == nil {
		t.Fatalf("expected error for missing file")
	}
	if len(res.Findings) != 0 {
		t.Fatalf("expected zero findings on file error")
	}
}

func TestParseReader(t *testing.T) {
	res, err := ParseReader(strings.NewReader("[x] [http] [low] host.example:80\n"))
	if err != nil {
		t.Fatalf("parse reader: %v", err)
	}
	if len(res.Findings) != 1 || res.Findings[0].Target != "host.example:80" {
		t.Fatalf("unexpected findings %+v", res.Findings)
	}
}
