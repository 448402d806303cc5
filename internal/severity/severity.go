package severity

import (
	"fmt"
	"strings"
)

// Level is the four-bucket severity taxonomy used by both report tables.
type Level int

const (
	High Level = iota
	Medium
	Low
	Info
)

// Levels lists every level in rank order.
var Levels = []Level{High, Medium, Low, Info}

// Classify maps a raw scanner severity token to a Level. Unrecognized and
// empty tokens fall back to Info.
func Classify(raw string) Level {
	s := strings.ToLower(raw)
	switch {
	case strings.Contains(s, "critical"), strings.Contains(s, "high"):
		return High
	case strings.Contains(s, "medium"):
		return Medium
	case strings.Contains(s, "low"):
		return Low
	default:
		return Info
	}
}

// Rank orders levels for sorting, High first.
func (l Level) Rank() int {
	if l < High || l > Info {
		return int(Info) + 1
	}
	return int(l)
}

func (l Level) String() string {
	switch l {
	case High:
		return "High"
	case Medium:
		return "Medium"
	case Low:
		return "Low"
	case Info:
		return "Info"
	default:
		return "Unknown"
	}
}

var zhLabels = map[Level]string{
	High:   "高",
	Medium: "中",
	Low:    "低",
	Info:   "信息",
}

// Label returns the display label for the given locale ("en" or "zh").
func (l Level) Label(locale string) string {
	if strings.EqualFold(locale, "zh") {
		if label, ok := zhLabels[l]; ok {
			return label
		}
	}
	return l.String()
}

// Parse accepts the boundary vocabulary (High, Medium, Low, Info) in any case.
func Parse(s string) (Level, bool) {
	for _, l := range Levels {
		if strings.EqualFold(strings.TrimSpace(s), l.String()) {
			return l, true
		}
	}
	return Info, false
}

// MarshalText encodes a level as its boundary vocabulary word.
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText decodes a boundary vocabulary word.
func (l *Level) UnmarshalText(text []byte) error {
	parsed, ok := Parse(string(text))
	if !ok {
		return fmt.Errorf("unknown severity %q", text)
	}
	*l = parsed
	return nil
}
