package export

import (
	"strings"

	"github.com/sloppy/nucleireport/internal/inventory"
)

type labels struct {
	Sequence      string
	Device        string
	Target        string
	SystemVersion string
	High          string
	Medium        string
	Low           string
	Info          string
	Subtotal      string
	Vulnerability string
	Associated    string
	Severity      string
	SummaryTitle  string
	DetailTitle   string
}

var labelsEN = labels{
	Sequence:      "No.",
	Device:        "Device",
	Target:        "Target",
	SystemVersion: "System Version",
	High:          "High",
	Medium:        "Medium",
	Low:           "Low",
	Info:          "Info",
	Subtotal:      "Subtotal",
	Vulnerability: "Vulnerability",
	Associated:    "Associated Targets",
	Severity:      "Severity",
	SummaryTitle:  "Summary",
	DetailTitle:   "Vulnerabilities",
}

var labelsZH = labels{
	Sequence:      "序号",
	Device:        "设备名称",
	Target:        "检测目标",
	SystemVersion: "系统及版本",
	High:          "高",
	Medium:        "中",
	Low:           "低",
	Info:          "信息",
	Subtotal:      "小计",
	Vulnerability: "安全漏洞名称",
	Associated:    "关联目标",
	Severity:      "严重程度",
	SummaryTitle:  "漏洞汇总",
	DetailTitle:   "漏洞详情",
}

func labelsFor(locale string) labels {
	if strings.EqualFold(locale, "zh") {
		return labelsZH
	}
	return labelsEN
}

// summaryHeader returns the summary columns. The system version column only
// exists for device inventories.
func summaryHeader(mode inventory.Mode, locale string) []string {
	l := labelsFor(locale)
	if mode == inventory.ModeDevice {
		return []string{l.Sequence, l.Device, l.SystemVersion, l.High, l.Medium, l.Low, l.Info, l.Subtotal}
	}
	return []string{l.Sequence, l.Target, l.High, l.Medium, l.Low, l.Info, l.Subtotal}
}

func vulnerabilityHeader(locale string) []string {
	l := labelsFor(locale)
	return []string{l.Sequence, l.Vulnerability, l.Associated, l.Severity}
}
