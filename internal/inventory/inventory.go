package inventory

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sloppy/nucleireport/internal/target"
	"github.com/sloppy/nucleireport/internal/textio"
)

// ErrUnknownMode is returned for a report mode other than device or target.
var ErrUnknownMode = errors.New("unknown report mode")

// Mode selects how an inventory file is read and how subjects are labelled.
type Mode string

const (
	ModeDevice Mode = "device"
	ModeTarget Mode = "target"
)

// ParseMode validates a mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeDevice:
		return ModeDevice, nil
	case ModeTarget, "ip":
		return ModeTarget, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// Device is one record of a device inventory.
type Device struct {
	IP            string
	DeviceName    string
	SystemVersion string
}

// Entry is a subject seeded into the summary table.
type Entry struct {
	Key           string
	Label         string
	SystemVersion string
}

// SkippedLine records an inventory line dropped for being malformed.
type SkippedLine struct {
	Line   int
	Reason string
}

// Inventory is the parsed content of one inventory file.
type Inventory struct {
	Mode    Mode
	Path    string
	Devices []Device
	Targets []string
	Skipped []SkippedLine
}

// Len returns the number of parsed records.
func (inv Inventory) Len() int {
	if inv.Mode == ModeDevice {
		return len(inv.Devices)
	}
	return len(inv.Targets)
}

// Entries returns the subjects to seed, in first-seen order. A later record
// with an already seen key replaces the earlier one in place.
func (inv Inventory) Entries() []Entry {
	var out []Entry
	index := make(map[string]int)
	put := func(e Entry) {
		if e.Key == "" {
			return
		}
		if i, ok := index[e.Key]; ok {
			out[i] = e
			return
		}
		index[e.Key] = len(out)
		out = append(out, e)
	}

	if inv.Mode == ModeDevice {
		for _, d := range inv.Devices {
			put(Entry{Key: target.MatchKey(d.IP), Label: d.DeviceName, SystemVersion: d.SystemVersion})
		}
		return out
	}
	for _, t := range inv.Targets {
		put(Entry{Key: target.MatchKey(t), Label: target.DisplayForm(t)})
	}
	return out
}

// Load reads an inventory file in the given mode. Device inventories go
// through cache when it is non-nil.
func Load(mode Mode, path string, cache *Cache) (Inventory, error) {
	switch mode {
	case ModeDevice:
		return LoadDevices(path, cache)
	case ModeTarget:
		return LoadTargets(path)
	default:
		return Inventory{}, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
}

// LoadDevices reads a tab separated device inventory:
// deviceName<TAB>systemVersion<TAB>ip. Lines with fewer than three fields are
// dropped. Only I/O failures are returned as errors.
func LoadDevices(path string, cache *Cache) (Inventory, error) {
	if cache != nil {
		if inv, ok := cache.Get(path); ok {
			return inv, nil
		}
	}

	content, _, err := textio.ReadFile(path)
	if err != nil {
		return Inventory{}, fmt.Errorf("open device inventory: %w", err)
	}
	inv := ParseDevices(content)
	inv.Path = path

	if cache != nil {
		cache.Put(path, inv)
	}
	return inv, nil
}

// ParseDevices parses device inventory content.
func ParseDevices(content string) Inventory {
	inv := Inventory{Mode: ModeDevice}
	index := make(map[string]int)
	for i, raw := range strings.Split(content, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		parts := strings.Split(line, "\t")
		if len(parts) < 3 {
			inv.Skipped = append(inv.Skipped, SkippedLine{Line: i + 1, Reason: fmt.Sprintf("expected 3 tab separated fields, found %d", len(parts))})
			continue
		}
		d := Device{
			DeviceName:    strings.TrimSpace(parts[0]),
			SystemVersion: strings.TrimSpace(parts[1]),
			IP:            target.RepairIP(strings.TrimSpace(parts[2])),
		}
		if d.IP == "" {
			inv.Skipped = append(inv.Skipped, SkippedLine{Line: i + 1, Reason: "empty ip field"})
			continue
		}
		if j, ok := index[d.IP]; ok {
			inv.Devices[j] = d
			continue
		}
		index[d.IP] = len(inv.Devices)
		inv.Devices = append(inv.Devices, d)
	}
	return inv
}

// LoadTargets reads a plain target list, one target per line, with "#"
// starting a comment.
func LoadTargets(path string) (Inventory, error) {
	content, _, err := textio.ReadFile(path)
	if err != nil {
		return Inventory{}, fmt.Errorf("open target list: %w", err)
	}
	inv := ParseTargets(content)
	inv.Path = path
	return inv, nil
}

// ParseTargets parses target list content.
func ParseTargets(content string) Inventory {
	inv := Inventory{Mode: ModeTarget}
	for _, raw := range strings.Split(content, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if before, _, ok := strings.Cut(line, "#"); ok {
			line = before
		}
		if t := target.Clean(line); t != "" {
			inv.Targets = append(inv.Targets, t)
		}
	}
	return inv
}
