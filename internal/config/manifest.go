package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/sloppy/nucleireport/internal/batch"
	"github.com/sloppy/nucleireport/internal/inventory"
)

// Manifest lists the pairs of a batch run.
//
//	mode: device
//	pairs:
//	  - inventory: devices.txt
//	    scan: scan.txt
type Manifest struct {
	Mode  inventory.Mode `yaml:"mode"`
	Pairs []batch.Pair   `yaml:"pairs"`
}

// LoadManifest reads a manifest. Relative paths are resolved against the
// manifest's directory. Mode is empty when the manifest does not set one.
func LoadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}

	var raw struct {
		Mode  string       `yaml:"mode"`
		Pairs []batch.Pair `yaml:"pairs"`
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return Manifest{}, fmt.Errorf("manifest %s: no pairs", path)
		}
		return Manifest{}, fmt.Errorf("decode manifest %s: %w", path, err)
	}

	var m Manifest
	if raw.Mode != "" {
		mode, err := inventory.ParseMode(raw.Mode)
		if err != nil {
			return Manifest{}, fmt.Errorf("manifest %s: %w", path, err)
		}
		m.Mode = mode
	}
	if len(raw.Pairs) == 0 {
		return Manifest{}, fmt.Errorf("manifest %s: no pairs", path)
	}

	dir := filepath.Dir(path)
	for i, p := range raw.Pairs {
		if p.Inventory == "" || p.Scan == "" {
			return Manifest{}, fmt.Errorf("manifest %s: pair %d needs both inventory and scan", path, i+1)
		}
		m.Pairs = append(m.Pairs, batch.Pair{
			Inventory: resolve(dir, p.Inventory),
			Scan:      resolve(dir, p.Scan),
		})
	}
	return m, nil
}

func resolve(dir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}
