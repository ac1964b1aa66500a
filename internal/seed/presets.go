package seed

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"civicboard/internal/geo"

	"gopkg.in/yaml.v3"
)

//go:embed presets.yaml
var builtinPresets []byte

// Preset sizes one seeding run.
type Preset struct {
	Users         int     `yaml:"users"`
	Events        int     `yaml:"events"`
	Issues        int     `yaml:"issues"`
	MaxVotes      int     `yaml:"max_votes"`
	MaxFollowers  int     `yaml:"max_followers"`
	Registrations bool    `yaml:"registrations"`
	Feedback      bool    `yaml:"feedback"`
	Reports       int     `yaml:"reports"`
	Center        center  `yaml:"center"`
	SpreadKm      float64 `yaml:"spread_km"`
}

type center struct {
	Lat float64 `yaml:"lat"`
	Lng float64 `yaml:"lng"`
}

type presetFile struct {
	Presets map[string]Preset `yaml:"presets"`
}

// ParsePresets decodes a presets document and validates every entry.
func ParsePresets(raw []byte) (map[string]Preset, error) {
	var doc presetFile
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse presets: %w", err)
	}
	if len(doc.Presets) == 0 {
		return nil, fmt.Errorf("parse presets: no presets defined")
	}
	for name, p := range doc.Presets {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("preset %s: %w", name, err)
		}
	}
	return doc.Presets, nil
}

// LoadPreset returns the named preset from path, or from the built-in
// presets when path is empty.
func LoadPreset(name, path string) (Preset, error) {
	raw := builtinPresets
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Preset{}, fmt.Errorf("read presets: %w", err)
		}
		raw = b
	}
	presets, err := ParsePresets(raw)
	if err != nil {
		return Preset{}, err
	}
	p, ok := presets[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		names := make([]string, 0, len(presets))
		for n := range presets {
			names = append(names, n)
		}
		sort.Strings(names)
		return Preset{}, fmt.Errorf("unknown preset %q (available: %s)", name, strings.Join(names, ", "))
	}
	return p, nil
}

// Validate rejects negative sizes and an out-of-range center.
func (p Preset) Validate() error {
	if p.Users < 1 {
		return fmt.Errorf("users must be at least 1")
	}
	if p.Events < 0 || p.Issues < 0 || p.MaxVotes < 0 || p.MaxFollowers < 0 || p.Reports < 0 {
		return fmt.Errorf("counts must not be negative")
	}
	if p.SpreadKm < 0 {
		return fmt.Errorf("spread_km must not be negative")
	}
	return geo.ValidateCoordinates(p.Center.Lat, p.Center.Lng)
}
