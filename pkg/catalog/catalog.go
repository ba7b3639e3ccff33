// Package catalog provides the materials and labour-rate reference data
// that parsed quote lines are matched against. The catalog is loaded once
// per run and treated as an immutable snapshot for the duration of a
// parse+aggregate pass.
package catalog

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// FrameType identifies the framing a supply-and-install rate applies to.
type FrameType string

const (
	FrameTimber FrameType = "timber"
	FrameSteel  FrameType = "steel"
)

// Material represents one purchasable product variant.
type Material struct {
	ID             string   `json:"id" yaml:"id"`
	Name           string   `json:"name" yaml:"name"`
	Supplier       string   `json:"supplier,omitempty" yaml:"supplier,omitempty"`
	Brand          string   `json:"brand,omitempty" yaml:"brand,omitempty"`
	Category       string   `json:"category" yaml:"category"`
	RValue         string   `json:"r_value,omitempty" yaml:"r_value,omitempty"`
	Thickness      string   `json:"thickness,omitempty" yaml:"thickness,omitempty"`
	Width          float64  `json:"width,omitempty" yaml:"width,omitempty"`   // millimetres
	Length         float64  `json:"length,omitempty" yaml:"length,omitempty"` // millimetres
	Density        string   `json:"density,omitempty" yaml:"density,omitempty"`
	CoverageAmount float64  `json:"coverage_amount,omitempty" yaml:"coverage_amount,omitempty"`
	CoverageUnit   string   `json:"coverage_unit,omitempty" yaml:"coverage_unit,omitempty"`
	SaleUnit       string   `json:"sale_unit,omitempty" yaml:"sale_unit,omitempty"`
	UnitCost       float64  `json:"unit_cost" yaml:"unit_cost"`
	TimberRate     float64  `json:"timber_rate,omitempty" yaml:"timber_rate,omitempty"`
	SteelRate      float64  `json:"steel_rate,omitempty" yaml:"steel_rate,omitempty"`
	Keywords       []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`
}

// InstallRate returns the supply-and-install rate for the given frame type.
func (m *Material) InstallRate(frame FrameType) float64 {
	if frame == FrameSteel {
		return m.SteelRate
	}
	return m.TimberRate
}

// LabourRate represents one labour application/area rate.
type LabourRate struct {
	ID          string   `json:"id" yaml:"id"`
	Application string   `json:"application" yaml:"application"`
	Area        string   `json:"area,omitempty" yaml:"area,omitempty"`
	TimberRate  float64  `json:"timber_rate" yaml:"timber_rate"`
	SteelRate   float64  `json:"steel_rate" yaml:"steel_rate"`
	Unit        string   `json:"unit,omitempty" yaml:"unit,omitempty"`
	Keywords    []string `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	Notes       string   `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// Rate returns the labour rate for the given frame type.
func (l *LabourRate) Rate(frame FrameType) float64 {
	if frame == FrameSteel {
		return l.SteelRate
	}
	return l.TimberRate
}

// Snapshot is a read-only view of the catalog taken at the start of a
// parse pass. Callers must not mutate it while a pass is running; a
// changed catalog means a full re-run, never an in-place patch.
type Snapshot struct {
	Materials   []Material   `json:"materials" yaml:"materials"`
	LabourRates []LabourRate `json:"labour_rates" yaml:"labour_rates"`
}

// LoadSnapshot reads a catalog snapshot from a YAML file.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	return ParseSnapshot(data)
}

// ParseSnapshot parses a catalog snapshot from YAML bytes.
func ParseSnapshot(data []byte) (*Snapshot, error) {
	var snap Snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Validate checks the snapshot for entries the pipeline cannot use.
func (s *Snapshot) Validate() error {
	seen := make(map[string]bool)
	for i, m := range s.Materials {
		if m.ID == "" {
			return fmt.Errorf("material %d (%q): missing id", i, m.Name)
		}
		if seen[m.ID] {
			return fmt.Errorf("material %d: duplicate id %q", i, m.ID)
		}
		seen[m.ID] = true
		if m.Name == "" {
			return fmt.Errorf("material %s: missing name", m.ID)
		}
	}
	seen = make(map[string]bool)
	for i, l := range s.LabourRates {
		if l.ID == "" {
			return fmt.Errorf("labour rate %d (%q): missing id", i, l.Application)
		}
		if seen[l.ID] {
			return fmt.Errorf("labour rate %d: duplicate id %q", i, l.ID)
		}
		seen[l.ID] = true
	}
	return nil
}

// Material returns the material with the given id, or nil.
func (s *Snapshot) Material(id string) *Material {
	for i := range s.Materials {
		if s.Materials[i].ID == id {
			return &s.Materials[i]
		}
	}
	return nil
}

// Labour returns the labour rate with the given id, or nil.
func (s *Snapshot) Labour(id string) *LabourRate {
	for i := range s.LabourRates {
		if s.LabourRates[i].ID == id {
			return &s.LabourRates[i]
		}
	}
	return nil
}

// NormalizeKeyword lowercases and trims a keyword for comparison.
func NormalizeKeyword(kw string) string {
	return strings.ToLower(strings.TrimSpace(kw))
}
