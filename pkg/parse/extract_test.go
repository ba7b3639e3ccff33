package parse

import (
	"strings"
	"testing"
)

func TestExtractGeneralLine(t *testing.T) {
	e := NewExtractor()

	item, siblings := e.Extract("- Thermal batt R2.5 HD – 45.5m²", nil)
	if item == nil {
		t.Fatal("Extract returned nil for a general material line")
	}
	if len(siblings) != 0 {
		t.Fatalf("unexpected siblings: %d", len(siblings))
	}

	if item.OriginalText != "- Thermal batt R2.5 HD – 45.5m²" {
		t.Errorf("OriginalText = %q, want verbatim trimmed line", item.OriginalText)
	}
	if item.Description != "Thermal batt" {
		t.Errorf("Description = %q, want %q", item.Description, "Thermal batt")
	}
	if item.RValue != "2.5" || item.Grade != "HD" {
		t.Errorf("RValue/Grade = %q/%q, want 2.5/HD", item.RValue, item.Grade)
	}
	if item.Quantity != 45.5 {
		t.Errorf("Quantity = %v, want 45.5", item.Quantity)
	}
	if item.Unit != UnitSquareMetre {
		t.Errorf("Unit = %q, want %q", item.Unit, UnitSquareMetre)
	}
	if item.Category != CategoryBulkInsulation {
		t.Errorf("Category = %q, want %q", item.Category, CategoryBulkInsulation)
	}
}

func TestExtractUnitSpellings(t *testing.T) {
	e := NewExtractor()

	tests := []struct {
		line string
		qty  float64
		unit Unit
	}{
		{"Thermal batt R2.5 – 45.5m²", 45.5, UnitSquareMetre},
		{"Thermal batt R2.5 – 45.5 m2", 45.5, UnitSquareMetre},
		{"Thermal batt R2.5 – 45.5sqm", 45.5, UnitSquareMetre},
		{"Wall wrap – 80 LM", 80, UnitLinearMetre},
		{"Roof batts R4.0 – 6 each", 6, UnitItem},
	}
	for _, tt := range tests {
		item, _ := e.Extract(tt.line, nil)
		if item == nil {
			t.Errorf("Extract(%q) = nil", tt.line)
			continue
		}
		if item.Quantity != tt.qty || item.Unit != tt.unit {
			t.Errorf("Extract(%q) = %v %q, want %v %q",
				tt.line, item.Quantity, item.Unit, tt.qty, tt.unit)
		}
	}
}

func TestExtractPanelLine(t *testing.T) {
	e := NewExtractor()

	item, _ := e.Extract("- 4 panels of 70mm XPS (2400x600mm) R1.5 – 23.04m²", nil)
	if item == nil {
		t.Fatal("Extract returned nil for a panel line")
	}

	if item.ProductCount != 4 || item.ProductUnit != "panel" {
		t.Errorf("ProductCount/Unit = %d/%q, want 4/panel", item.ProductCount, item.ProductUnit)
	}
	if item.Thickness != "70mm" {
		t.Errorf("Thickness = %q, want 70mm", item.Thickness)
	}
	if item.Dimensions != "2400x600mm" {
		t.Errorf("Dimensions = %q, want 2400x600mm", item.Dimensions)
	}
	if item.RValue != "1.5" {
		t.Errorf("RValue = %q, want 1.5", item.RValue)
	}
	if item.Quantity != 23.04 {
		t.Errorf("Quantity = %v, want 23.04", item.Quantity)
	}
	if item.Category != CategoryXPS {
		t.Errorf("Category = %q, want %q", item.Category, CategoryXPS)
	}

	// 4 panels of 2400x600mm cover 5.76m², far outside 5% of the quoted
	// 23.04m², so the cross-check must flag it.
	found := false
	for _, n := range item.Notes {
		if strings.Contains(n, "Check quantity") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a discrepancy warning note, got %v", item.Notes)
	}
}

func TestExtractPanelLineWithinTolerance(t *testing.T) {
	e := NewExtractor()

	// 4 x 1.44m² = 5.76m², quoted exactly: no warning.
	item, _ := e.Extract("4 panels of 70mm XPS (2400x600mm) R1.5 – 5.76m²", nil)
	if item == nil {
		t.Fatal("Extract returned nil")
	}
	for _, n := range item.Notes {
		if strings.Contains(n, "Check quantity") {
			t.Errorf("unexpected discrepancy note on matching quantities: %q", n)
		}
	}
}

func TestExtractDampCourseLine(t *testing.T) {
	e := NewExtractor()

	item, _ := e.Extract("Dampcourse 300mm - 45 LM", nil)
	if item == nil {
		t.Fatal("Extract returned nil for a damp course line")
	}
	if item.Category != CategoryDampcourse {
		t.Errorf("Category = %q, want %q", item.Category, CategoryDampcourse)
	}
	if item.Quantity != 45 || item.Unit != UnitLinearMetre {
		t.Errorf("Quantity/Unit = %v/%q, want 45/LM", item.Quantity, item.Unit)
	}
	if item.Thickness != "300mm" {
		t.Errorf("Thickness = %q, want 300mm", item.Thickness)
	}
}

func TestExtractColourHint(t *testing.T) {
	e := NewExtractor()

	item, _ := e.Extract("Wall batts (MARKED RED) R2.0 – 30m²", nil)
	if item == nil {
		t.Fatal("Extract returned nil")
	}
	if item.ColourHint != "RED" {
		t.Errorf("ColourHint = %q, want RED", item.ColourHint)
	}
	if item.Description != "Wall batts" {
		t.Errorf("Description = %q, want %q", item.Description, "Wall batts")
	}
}

func TestExtractSupplyOnlyFromTrailingContext(t *testing.T) {
	e := NewExtractor()

	item, _ := e.Extract("Thermal batt R2.5 – 10m²", []string{"Supply only"})
	if item == nil {
		t.Fatal("Extract returned nil")
	}
	if !item.SupplyOnly {
		t.Error("SupplyOnly not promoted from trailing context")
	}
}

func TestExtractEmbeddedDampCourseSpawnsSibling(t *testing.T) {
	e := NewExtractor()

	item, siblings := e.Extract("Ceiling batts R4.0 – 120m² plus dampcourse 300mm - 45 LM", nil)
	if item == nil {
		t.Fatal("Extract returned nil")
	}
	if item.Quantity != 120 {
		t.Errorf("parent Quantity = %v, want 120", item.Quantity)
	}
	if len(siblings) != 1 {
		t.Fatalf("siblings = %d, want 1", len(siblings))
	}
	sib := siblings[0]
	if sib.Category != CategoryDampcourse {
		t.Errorf("sibling Category = %q, want %q", sib.Category, CategoryDampcourse)
	}
	if sib.Quantity != 45 || sib.Unit != UnitLinearMetre {
		t.Errorf("sibling Quantity/Unit = %v/%q, want 45/LM", sib.Quantity, sib.Unit)
	}
}

func TestExtractRemainderNotes(t *testing.T) {
	e := NewExtractor()

	item, _ := e.Extract("Wall wrap – 80 LM; tape joins   fix with strapping", nil)
	if item == nil {
		t.Fatal("Extract returned nil")
	}
	if item.Category != CategoryWallWrap {
		t.Errorf("Category = %q, want %q", item.Category, CategoryWallWrap)
	}
	want := []string{"tape joins", "fix with strapping"}
	if len(item.Notes) != len(want) {
		t.Fatalf("Notes = %v, want %v", item.Notes, want)
	}
	for i := range want {
		if item.Notes[i] != want[i] {
			t.Errorf("Notes[%d] = %q, want %q", i, item.Notes[i], want[i])
		}
	}
}

func TestExtractNoMatch(t *testing.T) {
	e := NewExtractor()

	if item, _ := e.Extract("U1, Basement – Ceiling Insulation", nil); item != nil {
		t.Errorf("Extract matched a heading line: %+v", item)
	}
	if item, _ := e.Extract("just some words", nil); item != nil {
		t.Errorf("Extract matched free text: %+v", item)
	}
}

func TestParseDimensions(t *testing.T) {
	tests := []struct {
		in       string
		w, l     float64
		ok       bool
	}{
		{"2400x600mm", 2400, 600, true},
		{"2400 x 600 mm", 2400, 600, true},
		{"", 0, 0, false},
		{"600mm", 0, 0, false},
	}
	for _, tt := range tests {
		w, l, ok := ParseDimensions(tt.in)
		if w != tt.w || l != tt.l || ok != tt.ok {
			t.Errorf("ParseDimensions(%q) = %v,%v,%v want %v,%v,%v", tt.in, w, l, ok, tt.w, tt.l, tt.ok)
		}
	}
}
