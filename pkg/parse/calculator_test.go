package parse

import (
	"strings"
	"testing"

	"github.com/coolbeans/insuquote/pkg/catalog"
)

func TestDeriveCountFromDimensions(t *testing.T) {
	item := &RawLineItem{
		Category:   CategoryXPS,
		Quantity:   10,
		Unit:       UnitSquareMetre,
		Dimensions: "2400x600mm",
	}

	d := DeriveCount(item, nil)
	if d == nil {
		t.Fatal("DeriveCount returned nil with dimensions on the item")
	}
	// 2400x600mm is 1.44m² per panel; 10/1.44 rounds up to 7.
	if d.Count != 7 {
		t.Errorf("Count = %d, want 7", d.Count)
	}
	if d.Unit != "panel" {
		t.Errorf("Unit = %q, want panel", d.Unit)
	}
	if d.Dimensions != "2400x600mm" {
		t.Errorf("Dimensions = %q, want 2400x600mm", d.Dimensions)
	}
}

func TestDeriveCountFromCatalog(t *testing.T) {
	materials := []catalog.Material{
		{ID: "xps-50", Name: "XPS board 50mm", Category: "XPS Panels", Thickness: "50mm", Width: 1200, Length: 600},
		{ID: "xps-70", Name: "XPS board 70mm", Category: "XPS Panels", Thickness: "70mm", RValue: "1.5", Width: 2400, Length: 600},
	}
	item := &RawLineItem{
		Category:  CategoryXPS,
		Quantity:  10,
		Unit:      UnitSquareMetre,
		Thickness: "70mm",
		RValue:    "1.5",
	}

	d := DeriveCount(item, materials)
	if d == nil {
		t.Fatal("DeriveCount returned nil with a matching catalog material")
	}
	if d.Count != 7 {
		t.Errorf("Count = %d, want 7", d.Count)
	}
	if d.Dimensions != "2400x600mm" {
		t.Errorf("Dimensions = %q, want 2400x600mm from the 70mm material", d.Dimensions)
	}
}

func TestDeriveCountSkipsNonPanelItems(t *testing.T) {
	batts := &RawLineItem{Category: CategoryBulkInsulation, Quantity: 45.5, Unit: UnitSquareMetre, Dimensions: "1160x430mm"}
	if d := DeriveCount(batts, nil); d != nil {
		t.Errorf("derived a count for bulk insulation: %+v", d)
	}

	counted := &RawLineItem{Category: CategoryXPS, Quantity: 10, ProductCount: 4, Dimensions: "2400x600mm"}
	if d := DeriveCount(counted, nil); d != nil {
		t.Errorf("derived a count despite an explicit product count: %+v", d)
	}
}

func TestDeriveCountNoDimensionsAnywhere(t *testing.T) {
	item := &RawLineItem{Category: CategoryXPS, Quantity: 10, Unit: UnitSquareMetre}
	if d := DeriveCount(item, []catalog.Material{{ID: "b", Name: "Batt", Category: "Bulk Insulation"}}); d != nil {
		t.Errorf("derived a count with no dimensions available: %+v", d)
	}
}

func TestApplyDerivedCount(t *testing.T) {
	item := &RawLineItem{Category: CategoryXPS, Quantity: 10, Unit: UnitSquareMetre}
	ApplyDerivedCount(item, &DerivedCount{Count: 7, Unit: "panel", Dimensions: "2400x600mm"})

	if item.ProductCount != 7 || item.ProductUnit != "panel" {
		t.Errorf("ProductCount/Unit = %d/%q, want 7/panel", item.ProductCount, item.ProductUnit)
	}
	if item.Dimensions != "2400x600mm" {
		t.Errorf("Dimensions = %q, want filled from derivation", item.Dimensions)
	}
	if len(item.Notes) != 1 || !strings.Contains(item.Notes[0], "Auto-calculated 7 panels") {
		t.Errorf("Notes = %v, want an auto-calculation note", item.Notes)
	}

	// nil derivation is a no-op.
	before := *item
	ApplyDerivedCount(item, nil)
	if item.ProductCount != before.ProductCount || len(item.Notes) != len(before.Notes) {
		t.Error("ApplyDerivedCount(nil) mutated the item")
	}
}
