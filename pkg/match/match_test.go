package match

import (
	"testing"

	"github.com/coolbeans/insuquote/pkg/catalog"
)

func TestMatchMaterialBestAndShortlist(t *testing.T) {
	materials := []catalog.Material{
		{ID: "m1", Name: "Thermal batt", Category: "Bulk Insulation"},
		{ID: "m2", Name: "Thermal batts", Category: "Bulk Insulation"},
		{ID: "m3", Name: "Reflective roofing membrane", Category: "Wall Wrap"},
	}

	res := MatchMaterial(MaterialQuery{Description: "Thermal batt"}, materials, DefaultTuning())
	if res.Best == nil || res.Best.ID != "m1" {
		t.Fatalf("Best = %+v, want exact name m1", res.Best)
	}
	if res.BestDistance != 0 {
		t.Errorf("BestDistance = %d, want 0", res.BestDistance)
	}
	if len(res.Shortlist) != 1 || res.Shortlist[0].Material.ID != "m2" {
		t.Errorf("Shortlist = %+v, want the one-edit neighbour m2", res.Shortlist)
	}
}

func TestMatchMaterialRejectsDistantNames(t *testing.T) {
	materials := []catalog.Material{
		{ID: "m1", Name: "Reflective roofing membrane"},
	}
	res := MatchMaterial(MaterialQuery{Description: "Thermal batt"}, materials, DefaultTuning())
	if res.Best != nil {
		t.Errorf("Best = %+v, want nil for a distant name", res.Best)
	}
	if len(res.Shortlist) != 0 {
		t.Errorf("Shortlist = %+v, want empty", res.Shortlist)
	}
}

func TestMatchMaterialRValueIsExact(t *testing.T) {
	materials := []catalog.Material{
		{ID: "plain", Name: "Thermal batt", RValue: "2.5"},
		{ID: "hd", Name: "Thermal batt", RValue: "2.5HD"},
	}

	res := MatchMaterial(MaterialQuery{Description: "Thermal batt", RValue: "2.5HD"}, materials, DefaultTuning())
	if res.Best == nil || res.Best.ID != "hd" {
		t.Fatalf("Best = %+v, want hd (grade suffix is significant)", res.Best)
	}

	res = MatchMaterial(MaterialQuery{Description: "Thermal batt", RValue: "2.5"}, materials, DefaultTuning())
	if res.Best == nil || res.Best.ID != "plain" {
		t.Fatalf("Best = %+v, want plain (no grade)", res.Best)
	}
}

func TestMatchMaterialBrandFilter(t *testing.T) {
	materials := []catalog.Material{
		{ID: "a", Name: "Thermal batt", Brand: "Earthwool"},
		{ID: "b", Name: "Thermal batt", Brand: "Pink"},
	}
	res := MatchMaterial(MaterialQuery{Description: "Thermal batt", Brand: "pink"}, materials, DefaultTuning())
	if res.Best == nil || res.Best.ID != "b" {
		t.Fatalf("Best = %+v, want the brand-filtered match b", res.Best)
	}
	if len(res.Shortlist) != 0 {
		t.Errorf("Shortlist = %+v, want brand-mismatched candidates excluded", res.Shortlist)
	}
}

func TestMatchMaterialShortlistCap(t *testing.T) {
	materials := []catalog.Material{
		{ID: "m0", Name: "Thermal batt"},
		{ID: "m1", Name: "Thermal batt A"},
		{ID: "m2", Name: "Thermal batt B"},
		{ID: "m3", Name: "Thermal batt C"},
	}
	tuning := DefaultTuning()
	tuning.ShortlistSize = 2

	res := MatchMaterial(MaterialQuery{Description: "Thermal batt"}, materials, tuning)
	if res.Best == nil || res.Best.ID != "m0" {
		t.Fatalf("Best = %+v, want m0", res.Best)
	}
	if len(res.Shortlist) != 2 {
		t.Fatalf("Shortlist size = %d, want capped at 2", len(res.Shortlist))
	}
	// Name tiebreak keeps the order deterministic.
	if res.Shortlist[0].Material.ID != "m1" || res.Shortlist[1].Material.ID != "m2" {
		t.Errorf("Shortlist = [%s %s], want [m1 m2]", res.Shortlist[0].Material.ID, res.Shortlist[1].Material.ID)
	}
}

func TestMatchMaterialEmptyDescription(t *testing.T) {
	res := MatchMaterial(MaterialQuery{}, []catalog.Material{{ID: "m", Name: "Thermal batt"}}, DefaultTuning())
	if res.Best != nil || len(res.Shortlist) != 0 {
		t.Errorf("empty description matched: %+v", res)
	}
}

func TestMatchLabour(t *testing.T) {
	rates := []catalog.LabourRate{
		{ID: "ceil", Application: "Ceiling Insulation", Keywords: []string{"batt"}},
		{ID: "wrap", Application: "Wall Wrap", Keywords: []string{"wrap"}},
		{ID: "floor", Application: "Underfloor", Area: "subfloor"},
	}

	res := MatchLabour("Thermal batt R2.5", "Basement Ceiling Insulation", rates)
	if len(res.Best) != 1 || res.Best[0].ID != "ceil" {
		t.Fatalf("Best = %+v, want [ceil]", res.Best)
	}
	if len(res.Possible) != 2 {
		t.Errorf("Possible = %d rates, want 2", len(res.Possible))
	}

	// Area substring of the description.
	res = MatchLabour("subfloor insulation panels", "", rates)
	found := false
	for _, r := range res.Best {
		if r.ID == "floor" {
			found = true
		}
	}
	if !found {
		t.Errorf("Best = %+v, want floor via area substring", res.Best)
	}
}
