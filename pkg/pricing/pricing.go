// Package pricing computes quote totals from an aggregated worksheet and
// a catalog snapshot. It is a pure downstream consumer of the parsing
// pipeline: unmatched items simply contribute no cost and are reported so
// the reviewer can resolve them.
package pricing

import (
	"github.com/coolbeans/insuquote/pkg/aggregate"
	"github.com/coolbeans/insuquote/pkg/catalog"
)

// Params controls margin, GST and the frame type used for labour rates.
type Params struct {
	MarginRate float64           `yaml:"margin_rate"`
	GSTRate    float64           `yaml:"gst_rate"`
	Frame      catalog.FrameType `yaml:"frame"`
}

// DefaultParams returns the standard quote parameters.
func DefaultParams() Params {
	return Params{MarginRate: 0.30, GSTRate: 0.10, Frame: catalog.FrameTimber}
}

// LineCost is the costing of one aggregated line item.
type LineCost struct {
	ItemID       string  `json:"item_id"`
	Description  string  `json:"description"`
	MaterialID   string  `json:"material_id,omitempty"`
	Quantity     float64 `json:"quantity"`
	Unit         string  `json:"unit"`
	MaterialCost float64 `json:"material_cost"`
	LabourCost   float64 `json:"labour_cost"`
	Unmatched    bool    `json:"unmatched,omitempty"`
}

// GroupCost is the costing of one aggregated group.
type GroupCost struct {
	GroupID      string     `json:"group_id"`
	Name         string     `json:"name"`
	Lines        []LineCost `json:"lines"`
	MaterialCost float64    `json:"material_cost"`
	LabourCost   float64    `json:"labour_cost"`
}

// Totals summarizes the whole quote.
type Totals struct {
	MaterialCost float64 `json:"material_cost"`
	LabourCost   float64 `json:"labour_cost"`
	Subtotal     float64 `json:"subtotal"`
	Margin       float64 `json:"margin"`
	GST          float64 `json:"gst"`
	Total        float64 `json:"total"`
	Unmatched    int     `json:"unmatched"`
}

// Quote is the priced worksheet.
type Quote struct {
	Groups []GroupCost `json:"groups"`
	Totals Totals      `json:"totals"`
}

// Calculate prices an aggregated worksheet against the catalog snapshot.
func Calculate(ws *aggregate.Worksheet, snap *catalog.Snapshot, p Params) Quote {
	quote := Quote{Groups: make([]GroupCost, 0, len(ws.Groups))}

	for _, group := range ws.Groups {
		gc := GroupCost{GroupID: group.ID, Name: group.Name, Lines: make([]LineCost, 0, len(group.Items))}
		for _, item := range group.Items {
			line := costLine(item, snap, p)
			gc.MaterialCost += line.MaterialCost
			gc.LabourCost += line.LabourCost
			if line.Unmatched {
				quote.Totals.Unmatched++
			}
			gc.Lines = append(gc.Lines, line)
		}
		quote.Totals.MaterialCost += gc.MaterialCost
		quote.Totals.LabourCost += gc.LabourCost
		quote.Groups = append(quote.Groups, gc)
	}

	t := &quote.Totals
	t.Subtotal = t.MaterialCost + t.LabourCost
	t.Margin = t.Subtotal * p.MarginRate
	t.GST = (t.Subtotal + t.Margin) * p.GSTRate
	t.Total = t.Subtotal + t.Margin + t.GST
	return quote
}

func costLine(item *aggregate.Item, snap *catalog.Snapshot, p Params) LineCost {
	line := LineCost{
		ItemID:      item.ID,
		Description: item.Description,
		MaterialID:  item.MaterialID,
		Quantity:    item.Quantity,
		Unit:        string(item.Unit),
	}

	mat := snap.Material(item.MaterialID)
	if mat == nil {
		line.Unmatched = true
	} else {
		// Sell by product count when the catalog sale unit matches the
		// parsed product unit (panels, bags); otherwise by quantity.
		if item.ProductCount > 0 && mat.SaleUnit != "" && mat.SaleUnit == item.ProductUnit {
			line.MaterialCost = float64(item.ProductCount) * mat.UnitCost
		} else {
			line.MaterialCost = item.Quantity * mat.UnitCost
		}
	}

	if !item.SupplyOnly {
		for _, id := range item.LabourIDs {
			if rate := snap.Labour(id); rate != nil {
				line.LabourCost += item.Quantity * rate.Rate(p.Frame)
			}
		}
		if line.LabourCost == 0 && mat != nil && mat.InstallRate(p.Frame) > 0 {
			line.LabourCost = item.Quantity * mat.InstallRate(p.Frame)
		}
	}
	return line
}
