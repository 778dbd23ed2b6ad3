// Package layout renders a warehouse grid as a self-describing JSON document
// for download and archival.
package layout

import (
	"encoding/json"
	"time"

	"github.com/invopop/jsonschema"

	"github.com/neomorfeo/grainvault/internal/domain"
)

// Document is the exported layout of one warehouse.
type Document struct {
	WarehouseID   string        `json:"warehouseId"`
	Name          string        `json:"name"`
	Description   string        `json:"description,omitempty"`
	Configuration Configuration `json:"configuration"`
	Pricing       Pricing       `json:"pricing"`
	TotalSlots    int           `json:"totalSlots"`
	OccupiedSlots int           `json:"occupiedSlots"`
	Layout        []Building    `json:"layout"`
	Occupancy     Occupancy     `json:"occupancy"`
	GeneratedAt   time.Time     `json:"generatedAt"`
}

type Configuration struct {
	BuildingCount     int `json:"buildingCount" jsonschema:"minimum=1,maximum=10"`
	BlocksPerBuilding int `json:"blocksPerBuilding" jsonschema:"minimum=1,maximum=26"`
	RowsPerBlock      int `json:"rowsPerBlock" jsonschema:"minimum=1,maximum=20"`
	ColsPerBlock      int `json:"colsPerBlock" jsonschema:"minimum=1,maximum=20"`
}

type Pricing struct {
	RentPerQuintalPerMonth string `json:"rentPerQuintalPerMonth"`
	MaintenancePerMonth    string `json:"maintenancePerMonth"`
	InsurancePerYear       string `json:"insurancePerYear"`
}

type Building struct {
	Building int     `json:"building"`
	Name     string  `json:"name"`
	Blocks   []Block `json:"blocks"`
}

type Block struct {
	Block string `json:"block"`
	Rows  int    `json:"rows"`
	Cols  int    `json:"cols"`
	Slots []Slot `json:"slots"`
}

type Slot struct {
	Row          int          `json:"row"`
	Col          int          `json:"col"`
	Label        string       `json:"label"`
	Mnemonic     string       `json:"mnemonic"`
	CapacityBags int          `json:"capacityBags"`
	FilledBags   int          `json:"filledBags"`
	Status       string       `json:"status" jsonschema:"enum=empty,enum=partially-filled,enum=full"`
	Allocations  []Allocation `json:"allocations"`
}

type Allocation struct {
	CustomerID string    `json:"customerId"`
	Bags       int       `json:"bags" jsonschema:"minimum=1"`
	GrainType  string    `json:"grainType,omitempty"`
	WeightKg   string    `json:"weightKg,omitempty"`
	EntryDate  time.Time `json:"entryDate"`
	Notes      string    `json:"notes,omitempty"`
}

// Occupancy summarizes the whole warehouse at generation time.
type Occupancy struct {
	TotalSlots    int    `json:"totalSlots"`
	OccupiedSlots int    `json:"occupiedSlots"`
	PartialSlots  int    `json:"partialSlots"`
	FullSlots     int    `json:"fullSlots"`
	EmptySlots    int    `json:"emptySlots"`
	OccupancyRate string `json:"occupancyRate"`
	TotalBags     int    `json:"totalBags"`
	CapacityBags  int    `json:"capacityBags"`
	TotalWeightKg string `json:"totalWeightKg"`
	CustomerCount int    `json:"customerCount"`
}

// Build renders the warehouse as it stands. The warehouse must carry its
// grid; a header-only warehouse yields an empty layout.
func Build(w domain.Warehouse, now time.Time) Document {
	occ := domain.Occupancy(w)

	doc := Document{
		WarehouseID: w.ID,
		Name:        w.Name,
		Description: w.Description,
		Configuration: Configuration{
			BuildingCount:     w.Configuration.BuildingCount,
			BlocksPerBuilding: w.Configuration.BlocksPerBuilding,
			RowsPerBlock:      w.Configuration.RowsPerBlock,
			ColsPerBlock:      w.Configuration.ColsPerBlock,
		},
		Pricing: Pricing{
			RentPerQuintalPerMonth: w.Pricing.RentPerQuintalPerMonth.String(),
			MaintenancePerMonth:    w.Pricing.MaintenancePerMonth.String(),
			InsurancePerYear:       w.Pricing.InsurancePerYear.String(),
		},
		TotalSlots:    w.TotalSlots,
		OccupiedSlots: occ.OccupiedSlots,
		Layout:        make([]Building, 0, len(w.Buildings)),
		Occupancy: Occupancy{
			TotalSlots:    occ.TotalSlots,
			OccupiedSlots: occ.OccupiedSlots,
			PartialSlots:  occ.PartialSlots,
			FullSlots:     occ.FullSlots,
			EmptySlots:    occ.EmptySlots(),
			OccupancyRate: occ.Rate().StringFixed(2),
			TotalBags:     occ.TotalBags,
			CapacityBags:  occ.CapacityBags,
			TotalWeightKg: occ.TotalWeightKg.String(),
			CustomerCount: occ.CustomerCount,
		},
		GeneratedAt: now.UTC(),
	}

	for _, b := range w.Buildings {
		building := Building{Building: b.Index, Name: b.Name(), Blocks: make([]Block, 0, len(b.Blocks))}
		for _, bl := range b.Blocks {
			block := Block{Block: bl.Label, Rows: bl.Rows, Cols: bl.Cols, Slots: make([]Slot, 0, len(bl.Slots))}
			for _, s := range bl.Slots {
				block.Slots = append(block.Slots, slotOf(s))
			}
			building.Blocks = append(building.Blocks, block)
		}
		doc.Layout = append(doc.Layout, building)
	}
	return doc
}

func slotOf(s domain.Slot) Slot {
	out := Slot{
		Row:          s.Ref.Row,
		Col:          s.Ref.Col,
		Label:        s.Label,
		Mnemonic:     s.Mnemonic,
		CapacityBags: s.CapacityBags,
		FilledBags:   s.FilledBags(),
		Status:       string(s.Status()),
		Allocations:  make([]Allocation, 0, len(s.Allocations)),
	}
	for _, a := range s.Allocations {
		alloc := Allocation{
			CustomerID: a.CustomerID,
			Bags:       a.Bags,
			GrainType:  a.GrainType,
			EntryDate:  a.EntryDate.UTC(),
			Notes:      a.Notes,
		}
		if a.WeightKg.Valid {
			alloc.WeightKg = a.WeightKg.Decimal.String()
		}
		out.Allocations = append(out.Allocations, alloc)
	}
	return out
}

// Marshal encodes the document as indented JSON.
func Marshal(doc Document) ([]byte, error) {
	return json.MarshalIndent(doc, "", "  ")
}

// Schema returns the JSON Schema describing Document.
func Schema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	return reflector.Reflect(&Document{})
}
